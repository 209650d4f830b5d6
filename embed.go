package gameground

import "embed"

// EmbeddedAssets holds the game catalog, the Markdown sources of the static
// pages and the stylesheet served under /public.
//
//go:embed embedded
var EmbeddedAssets embed.FS

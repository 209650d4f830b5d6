package gameground

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// SiteConfig holds all configuration for a Game Ground site.
type SiteConfig struct {
	Name          string // Site name (default "My Game Ground")
	URL           string // Canonical URL (default "http://localhost:3000")
	Description   string // Site description for feeds and meta tags
	Author        string // Feed and publisher author (default Name)
	TwitterHandle string // twitter:site / twitter:creator
	Locale        string // og:locale (default "en_US")

	Addr string // Listen address (default ":3000")

	ContentAPIBase string        // Blogger v3 blogs endpoint
	ContentAPIKey  string        // Sent as the "key" query parameter
	BlogID         string        // Content source identifier
	MaxResults     int           // Posts per listing (default 10)
	HTTPTimeout    time.Duration // Outbound request timeout (default 10s)

	CacheBackend string // "memory" (default), "redis" or "sqlite"
	RedisAddr    string // Used by the redis backend
	CacheDBPath  string // Used by the sqlite backend (default "data/cache.db")

	SessionSecret string // Cookie session key; generated per process when empty
	CookieSecure  bool   // Set true for HTTPS

	LookupLimit int // Article lookups per IP per minute (default 60)

	GamesFile string // Optional YAML catalog replacing the embedded one
}

const (
	defaultBlogName        = "My Game Ground"
	defaultBlogDescription = "Level up your knowledge with the latest gaming news, patch notes, and deep dives."
	defaultContentAPIBase  = "https://www.googleapis.com/blogger/v3/blogs"
)

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = defaultBlogName
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Description == "" {
		c.Description = defaultBlogDescription
	}
	if c.Author == "" {
		c.Author = c.Name
	}
	if c.Locale == "" {
		c.Locale = "en_US"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ContentAPIBase == "" {
		c.ContentAPIBase = defaultContentAPIBase
	}
	c.ContentAPIBase = strings.TrimSuffix(c.ContentAPIBase, "/")
	if c.MaxResults <= 0 {
		c.MaxResults = 10
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	if c.CacheBackend == "" {
		c.CacheBackend = "memory"
	}
	if c.CacheDBPath == "" {
		c.CacheDBPath = "data/cache.db"
	}
	if c.LookupLimit <= 0 {
		c.LookupLimit = 60
	}
}

// Info returns the template-safe subset of the configuration.
func (c SiteConfig) Info() SiteInfo {
	return SiteInfo{
		Name:          c.Name,
		URL:           c.URL,
		Description:   c.Description,
		Author:        c.Author,
		TwitterHandle: c.TwitterHandle,
		Locale:        c.Locale,
	}
}

// BlogMeta returns the listing metadata for the articles section.
func (c SiteConfig) BlogMeta() BlogMeta {
	return BlogMeta{
		Name:        c.Name,
		Description: c.Description,
		URL:         BuildURL(c.URL, "articles"),
		Locale:      c.Locale,
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir serves an extra directory of static assets under /static.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithContentClient replaces the Blogger client, mainly for tests.
func WithContentClient(client ContentClient) Option {
	return func(a *App) {
		a.client = client
	}
}

// WithCatalog replaces the embedded game catalog.
func WithCatalog(catalog *Catalog) Option {
	return func(a *App) {
		a.Catalog = catalog
	}
}

// WithCacheBackend replaces the backend selected by SiteConfig.CacheBackend.
func WithCacheBackend(backend CacheBackend) Option {
	return func(a *App) {
		a.backend = backend
	}
}

// WithLogger replaces the Echo logger used by the app and its pipelines.
func WithLogger(l echo.Logger) Option {
	return func(a *App) {
		a.Echo.Logger = l
	}
}

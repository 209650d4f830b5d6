package gameground

import (
	"strconv"
	"strings"
	"time"
)

// Post is a blog post as returned by the content API. The API is the only
// system of record; posts are never modified here.
type Post struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Published string   `json:"published"`
	Updated   string   `json:"updated,omitempty"`
	URL       string   `json:"url,omitempty"`
	Content   string   `json:"content"`
	Summary   string   `json:"summary,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Author    Author   `json:"author"`
	Replies   *Replies `json:"replies,omitempty"`
}

// Author is the author record attached to a Post.
type Author struct {
	DisplayName string       `json:"displayName"`
	Image       *AuthorImage `json:"image,omitempty"`
}

type AuthorImage struct {
	URL string `json:"url"`
}

// Replies carries the comment count. The API encodes the count as a string.
type Replies struct {
	TotalItems string `json:"totalItems"`
}

// AvatarURL returns the author's avatar URL or "".
func (a Author) AvatarURL() string {
	if a.Image == nil {
		return ""
	}
	return a.Image.URL
}

// Initial returns the upper-cased first letter of the display name.
func (a Author) Initial() string {
	for _, r := range a.DisplayName {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// CommentCount parses the reply count, returning 0 when absent or malformed.
func (p Post) CommentCount() int {
	if p.Replies == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(p.Replies.TotalItems))
	if err != nil {
		return 0
	}
	return n
}

// Game is one entry of the static game catalog.
type Game struct {
	ID          string `yaml:"id"`
	Category    string `yaml:"category"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Thumbnail   string `yaml:"thumbnail"`
	GameURL     string `yaml:"game_url"`
}

// BlogMeta is the site-level metadata attached to every article listing.
type BlogMeta struct {
	Name        string
	Description string
	URL         string
	Locale      string
}

// ArticleView is a Post plus everything derived from it for rendering.
type ArticleView struct {
	Post        Post
	Slug        string
	Path        string // /articles/{slug}
	URL         string // canonical + og:url
	Teaser      string // stripped summary or content, full length
	Excerpt     string
	Description string // meta description, at most 160 runes
	WordCount   int
	ReadTime    int // minutes, at least 1
	Published   time.Time
	Updated     time.Time
}

// CardExcerpt shortens the teaser for listing cards, marking any cut with an
// ellipsis. The first card of a listing gets more room.
func (a ArticleView) CardExcerpt(hero bool) string {
	n := cardExcerptLen
	if hero {
		n = heroExcerptLen
	}
	text := a.Teaser
	if text == "" {
		text = a.Excerpt
	}
	return Ellipsize(text, n)
}

// WasUpdated reports whether the post was edited after publication.
func (a ArticleView) WasUpdated() bool {
	return !a.Updated.IsZero() && !a.Updated.Equal(a.Published)
}

// SiteInfo is the public subset of SiteConfig handed to templates.
type SiteInfo struct {
	Name          string
	URL           string
	Description   string
	Author        string
	TwitterHandle string
	Locale        string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title         string
	Description   string
	URL           string // canonical + og:url
	OGType        string // "website" or "article"
	Image         string
	ImageAlt      string
	Keywords      string
	Author        string
	JSONLD        string
	Feeds         bool // emit RSS/Atom alternates
	NoIndex       bool
	Article       *ArticleMeta
	TwitterLabels []TwitterLabel
}

// ArticleMeta holds the article:* OpenGraph properties.
type ArticleMeta struct {
	PublishedTime string
	ModifiedTime  string
	Author        string
	Section       string
	Tags          []string
}

// TwitterLabel is one twitter:labelN / twitter:dataN pair.
type TwitterLabel struct {
	Label string
	Data  string
}

// Layout is embedded in every page model.
type Layout struct {
	Site SiteInfo
	Meta PageMeta
	Path string
}

type HomePage struct {
	Layout
	Games      []Game
	Featured   []Game
	Recent     []Game
	Categories []string
}

type GamePage struct {
	Layout
	Game      Game
	Suggested []Game
	Playing   bool
}

type ArticlesPage struct {
	Layout
	Blog     BlogMeta
	Articles []ArticleView
	Degraded bool
}

type ArticlePage struct {
	Layout
	Article ArticleView
}

// StaticPage is an informational page rendered from Markdown. Body is trusted HTML.
type StaticPage struct {
	Layout
	Title string
	Body  string
}

type NotFoundPage struct {
	Layout
	Message string
}

type ErrorPage struct {
	Layout
	Code    int
	Message string
}

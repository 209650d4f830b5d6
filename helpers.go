package gameground

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	wordsPerMinute = 200

	excerptLen     = 155
	descriptionLen = 160
	heroExcerptLen = 220
	cardExcerptLen = 140

	// jsonLDPostLimit caps the BlogPosting entries embedded in the Blog JSON-LD.
	jsonLDPostLimit = 5
)

var (
	reNonWord = regexp.MustCompile(`[^\w ]+`)
	reSpaces  = regexp.MustCompile(` +`)
	reTag     = regexp.MustCompile(`<[^>]*>?`)
)

// CreateSlug derives the URL segment for a post: the lowercased title with
// non-word characters removed and spaces collapsed to hyphens, followed by
// "-" and the post id. Different titles may produce the same stem; only the
// id tail is significant.
func CreateSlug(title, id string) string {
	clean := strings.ToLower(title)
	clean = reNonWord.ReplaceAllString(clean, "")
	clean = reSpaces.ReplaceAllString(clean, "-")
	return clean + "-" + id
}

// PostIDFromSlug returns the last hyphen-separated segment of slug. It is the
// inverse of CreateSlug only for ids that contain no hyphen.
func PostIDFromSlug(slug string) string {
	parts := strings.Split(slug, "-")
	return parts[len(parts)-1]
}

// ArticlePath returns the site-relative path of a post.
func ArticlePath(title, id string) string {
	return "/articles/" + CreateSlug(title, id)
}

// StripHTML removes tags and decodes &nbsp; and &amp;. Other entities are
// left untouched.
func StripHTML(html string) string {
	s := reTag.ReplaceAllString(html, "")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return strings.TrimSpace(s)
}

// WordCount counts whitespace-separated words in the stripped content.
// Empty content counts as zero words.
func WordCount(html string) int {
	return len(strings.Fields(StripHTML(html)))
}

// EstimateReadTime returns whole minutes at 200 words per minute, never less
// than one.
func EstimateReadTime(html string) int {
	return readTimeForWords(WordCount(html))
}

func readTimeForWords(words int) int {
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Ellipsize truncates s to n runes and appends "…" when something was cut.
func Ellipsize(s string, n int) string {
	t := Truncate(s, n)
	if len(t) < len(s) {
		return t + "…"
	}
	return t
}

// Teaser returns the stripped summary if there is one, otherwise the
// stripped content. It is not shortened.
func Teaser(p Post) string {
	if p.Summary != "" {
		return StripHTML(p.Summary)
	}
	return StripHTML(p.Content)
}

// Excerpt is the Teaser cut to 155 runes.
func Excerpt(p Post) string {
	return Truncate(Teaser(p), excerptLen)
}

// MetaDescription is the Teaser capped at 160 runes for <meta name="description">.
func MetaDescription(p Post) string {
	return Truncate(Teaser(p), descriptionLen)
}

// ParseTimestamp parses the RFC 3339 timestamps the content API emits.
// Unparseable input yields the zero time.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// BuildURL joins path segments onto a base URL.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join("/", u.Path, path.Join(pathSegments...))
	if len(pathSegments) == 0 && u.Path == "/" {
		u.Path = ""
	}
	return u.String()
}

// NewArticleView derives the display record for p. slug is the path segment
// the article is served under; canonical URLs are built from it.
func NewArticleView(cfg SiteConfig, p Post, slug string) ArticleView {
	if slug == "" {
		slug = CreateSlug(p.Title, p.ID)
	}
	words := WordCount(p.Content)
	teaser := Teaser(p)
	return ArticleView{
		Post:        p,
		Slug:        slug,
		Path:        "/articles/" + slug,
		URL:         BuildURL(cfg.URL, "articles", slug),
		Teaser:      teaser,
		Excerpt:     Truncate(teaser, excerptLen),
		Description: Truncate(teaser, descriptionLen),
		WordCount:   words,
		ReadTime:    readTimeForWords(words),
		Published:   ParseTimestamp(p.Published),
		Updated:     ParseTimestamp(p.Updated),
	}
}

func marshalJSONLD(data map[string]interface{}) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func person(name string) map[string]string {
	return map[string]string{
		"@type": "Person",
		"name":  name,
	}
}

// WebsiteJsonLD returns a WebSite JSON-LD document with a SearchAction.
func WebsiteJsonLD(cfg SiteConfig) string {
	return marshalJSONLD(map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
		"potentialAction": map[string]interface{}{
			"@type": "SearchAction",
			"target": map[string]string{
				"@type":       "EntryPoint",
				"urlTemplate": BuildURL(cfg.URL, "search") + "?q={search_term_string}",
			},
			"query-input": "required name=search_term_string",
		},
	})
}

// BlogJsonLD returns a Blog JSON-LD document listing the first five articles.
func BlogJsonLD(meta BlogMeta, articles []ArticleView) string {
	n := len(articles)
	if n > jsonLDPostLimit {
		n = jsonLDPostLimit
	}
	posts := make([]map[string]interface{}, 0, n)
	for _, a := range articles[:n] {
		posts = append(posts, map[string]interface{}{
			"@type":         "BlogPosting",
			"headline":      a.Post.Title,
			"datePublished": a.Post.Published,
			"dateModified":  a.Post.Updated,
			"author":        person(a.Post.Author.DisplayName),
			"url":           a.URL,
			"description":   Truncate(a.Excerpt, descriptionLen),
		})
	}
	return marshalJSONLD(map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "Blog",
		"name":        meta.Name,
		"description": meta.Description,
		"url":         meta.URL,
		"blogPost":    posts,
	})
}

// BlogPostingJsonLD returns the BlogPosting JSON-LD document for one article.
func BlogPostingJsonLD(cfg SiteConfig, a ArticleView) string {
	author := map[string]string{
		"@type": "Person",
		"name":  a.Post.Author.DisplayName,
	}
	if avatar := a.Post.Author.AvatarURL(); avatar != "" {
		author["image"] = avatar
	}
	modified := a.Post.Updated
	if modified == "" {
		modified = a.Post.Published
	}
	data := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      a.Post.Title,
		"description":   a.Description,
		"datePublished": a.Post.Published,
		"dateModified":  modified,
		"author":        author,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
			"url":   cfg.URL,
		},
		"url": a.URL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   a.URL,
		},
		"wordCount":    a.WordCount,
		"timeRequired": fmt.Sprintf("PT%dM", a.ReadTime),
		"inLanguage":   languageTag(cfg.Locale),
		"isPartOf": map[string]string{
			"@type": "Blog",
			"name":  cfg.Name,
			"url":   cfg.URL,
		},
	}
	if len(a.Post.Labels) > 0 {
		data["keywords"] = strings.Join(a.Post.Labels, ", ")
	}
	return marshalJSONLD(data)
}

// VideoGameJsonLD describes a catalog game.
func VideoGameJsonLD(cfg SiteConfig, g Game) string {
	return marshalJSONLD(map[string]interface{}{
		"@context":            "https://schema.org",
		"@type":               "VideoGame",
		"name":                g.Title,
		"genre":               g.Category,
		"url":                 BuildURL(cfg.URL, "game", g.ID),
		"image":               g.Thumbnail,
		"description":         Truncate(StripHTML(g.Description), descriptionLen),
		"gamePlatform":        "Web browser",
		"applicationCategory": "Game",
	})
}

// languageTag turns "en_US" into "en-US".
func languageTag(locale string) string {
	return strings.ReplaceAll(locale, "_", "-")
}

package gameground

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Self          atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        rssGUID  `xml:"guid"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

type atomFeed struct {
	XMLName  xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Title    string      `xml:"title"`
	Subtitle string      `xml:"subtitle,omitempty"`
	ID       string      `xml:"id"`
	Updated  string      `xml:"updated"`
	Links    []atomLink  `xml:"link"`
	Author   atomPerson  `xml:"author"`
	Entries  []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
	Type string `xml:"type,attr,omitempty"`
}

type atomPerson struct {
	Name string `xml:"name"`
}

type atomEntry struct {
	Title      string         `xml:"title"`
	ID         string         `xml:"id"`
	Link       atomLink       `xml:"link"`
	Published  string         `xml:"published,omitempty"`
	Updated    string         `xml:"updated"`
	Author     atomPerson     `xml:"author"`
	Summary    string         `xml:"summary"`
	Categories []atomCategory `xml:"category"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

func (a *App) handleRSS(c echo.Context) error {
	idx := a.Blog.ListArticles(c.Request().Context())
	return a.writeXML(c, "application/rss+xml; charset=utf-8", feedPolicy(idx), a.buildRSS(idx))
}

func (a *App) handleAtom(c echo.Context) error {
	idx := a.Blog.ListArticles(c.Request().Context())
	return a.writeXML(c, "application/atom+xml; charset=utf-8", feedPolicy(idx), a.buildAtom(idx))
}

// feedPolicy caches feeds longer than pages, except when the listing failed.
func feedPolicy(idx ArticleIndex) CachePolicy {
	if idx.Degraded {
		return idx.Policy
	}
	return FeedPolicy
}

func (a *App) buildRSS(idx ArticleIndex) rssXML {
	items := make([]rssItem, 0, len(idx.Articles))
	for _, v := range idx.Articles {
		item := rssItem{
			Title:       v.Post.Title,
			Link:        v.URL,
			Description: v.Excerpt,
			Author:      v.Post.Author.DisplayName,
			Categories:  v.Post.Labels,
			GUID:        rssGUID{Value: v.URL, IsPermaLink: true},
		}
		if !v.Published.IsZero() {
			item.PubDate = v.Published.Format(time.RFC1123Z)
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       idx.Meta.Name,
			Link:        idx.Meta.URL,
			Description: idx.Meta.Description,
			Language:    languageTag(idx.Meta.Locale),
			Self: atomLink{
				Href: BuildURL(a.Config.URL, "rss.xml"),
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Items: items,
		},
	}
	if t := lastModified(idx); !t.IsZero() {
		feed.Channel.LastBuildDate = t.Format(time.RFC1123Z)
	}
	return feed
}

func (a *App) buildAtom(idx ArticleIndex) atomFeed {
	updated := lastModified(idx)
	if updated.IsZero() {
		updated = time.Unix(0, 0)
	}
	entries := make([]atomEntry, 0, len(idx.Articles))
	for _, v := range idx.Articles {
		entryUpdated := v.Updated
		if entryUpdated.IsZero() {
			entryUpdated = v.Published
		}
		entry := atomEntry{
			Title:   v.Post.Title,
			ID:      v.URL,
			Link:    atomLink{Href: v.URL, Rel: "alternate", Type: "text/html"},
			Updated: entryUpdated.UTC().Format(time.RFC3339),
			Author:  atomPerson{Name: v.Post.Author.DisplayName},
			Summary: v.Excerpt,
		}
		if !v.Published.IsZero() {
			entry.Published = v.Published.UTC().Format(time.RFC3339)
		}
		for _, l := range v.Post.Labels {
			entry.Categories = append(entry.Categories, atomCategory{Term: l})
		}
		entries = append(entries, entry)
	}
	return atomFeed{
		Title:    idx.Meta.Name,
		Subtitle: idx.Meta.Description,
		ID:       idx.Meta.URL,
		Updated:  updated.UTC().Format(time.RFC3339),
		Links: []atomLink{
			{Href: idx.Meta.URL, Rel: "alternate", Type: "text/html"},
			{Href: BuildURL(a.Config.URL, "atom.xml"), Rel: "self", Type: "application/atom+xml"},
		},
		Author:  atomPerson{Name: a.Config.Author},
		Entries: entries,
	}
}

func (a *App) writeXML(c echo.Context, contentType string, policy CachePolicy, v interface{}) error {
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().Header().Set(echo.HeaderCacheControl, policy.Header())
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	enc := xml.NewEncoder(c.Response())
	enc.Indent("", "  ")
	return enc.Encode(v)
}

package gameground

import (
	"encoding/xml"
	"sort"

	"github.com/labstack/echo/v4"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

func (a *App) handleSitemap(c echo.Context) error {
	idx := a.Blog.ListArticles(c.Request().Context())
	return a.writeXML(c, "application/xml; charset=utf-8", feedPolicy(idx), a.buildSitemap(idx))
}

func (a *App) buildSitemap(idx ArticleIndex) sitemapURLSet {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base), ChangeFreq: "daily", Priority: "1.0"},
		{Loc: BuildURL(base, "articles"), ChangeFreq: "hourly", Priority: "0.9"},
	}
	for _, g := range a.Catalog.All() {
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(base, "game", g.ID),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}
	for _, v := range idx.Articles {
		u := sitemapURL{Loc: v.URL, ChangeFreq: "weekly", Priority: "0.7"}
		switch {
		case !v.Updated.IsZero():
			u.LastMod = v.Updated.Format("2006-01-02")
		case !v.Published.IsZero():
			u.LastMod = v.Published.Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	slugs := make([]string, 0, len(a.pages))
	for slug := range a.pages {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	for _, slug := range slugs {
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(base, slug),
			ChangeFreq: "yearly",
			Priority:   "0.3",
		})
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

package gameground

import (
	"fmt"
	"strings"
	"time"
)

const (
	homeKeywords     = "free online games, browser games, gaming, play games online, action games, adventure games"
	articlesKeywords = "gaming news, patch notes, game updates, esports, reviews"
	articleSection   = "Gaming"
)

func (a *App) layout(path string, meta PageMeta) Layout {
	if meta.Image == "" {
		meta.Image = BuildURL(a.Config.URL, "og-image.png")
	}
	if meta.OGType == "" {
		meta.OGType = "website"
	}
	if meta.URL == "" {
		meta.URL = BuildURL(a.Config.URL, path)
	}
	return Layout{Site: a.Config.Info(), Meta: meta, Path: path}
}

func (a *App) homeMeta() PageMeta {
	return PageMeta{
		Title:       a.Config.Name + " | Play Free Games Online",
		Description: a.Config.Description,
		URL:         BuildURL(a.Config.URL),
		ImageAlt:    a.Config.Name + " | Play Free Games Online",
		Keywords:    homeKeywords,
		JSONLD:      WebsiteJsonLD(a.Config),
		Feeds:       true,
	}
}

func (a *App) gameMeta(g Game) PageMeta {
	return PageMeta{
		Title:       g.Title + " | " + a.Config.Name,
		Description: Truncate(StripHTML(g.Description), descriptionLen),
		URL:         BuildURL(a.Config.URL, "game", g.ID),
		Image:       g.Thumbnail,
		ImageAlt:    g.Title,
		Keywords:    g.Category + ", free online games, browser games",
		JSONLD:      VideoGameJsonLD(a.Config, g),
	}
}

func (a *App) articlesMeta(idx ArticleIndex) PageMeta {
	return PageMeta{
		Title:       "Articles | " + idx.Meta.Name,
		Description: idx.Meta.Description,
		URL:         idx.Meta.URL,
		ImageAlt:    idx.Meta.Name + " logo and banner",
		Keywords:    articlesKeywords,
		JSONLD:      BlogJsonLD(idx.Meta, idx.Articles),
		Feeds:       true,
	}
}

func (a *App) articleMeta(v ArticleView) PageMeta {
	meta := PageMeta{
		Title:       v.Post.Title + " | " + a.Config.Name,
		Description: v.Description,
		URL:         v.URL,
		OGType:      "article",
		ImageAlt:    v.Post.Title,
		Author:      v.Post.Author.DisplayName,
		JSONLD:      BlogPostingJsonLD(a.Config, v),
		Feeds:       true,
		Article: &ArticleMeta{
			PublishedTime: v.Post.Published,
			ModifiedTime:  v.Post.Updated,
			Author:        v.Post.Author.DisplayName,
			Section:       articleSection,
			Tags:          v.Post.Labels,
		},
		TwitterLabels: []TwitterLabel{
			{Label: "Reading time", Data: fmt.Sprintf("%d min read", v.ReadTime)},
		},
	}
	if len(v.Post.Labels) > 0 {
		meta.Keywords = strings.Join(v.Post.Labels, ", ")
		meta.TwitterLabels = append(meta.TwitterLabels, TwitterLabel{Label: "Category", Data: v.Post.Labels[0]})
	}
	return meta
}

func (a *App) staticPageMeta(p page) PageMeta {
	return PageMeta{
		Title:       p.Title + " | " + a.Config.Name,
		Description: p.Description,
		URL:         BuildURL(a.Config.URL, p.Slug),
	}
}

// lastModified returns the most recent update time in the index, or the
// zero time for an empty index.
func lastModified(idx ArticleIndex) time.Time {
	var latest time.Time
	for _, v := range idx.Articles {
		t := v.Updated
		if t.IsZero() {
			t = v.Published
		}
		if t.After(latest) {
			latest = t
		}
	}
	return latest
}

package gameground

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"
)

// ArticleIndex is the result of the list pipeline. It is always usable:
// when the content API fails, Articles is empty and Degraded is set.
type ArticleIndex struct {
	Meta     BlogMeta
	Articles []ArticleView
	Policy   CachePolicy
	Status   CacheStatus
	Degraded bool
}

// Blog runs the list and single-post pipelines against a ContentClient,
// serving both through a PostCache.
type Blog struct {
	cfg    SiteConfig
	client ContentClient
	cache  *PostCache
	logger echo.Logger
}

// NewBlog creates a Blog. cfg must already have its defaults applied.
func NewBlog(cfg SiteConfig, client ContentClient, cache *PostCache, logger echo.Logger) *Blog {
	return &Blog{cfg: cfg, client: client, cache: cache, logger: logger}
}

// ListArticles returns the most recent posts as display records, in the
// order the API returned them. It never fails.
func (b *Blog) ListArticles(ctx context.Context) ArticleIndex {
	n := b.cfg.MaxResults
	idx := ArticleIndex{Meta: b.cfg.BlogMeta(), Policy: ListPolicy}

	var posts []Post
	status, err := b.cache.Get(ctx, listKey(n), &posts, func(ctx context.Context) (interface{}, CachePolicy, error) {
		p, err := b.client.ListPosts(ctx, n)
		return p, ListPolicy, err
	})
	if err != nil {
		b.logger.Warnf("list articles: %v", err)
		idx.Articles = []ArticleView{}
		idx.Policy = ListFailurePolicy
		idx.Status = status
		idx.Degraded = true
		return idx
	}

	idx.Status = status
	idx.Articles = make([]ArticleView, 0, len(posts))
	for _, p := range posts {
		idx.Articles = append(idx.Articles, NewArticleView(b.cfg, p, ""))
	}
	return idx
}

// ResolveArticle maps slug to a post id and fetches the post. Every failure
// is reported as ErrPostNotFound; causes other than a missing post are
// logged.
func (b *Blog) ResolveArticle(ctx context.Context, slug string) (ArticleView, error) {
	id := PostIDFromSlug(slug)
	if id == "" {
		return ArticleView{}, ErrPostNotFound
	}

	var post Post
	_, err := b.cache.Get(ctx, postKey(id), &post, func(ctx context.Context) (interface{}, CachePolicy, error) {
		p, err := b.client.GetPost(ctx, id)
		return p, ArticlePolicy, err
	})
	if err != nil {
		if !errors.Is(err, ErrPostNotFound) {
			b.logger.Warnf("resolve article %q: %v", slug, err)
		}
		return ArticleView{}, ErrPostNotFound
	}
	return NewArticleView(b.cfg, post, slug), nil
}

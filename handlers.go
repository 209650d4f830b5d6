package gameground

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	featuredGames  = 3
	suggestedGames = 4
)

func (a *App) handleHome(c echo.Context) error {
	page := HomePage{
		Layout:     a.layout("/", a.homeMeta()),
		Games:      a.Catalog.All(),
		Featured:   a.Catalog.Featured(featuredGames),
		Recent:     a.Catalog.Lookup(recentlyPlayed(c)),
		Categories: a.Catalog.Categories(),
	}
	c.Response().Header().Add(echo.HeaderVary, "Cookie")
	if len(page.Recent) > 0 {
		// Personalised; keep it out of shared caches.
		c.Response().Header().Set(echo.HeaderCacheControl, "private, no-cache")
		return Render(c, a.Views.Home(page))
	}
	return RenderCached(c, StaticPolicy, a.Views.Home(page))
}

func (a *App) handleGame(c echo.Context) error {
	id := c.Param("id")
	game, err := a.Catalog.Find(id)
	if err != nil {
		return a.renderNotFound(c, "We couldn't find that game. It may have been removed from the catalog.")
	}
	page := GamePage{
		Layout:    a.layout("/game/"+game.ID, a.gameMeta(game)),
		Game:      game,
		Suggested: a.Catalog.Suggested(game.ID, suggestedGames),
		Playing:   c.QueryParam("play") == "1",
	}
	if page.Playing {
		// Theater mode sets the session cookie, so it must stay private.
		if err := rememberPlayed(c, game.ID); err != nil {
			c.Logger().Warnf("recently played: %v", err)
		}
		c.Response().Header().Set(echo.HeaderCacheControl, "private, no-cache")
		return Render(c, a.Views.Game(page))
	}
	return RenderCached(c, StaticPolicy, a.Views.Game(page))
}

func (a *App) handleArticles(c echo.Context) error {
	idx := a.Blog.ListArticles(c.Request().Context())
	c.Response().Header().Set("X-Cache", string(idx.Status))
	page := ArticlesPage{
		Layout:   a.layout("/articles", a.articlesMeta(idx)),
		Blog:     idx.Meta,
		Articles: idx.Articles,
		Degraded: idx.Degraded,
	}
	return RenderCached(c, idx.Policy, a.Views.Articles(page))
}

func (a *App) handleArticle(c echo.Context) error {
	ip := c.RealIP()
	if !a.limiter.Allow(ip) {
		retry := a.limiter.RetryAfter(ip)
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second)/time.Second)+1))
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests. Please slow down and try again shortly.")
	}

	slug := c.Param("slug")
	article, err := a.Blog.ResolveArticle(c.Request().Context(), slug)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return a.renderNotFound(c, "This article doesn't exist or is no longer available.")
		}
		return err
	}
	page := ArticlePage{
		Layout:  a.layout(article.Path, a.articleMeta(article)),
		Article: article,
	}
	return RenderCached(c, ArticlePolicy, a.Views.Article(page))
}

func (a *App) handlePage(c echo.Context) error {
	slug := strings.TrimPrefix(c.Path(), "/")
	p, err := a.lookupPage(slug)
	if err != nil {
		return a.renderNotFound(c, "")
	}
	view := StaticPage{
		Layout: a.layout("/"+p.Slug, a.staticPageMeta(p)),
		Title:  p.Title,
		Body:   p.HTML,
	}
	return RenderCached(c, StaticPolicy, a.Views.StaticPage(view))
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nAllow: /\n\nSitemap: " + BuildURL(a.Config.URL, "sitemap.xml") + "\n"
	c.Response().Header().Set(echo.HeaderCacheControl, StaticPolicy.Header())
	return c.String(http.StatusOK, body)
}

// pinger is implemented by cache backends that talk to an external service.
type pinger interface {
	Ping(ctx context.Context) error
}

func (a *App) handleHealth(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	status := map[string]interface{}{
		"status": "ok",
		"games":  a.Catalog.Len(),
		"cache":  a.Config.CacheBackend,
	}
	if p, ok := a.backend.(pinger); ok {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["cache_error"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, status)
		}
	}
	return c.JSON(http.StatusOK, status)
}

func (a *App) renderNotFound(c echo.Context, message string) error {
	if message == "" {
		message = "The page you're looking for doesn't exist or has been moved."
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	page := NotFoundPage{
		Layout:  a.layout(c.Request().URL.Path, PageMeta{Title: "Page Not Found | " + a.Config.Name, NoIndex: true}),
		Message: message,
	}
	return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(page))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := "Something went wrong on our end. Please try again in a moment."
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok && code < 500 {
			message = m
		}
	}
	if code == http.StatusNotFound {
		_ = a.renderNotFound(c, "")
		return
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	page := ErrorPage{
		Layout:  a.layout(c.Request().URL.Path, PageMeta{Title: http.StatusText(code) + " | " + a.Config.Name, NoIndex: true}),
		Code:    code,
		Message: message,
	}
	_ = RenderStatus(c, code, a.Views.Error(page))
}

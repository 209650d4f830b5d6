package gameground_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mygameground/gameground"
	"github.com/mygameground/gameground/views"
)

type fakeContent struct {
	posts   []gameground.Post
	listErr error
}

func (f *fakeContent) ListPosts(ctx context.Context, max int) ([]gameground.Post, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.posts, nil
}

func (f *fakeContent) GetPost(ctx context.Context, id string) (gameground.Post, error) {
	for _, p := range f.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return gameground.Post{}, gameground.ErrPostNotFound
}

var samplePosts = []gameground.Post{
	{
		ID:        "12345",
		Title:     "Some Title",
		Published: "2024-03-01T09:00:00Z",
		Updated:   "2024-03-02T09:00:00Z",
		Content:   "<p>" + strings.Repeat("word ", 1234) + "</p>",
		Labels:    []string{"News", "Patch Notes"},
		Author:    gameground.Author{DisplayName: "Ada"},
	},
	{
		ID:        "999",
		Title:     "Second Post",
		Published: "2024-02-01T09:00:00Z",
		Summary:   "A short summary",
		Content:   "<p>short</p>",
		Author:    gameground.Author{DisplayName: "Lin"},
	},
}

func newTestApp(t *testing.T, client gameground.ContentClient, opts ...gameground.Option) *gameground.App {
	t.Helper()
	logger := log.New("test")
	logger.SetOutput(io.Discard)

	cfg := gameground.SiteConfig{
		URL:           "https://mygameground.com",
		SessionSecret: "test-secret-test-secret-test-sec",
		LookupLimit:   100,
	}
	opts = append([]gameground.Option{
		gameground.WithContentClient(client),
		gameground.WithLogger(logger),
	}, opts...)
	app := gameground.New(cfg, views.Funcs(), opts...)
	require.NoError(t, app.Init())
	t.Cleanup(func() { app.Close() })
	return app
}

func get(app *gameground.App, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHomePage(t *testing.T) {
	app := newTestApp(t, &fakeContent{})
	rec := get(app, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>My Game Ground | Play Free Games Online</title>")
	assert.Contains(t, body, `href="/game/1"`)
	assert.Contains(t, body, `"@type":"WebSite"`)
	assert.Contains(t, body, `/search?q={search_term_string}`)
	assert.NotContains(t, body, "Continue playing")
	assert.Equal(t, 3, strings.Count(body, `<span class="badge">HOT</span>`), "three featured games")
	assert.Equal(t, "public, s-maxage=3600, stale-while-revalidate=86400", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestGamePage(t *testing.T) {
	app := newTestApp(t, &fakeContent{})
	rec := get(app, "/game/1")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Liquid Sort - Tube Puzzle Game")
	assert.Contains(t, body, "How to Play")
	assert.Contains(t, body, `href="/game/1?play=1"`)
	assert.NotContains(t, body, "<iframe")
	assert.Equal(t, 4, strings.Count(body, `class="game-card"`), "four suggested games")
	assert.Contains(t, body, `"@type":"VideoGame"`)
}

func TestGameTheaterModeAndRecentlyPlayed(t *testing.T) {
	app := newTestApp(t, &fakeContent{})
	rec := get(app, "/game/3?play=1")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<iframe src="https://www.punogames.com/games/carnival-ducks"`)
	assert.Contains(t, body, `allow="autoplay; fullscreen"`)
	assert.Contains(t, body, "sandbox=")
	assert.Equal(t, "private, no-cache", rec.Header().Get("Cache-Control"))

	cookie := rec.Header().Get("Set-Cookie")
	require.NotEmpty(t, cookie)

	home := get(app, "/", "Cookie", strings.SplitN(cookie, ";", 2)[0])
	require.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), "Continue playing")
	assert.Equal(t, "private, no-cache", home.Header().Get("Cache-Control"))
}

func TestUnknownGameRendersNotFoundWithoutFrame(t *testing.T) {
	app := newTestApp(t, &fakeContent{})

	for _, target := range []string{"/game/unknown", "/game/unknown?play=1"} {
		rec := get(app, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		body := rec.Body.String()
		assert.Contains(t, body, "Not found")
		assert.Contains(t, body, `href="/"`)
		assert.NotContains(t, body, "<iframe", target)
		assert.NotContains(t, body, "<frame", target)
		assert.Contains(t, body, `content="noindex, follow"`)
	}
}

func TestArticlesPage(t *testing.T) {
	app := newTestApp(t, &fakeContent{posts: samplePosts})
	rec := get(app, "/articles")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	first := strings.Index(body, "Some Title")
	second := strings.Index(body, "Second Post")
	require.True(t, first >= 0 && second >= 0)
	assert.Less(t, first, second, "articles keep API order")
	assert.Contains(t, body, `href="/articles/some-title-12345"`)
	assert.Contains(t, body, "7 min read")
	assert.Contains(t, body, `"@type":"Blog"`)
	assert.Contains(t, body, `href="/rss.xml"`)
	assert.Equal(t, "public, s-maxage=60, stale-while-revalidate=60", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	again := get(app, "/articles")
	assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
}

func TestArticlesPageDegradesWhenUpstreamFails(t *testing.T) {
	app := newTestApp(t, &fakeContent{listErr: errors.New("connection refused")})
	rec := get(app, "/articles")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No posts found.")
	assert.Equal(t, "public, s-maxage=30, stale-while-revalidate=30", rec.Header().Get("Cache-Control"))
}

func TestArticlePage(t *testing.T) {
	app := newTestApp(t, &fakeContent{posts: samplePosts})
	rec := get(app, "/articles/some-title-12345")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<link rel="canonical" href="https://mygameground.com/articles/some-title-12345">`)
	assert.Contains(t, body, `<meta property="og:type" content="article">`)
	assert.Contains(t, body, `<meta property="article:tag" content="Patch Notes">`)
	assert.Contains(t, body, `<meta name="twitter:data1" content="7 min read">`)
	assert.Contains(t, body, `<meta name="twitter:data2" content="News">`)
	assert.Contains(t, body, "1,234 words")
	assert.Contains(t, body, `"timeRequired":"PT7M"`)
	assert.Equal(t, "public, s-maxage=300, stale-while-revalidate=600", rec.Header().Get("Cache-Control"))
}

func TestArticlePageCanonicalUsesRequestedSlug(t *testing.T) {
	app := newTestApp(t, &fakeContent{posts: samplePosts})
	rec := get(app, "/articles/renamed-post-12345")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="https://mygameground.com/articles/renamed-post-12345"`)
}

func TestArticleNotFound(t *testing.T) {
	app := newTestApp(t, &fakeContent{posts: samplePosts})
	rec := get(app, "/articles/some-title-404")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "This article doesn&#39;t exist")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestArticleLookupsAreRateLimited(t *testing.T) {
	logger := log.New("test")
	logger.SetOutput(io.Discard)
	app := gameground.New(gameground.SiteConfig{LookupLimit: 2, SessionSecret: "s"}, views.Funcs(),
		gameground.WithContentClient(&fakeContent{posts: samplePosts}),
		gameground.WithLogger(logger))
	require.NoError(t, app.Init())
	defer app.Close()

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(app, "/articles/some-title-12345").Code)
	}
	rec := get(app, "/articles/some-title-12345")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Too many requests")
}

func TestStaticPages(t *testing.T) {
	app := newTestApp(t, &fakeContent{})
	for _, slug := range []string{"about-us", "contact-us", "privacy-policy", "terms-of-service"} {
		rec := get(app, "/"+slug)
		assert.Equal(t, http.StatusOK, rec.Code, slug)
		assert.Contains(t, rec.Body.String(), "<h1>", slug)
	}
	assert.Contains(t, get(app, "/contact-us").Body.String(), `href="mailto:support@mygameground.com"`)
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	app := newTestApp(t, &fakeContent{})
	rec := get(app, "/no/such/page")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "doesn&#39;t exist or has been moved")
}

func TestTrailingSlashRedirects(t *testing.T) {
	app := newTestApp(t, &fakeContent{})
	rec := get(app, "/articles/")

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/articles", rec.Header().Get("Location"))
}

func TestFeeds(t *testing.T) {
	app := newTestApp(t, &fakeContent{posts: samplePosts})
	parser := gofeed.NewParser()

	for _, target := range []string{"/rss.xml", "/atom.xml"} {
		rec := get(app, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, "public, s-maxage=900, stale-while-revalidate=3600", rec.Header().Get("Cache-Control"))

		feed, err := parser.ParseString(rec.Body.String())
		require.NoError(t, err, target)
		assert.Equal(t, "My Game Ground", feed.Title)
		require.Len(t, feed.Items, 2, target)
		assert.Equal(t, "Some Title", feed.Items[0].Title)
		assert.Equal(t, "https://mygameground.com/articles/some-title-12345", feed.Items[0].Link)
		assert.Equal(t, []string{"News", "Patch Notes"}, feed.Items[0].Categories)
		assert.Equal(t, "A short summary", feed.Items[1].Description)
		require.NotNil(t, feed.Items[0].PublishedParsed)
		assert.Equal(t, 2024, feed.Items[0].PublishedParsed.Year())
	}
}

func TestFeedsWhenUpstreamFails(t *testing.T) {
	app := newTestApp(t, &fakeContent{listErr: errors.New("down")})
	rec := get(app, "/rss.xml")

	require.Equal(t, http.StatusOK, rec.Code)
	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	require.NoError(t, err)
	assert.Empty(t, feed.Items)
	assert.Equal(t, "public, s-maxage=30, stale-while-revalidate=30", rec.Header().Get("Cache-Control"))
}

func TestSitemap(t *testing.T) {
	app := newTestApp(t, &fakeContent{posts: samplePosts})
	rec := get(app, "/sitemap.xml")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<loc>https://mygameground.com</loc>")
	assert.Contains(t, body, "<loc>https://mygameground.com/game/12</loc>")
	assert.Contains(t, body, "<loc>https://mygameground.com/articles/some-title-12345</loc>")
	assert.Contains(t, body, "<lastmod>2024-03-02</lastmod>")
	assert.Contains(t, body, "<loc>https://mygameground.com/privacy-policy</loc>")
}

func TestRobots(t *testing.T) {
	app := newTestApp(t, &fakeContent{})
	rec := get(app, "/robots.txt")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sitemap: https://mygameground.com/sitemap.xml")
}

func TestOGImage(t *testing.T) {
	app := newTestApp(t, &fakeContent{})
	rec := get(app, "/og-image.png")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 630, img.Bounds().Dy())
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, &fakeContent{})
	rec := get(app, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "memory", status["cache"])
	assert.EqualValues(t, 12, status["games"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestPublicAssets(t *testing.T) {
	app := newTestApp(t, &fakeContent{})
	rec := get(app, "/public/site.css")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".game-card")
}

func TestSecurityHeaders(t *testing.T) {
	app := newTestApp(t, &fakeContent{})
	rec := get(app, "/")

	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "frame-src https:")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestCustomRoutes(t *testing.T) {
	app := newTestApp(t, &fakeContent{}, gameground.WithCustomRoutes(func(a *gameground.App) {
		a.Echo.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	}))
	rec := get(app, "/ping")
	assert.Equal(t, "pong", rec.Body.String())
}

func TestWithCatalogOption(t *testing.T) {
	catalog, err := gameground.LoadCatalog(strings.NewReader("games:\n  - id: \"x\"\n    title: Only Game\n"))
	require.NoError(t, err)
	app := newTestApp(t, &fakeContent{}, gameground.WithCatalog(catalog))

	assert.Equal(t, http.StatusOK, get(app, "/game/x").Code)
	assert.Equal(t, http.StatusNotFound, get(app, "/game/1").Code)
}

func TestStaleListingIsServedWhileRefreshing(t *testing.T) {
	backend := gameground.NewMemoryBackend()
	content := &fakeContent{posts: samplePosts[:1]}
	app := newTestApp(t, content, gameground.WithCacheBackend(backend))

	stale := gameground.CacheEntry{
		Value:    mustJSON(t, samplePosts[1:]),
		StoredAt: time.Now().Add(-90 * time.Second),
		Policy:   gameground.ListPolicy,
	}
	require.NoError(t, backend.Save(context.Background(), fmt.Sprintf("list:%d", app.Config.MaxResults), stale))

	rec := get(app, "/articles")
	assert.Equal(t, "STALE", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), "Second Post")

	app.Cache.Wait()
	rec = get(app, "/articles")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), "Some Title")
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

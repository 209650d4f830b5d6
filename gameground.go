// Package gameground serves an online-games portal: a static game catalog
// with embedded players, and a news section backed by the Blogger API.
//
// Callers provide the page templates through ViewFuncs; gameground owns the
// handlers, middleware, content pipelines and caching.
package gameground

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// ViewFuncs holds the templ components the handlers render. Each receives a
// fully populated page model.
type ViewFuncs struct {
	Home       func(HomePage) templ.Component
	Game       func(GamePage) templ.Component
	Articles   func(ArticlesPage) templ.Component
	Article    func(ArticlePage) templ.Component
	StaticPage func(StaticPage) templ.Component
	NotFound   func(NotFoundPage) templ.Component
	Error      func(ErrorPage) templ.Component
}

// App is the central application. It wires together the catalog, the blog
// pipelines, the cache, handlers, middleware and the caller's templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Catalog *Catalog
	Blog    *Blog
	Cache   *PostCache
	Views   ViewFuncs

	client       ContentClient
	backend      CacheBackend
	limiter      *LookupLimiter
	pages        map[string]page
	customRoutes []func(*App)
	staticDir    string

	initOnce sync.Once
	initErr  error

	ogOnce  sync.Once
	ogImage []byte
	ogErr   error
}

// New creates an App with the given configuration and views.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true

	a := &App{
		Config: cfg,
		Echo:   e,
		Views:  views,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init builds the catalog, cache, content client, middleware and routes.
// It is called by Start and is safe to call more than once.
func (a *App) Init() error {
	a.initOnce.Do(func() {
		a.initErr = a.init()
	})
	return a.initErr
}

func (a *App) init() error {
	if a.Views.NotFound == nil || a.Views.Error == nil {
		return errors.New("gameground: NotFound and Error views are required")
	}
	if a.Config.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("gameground: session secret: %w", err)
		}
		a.Config.SessionSecret = secret
		a.Echo.Logger.Warn("SESSION_SECRET not set; recently played games reset on restart")
	}

	if a.Catalog == nil {
		var err error
		if a.Config.GamesFile != "" {
			a.Catalog, err = LoadCatalogFile(a.Config.GamesFile)
		} else {
			a.Catalog, err = DefaultCatalog()
		}
		if err != nil {
			return fmt.Errorf("gameground: load catalog: %w", err)
		}
	}

	pages, err := loadPages()
	if err != nil {
		return fmt.Errorf("gameground: load pages: %w", err)
	}
	a.pages = pages

	if a.backend == nil {
		a.backend, err = openCacheBackend(a.Config)
		if err != nil {
			return fmt.Errorf("gameground: init cache: %w", err)
		}
	}
	if store, ok := a.backend.(*SnapshotStore); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		n, err := store.Prune(ctx)
		cancel()
		if err != nil {
			a.Echo.Logger.Warnf("prune cache snapshots: %v", err)
		} else if n > 0 {
			a.Echo.Logger.Infof("pruned %d expired cache snapshots", n)
		}
	}
	a.Cache = NewPostCache(a.backend, a.Config.HTTPTimeout, a.Echo.Logger)

	if a.client == nil {
		if a.Config.BlogID == "" || a.Config.ContentAPIKey == "" {
			a.Echo.Logger.Warn("BLOG_ID or BLOGGER_API_KEY not set; the articles section will be empty")
		}
		a.client = NewBloggerClient(a.Config)
	}
	a.Blog = NewBlog(a.Config, a.client, a.Cache, a.Echo.Logger)

	a.limiter = NewLookupLimiter(a.Config.LookupLimit, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// openCacheBackend returns the backend named by cfg.CacheBackend.
func openCacheBackend(cfg SiteConfig) (CacheBackend, error) {
	switch cfg.CacheBackend {
	case "memory":
		return NewMemoryBackend(), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, errors.New("redis cache backend needs REDIS_ADDR")
		}
		return NewRedisBackend(cfg.RedisAddr)
	case "sqlite":
		return NewSnapshotStore(cfg.CacheDBPath)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// Start initializes the app and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	a.Echo.Logger.Infof("gameground listening on %s (cache: %s, %d games)",
		a.Config.Addr, a.Config.CacheBackend, a.Catalog.Len())
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	publicFS, _ := fs.Sub(EmbeddedAssets, "embedded/public")
	e.StaticFS("/public", publicFS)
	if a.staticDir != "" {
		e.Static("/static", a.staticDir)
	}

	e.GET("/", a.handleHome)
	e.GET("/game/:id", a.handleGame)
	e.GET("/articles", a.handleArticles)
	e.GET("/articles/:slug", a.handleArticle)
	for slug := range a.pages {
		e.GET("/"+slug, a.handlePage)
	}

	e.GET("/rss.xml", a.handleRSS)
	e.GET("/atom.xml", a.handleAtom)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/og-image.png", a.handleOGImage)
	e.GET("/healthz", a.handleHealth)
}

// Close waits for background cache refreshes and releases resources.
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.Cache != nil {
		return a.Cache.Close()
	}
	if a.backend != nil {
		return a.backend.Close()
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

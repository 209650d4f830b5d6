package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"

	"github.com/mygameground/gameground"
	"github.com/mygameground/gameground/views"
)

// serveOptions holds every server setting. Each can come from a flag or the
// environment.
type serveOptions struct {
	SiteName        string `long:"site-name" env:"SITE_NAME" description:"Site name"`
	SiteURL         string `long:"site-url" env:"SITE_URL" default:"http://localhost:3000" description:"Canonical site URL"`
	SiteDescription string `long:"site-description" env:"SITE_DESCRIPTION" description:"Site description for feeds and meta tags"`
	SiteAuthor      string `long:"site-author" env:"SITE_AUTHOR" description:"Feed author"`
	TwitterHandle   string `long:"twitter" env:"TWITTER_HANDLE" description:"Twitter/X handle, e.g. @mygameground"`

	Addr string `long:"addr" env:"ADDR" default:":3000" description:"Listen address"`

	BlogID      string        `long:"blog-id" env:"BLOG_ID" description:"Blogger blog id"`
	APIKey      string        `long:"api-key" env:"BLOGGER_API_KEY" description:"Blogger API key"`
	APIBase     string        `long:"api-base" env:"BLOGGER_API_BASE" description:"Blogger blogs endpoint"`
	MaxResults  int           `long:"max-results" env:"MAX_RESULTS" default:"10" description:"Posts per listing"`
	HTTPTimeout time.Duration `long:"http-timeout" env:"HTTP_TIMEOUT" default:"10s" description:"Timeout for content API requests"`

	CacheBackend string `long:"cache" env:"CACHE_BACKEND" default:"memory" choice:"memory" choice:"redis" choice:"sqlite" description:"Cache backend"`
	RedisAddr    string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the redis cache backend"`
	CacheDBPath  string `long:"cache-db" env:"CACHE_DB_PATH" default:"data/cache.db" description:"SQLite file for the sqlite cache backend"`

	SessionSecret string `long:"session-secret" env:"SESSION_SECRET" description:"Cookie session key"`
	CookieSecure  bool   `long:"cookie-secure" env:"COOKIE_SECURE" description:"Mark cookies Secure (HTTPS only)"`
	LookupLimit   int    `long:"lookup-limit" env:"LOOKUP_LIMIT" default:"60" description:"Article requests per IP per minute"`

	GamesFile string `long:"games-file" env:"GAMES_FILE" description:"YAML catalog replacing the built-in one"`
	StaticDir string `long:"static-dir" env:"STATIC_DIR" description:"Extra directory served under /static"`
	LogLevel  string `long:"log-level" env:"LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`
}

func (o serveOptions) siteConfig() gameground.SiteConfig {
	return gameground.SiteConfig{
		Name:           o.SiteName,
		URL:            o.SiteURL,
		Description:    o.SiteDescription,
		Author:         o.SiteAuthor,
		TwitterHandle:  o.TwitterHandle,
		Addr:           o.Addr,
		ContentAPIBase: o.APIBase,
		ContentAPIKey:  o.APIKey,
		BlogID:         o.BlogID,
		MaxResults:     o.MaxResults,
		HTTPTimeout:    o.HTTPTimeout,
		CacheBackend:   o.CacheBackend,
		RedisAddr:      o.RedisAddr,
		CacheDBPath:    o.CacheDBPath,
		SessionSecret:  o.SessionSecret,
		CookieSecure:   o.CookieSecure,
		LookupLimit:    o.LookupLimit,
		GamesFile:      o.GamesFile,
	}
}

// loadDotEnv loads .env files with priority .env.local > .env. Variables
// already set in the environment are never overwritten.
func loadDotEnv() []string {
	var loaded []string
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}

// parseServeOptions parses args after the .env files have been loaded.
// It returns nil options when help was requested.
func parseServeOptions(args []string) (*serveOptions, error) {
	var opts serveOptions
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "serve [OPTIONS]"
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, err
	}
	return &opts, nil
}

func logLevel(name string) log.Lvl {
	switch name {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}

func runServe(args []string) error {
	loaded := loadDotEnv()
	opts, err := parseServeOptions(args)
	if err != nil || opts == nil {
		return err
	}

	var appOpts []gameground.Option
	if opts.StaticDir != "" {
		appOpts = append(appOpts, gameground.WithStaticDir(opts.StaticDir))
	}
	app := gameground.New(opts.siteConfig(), views.Funcs(), appOpts...)
	app.Echo.HidePort = true
	app.Echo.Logger.SetLevel(logLevel(opts.LogLevel))
	for _, f := range loaded {
		app.Echo.Logger.Infof("loaded environment from %s", f)
	}

	if err := app.Init(); err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Echo.Logger.Errorf("close: %v", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		app.Echo.Logger.Infof("received signal: %v", sig)
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	app.Echo.Logger.Info("server stopped")
	return nil
}

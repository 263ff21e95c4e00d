package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-builder/internal/config"
	"github.com/jonathan/cv-builder/internal/db"
	"github.com/jonathan/cv-builder/internal/fetch"
	"github.com/jonathan/cv-builder/internal/server"
)

// photoCacheTTL bounds how long proxied photos stay in Redis.
const photoCacheTTL = 24 * time.Hour

var (
	servePort    int
	serveMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for editing, previewing, publishing and exporting CVs.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from PORT or 8080)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply the database schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if serveMigrate {
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return err
		}
	}

	cache, closeCache, err := photoCache(ctx, cfg)
	if err != nil {
		database.Close()
		return err
	}

	srvCfg := server.Config{
		Port:          cfg.Port,
		DefaultLocale: cfg.DefaultLocale,
		PublicDomain:  cfg.PublicDomain,
		Verbose:       cfg.Verbose,
	}
	if cfg.EnableScreenshots {
		opts := fetch.DefaultScreenshotOptions()
		opts.ExecPath = cfg.ChromePath
		opts.Verbose = cfg.Verbose
		srvCfg.Screenshot = func(ctx context.Context, html []byte) ([]byte, error) {
			return fetch.Screenshot(ctx, html, opts)
		}
	}

	srv := server.New(srvCfg, database, server.NewJWTService(jwtConfig), photoChain(cfg, cache))
	srv.OnShutdown(database.Close)
	srv.OnShutdown(closeCache)
	return srv.Start()
}

// photoCache connects the Redis photo cache when REDIS_URL is set. The
// returned close func is always safe to call.
func photoCache(ctx context.Context, cfg config.Config) (fetch.PhotoCache, func(), error) {
	if cfg.RedisURL == "" {
		return nil, func() {}, nil
	}
	client, err := fetch.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	cache := fetch.NewRedisCache(client, photoCacheTTL)
	if err := cache.Ping(ctx); err != nil {
		// The cache is an optimization; serve without it.
		log.Printf("[photo] redis unavailable, continuing without cache: %v", err)
		_ = cache.Close()
		return nil, func() {}, nil
	}
	return cache, func() { _ = cache.Close() }, nil
}

// photoChain builds the photo acquisition chain from the configuration.
func photoChain(cfg config.Config, cache fetch.PhotoCache) *fetch.Chain {
	opts := fetch.DefaultOptions()
	opts.Timeout = cfg.FetchTimeout()
	chain := fetch.NewDefaultChain(cfg.ImageProxyURL, cache, opts)
	chain.Verbose = cfg.Verbose
	return chain
}

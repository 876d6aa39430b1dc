// Package main is the entry point for the Dispatch Storage server.
// Dispatch Storage hosts SCORM course assets on pluggable storage backends
// with optional CDN delivery.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	memorycache "github.com/edupress/dispatch-storage/internal/cache/memory"
	rediscache "github.com/edupress/dispatch-storage/internal/cache/redis"
	"github.com/edupress/dispatch-storage/internal/config"
	"github.com/edupress/dispatch-storage/internal/handler"
	"github.com/edupress/dispatch-storage/internal/repository"
	"github.com/edupress/dispatch-storage/internal/repository/postgres"
	"github.com/edupress/dispatch-storage/internal/repository/sqlite"
	"github.com/edupress/dispatch-storage/internal/service"
	"github.com/edupress/dispatch-storage/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	setupLogger(cfg.Logging)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("storage_provider", cfg.Storage.Provider).
		Msg("starting dispatch storage server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Course record repository
	courses, closeDB, err := newCourseRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer closeDB()

	// Course record cache
	var cache repository.Cache
	if cfg.Redis.Enabled {
		redisCache, err := rediscache.NewCache(ctx, cfg.Redis, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		cache = redisCache
	} else {
		memCache := memorycache.NewCache()
		defer memCache.Stop()
		cache = memCache
	}
	courses = repository.NewCachedCourseRepository(courses, cache, log.Logger)

	// Storage adapter factory
	factory := storage.NewFactory(cfg.Storage.AdapterConfig(), log.Logger)

	assetService := service.NewAssetService(factory, courses, log.Logger)
	cdnService := service.NewCDNService(factory, courses, log.Logger)

	adminHandler := handler.NewAdminHandler(handler.AdminConfig{
		AssetService: assetService,
		CDNService:   cdnService,
		Courses:      courses,
		Logger:       log.Logger,
	})

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	router := handler.NewRouter(handler.RouterConfig{
		AdminHandler: adminHandler,
		MetricsPath:  metricsPath,
		Logger:       log.Logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

// newCourseRepository opens the configured database, runs migrations and
// returns the course repository along with a close function.
func newCourseRepository(ctx context.Context, cfg *config.Config) (repository.CourseRepository, func(), error) {
	if cfg.Database.IsEmbedded() {
		db, err := sqlite.NewDB(ctx, sqlite.DefaultConfig(cfg.Database.Path), log.Logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewCourseRepository(db), func() { db.Close() }, nil
	}

	db, err := postgres.NewDB(ctx, cfg.Database, log.Logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.NewCourseRepository(db), func() { db.Close() }, nil
}

// setupLogger configures the global zerolog logger.
func setupLogger(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

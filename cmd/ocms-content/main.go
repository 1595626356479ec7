// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/ocms-content/internal/cache"
	"github.com/olegiv/ocms-content/internal/config"
	"github.com/olegiv/ocms-content/internal/handler"
	"github.com/olegiv/ocms-content/internal/locale"
	"github.com/olegiv/ocms-content/internal/logging"
	"github.com/olegiv/ocms-content/internal/model"
	"github.com/olegiv/ocms-content/internal/scheduler"
	"github.com/olegiv/ocms-content/internal/service"
	"github.com/olegiv/ocms-content/internal/store"
	"github.com/olegiv/ocms-content/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	runJob := flag.String("run", "", "Run a single job (content-schedules, event-retention) and exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "ocms-content - versioned multi-locale content engine\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_DB_PATH           SQLite database path (default: ./data/ocms-content.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_DEFAULT_LOCALE    Locale created on first start (default: en-US)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_BATCH_SIZE        Max ids per batched read (default: 2000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_REDIS_URL         Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_SCHEDULER_SPEC    Release/expiry cron schedule (default: * * * * *)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_OPS_ADDR          Health/events/jobs HTTP address, e.g. localhost:8081 (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	info := version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
	if *showVersion {
		_, _ = fmt.Println(info.String())
		os.Exit(0)
	}

	if err := run(info, *runJob); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(info version.Info, job string) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	logger.Info("starting ocms-content", info.LogAttrs()...)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	locales := locale.NewService(db)
	if err := locales.EnsureDefault(ctx, cfg.DefaultLocale); err != nil {
		return fmt.Errorf("creating default locale: %w", err)
	}

	backend, err := newCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("error closing cache", "error", err)
		}
	}()

	svc := service.New(db, locales, service.Options{
		BatchSize:  cfg.BatchSize,
		StrictLoad: cfg.StrictLoad,
		Cache:      cache.NewContentCache(backend, cfg.CacheTTLDuration(), logger),
		Observers:  []service.Observer{auditObserver(logger)},
		Logger:     logger,
	})

	sched := scheduler.New(logger)
	jobs := scheduler.JobConfig{
		ScheduleInterval: cfg.SchedulerSpec,
		RetentionCron:    cfg.RetentionSpec,
		EventRetention:   cfg.EventRetention(),
	}
	if err := scheduler.RegisterContentJobs(sched, jobs, svc.Content, svc.Events, logger); err != nil {
		return fmt.Errorf("registering jobs: %w", err)
	}

	if job != "" {
		return sched.TriggerNow(ctx, job)
	}

	if !cfg.SchedulerEnabled && cfg.OpsAddr == "" {
		logger.Info("scheduler and ops server disabled, nothing to run")
		return nil
	}

	if cfg.SchedulerEnabled {
		sched.Start()
		defer sched.Stop()
	}

	var srv *http.Server
	if cfg.OpsAddr != "" {
		srv = &http.Server{
			Addr: cfg.OpsAddr,
			Handler: handler.NewRouter(handler.Handlers{
				Health:    handler.NewHealthHandler(db, backend, info),
				Events:    handler.NewEventsHandler(svc.Events, logger),
				Scheduler: handler.NewSchedulerHandler(sched, svc.Events, logger),
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("ops server listening", "addr", cfg.OpsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server error", "error", err)
				stop()
			}
		}()
	}

	_ = svc.Events.LogInfo(ctx, model.EventCategorySystem, "content engine started", map[string]any{"version": info.Version})

	<-ctx.Done()
	logger.Info("shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("ops server shutdown error", "error", err)
		}
	}
	return nil
}

// newCache creates the configured cache backend, falling back to memory when
// Redis is unreachable.
func newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cacher, error) {
	cacheConfig := cache.CacheConfig{
		Type:             cache.CacheBackendMemory,
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		DefaultTTL:       cfg.CacheTTLDuration(),
		MaxSize:          cfg.CacheMaxSize,
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	}
	if cfg.UseRedisCache() {
		cacheConfig.Type = cache.CacheBackendRedis
	}
	res, err := cache.NewCacheWithInfo(ctx, cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("initializing cache: %w", err)
	}
	if res.IsFallback {
		logger.Warn("cache initialized", "backend", res.String(), "url", cache.SanitizeRedisURL(cfg.RedisURL))
	} else {
		logger.Info("cache initialized", "backend", res.String())
	}
	return res.Cache, nil
}

// auditObserver logs content notifications at debug level.
func auditObserver(logger *slog.Logger) service.Observer {
	return service.ObserverFuncs{
		Published: func(_ context.Context, c *model.Content, cultures []string) {
			logger.Debug("content published", "node_id", c.ID, "cultures", cultures)
		},
		Unpublished: func(_ context.Context, c *model.Content, cultures []string) {
			logger.Debug("content unpublished", "node_id", c.ID, "cultures", cultures)
		},
		Deleted: func(_ context.Context, ids []int64) {
			logger.Debug("content deleted", "node_ids", ids)
		},
	}
}

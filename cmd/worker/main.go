// Copyright (c) 2026 Torikomi. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command worker runs one ingestion cycle and exits.
//
// # Cycle Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Crawl, reconcile, and apply under compensation.
//  7. Deliver the summary webhook (best-effort).
//
// An external scheduler owns periodicity and must keep at most one worker
// in flight against the same stores. The process exit code is the cycle
// outcome: 0 for a committed cycle, 1 for a compensated failure.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/taibuivan/torikomi/internal/catalog"
	"github.com/taibuivan/torikomi/internal/mangadex"
	"github.com/taibuivan/torikomi/internal/pipeline"
	"github.com/taibuivan/torikomi/internal/platform/config"
	"github.com/taibuivan/torikomi/internal/platform/constants"
	"github.com/taibuivan/torikomi/internal/platform/ctxutil"
	"github.com/taibuivan/torikomi/internal/platform/migration"
	pgstore "github.com/taibuivan/torikomi/internal/platform/postgres"
	redisstore "github.com/taibuivan/torikomi/internal/platform/redis"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	log := rawLog.With(slog.String("app", constants.AppName), slog.String("component", "worker"))
	slog.SetDefault(log)

	log.Info("[Torikomi] worker_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName), slog.String("component", "worker"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Pipeline Wiring ────────────────────────────────────────────────
	source := mangadex.NewClient(mangadex.Options{BaseURL: cfg.SourceBaseURL})
	reader := catalog.NewReader(pool)
	factory := catalog.NewSessionFactory(pool)
	imageStore := catalog.NewImageStore(rdb)

	runner := pipeline.NewRunner(source, reader, factory, imageStore, pipeline.Options{
		FullCrawl:         cfg.FullCrawl,
		Lookback:          cfg.LookbackWindow,
		Workers:           cfg.FetchWorkers,
		PreferredLanguage: cfg.PreferredLanguage,
	})
	notifier := pipeline.NewNotifier(cfg.NotifyWebhookURL)

	// ── 7. Cycle Execution ────────────────────────────────────────────────
	// Every log line of the cycle carries the cycle id; UUIDv7 keeps ids
	// sortable across runs.
	cycleID := uuid.Must(uuid.NewV7()).String()
	cycleLog := log.With(slog.String("cycle_id", cycleID))

	ctx := ctxutil.WithCycleID(context.Background(), cycleID)
	ctx = ctxutil.WithLogger(ctx, cycleLog)

	cycleLog.Info("cycle_starting",
		slog.Bool("full_crawl", cfg.FullCrawl),
		slog.Duration("lookback", cfg.LookbackWindow))

	summary, err := runner.Run(ctx)
	if err != nil {
		cycleLog.Error("cycle_failed", slog.Any("error", err))
		os.Exit(1)
	}

	notifier.Notify(ctx, summary)
	cycleLog.Info("worker_finished")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-ingest/internal/app"
	"github.com/dvloznov/statement-ingest/internal/logger"
)

func main() {
	envFile := flag.String("env", "", "Path to a .env file (optional; defaults to ./.env when present)")
	flag.Parse()

	cfg, log, err := app.Bootstrap(*envFile)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise ingestion")
	}
	defer a.Close(ctx)

	log.Info().Msg("Starting worker service")

	scheduler, err := newScheduler(ctx, cfg.Ingest.Schedule, func(ctx context.Context) {
		summary, err := a.RunOnce(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Scheduled ingestion run aborted")
			return
		}
		log.Info().
			Str("run_id", summary.RunID).
			Int("processed", summary.Processed).
			Int("failed", summary.Failed).
			Msg("Scheduled ingestion run completed")
	})
	if err != nil {
		a.Close(ctx)
		log.Fatal().Err(err).Str("schedule", cfg.Ingest.Schedule).Msg("Failed to schedule ingestion")
	}

	scheduler.Start()
	log.Info().Str("schedule", cfg.Ingest.Schedule).Msg("Worker service started, waiting for schedule...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Stop scheduling and wait for an in-flight run, which RUN_TIMEOUT bounds.
	stopped := scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(cfg.RunTimeout + 30*time.Second):
		log.Error().Msg("In-flight run did not finish before shutdown deadline")
	}

	log.Info().Msg("Worker service exited")
}

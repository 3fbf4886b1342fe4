package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvloznov/statement-ingest/internal/app"
	"github.com/dvloznov/statement-ingest/internal/logger"
)

func main() {
	// Parse CLI flags
	envFile := flag.String("env", "", "Path to a .env file (optional; defaults to ./.env when present)")
	workers := flag.Int("workers", 0, "Documents processed concurrently (overrides INGEST_WORKERS)")
	flag.Parse()

	cfg, log, err := app.Bootstrap(*envFile)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *workers > 0 {
		cfg.Ingest.Workers = *workers
	}

	// Cancel the run on interrupt; the open persistence unit rolls back.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise ingestion")
	}
	defer a.Close(ctx)

	log.Info().
		Str("bucket", cfg.Bucket.Name).
		Str("prefix", cfg.Bucket.Prefix).
		Int("workers", cfg.Ingest.Workers).
		Msg("Starting ingestion")

	summary, err := a.RunOnce(ctx)
	if err != nil {
		a.Close(ctx)
		log.Fatal().Err(err).Msg("Ingestion run aborted")
	}

	app.PrintSummary(os.Stdout, summary)
}

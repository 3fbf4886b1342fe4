package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dvloznov/statement-ingest/internal/config"
	"github.com/dvloznov/statement-ingest/internal/logger"
	"github.com/dvloznov/statement-ingest/internal/store"
)

var (
	envFile   = flag.String("env", "", "Path to a .env file (optional; defaults to ./.env when present)")
	appliedBy = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	status    = flag.Bool("status", false, "List pending migrations without applying them")
)

func main() {
	flag.Parse()

	log := logger.New()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	dbCfg, err := config.LoadDatabase(envFiles...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load database configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	s, err := store.Open(ctx, *dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer s.Close()

	log.Info().Str("database", dbCfg.Redacted()).Msg("Connected to database")

	if *status {
		pending, err := s.PendingMigrations(ctx)
		if err != nil {
			s.Close()
			log.Fatal().Err(err).Msg("Failed to read migration status")
		}
		printPending(os.Stdout, pending)
		return
	}

	applied, err := s.Migrate(ctx, *appliedBy)
	printApplied(os.Stdout, applied)
	if err != nil {
		s.Close()
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func printPending(w io.Writer, pending []store.Migration) {
	if len(pending) == 0 {
		fmt.Fprintln(w, "No pending migrations. Database is up to date.")
		return
	}
	fmt.Fprintf(w, "%d pending migration(s):\n", len(pending))
	for _, m := range pending {
		fmt.Fprintf(w, "  [PENDING] %04d_%s\n", m.Version, m.Name)
	}
}

func printApplied(w io.Writer, applied []store.Migration) {
	if len(applied) == 0 {
		fmt.Fprintln(w, "No new migrations to apply. Database is up to date.")
		return
	}
	for _, m := range applied {
		fmt.Fprintf(w, "  [OK]   %04d_%s\n", m.Version, m.Name)
	}
	fmt.Fprintf(w, "Successfully applied %d migration(s)\n", len(applied))
}

// Package app wires configuration into a ready-to-run ingestion
// coordinator for the process entry points.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-ingest/internal/category"
	"github.com/dvloznov/statement-ingest/internal/config"
	"github.com/dvloznov/statement-ingest/internal/gcsuploader"
	"github.com/dvloznov/statement-ingest/internal/logger"
	"github.com/dvloznov/statement-ingest/internal/pdftext"
	"github.com/dvloznov/statement-ingest/internal/pipeline"
	"github.com/dvloznov/statement-ingest/internal/statement"
	"github.com/dvloznov/statement-ingest/internal/store"
	"github.com/rs/zerolog"
)

// App owns the long-lived clients behind one ingestion process.
type App struct {
	Config      *config.Config
	Store       *store.Store
	Storage     *gcsuploader.GCSStorageService
	Coordinator *pipeline.Coordinator
}

// NewClassifier returns the built-in category table, or the one in
// rulesFile when it is set.
func NewClassifier(rulesFile string) (*category.Classifier, error) {
	if rulesFile == "" {
		return category.NewDefaultClassifier(), nil
	}
	rules, err := category.LoadRules(rulesFile)
	if err != nil {
		return nil, fmt.Errorf("NewClassifier: %w", err)
	}
	return category.NewClassifier(rules), nil
}

// NewParser builds a statement parser for the current layout.
func NewParser(rulesFile string) (*statement.Parser, error) {
	classifier, err := NewClassifier(rulesFile)
	if err != nil {
		return nil, fmt.Errorf("NewParser: %w", err)
	}
	return statement.NewParser(statement.LayoutV1, classifier), nil
}

// New connects to Postgres and Cloud Storage and builds the coordinator.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.FromContext(ctx)

	parser, err := NewParser(cfg.CategoryRulesFile)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	db, err := store.Open(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	log.Info().Str("database", cfg.DB.Redacted()).Msg("Connected to database")

	storage, err := gcsuploader.NewGCSStorageService(ctx, cfg.FetchTimeout)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("New: %w", err)
	}

	coordinator := pipeline.NewCoordinator(storage, pdftext.NewExtractor(), parser, db, db, pipeline.Options{
		Bucket:         cfg.Bucket.Name,
		Prefix:         cfg.Bucket.Prefix,
		Extension:      cfg.DocumentExtension,
		Workers:        cfg.Ingest.Workers,
		PersistTimeout: cfg.PersistTimeout,
	})

	return &App{
		Config:      cfg,
		Store:       db,
		Storage:     storage,
		Coordinator: coordinator,
	}, nil
}

// RunOnce performs one ingestion run bounded by the configured run timeout.
func (a *App) RunOnce(ctx context.Context) (*pipeline.RunSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Config.RunTimeout)
	defer cancel()
	return a.Coordinator.Run(ctx)
}

// Close releases the storage client and the connection pool.
func (a *App) Close(ctx context.Context) {
	log := logger.FromContext(ctx)
	if err := a.Storage.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close storage client")
	}
	if err := a.Store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}

// Bootstrap loads configuration (from envFile when set) and builds the
// logger at the configured level.
func Bootstrap(envFile string) (*config.Config, zerolog.Logger, error) {
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("Bootstrap: %w", err)
	}

	log, err := logger.NewWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("Bootstrap: LOG_LEVEL: %w", err)
	}

	return cfg, log, nil
}

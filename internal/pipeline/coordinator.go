// Package pipeline drives statement ingestion: it lists the bucket, skips
// documents the ledger already holds, and runs each remaining document
// through fetch, extract, parse and persist with per-document isolation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/statement-ingest/internal/logger"
	"github.com/dvloznov/statement-ingest/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultExtension is the eligible key suffix when none is configured.
const DefaultExtension = ".pdf"

// Options configures a Coordinator.
type Options struct {
	Bucket         string
	Prefix         string
	Extension      string
	Workers        int
	PersistTimeout time.Duration
}

// DocumentResult is the outcome of one document in a run.
type DocumentResult struct {
	FileKey string
	// State is the last state reached: Committed, Failed, or the state a
	// skipped document was in when it was skipped.
	State               DocumentState
	Skipped             bool
	TransactionsWritten int
	Err                 error
}

// RunSummary counts what one run did.
type RunSummary struct {
	RunID            string
	Listed           int
	Ineligible       int
	AlreadyProcessed int
	Processed        int
	Failed           int
	Documents        []DocumentResult
}

// Coordinator runs ingestion over every eligible document in a bucket.
type Coordinator struct {
	objects  ObjectStore
	ledger   Ledger
	pipeline *Pipeline
	opts     Options
}

// NewCoordinator wires the ingestion collaborators. Workers below 1 means
// one document at a time.
func NewCoordinator(objects ObjectStore, extractor TextExtractor, parser StatementParser, ledger Ledger, sink Sink, opts Options) *Coordinator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Extension == "" {
		opts.Extension = DefaultExtension
	}
	return &Coordinator{
		objects:  objects,
		ledger:   ledger,
		pipeline: NewStatementIngestionPipeline(objects, extractor, parser, sink, opts.PersistTimeout),
		opts:     opts,
	}
}

// Run ingests every eligible document once. Per-document failures are
// recorded in the summary and never end the run; a listing or ledger failure
// does, and so does cancellation of ctx.
func (c *Coordinator) Run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{RunID: uuid.NewString()}

	log := logger.FromContext(ctx).With().Str("run_id", summary.RunID).Logger()
	ctx = logger.WithContext(ctx, log)

	keys, err := c.objects.ListObjects(ctx, c.opts.Bucket, c.opts.Prefix)
	if err != nil {
		return summary, fmt.Errorf("Run: %w: %w", ErrListingFailed, err)
	}
	summary.Listed = len(keys)

	eligible := make([]string, 0, len(keys))
	for _, key := range keys {
		if !c.Eligible(key) {
			log.Debug().Str("file_key", key).Msg("Skipping non-document key")
			summary.Ineligible++
			continue
		}
		eligible = append(eligible, key)
	}

	log.Info().
		Int("listed", summary.Listed).
		Int("eligible", len(eligible)).
		Int("workers", c.opts.Workers).
		Msg("Starting ingestion run")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for _, key := range eligible {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := c.ProcessDocument(gctx, summary.RunID, key)
			if errors.Is(res.Err, ErrLedgerUnavailable) {
				return res.Err
			}

			mu.Lock()
			defer mu.Unlock()
			summary.record(res)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		summary.sort()
		return summary, fmt.Errorf("Run: %w", err)
	}
	summary.sort()

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("Run: %w", err)
	}

	log.Info().
		Int("processed", summary.Processed).
		Int("already_processed", summary.AlreadyProcessed).
		Int("failed", summary.Failed).
		Int("ineligible", summary.Ineligible).
		Msg("Ingestion run finished")

	return summary, nil
}

// ProcessDocument takes one document from Pending to Committed or Failed.
// A document the ledger already holds is skipped before it is fetched.
func (c *Coordinator) ProcessDocument(ctx context.Context, runID, fileKey string) DocumentResult {
	log := logger.ForDocument(logger.FromContext(ctx), runID, fileKey)
	ctx = logger.WithContext(ctx, log)

	done, err := c.ledger.IsProcessed(ctx, fileKey)
	if err != nil {
		log.Error().Err(err).Msg("Ledger check failed")
		return DocumentResult{
			FileKey: fileKey,
			State:   Pending,
			Err:     fmt.Errorf("ProcessDocument: %w: %w", ErrLedgerUnavailable, err),
		}
	}
	if done {
		log.Info().Msg("Document already processed, skipping")
		return DocumentResult{FileKey: fileKey, State: Pending, Skipped: true}
	}

	state := &PipelineState{Bucket: c.opts.Bucket, FileKey: fileKey, State: Pending}
	err = c.pipeline.Execute(ctx, state)

	var stageErr *StageError
	switch {
	case err == nil:
		log.Info().
			Int("transactions", state.Result.TransactionsWritten).
			Bool("account_created", state.Result.AccountCreated).
			Msg("Document committed")
		return DocumentResult{
			FileKey:             fileKey,
			State:               Committed,
			TransactionsWritten: state.Result.TransactionsWritten,
		}

	case errors.Is(err, store.ErrAlreadyProcessed):
		log.Info().Msg("Document committed by another worker, rows discarded")
		return DocumentResult{FileKey: fileKey, State: Persisting, Skipped: true}

	default:
		event := log.Error().Err(err)
		if errors.As(err, &stageErr) {
			event = event.Str("stage", stageErr.Stage.String())
		}
		event.Msg("Document failed")
		return DocumentResult{FileKey: fileKey, State: Failed, Err: err}
	}
}

// Eligible reports whether key carries the document extension, ignoring case.
func (c *Coordinator) Eligible(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), strings.ToLower(c.opts.Extension))
}

func (s *RunSummary) record(res DocumentResult) {
	switch {
	case res.Skipped:
		s.AlreadyProcessed++
	case res.State == Committed:
		s.Processed++
	default:
		s.Failed++
	}
	s.Documents = append(s.Documents, res)
}

func (s *RunSummary) sort() {
	sort.Slice(s.Documents, func(i, j int) bool {
		return s.Documents[i].FileKey < s.Documents[j].FileKey
	})
}

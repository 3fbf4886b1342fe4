package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/logger"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	// Stage is the state the document is in while the step runs.
	Stage() DocumentState
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Bucket    string
	FileKey   string
	State     DocumentState
	Content   []byte
	Text      string
	Statement *domain.Statement
	Result    store.CommitResult
}

// FetchStep downloads the document bytes.
type FetchStep struct {
	Objects ObjectStore
}

func (s *FetchStep) Stage() DocumentState { return Fetching }

func (s *FetchStep) Execute(ctx context.Context, state *PipelineState) error {
	data, err := s.Objects.FetchObject(ctx, state.Bucket, state.FileKey)
	if err != nil {
		return err
	}
	state.Content = data
	return nil
}

// ExtractStep converts the fetched bytes to text.
type ExtractStep struct {
	Extractor TextExtractor
}

func (s *ExtractStep) Stage() DocumentState { return Extracting }

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	text, err := s.Extractor.ExtractText(state.Content)
	if err != nil {
		return err
	}
	state.Text = text
	// The raw bytes are not needed past this point.
	state.Content = nil
	return nil
}

// ParseStep builds the statement records from the text.
type ParseStep struct {
	Parser StatementParser
}

func (s *ParseStep) Stage() DocumentState { return Parsing }

func (s *ParseStep) Execute(ctx context.Context, state *PipelineState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()

	st := s.Parser.Parse(ctx, state.Text)
	if st == nil {
		return errors.New("parser returned no statement")
	}
	state.Statement = st

	log := logger.FromContext(ctx)
	log.Debug().
		Str("account_number", st.Info.AccountNumber).
		Int("transactions", len(st.Transactions)).
		Msg("Statement parsed")
	return nil
}

// PersistStep commits the persistence unit, bounded by Timeout when set.
type PersistStep struct {
	Sink    Sink
	Timeout time.Duration
}

func (s *PersistStep) Stage() DocumentState { return Persisting }

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	result, err := s.Sink.CommitStatement(ctx, state.FileKey, state.Statement)
	if err != nil {
		return err
	}
	state.Result = result
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially. The first failing
// step leaves state.State at Failed and returns a *StageError naming it.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	if state.State.Terminal() {
		return fmt.Errorf("Execute: %s is already %s", state.FileKey, state.State)
	}
	for _, step := range p.steps {
		state.State = step.Stage()
		if err := ctx.Err(); err != nil {
			return p.fail(state, err)
		}
		if err := step.Execute(ctx, state); err != nil {
			return p.fail(state, err)
		}
	}
	state.State = Committed
	return nil
}

func (p *Pipeline) fail(state *PipelineState, err error) error {
	stage := state.State
	state.State = Failed
	return &StageError{Stage: stage, FileKey: state.FileKey, Err: err}
}

// NewStatementIngestionPipeline creates the fetch, extract, parse and persist
// pipeline for one statement document.
func NewStatementIngestionPipeline(objects ObjectStore, extractor TextExtractor, parser StatementParser, sink Sink, persistTimeout time.Duration) *Pipeline {
	return NewPipeline(
		&FetchStep{Objects: objects},
		&ExtractStep{Extractor: extractor},
		&ParseStep{Parser: parser},
		&PersistStep{Sink: sink, Timeout: persistTimeout},
	)
}

package pipeline

import (
	"context"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// ObjectStore lists and fetches statement documents.
type ObjectStore interface {
	ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error)
	FetchObject(ctx context.Context, bucketName, objectName string) ([]byte, error)
}

// TextExtractor turns document bytes into text.
type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}

// StatementParser builds a statement from extracted text.
type StatementParser interface {
	Parse(ctx context.Context, text string) *domain.Statement
}

// Ledger answers whether a document key was already ingested.
type Ledger interface {
	IsProcessed(ctx context.Context, fileKey string) (bool, error)
}

// Sink commits one document's persistence unit. It must return an error
// wrapping store.ErrAlreadyProcessed when the ledger entry already exists.
type Sink interface {
	CommitStatement(ctx context.Context, fileKey string, st *domain.Statement) (store.CommitResult, error)
}

package pipeline

import (
	"errors"
	"fmt"
)

// DocumentState is the position of one document in its ingestion.
type DocumentState int

const (
	Pending DocumentState = iota
	Fetching
	Extracting
	Parsing
	Persisting
	Committed
	Failed
)

func (s DocumentState) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Fetching:
		return "FETCHING"
	case Extracting:
		return "EXTRACTING"
	case Parsing:
		return "PARSING"
	case Persisting:
		return "PERSISTING"
	case Committed:
		return "COMMITTED"
	case Failed:
		return "FAILED"
	default:
		return fmt.Sprintf("DocumentState(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s DocumentState) Terminal() bool {
	return s == Committed || s == Failed
}

var (
	// ErrLedgerUnavailable means the ledger could not be consulted. It ends the run.
	ErrLedgerUnavailable = errors.New("ingestion ledger unavailable")

	// ErrListingFailed means the document listing could not be read. It ends the run.
	ErrListingFailed = errors.New("document listing failed")
)

// StageError records the state a document failed in.
type StageError struct {
	Stage   DocumentState
	FileKey string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", e.FileKey, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

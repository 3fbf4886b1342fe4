package store

import (
	"context"
	"fmt"
)

const (
	isProcessedQuery   = `SELECT EXISTS (SELECT 1 FROM processed_files WHERE file_name = $1)`
	markProcessedQuery = `INSERT INTO processed_files (file_name) VALUES ($1) ON CONFLICT (file_name) DO NOTHING`
)

// IsProcessed reports whether fileKey already has a ledger entry.
func (s *Store) IsProcessed(ctx context.Context, fileKey string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, isProcessedQuery, fileKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("IsProcessed: querying ledger for %q: %w", fileKey, err)
	}
	return exists, nil
}

// MarkProcessed appends fileKey to the ledger outside any persistence unit.
// It returns false without error when the key was already present.
func (s *Store) MarkProcessed(ctx context.Context, fileKey string) (bool, error) {
	return markProcessed(ctx, s.db, fileKey)
}

func markProcessed(ctx context.Context, ex execer, fileKey string) (bool, error) {
	res, err := ex.ExecContext(ctx, markProcessedQuery, fileKey)
	if err != nil {
		return false, fmt.Errorf("markProcessed: inserting %q: %w", fileKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("markProcessed: rows affected: %w", err)
	}
	return n == 1, nil
}

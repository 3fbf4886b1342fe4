package pipeline_test

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/pdftext"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// MockObjectStore serves documents from memory and counts fetches per key.
type MockObjectStore struct {
	Objects         map[string][]byte
	ListObjectsFunc func(ctx context.Context, bucketName, prefix string) ([]string, error)
	FetchObjectFunc func(ctx context.Context, bucketName, objectName string) ([]byte, error)

	mu      sync.Mutex
	fetches map[string]int
}

func (m *MockObjectStore) ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error) {
	if m.ListObjectsFunc != nil {
		return m.ListObjectsFunc(ctx, bucketName, prefix)
	}
	var keys []string
	for k := range m.Objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MockObjectStore) FetchObject(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	m.mu.Lock()
	if m.fetches == nil {
		m.fetches = make(map[string]int)
	}
	m.fetches[objectName]++
	m.mu.Unlock()

	if m.FetchObjectFunc != nil {
		return m.FetchObjectFunc(ctx, bucketName, objectName)
	}
	data, ok := m.Objects[objectName]
	if !ok {
		return nil, fmt.Errorf("object %s/%s not found", bucketName, objectName)
	}
	return data, nil
}

func (m *MockObjectStore) Fetches(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[key]
}

// MockExtractor treats document bytes as their own text. Content starting
// with CORRUPT is unreadable.
type MockExtractor struct {
	ExtractTextFunc func(data []byte) (string, error)
}

func (m *MockExtractor) ExtractText(data []byte) (string, error) {
	if m.ExtractTextFunc != nil {
		return m.ExtractTextFunc(data)
	}
	if bytes.HasPrefix(data, []byte("CORRUPT")) {
		return "", fmt.Errorf("ExtractText: %w", pdftext.ErrUnreadableDocument)
	}
	return string(data), nil
}

type summaryRow struct {
	FileKey string
	domain.AccountSummary
}

type transactionRow struct {
	FileKey       string
	AccountNumber string
	domain.Transaction
}

// memorySink models the four tables. Each commit is applied whole or not at all.
type memorySink struct {
	IsProcessedFunc func(ctx context.Context, fileKey string) (bool, error)
	// CommitFunc runs before any write; an error aborts the unit.
	CommitFunc func(ctx context.Context, fileKey string, st *domain.Statement) error

	mu           sync.Mutex
	accounts     map[string]domain.AccountInfo
	summaries    []summaryRow
	transactions []transactionRow
	processed    map[string]bool
}

func newMemorySink() *memorySink {
	return &memorySink{
		accounts:  make(map[string]domain.AccountInfo),
		processed: make(map[string]bool),
	}
}

func (s *memorySink) IsProcessed(ctx context.Context, fileKey string) (bool, error) {
	if s.IsProcessedFunc != nil {
		return s.IsProcessedFunc(ctx, fileKey)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[fileKey], nil
}

func (s *memorySink) CommitStatement(ctx context.Context, fileKey string, st *domain.Statement) (store.CommitResult, error) {
	if s.CommitFunc != nil {
		if err := s.CommitFunc(ctx, fileKey, st); err != nil {
			return store.CommitResult{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return store.CommitResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processed[fileKey] {
		return store.CommitResult{}, fmt.Errorf("CommitStatement: %q: %w", fileKey, store.ErrAlreadyProcessed)
	}

	var result store.CommitResult
	if _, ok := s.accounts[st.Info.AccountNumber]; !ok {
		s.accounts[st.Info.AccountNumber] = st.Info
		result.AccountCreated = true
	}
	s.summaries = append(s.summaries, summaryRow{FileKey: fileKey, AccountSummary: st.Summary})
	for _, t := range st.Transactions {
		s.transactions = append(s.transactions, transactionRow{FileKey: fileKey, AccountNumber: st.Info.AccountNumber, Transaction: t})
	}
	result.TransactionsWritten = len(st.Transactions)
	s.processed[fileKey] = true

	return result, nil
}

// markProcessed seeds the ledger without writing any rows.
func (s *memorySink) markProcessed(fileKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[fileKey] = true
}

type tableCounts struct {
	Accounts, Summaries, Transactions, Processed int
}

func (s *memorySink) counts() tableCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tableCounts{
		Accounts:     len(s.accounts),
		Summaries:    len(s.summaries),
		Transactions: len(s.transactions),
		Processed:    len(s.processed),
	}
}

func (s *memorySink) rowsFor(fileKey string) (summaries, transactions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.summaries {
		if r.FileKey == fileKey {
			summaries++
		}
	}
	for _, r := range s.transactions {
		if r.FileKey == fileKey {
			transactions++
		}
	}
	return summaries, transactions
}

func (s *memorySink) isProcessed(fileKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[fileKey]
}

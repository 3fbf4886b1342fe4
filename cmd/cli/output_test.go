package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ingest/internal/category"
	"github.com/dvloznov/statement-ingest/internal/domain"
)

type stubExtractor struct {
	calls int
	err   error
}

func (s *stubExtractor) ExtractText(data []byte) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "pdf:" + string(data), nil
}

func TestStatementText(t *testing.T) {
	tests := []struct {
		source    string
		want      string
		extracted bool
	}{
		{"april.pdf", "pdf:raw", true},
		{"gs://bucket/statements/APRIL.PDF", "pdf:raw", true},
		{"april.txt", "raw", false},
		{"notes", "raw", false},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			ex := &stubExtractor{}
			got, err := statementText(ex, tt.source, []byte("raw"))
			if err != nil {
				t.Fatalf("statementText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("statementText() = %q, want %q", got, tt.want)
			}
			if (ex.calls == 1) != tt.extracted {
				t.Errorf("extractor called %d times, extracted = %v", ex.calls, tt.extracted)
			}
		})
	}
}

func TestStatementText_ExtractError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := statementText(&stubExtractor{err: boom}, "x.pdf", nil); !errors.Is(err, boom) {
		t.Errorf("statementText() error = %v, want %v", err, boom)
	}
}

func TestPrintStatement(t *testing.T) {
	st := &domain.Statement{
		Info:    domain.AccountInfo{AccountNumber: "50100123456789", HolderName: "RAVI KUMAR"},
		Summary: domain.AccountSummary{AccountNumber: "50100123456789", OpeningBalance: 1000, TotalTransactions: 1},
		Transactions: []domain.Transaction{{
			Date:        civil.Date{Year: 2024, Month: 4, Day: 10},
			Description: "UPI/ZOMATO/\nDINNER",
			Reference:   "UPI4455",
			Type:        domain.Debit,
			DebitAmount: 1200.5,
			Category:    "FOOD_DELIVERY",
		}},
	}

	var buf bytes.Buffer
	printStatement(&buf, st)
	out := buf.String()

	for _, want := range []string{
		"Account Number:   50100123456789",
		"Holder:           RAVI KUMAR",
		"Opening Balance:    1000.00",
		"=== Transactions (1) ===",
		"2024-04-10",
		"1200.50",
		"FOOD_DELIVERY",
		"UPI/ZOMATO/ DINNER",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintCategories(t *testing.T) {
	rules := []category.Rule{
		{Code: "FOOD_DELIVERY", Keywords: []string{"SWIGGY", "ZOMATO"}},
		{Code: "ATM_WITHDRAWAL", Keywords: []string{"ATM"}},
	}

	var buf bytes.Buffer
	printCategories(&buf, rules)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "1") || !strings.Contains(lines[1], "Food Delivery") || !strings.Contains(lines[1], "SWIGGY, ZOMATO") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "2") || !strings.Contains(lines[2], "ATM_WITHDRAWAL") {
		t.Errorf("line 2 = %q", lines[2])
	}
	if !strings.Contains(lines[3], category.Other) {
		t.Errorf("fallback line = %q", lines[3])
	}
}

type fakeStorage struct {
	uploads   map[string]string
	uploadErr error
}

func (f *fakeStorage) ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error) {
	return nil, nil
}

func (f *fakeStorage) FetchObject(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	return nil, nil
}

func (f *fakeStorage) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads[bucketName+"/"+objectName] = filePath
	return nil
}

func TestUploadStatement(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		objectName string
		wantURI    string
	}{
		{"prefix and base name", "statements/", "", "gs://ledger/statements/april.pdf"},
		{"no prefix", "", "", "gs://ledger/april.pdf"},
		{"explicit object", "statements", "archive/2024-04.pdf", "gs://ledger/archive/2024-04.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &fakeStorage{uploads: map[string]string{}}
			uri, err := uploadStatement(context.Background(), storage, "ledger", tt.prefix, tt.objectName, "/tmp/in/april.pdf")
			if err != nil {
				t.Fatalf("uploadStatement() error = %v", err)
			}
			if uri != tt.wantURI {
				t.Errorf("uploadStatement() = %q, want %q", uri, tt.wantURI)
			}
			if len(storage.uploads) != 1 {
				t.Errorf("uploads = %v, want exactly one", storage.uploads)
			}
		})
	}
}

func TestUploadStatement_Error(t *testing.T) {
	boom := errors.New("permission denied")
	storage := &fakeStorage{uploadErr: boom}
	if _, err := uploadStatement(context.Background(), storage, "ledger", "", "", "april.pdf"); !errors.Is(err, boom) {
		t.Errorf("uploadStatement() error = %v, want %v", err, boom)
	}
}

type fakeLedger struct {
	keys map[string]bool
	err  error
}

func (f *fakeLedger) MarkProcessed(ctx context.Context, fileKey string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.keys[fileKey] {
		return false, nil
	}
	f.keys[fileKey] = true
	return true, nil
}

func TestSkipDocuments(t *testing.T) {
	ledger := &fakeLedger{keys: map[string]bool{"b.pdf": true}}

	var buf bytes.Buffer
	if err := skipDocuments(context.Background(), &buf, ledger, []string{"a.pdf", "b.pdf"}); err != nil {
		t.Fatalf("skipDocuments() error = %v", err)
	}

	want := "marked a.pdf\nalready processed b.pdf\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
	if !ledger.keys["a.pdf"] {
		t.Error("a.pdf was not recorded")
	}
}

func TestSkipDocuments_Error(t *testing.T) {
	boom := errors.New("connection reset")
	var buf bytes.Buffer
	if err := skipDocuments(context.Background(), &buf, &fakeLedger{err: boom}, []string{"a.pdf"}); !errors.Is(err, boom) {
		t.Errorf("skipDocuments() error = %v, want %v", err, boom)
	}
}

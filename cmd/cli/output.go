package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dvloznov/statement-ingest/internal/category"
	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/gcsuploader"
	"github.com/dvloznov/statement-ingest/internal/logger"
)

// readSource returns the bytes of a local file or a gs:// object.
func readSource(ctx context.Context, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "gs://") {
		return os.ReadFile(source)
	}

	bucketName, objectName, err := gcsuploader.ParseGCSURI(source)
	if err != nil {
		return nil, err
	}
	storage, err := gcsuploader.NewGCSStorageService(ctx, 0)
	if err != nil {
		return nil, err
	}
	defer storage.Close()

	return storage.FetchObject(ctx, bucketName, objectName)
}

// uploadStatement stores filePath in the bucket and returns its gs:// URI.
// An empty objectName means prefix plus the file's base name.
func uploadStatement(ctx context.Context, storage gcsuploader.StorageService, bucketName, prefix, objectName, filePath string) (string, error) {
	if objectName == "" {
		objectName = gcsuploader.ObjectName(prefix, filePath)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("bucket", bucketName).
		Str("object", objectName).
		Str("file", filePath).
		Msg("Uploading file to GCS")

	if err := storage.UploadFile(ctx, bucketName, objectName, filePath); err != nil {
		return "", fmt.Errorf("uploadStatement: %w", err)
	}
	return gcsuploader.ObjectURI(bucketName, objectName), nil
}

type ledgerMarker interface {
	MarkProcessed(ctx context.Context, fileKey string) (bool, error)
}

// skipDocuments records each key in the ingestion ledger so later runs pass
// over it. Keys already present are reported, not treated as errors.
func skipDocuments(ctx context.Context, w io.Writer, ledger ledgerMarker, keys []string) error {
	for _, key := range keys {
		added, err := ledger.MarkProcessed(ctx, key)
		if err != nil {
			return fmt.Errorf("skipDocuments: %w", err)
		}
		if added {
			fmt.Fprintf(w, "marked %s\n", key)
		} else {
			fmt.Fprintf(w, "already processed %s\n", key)
		}
	}
	return nil
}

type textExtractor interface {
	ExtractText(data []byte) (string, error)
}

// statementText extracts PDF sources and passes anything else through as
// already-extracted text.
func statementText(extractor textExtractor, source string, data []byte) (string, error) {
	if strings.EqualFold(filepath.Ext(source), ".pdf") {
		return extractor.ExtractText(data)
	}
	return string(data), nil
}

func printStatement(w io.Writer, st *domain.Statement) {
	info := st.Info
	fmt.Fprintln(w, "=== Account ===")
	fmt.Fprintf(w, "Account Number:   %s\n", info.AccountNumber)
	fmt.Fprintf(w, "Holder:           %s\n", info.HolderName)
	fmt.Fprintf(w, "Account Type:     %s\n", info.AccountType)
	fmt.Fprintf(w, "IFSC Code:        %s\n", info.IFSCCode)
	fmt.Fprintf(w, "Branch:           %s\n", info.Branch)
	fmt.Fprintf(w, "Customer ID:      %s\n", info.CustomerID)
	fmt.Fprintf(w, "Statement Period: %s\n", info.StatementPeriod)

	sum := st.Summary
	fmt.Fprintln(w, "\n=== Summary ===")
	fmt.Fprintf(w, "Opening Balance:    %.2f\n", sum.OpeningBalance)
	fmt.Fprintf(w, "Closing Balance:    %.2f\n", sum.ClosingBalance)
	fmt.Fprintf(w, "Total Credits:      %.2f\n", sum.TotalCredits)
	fmt.Fprintf(w, "Total Debits:       %.2f\n", sum.TotalDebits)
	fmt.Fprintf(w, "Total Transactions: %d\n", sum.TotalTransactions)

	fmt.Fprintf(w, "\n=== Transactions (%d) ===\n", len(st.Transactions))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tDEBIT\tCREDIT\tCATEGORY\tREFERENCE\tDESCRIPTION")
	for _, t := range st.Transactions {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%s\t%s\t%s\n",
			t.Date, t.Type, t.DebitAmount, t.CreditAmount, t.Category, t.Reference,
			strings.ReplaceAll(t.Description, "\n", " "))
	}
	tw.Flush()
}

func printCategories(w io.Writer, rules []category.Rule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCODE\tNAME\tKEYWORDS")
	for i, r := range rules {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, r.Code, category.DisplayName(r.Code), strings.Join(r.Keywords, ", "))
	}
	fmt.Fprintf(tw, "-\t%s\t%s\t(no match)\n", category.Other, category.DisplayName(category.Other))
	tw.Flush()
}

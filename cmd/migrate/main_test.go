package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dvloznov/statement-ingest/internal/store"
)

func TestPrintPending(t *testing.T) {
	tests := []struct {
		name    string
		pending []store.Migration
		want    []string
	}{
		{
			name: "up to date",
			want: []string{"Database is up to date"},
		},
		{
			name: "two pending",
			pending: []store.Migration{
				{Version: 1, Name: "create_statement_tables"},
				{Version: 2, Name: "index_transactions_by_account"},
			},
			want: []string{
				"2 pending migration(s)",
				"[PENDING] 0001_create_statement_tables",
				"[PENDING] 0002_index_transactions_by_account",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printPending(&buf, tt.pending)
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestPrintApplied(t *testing.T) {
	var buf bytes.Buffer
	printApplied(&buf, []store.Migration{{Version: 1, Name: "create_statement_tables"}})

	out := buf.String()
	if !strings.Contains(out, "[OK]   0001_create_statement_tables") {
		t.Errorf("output missing applied line:\n%s", out)
	}
	if !strings.Contains(out, "Successfully applied 1 migration(s)") {
		t.Errorf("output missing total:\n%s", out)
	}

	buf.Reset()
	printApplied(&buf, nil)
	if !strings.Contains(buf.String(), "No new migrations to apply") {
		t.Errorf("unexpected output for no migrations:\n%s", buf.String())
	}
}

func TestEmbeddedMigrationsAreNumbered(t *testing.T) {
	migrations, err := store.EmbeddedMigrations()
	if err != nil {
		t.Fatalf("EmbeddedMigrations() error = %v", err)
	}
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %d has version %d; versions must be contiguous from 1", i, m.Version)
		}
		if len(m.Checksum) != 64 {
			t.Errorf("%s: checksum %q is not a sha256 hex digest", m.Filename, m.Checksum)
		}
	}
}

package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/dvloznov/statement-ingest/internal/logger"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// ErrChecksumMismatch means an applied migration file was edited afterwards.
var ErrChecksumMismatch = errors.New("migration checksum mismatch")

// ErrConcurrentMigration means another process recorded the same version
// while this one was applying it.
var ErrConcurrentMigration = errors.New("migration applied concurrently")

// Migration files are named 0001_name.sql.
var migrationFilePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

const (
	createSchemaMigrationsQuery = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		checksum   TEXT NOT NULL,
		applied_by TEXT NOT NULL DEFAULT '',
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

	selectAppliedMigrationsQuery = `SELECT version, name, checksum, applied_by, applied_at
		FROM schema_migrations ORDER BY version`

	recordMigrationQuery = `INSERT INTO schema_migrations (version, name, checksum, applied_by)
		VALUES ($1, $2, $3, $4)`
)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	Checksum  string
	AppliedBy string
	AppliedAt time.Time
}

// EmbeddedMigrations returns the migrations compiled into the binary.
func EmbeddedMigrations() ([]Migration, error) {
	return ReadMigrations(embeddedMigrations, "migrations")
}

// ReadMigrations loads every NNNN_name.sql file in dir, sorted by version.
// Files that do not follow the naming scheme are ignored.
func ReadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("ReadMigrations: reading %s: %w", dir, err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := migrationFilePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("ReadMigrations: version %04d used by %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("ReadMigrations: reading file %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// Migrate applies the embedded migrations that have not run yet.
func (s *Store) Migrate(ctx context.Context, appliedBy string) ([]Migration, error) {
	migrations, err := EmbeddedMigrations()
	if err != nil {
		return nil, fmt.Errorf("Migrate: %w", err)
	}
	return ApplyMigrations(ctx, s.db, migrations, appliedBy)
}

// PendingMigrations lists the embedded migrations that have not run yet,
// after checking the applied ones against their checksums.
func (s *Store) PendingMigrations(ctx context.Context) ([]Migration, error) {
	migrations, err := EmbeddedMigrations()
	if err != nil {
		return nil, fmt.Errorf("PendingMigrations: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createSchemaMigrationsQuery); err != nil {
		return nil, fmt.Errorf("PendingMigrations: ensuring schema_migrations: %w", err)
	}
	applied, err := appliedMigrations(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("PendingMigrations: %w", err)
	}
	return pending(migrations, applied)
}

// ApplyMigrations creates schema_migrations if needed, verifies that every
// applied migration still has its recorded checksum, then runs each pending
// migration in its own transaction together with its schema_migrations row.
// It returns the migrations it applied.
func ApplyMigrations(ctx context.Context, db *sql.DB, migrations []Migration, appliedBy string) ([]Migration, error) {
	log := logger.FromContext(ctx)

	if _, err := db.ExecContext(ctx, createSchemaMigrationsQuery); err != nil {
		return nil, fmt.Errorf("ApplyMigrations: ensuring schema_migrations: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("ApplyMigrations: %w", err)
	}

	todo, err := pending(migrations, applied)
	if err != nil {
		return nil, fmt.Errorf("ApplyMigrations: %w", err)
	}

	var done []Migration
	for _, m := range todo {
		if err := applyMigration(ctx, db, m, appliedBy); err != nil {
			return done, fmt.Errorf("ApplyMigrations: %04d_%s: %w", m.Version, m.Name, err)
		}
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Migration applied")
		done = append(done, m)
	}

	return done, nil
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration, appliedBy string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}

	if _, err := tx.ExecContext(ctx, recordMigrationQuery, m.Version, m.Name, m.Checksum, appliedBy); err != nil {
		if isUniqueViolation(err) {
			return ErrConcurrentMigration
		}
		return fmt.Errorf("recording migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func appliedMigrations(ctx context.Context, db *sql.DB) ([]AppliedMigration, error) {
	rows, err := db.QueryContext(ctx, selectAppliedMigrationsQuery)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var am AppliedMigration
		if err := rows.Scan(&am.Version, &am.Name, &am.Checksum, &am.AppliedBy, &am.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning applied migration: %w", err)
		}
		applied = append(applied, am)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating applied migrations: %w", err)
	}

	return applied, nil
}

// pending returns the migrations whose version is not in applied. An applied
// version whose checksum differs from the file is an error.
func pending(migrations []Migration, applied []AppliedMigration) ([]Migration, error) {
	byVersion := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		byVersion[am.Version] = am
	}

	var todo []Migration
	for _, m := range migrations {
		am, ok := byVersion[m.Version]
		if !ok {
			todo = append(todo, m)
			continue
		}
		if am.Checksum != m.Checksum {
			return nil, fmt.Errorf("%04d_%s: %w", m.Version, m.Name, ErrChecksumMismatch)
		}
	}
	return todo, nil
}

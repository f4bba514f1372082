package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/abdulachik/threadsmith/internal/db/migrations"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// ErrNoDownMigration is returned by Rollback for a migration without a
// Down section.
var ErrNoDownMigration = errors.New("migration has no down section")

// Migration is one embedded schema migration and whether it is applied.
type Migration struct {
	Version   string
	Applied   bool
	AppliedAt time.Time
}

type migrationFile struct {
	version string
	up      string
	down    string
}

// splitMigration returns the Up and Down sections of a migration file.
// A file without markers is all Up.
func splitMigration(content string) (up, down string) {
	up = content
	if i := strings.Index(content, downMarker); i >= 0 {
		up = content[:i]
		down = content[i+len(downMarker):]
	}
	up = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(up), upMarker))
	return up, strings.TrimSpace(down)
}

func loadMigrations(fsys fs.FS) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		up, down := splitMigration(string(content))
		files = append(files, migrationFile{version: entry.Name(), up: up, down: down})
	}
	slices.SortFunc(files, func(a, b migrationFile) int { return strings.Compare(a.version, b.version) })
	return files, nil
}

func (s *Store) ensureMigrationsTable(ctx context.Context) error {
	_, err := s.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

func (s *Store) appliedMigrations(ctx context.Context) (map[string]time.Time, error) {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}

	rows, err := s.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var version string
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		applied[version] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migrations: %w", err)
	}
	return applied, nil
}

// Migrate runs all pending database migrations.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.migrate(ctx, migrations.FS)
	return err
}

func (s *Store) migrate(ctx context.Context, fsys fs.FS) (int, error) {
	slog.Debug("running database migrations")

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return 0, err
	}
	files, err := loadMigrations(fsys)
	if err != nil {
		return 0, err
	}

	var n int
	for _, m := range files {
		if _, ok := applied[m.version]; ok {
			continue
		}

		slog.Info("applying migration", "file", m.version)
		err := s.inTx(ctx, func(tx DBTX) error {
			if _, err := tx.ExecContext(ctx, m.up); err != nil {
				return fmt.Errorf("execute migration %s: %w", m.version, err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
				return fmt.Errorf("record migration %s: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return n, err
		}
		n++
	}

	if n > 0 {
		slog.Info("migrations applied", "count", n)
	}
	return n, nil
}

// Rollback reverts the most recently applied migration and returns its
// version, or "" when nothing is applied.
func (s *Store) Rollback(ctx context.Context) (string, error) {
	return s.rollback(ctx, migrations.FS)
}

func (s *Store) rollback(ctx context.Context, fsys fs.FS) (string, error) {
	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return "", err
	}
	files, err := loadMigrations(fsys)
	if err != nil {
		return "", err
	}

	for _, m := range slices.Backward(files) {
		if _, ok := applied[m.version]; !ok {
			continue
		}
		if m.down == "" {
			return "", fmt.Errorf("roll back %s: %w", m.version, ErrNoDownMigration)
		}

		slog.Info("rolling back migration", "file", m.version)
		err := s.inTx(ctx, func(tx DBTX) error {
			if _, err := tx.ExecContext(ctx, m.down); err != nil {
				return fmt.Errorf("roll back %s: %w", m.version, err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", m.version); err != nil {
				return fmt.Errorf("unrecord migration %s: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return "", err
		}
		return m.version, nil
	}
	return "", nil
}

// Migrations lists every embedded migration with its state.
func (s *Store) Migrations(ctx context.Context) ([]Migration, error) {
	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	files, err := loadMigrations(migrations.FS)
	if err != nil {
		return nil, err
	}

	out := make([]Migration, len(files))
	for i, m := range files {
		at, ok := applied[m.version]
		out[i] = Migration{Version: m.version, Applied: ok, AppliedAt: at}
	}
	return out, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx DBTX) error) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

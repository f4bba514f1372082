package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store wraps the database connection and provides access to queries.
type Store struct {
	*sql.DB
	*Queries
}

// NewStore opens the database at dbPath, creating its directory if needed.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: SQLite serializes writers, and an in-memory database
	// exists only on the connection that created it.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	if dbPath != MemoryPath {
		pragmas = append([]string{"PRAGMA journal_mode=WAL"}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := sqlDB.ExecContext(ctx, p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("set %s: %w", strings.TrimPrefix(p, "PRAGMA "), err)
		}
	}

	slog.Debug("database opened", "path", dbPath)
	return &Store{DB: sqlDB, Queries: New(sqlDB)}, nil
}

// Retention returns the duration stored under a config key such as
// "session_ttl", falling back to def when the key is missing or invalid.
func (s *Store) Retention(ctx context.Context, key string, def time.Duration) time.Duration {
	val, err := s.GetConfig(ctx, key)
	if err != nil {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		slog.Warn("invalid retention config", "key", key, "value", val)
		return def
	}
	return d
}

// Prune removes idle sessions and stale feed articles according to the
// retention settings in the config table.
func (s *Store) Prune(ctx context.Context, now time.Time) error {
	sessionTTL := s.Retention(ctx, "session_ttl", 30*24*time.Hour)
	sessions, err := s.DeleteSessionsBefore(ctx, now.Add(-sessionTTL))
	if err != nil {
		return fmt.Errorf("prune sessions: %w", err)
	}

	articleTTL := s.Retention(ctx, "article_retention", 7*24*time.Hour)
	articles, err := s.DeleteArticlesBefore(ctx, now.Add(-articleTTL))
	if err != nil {
		return fmt.Errorf("prune articles: %w", err)
	}

	if sessions > 0 || articles > 0 {
		slog.Info("pruned database", "sessions", sessions, "articles", articles)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

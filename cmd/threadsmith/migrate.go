package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abdulachik/threadsmith/internal/config"
	"github.com/abdulachik/threadsmith/internal/db"
)

var (
	migrateStatus bool
	migrateDown   bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run all pending database migrations to set up or update the schema.

Examples:
  threadsmith migrate           # Apply pending migrations
  threadsmith migrate --status  # List migrations and whether they are applied
  threadsmith migrate --down    # Roll back the latest migration`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "List migrations without applying them")
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back the most recently applied migration")
	migrateCmd.MarkFlagsMutuallyExclusive("status", "down")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig((*config.Config).Validate)
	if err != nil {
		return err
	}

	slog.Info("connecting to database", "path", cfg.DatabasePath)
	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	switch {
	case migrateStatus:
		list, err := store.Migrations(ctx)
		if err != nil {
			return fmt.Errorf("list migrations: %w", err)
		}
		for _, m := range list {
			if m.Applied {
				fmt.Printf("[x] %s  %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04"))
			} else {
				fmt.Printf("[ ] %s\n", m.Version)
			}
		}

	case migrateDown:
		version, err := store.Rollback(ctx)
		if err != nil {
			return fmt.Errorf("roll back migration: %w", err)
		}
		if version == "" {
			slog.Info("no migrations to roll back")
			return nil
		}
		slog.Info("migration rolled back", "file", version)

	default:
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("migrations completed successfully")
	}
	return nil
}

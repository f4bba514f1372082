package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abdulachik/threadsmith/internal/app"
	"github.com/abdulachik/threadsmith/internal/config"
	"github.com/abdulachik/threadsmith/internal/db"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long:  `Display statistics about generations, published posts, sessions and articles.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig((*config.Config).Validate)
	if err != nil {
		return err
	}

	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	// Ensure migrations are run
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	generations, err := store.CountGenerations(ctx)
	if err != nil {
		return fmt.Errorf("count generations: %w", err)
	}
	threads, err := store.CountThreadGenerations(ctx)
	if err != nil {
		return fmt.Errorf("count thread generations: %w", err)
	}

	totalPosts, err := store.CountPosts(ctx)
	if err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	byPlatform, err := store.CountPostsByPlatform(ctx)
	if err != nil {
		return fmt.Errorf("count posts by platform: %w", err)
	}

	sessions, err := store.CountAuthenticatedSessions(ctx)
	if err != nil {
		slog.Warn("failed to count sessions", "error", err)
	}

	bySource, err := store.CountArticlesBySource(ctx)
	if err != nil {
		slog.Warn("failed to count articles", "error", err)
	}

	fmt.Println("=== threadsmith Statistics ===")
	fmt.Println()
	fmt.Printf("Database: %s\n", cfg.DatabasePath)
	fmt.Println()
	fmt.Println("Generations:")
	fmt.Printf("  Total: %d\n", generations)
	fmt.Printf("  Threads: %d\n", threads)
	fmt.Printf("  Single posts: %d\n", generations-threads)
	fmt.Println()

	fmt.Println("Published:")
	fmt.Printf("  Total: %d\n", totalPosts)
	for _, row := range byPlatform {
		today, err := store.CountPostsToday(ctx, row.Platform)
		if err != nil {
			slog.Warn("failed to count today's posts", "platform", row.Platform, "error", err)
		}
		fmt.Printf("    %s: %d (%d posts in threads, %d today)\n", row.Platform, row.Count, row.Segments, today)
	}
	fmt.Println()

	fmt.Printf("Authenticated sessions: %d\n", sessions)
	fmt.Println()

	if len(bySource) > 0 {
		fmt.Println("Articles seen:")
		for _, row := range bySource {
			fmt.Printf("  %s: %d\n", row.Source, row.Count)
		}
		fmt.Println()
	}

	if cfg.VecLitePath != "" {
		history, err := app.OpenHistory(ctx, cfg)
		if err != nil {
			slog.Warn("failed to open VecLite", "error", err)
		} else {
			defer history.Close()
			fmt.Println("Post history:")
			fmt.Printf("  Path: %s\n", cfg.VecLitePath)
			fmt.Printf("  Posts: %d\n", history.Count())
			fmt.Println()
		}
	}

	return nil
}

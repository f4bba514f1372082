package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abdulachik/threadsmith/internal/app"
	"github.com/abdulachik/threadsmith/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the backend API",
	Long: `Run the threadsmith backend: URL analysis and generation, the X OAuth
session, thread publishing and the trending articles feed. Feed refreshes and
database pruning run in the background.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig((*config.Config).ValidateForServe)
	if err != nil {
		return err
	}

	slog.Info("connecting to database", "path", cfg.DatabasePath)
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("starting threadsmith backend",
		"addr", cfg.ServerAddr,
		"public_url", cfg.PublicURL,
		"llm_provider", cfg.LLMProvider,
		"twitter", a.Auth != nil,
	)

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.Scheduler.Run(ctx)
	}()
	go func() {
		errCh <- a.Server.ListenAndServe(ctx)
	}()

	// Wait for shutdown signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	pending := 2
	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		pending--
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = fmt.Errorf("backend error: %w", err)
		}
	}

	slog.Info("shutting down...")
	cancel()
	for ; pending > 0; pending-- {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) && runErr == nil {
			runErr = fmt.Errorf("shutdown: %w", err)
		}
	}
	return runErr
}

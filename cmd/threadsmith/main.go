package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abdulachik/threadsmith/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "threadsmith",
	Short: "Turn blog posts into threads for social media",
	Long: `threadsmith reads a blog post, writes a social post about it with an LLM,
splits it into a numbered thread when it is too long, and publishes it to X
or Bluesky with optional images.

Run "threadsmith serve" for the backend, then use the other commands as the
client.`,
	SilenceUsage: true,
}

func init() {
	// Load .env file if present
	_ = godotenv.Load()

	// Set up logging
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (env vars take precedence)")
}

// loadConfig reads the configuration and runs validate on it.
func loadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("validate config: %w", err)
		}
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

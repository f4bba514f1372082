package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdulachik/threadsmith/internal/app"
	"github.com/abdulachik/threadsmith/internal/config"
	"github.com/abdulachik/threadsmith/internal/notify"
)

var (
	generateInstructions string
	generateJSON         bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <url>",
	Short: "Generate a post for a blog URL",
	Long: `Ask the backend to analyze a blog post and write a social post about it.
Long posts come back as a numbered thread. Nothing is published.

Examples:
  threadsmith generate https://example.com/post
  threadsmith generate https://example.com/post -i "mention the benchmarks"
  threadsmith generate https://example.com/post --json`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateInstructions, "instructions", "i", "", "Additional instructions for the writer")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig((*config.Config).ValidateForClient)
	if err != nil {
		return err
	}

	ws, err := app.NewWorkspace(ctx, cfg, app.WorkspaceConfig{Notifier: notify.NewConsoleNotifier(os.Stderr)})
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := ws.Composer.Generate(ctx, args[0], generateInstructions); err != nil {
		return err
	}

	th := ws.Composer.Thread()
	if generateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"url":       ws.Composer.URL(),
			"text":      ws.Composer.Text(),
			"segments":  th,
			"is_thread": th.IsThread(),
		})
	}

	printThread(th)
	return nil
}

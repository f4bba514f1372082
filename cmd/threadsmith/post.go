package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdulachik/threadsmith/internal/app"
	"github.com/abdulachik/threadsmith/internal/config"
	"github.com/abdulachik/threadsmith/internal/notify"
)

var (
	postInstructions string
	postImages       []string
	postEdits        []string
	postPlatform     string
	postYes          bool
	postDryRun       bool
)

var postCmd = &cobra.Command{
	Use:   "post <url>",
	Short: "Generate and publish a post for a blog URL",
	Long: `Generate a post for a blog URL, apply edits and images, show the preview
and publish it after confirmation.

Post numbers in --image and --edit start at 1.

Examples:
  threadsmith post https://example.com/post
  threadsmith post https://example.com/post --image 1=cover.png --image 3=chart.jpg
  threadsmith post https://example.com/post --edit "2=Shorter second post" --yes
  threadsmith post https://example.com/post --platform bluesky
  threadsmith post https://example.com/post --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runPost,
}

func init() {
	postCmd.Flags().StringVarP(&postInstructions, "instructions", "i", "", "Additional instructions for the writer")
	postCmd.Flags().StringArrayVar(&postImages, "image", nil, "Attach an image as N=path (repeatable)")
	postCmd.Flags().StringArrayVar(&postEdits, "edit", nil, "Replace the text of post N as N=text (repeatable)")
	postCmd.Flags().StringVar(&postPlatform, "platform", "twitter", "Destination: twitter (through the backend) or bluesky")
	postCmd.Flags().BoolVarP(&postYes, "yes", "y", false, "Publish without asking for confirmation")
	postCmd.Flags().BoolVar(&postDryRun, "dry-run", false, "Show what would be posted without posting")
	rootCmd.AddCommand(postCmd)
}

func runPost(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig((*config.Config).ValidateForClient)
	if err != nil {
		return err
	}

	ws, err := app.NewWorkspace(ctx, cfg, app.WorkspaceConfig{
		Notifier: notify.NewConsoleNotifier(os.Stderr),
		Platform: postPlatform,
	})
	if err != nil {
		return err
	}
	defer ws.Close()

	c := ws.Composer
	if err := c.Generate(ctx, args[0], postInstructions); err != nil {
		return err
	}

	edits, err := parseNumbered(postEdits)
	if err != nil {
		return fmt.Errorf("parse --edit: %w", err)
	}
	for _, n := range sortedKeys(edits) {
		if err := c.Edit(n-1, edits[n]); err != nil {
			return fmt.Errorf("edit post %d: %w", n, err)
		}
	}

	images, err := parseNumbered(postImages)
	if err != nil {
		return fmt.Errorf("parse --image: %w", err)
	}
	for _, n := range sortedKeys(images) {
		if err := c.Attach(ctx, n-1, images[n]); err != nil {
			return fmt.Errorf("attach image to post %d: %w", n, err)
		}
	}

	printThreadWithImages(c.Thread(), c.Attachments())

	if postDryRun {
		if matches, err := c.Similar(ctx); err == nil {
			for _, m := range matches {
				fmt.Printf("Similar earlier post (%.0f%%): %s\n", m.Similarity*100, m.URL)
			}
		}
		fmt.Println("Dry run, nothing published.")
		return nil
	}

	if !postYes && !confirm(fmt.Sprintf("Publish to %s?", postPlatform)) {
		fmt.Println("Cancelled.")
		return nil
	}

	result, err := c.Publish(ctx)
	if err != nil {
		return err
	}

	fmt.Println(result.Message)
	if result.URL != "" {
		fmt.Println(result.URL)
	}
	return nil
}

// parseNumbered parses "N=value" flags into a map keyed by N.
func parseNumbered(values []string) (map[int]string, error) {
	out := make(map[int]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("%q: expected N=value", v)
		}
		n, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%q: post number must be a positive integer", v)
		}
		out[n] = value
	}
	return out, nil
}

func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

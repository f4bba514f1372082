package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdulachik/threadsmith/internal/app"
	"github.com/abdulachik/threadsmith/internal/config"
)

var (
	articlesSource string
	articlesList   bool
)

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "Show trending tech articles",
	Long: `Show the current articles of a trending source, to pick a URL to generate
a post for.

Examples:
  threadsmith articles
  threadsmith articles --source hackernews
  threadsmith articles --sources`,
	RunE: runArticles,
}

func init() {
	articlesCmd.Flags().StringVarP(&articlesSource, "source", "s", "", "Article source (default: the backend's default)")
	articlesCmd.Flags().BoolVar(&articlesList, "sources", false, "List the available sources")
	rootCmd.AddCommand(articlesCmd)
}

func runArticles(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig((*config.Config).ValidateForClient)
	if err != nil {
		return err
	}

	c, err := app.NewClient(cfg)
	if err != nil {
		return err
	}

	if articlesList {
		sources, def, err := c.Feed().Sources(ctx)
		if err != nil {
			return err
		}
		for _, s := range sources {
			marker := " "
			if s == def {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, s)
		}
		return nil
	}

	articles, err := c.Feed().Articles(ctx, articlesSource)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Println("No articles found.")
		return nil
	}

	for i, a := range articles {
		fmt.Printf("%d. %s\n", i+1, a.Title)
		fmt.Printf("   %s\n", a.URL)
		if a.Published != "" || a.Category != "" {
			fmt.Printf("   %s  %s\n", a.Published, a.Category)
		}
	}
	return nil
}

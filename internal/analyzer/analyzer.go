// Package analyzer fetches blog posts and extracts the structure and style
// information the generator prompts with.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Analyzer fetches and analyzes pages, caching results by URL.
type Analyzer struct {
	fetcher *Fetcher
	cache   *gocache.Cache
}

// New creates an Analyzer. A zero ttl disables caching.
func New(fetcher *Fetcher, ttl time.Duration) *Analyzer {
	a := &Analyzer{fetcher: fetcher}
	if ttl > 0 {
		a.cache = gocache.New(ttl, 2*ttl)
	}
	return a
}

// Analyze fetches rawURL and analyzes its content.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) (*Analysis, error) {
	if a.cache != nil {
		if cached, ok := a.cache.Get(rawURL); ok {
			slog.Debug("analysis cache hit", "url", rawURL)
			return cached.(*Analysis), nil
		}
	}

	page, err := a.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	analysis, err := Analyze(page.HTML)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", rawURL, err)
	}
	analysis.URL = page.FinalURL

	slog.Info("page analyzed",
		"url", rawURL,
		"title", analysis.Title,
		"paragraphs", analysis.ParagraphStats.Count,
		"samples", len(analysis.SampleParagraphs),
		"tone", analysis.ToneIndicators,
	)

	if a.cache != nil {
		a.cache.SetDefault(rawURL, analysis)
	}
	return analysis, nil
}

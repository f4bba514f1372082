package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	hnBaseURL    = "https://hacker-news.firebaseio.com/v0"
	hnTopStories = "/topstories.json"
	hnItem       = "/item/%d.json"
	hnDefaultMax = 5
	hnDefaultMin = 100
)

// HackerNews reads top stories from the Hacker News API.
type HackerNews struct {
	httpClient *http.Client
	baseURL    string
	maxStories int
	minScore   int
}

// HackerNewsConfig holds configuration for the Hacker News source.
type HackerNewsConfig struct {
	BaseURL    string
	MaxStories int
	// MinScore excludes stories at or below this score.
	MinScore   int
	HTTPClient *http.Client
}

// NewHackerNews creates a Hacker News source.
func NewHackerNews(cfg HackerNewsConfig) *HackerNews {
	h := &HackerNews{
		httpClient: newHTTPClient(cfg.HTTPClient),
		baseURL:    cfg.BaseURL,
		maxStories: cfg.MaxStories,
		minScore:   cfg.MinScore,
	}
	if h.baseURL == "" {
		h.baseURL = hnBaseURL
	}
	if h.maxStories <= 0 {
		h.maxStories = hnDefaultMax
	}
	if h.minScore <= 0 {
		h.minScore = hnDefaultMin
	}
	return h
}

// Name returns the source identifier.
func (h *HackerNews) Name() string {
	return "hackernews"
}

type hnStory struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Score int    `json:"score"`
	Time  int64  `json:"time"`
	Type  string `json:"type"`
}

// Fetch retrieves the top stories that link out and score above the
// threshold.
func (h *HackerNews) Fetch(ctx context.Context) ([]Article, error) {
	var ids []int
	if err := h.getJSON(ctx, h.baseURL+hnTopStories, &ids); err != nil {
		return nil, fmt.Errorf("fetch top stories: %w", err)
	}

	if len(ids) > h.maxStories {
		ids = ids[:h.maxStories]
	}

	// Fetch story details concurrently
	stories := make([]*hnStory, len(ids))
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for i, id := range ids {
		wg.Add(1)
		go func(idx, storyID int) {
			defer wg.Done()

			var story hnStory
			if err := h.getJSON(ctx, fmt.Sprintf(h.baseURL+hnItem, storyID), &story); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}

			mu.Lock()
			stories[idx] = &story
			mu.Unlock()
		}(i, id)
	}

	wg.Wait()

	if failed > 0 {
		slog.Warn("some HN stories failed to fetch", "errors", failed)
	}

	articles := make([]Article, 0, len(stories))
	for _, story := range stories {
		if story == nil || story.URL == "" || story.Score <= h.minScore {
			continue
		}
		if story.Type != "" && story.Type != "story" {
			continue
		}

		articles = append(articles, Article{
			Title:       story.Title,
			Description: fmt.Sprintf("🔥 Trending: %d points", story.Score),
			Category:    "Trending",
			Published:   time.Unix(story.Time, 0).UTC().Format(publishedLayout),
			URL:         story.URL,
			Source:      "Hacker News",
			Score:       story.Score,
		})
	}

	slog.Debug("fetched HN stories", "count", len(articles))
	return articles, nil
}

func (h *HackerNews) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HN API returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

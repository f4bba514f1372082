package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const devtoBaseURL = "https://dev.to"

// DevTo reads top articles from the dev.to API.
type DevTo struct {
	httpClient *http.Client
	baseURL    string
	limit      int
}

// DevToConfig holds configuration for the dev.to source.
type DevToConfig struct {
	BaseURL    string
	Limit      int
	HTTPClient *http.Client
}

// NewDevTo creates a dev.to source.
func NewDevTo(cfg DevToConfig) *DevTo {
	d := &DevTo{
		httpClient: newHTTPClient(cfg.HTTPClient),
		baseURL:    cfg.BaseURL,
		limit:      cfg.Limit,
	}
	if d.baseURL == "" {
		d.baseURL = devtoBaseURL
	}
	if d.limit <= 0 {
		d.limit = 3
	}
	return d
}

// Name returns the source identifier.
func (d *DevTo) Name() string {
	return "devto"
}

type devtoArticle struct {
	Title       string `json:"title"`
	Path        string `json:"path"`
	Description string `json:"description"`
	PublishedAt string `json:"published_at"`
	Reactions   int    `json:"public_reactions_count"`
}

// Fetch retrieves the day's top articles.
func (d *DevTo) Fetch(ctx context.Context) ([]Article, error) {
	url := fmt.Sprintf("%s/api/articles?top=1&per_page=%d", d.baseURL, d.limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dev.to articles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dev.to API returned status %d", resp.StatusCode)
	}

	var raw []devtoArticle
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode dev.to articles: %w", err)
	}
	if len(raw) > d.limit {
		raw = raw[:d.limit]
	}

	articles := make([]Article, 0, len(raw))
	for _, a := range raw {
		articles = append(articles, Article{
			Title:       a.Title,
			Description: "🚀 Trending: " + truncate(a.Description, 120),
			Category:    "Trending Dev",
			Published:   a.PublishedAt,
			URL:         devtoBaseURL + a.Path,
			Source:      "Dev.to",
			Score:       a.Reactions,
		})
	}
	return articles, nil
}

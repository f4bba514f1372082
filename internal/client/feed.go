package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/abdulachik/threadsmith/internal/feed"
)

// FeedClient reads the trending articles feed.
type FeedClient struct {
	c *Client
}

type articlesBody struct {
	Articles []feed.Article `json:"articles"`
	Source   string         `json:"source"`
	Count    int            `json:"count"`
	Error    string         `json:"error"`
}

// Articles returns the current articles of source. An empty source uses
// the backend default.
func (f *FeedClient) Articles(ctx context.Context, source string) ([]feed.Article, error) {
	var query url.Values
	if source != "" {
		query = url.Values{"source": {source}}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.c.endpoint("/api/tech-articles", query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var body articlesBody
	if err := f.c.do(req, &body); err != nil {
		return nil, fmt.Errorf("fetch articles: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("fetch articles: %w", &ServiceError{StatusCode: http.StatusOK, Code: "feed_error", Message: body.Error})
	}
	return body.Articles, nil
}

type sourcesBody struct {
	Sources []string `json:"sources"`
	Default string   `json:"default"`
}

// Sources lists the article sources and the default one.
func (f *FeedClient) Sources(ctx context.Context) ([]string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.c.endpoint("/api/tech-articles/sources", nil), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	var body sourcesBody
	if err := f.c.do(req, &body); err != nil {
		return nil, "", fmt.Errorf("list sources: %w", err)
	}
	return body.Sources, body.Default, nil
}

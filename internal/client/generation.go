package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/abdulachik/threadsmith/internal/analyzer"
)

// Generation is the backend's answer to a generation request.
type Generation struct {
	ID       int64              `json:"id"`
	Text     string             `json:"text"`
	Segments []string           `json:"segments"`
	IsThread bool               `json:"is_thread"`
	Analysis *analyzer.Analysis `json:"analysis"`
}

// GenerationClient requests generated posts.
type GenerationClient struct {
	c *Client
}

// Generate asks the backend to analyze pageURL and write a post about it.
// instructions are optional.
func (g *GenerationClient) Generate(ctx context.Context, pageURL, instructions string) (*Generation, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return nil, ErrMissingURL
	}

	query := url.Values{"url": {pageURL}}
	if strings.TrimSpace(instructions) != "" {
		query.Set("additional_text", instructions)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.c.endpoint("/api/url-analysis", query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var gen Generation
	if err := g.c.do(req, &gen); err != nil {
		return nil, fmt.Errorf("generate post: %w", err)
	}
	return &gen, nil
}

// Package feed fetches short lists of trending tech articles from a fixed
// set of sources.
package feed

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrUnknownSource is returned for source identifiers outside the known set.
var ErrUnknownSource = errors.New("unknown article source")

// Article summarizes one article from a feed.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Published   string `json:"published"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Score       int    `json:"score,omitempty"`
}

// Source is one article feed.
type Source interface {
	// Name returns the identifier used to request this source.
	Name() string

	// Fetch retrieves the current articles.
	Fetch(ctx context.Context) ([]Article, error)
}

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "threadsmith/1.0 (+https://github.com/abdulachik/threadsmith)"
	publishedLayout  = "2006-01-02 15:04"
)

func newHTTPClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: defaultTimeout}
}

// cleanHTML strips markup and collapses whitespace.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// truncate shortens s to max characters, adding an ellipsis if truncated.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

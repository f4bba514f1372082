package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mmcdole/gofeed"
)

// RSSSource reads articles from an RSS or Atom feed.
type RSSSource struct {
	name     string
	label    string
	url      string
	category string
	limit    int
	describe func(summary string) string
	parser   *gofeed.Parser
}

// RSSConfig configures an RSSSource.
type RSSConfig struct {
	Name     string
	Label    string
	URL      string
	Category string
	Limit    int
	// Describe turns the cleaned summary into the article description.
	// Defaults to truncating at 150 characters.
	Describe   func(summary string) string
	HTTPClient *http.Client
}

// NewRSSSource creates an RSS source.
func NewRSSSource(cfg RSSConfig) *RSSSource {
	if cfg.Limit <= 0 {
		cfg.Limit = 3
	}
	if cfg.Describe == nil {
		cfg.Describe = func(s string) string { return truncate(s, 150) }
	}

	parser := gofeed.NewParser()
	parser.Client = newHTTPClient(cfg.HTTPClient)
	parser.UserAgent = defaultUserAgent

	return &RSSSource{
		name:     cfg.Name,
		label:    cfg.Label,
		url:      cfg.URL,
		category: cfg.Category,
		limit:    cfg.Limit,
		describe: cfg.Describe,
		parser:   parser,
	}
}

// Name returns the source identifier.
func (s *RSSSource) Name() string {
	return s.name
}

// Fetch returns the latest entries of the feed.
func (s *RSSSource) Fetch(ctx context.Context) ([]Article, error) {
	f, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse %s feed: %w", s.name, err)
	}

	items := f.Items
	if len(items) > s.limit {
		items = items[:s.limit]
	}

	articles := make([]Article, 0, len(items))
	for _, item := range items {
		summary := item.Description
		if summary == "" {
			summary = item.Content
		}
		articles = append(articles, Article{
			Title:       cleanHTML(item.Title),
			Description: s.describe(cleanHTML(summary)),
			Category:    s.category,
			Published:   item.Published,
			URL:         item.Link,
			Source:      s.label,
		})
	}

	slog.Debug("fetched feed", "source", s.name, "count", len(articles))
	return articles, nil
}

// TechCrunch returns the TechCrunch source.
func TechCrunch(client *http.Client) *RSSSource {
	return NewRSSSource(RSSConfig{
		Name:       "techcrunch",
		Label:      "TechCrunch",
		URL:        "https://feeds.feedburner.com/TechCrunch",
		Category:   "Trending Tech",
		HTTPClient: client,
	})
}

// TheVerge returns The Verge tech source.
func TheVerge(client *http.Client) *RSSSource {
	return NewRSSSource(RSSConfig{
		Name:       "theverge",
		Label:      "The Verge",
		URL:        "https://www.theverge.com/rss/tech/index.xml",
		Category:   "Trending Reviews",
		HTTPClient: client,
	})
}

// Wired returns the Wired source.
func Wired(client *http.Client) *RSSSource {
	return NewRSSSource(RSSConfig{
		Name:       "wired",
		Label:      "Wired",
		URL:        "https://www.wired.com/feed/rss",
		Category:   "Trending Science",
		HTTPClient: client,
	})
}

// Medium returns the Medium technology tag source.
func Medium(client *http.Client) *RSSSource {
	return NewRSSSource(RSSConfig{
		Name:       "medium",
		Label:      "Medium",
		URL:        "https://medium.com/feed/tag/technology",
		Category:   "Trending Blog",
		Describe:   mediumDescription,
		HTTPClient: client,
	})
}

func mediumDescription(summary string) string {
	return "📈 Trending: " + truncate(summary, 120)
}

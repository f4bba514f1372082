package feed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/abdulachik/threadsmith/internal/db"
	gocache "github.com/patrickmn/go-cache"
)

// Recorder stores fetched articles.
type Recorder interface {
	UpsertArticle(ctx context.Context, arg db.UpsertArticleParams) error
}

// Registry serves articles by source identifier, caching each source's
// last result.
type Registry struct {
	sources  map[string]Source
	names    []string
	filter   *Filter
	cache    *gocache.Cache
	recorder Recorder
}

// RegistryConfig holds registry configuration. A zero CacheTTL disables
// caching and a nil Recorder disables persistence.
type RegistryConfig struct {
	Sources  []Source
	Filter   *Filter
	CacheTTL time.Duration
	Recorder Recorder
}

// NewRegistry creates a registry over the given sources.
func NewRegistry(cfg RegistryConfig) *Registry {
	filter := cfg.Filter
	if filter == nil {
		filter = NewFilter(FilterConfig{})
	}

	r := &Registry{
		sources:  make(map[string]Source, len(cfg.Sources)),
		filter:   filter,
		recorder: cfg.Recorder,
	}
	for _, s := range cfg.Sources {
		if _, dup := r.sources[s.Name()]; !dup {
			r.names = append(r.names, s.Name())
		}
		r.sources[s.Name()] = s
	}
	if cfg.CacheTTL > 0 {
		r.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return r
}

// SourcesConfig selects the built-in sources. Reddit is included only when
// credentials are set.
type SourcesConfig struct {
	HTTPClient         *http.Client
	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string
}

// DefaultSources returns the built-in sources in display order.
func DefaultSources(cfg SourcesConfig) []Source {
	sources := []Source{
		TechCrunch(cfg.HTTPClient),
		TheVerge(cfg.HTTPClient),
		Wired(cfg.HTTPClient),
		NewHackerNews(HackerNewsConfig{HTTPClient: cfg.HTTPClient}),
		NewDevTo(DevToConfig{HTTPClient: cfg.HTTPClient}),
		Medium(cfg.HTTPClient),
	}
	if cfg.RedditClientID != "" && cfg.RedditClientSecret != "" {
		sources = append(sources, NewReddit(RedditConfig{
			ClientID:     cfg.RedditClientID,
			ClientSecret: cfg.RedditClientSecret,
			UserAgent:    cfg.RedditUserAgent,
			HTTPClient:   cfg.HTTPClient,
		}))
	}
	return sources
}

// Names returns the registered source identifiers.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Fetch returns the filtered articles of the named source.
func (r *Registry) Fetch(ctx context.Context, name string) ([]Article, error) {
	source, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}

	if r.cache != nil {
		if cached, found := r.cache.Get(name); found {
			slog.Debug("feed cache hit", "source", name)
			return cached.([]Article), nil
		}
	}

	articles, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}

	filtered := r.filter.Apply(articles)
	slog.Debug("filtered articles",
		"source", name,
		"before", len(articles),
		"after", len(filtered),
	)

	if r.cache != nil {
		r.cache.SetDefault(name, filtered)
	}
	r.record(ctx, name, filtered)

	return filtered, nil
}

func (r *Registry) record(ctx context.Context, name string, articles []Article) {
	if r.recorder == nil {
		return
	}
	for _, a := range articles {
		err := r.recorder.UpsertArticle(ctx, db.UpsertArticleParams{
			Source:      name,
			Url:         a.URL,
			Title:       a.Title,
			Description: sql.NullString{String: a.Description, Valid: a.Description != ""},
			Category:    sql.NullString{String: a.Category, Valid: a.Category != ""},
			Published:   sql.NullString{String: a.Published, Valid: a.Published != ""},
		})
		if err != nil {
			slog.Error("failed to store article",
				"source", name,
				"url", a.URL,
				"error", err,
			)
		}
	}
}

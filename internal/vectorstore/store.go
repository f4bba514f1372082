// Package vectorstore keeps a VecLite index of published posts so a new
// thread can be checked against what was already published.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdul-hamid-achik/veclite"

	"github.com/abdulachik/threadsmith/internal/embedder"
)

const (
	postsCollection = "posts"
)

// EmbedFunc turns text into a vector.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Config holds configuration for the History.
type Config struct {
	// Path to the VecLite database file (e.g., "data/posts.veclite").
	Path string

	// ConfigPath is the path to veclite.yaml config file (optional).
	// If empty, searches ./veclite.yaml, ~/.veclite/config.yaml.
	ConfigPath string

	// Embedder, when set, is used instead of the veclite.yaml embedder.
	Embedder embedder.Embedder
}

// History wraps VecLite for post storage and similarity search.
type History struct {
	vecdb *veclite.DB
	coll  *veclite.Collection
	embed EmbedFunc
}

// Record is a published thread.
type Record struct {
	Platform string
	RootID   string
	URL      string
	Text     string
	PostedAt time.Time
}

// Match is a previously published post similar to a query.
type Match struct {
	ID         uint64
	Platform   string
	RootID     string
	URL        string
	Text       string
	PostedAt   string
	Similarity float32
}

// Open creates a History using cfg.Embedder, or the embedder from
// veclite.yaml when none is given.
func Open(ctx context.Context, cfg Config) (*History, error) {
	slog.Debug("opening post history", "path", cfg.Path, "config_path", cfg.ConfigPath)

	if cfg.Embedder != nil {
		dimension, err := embedder.Dimension(ctx, cfg.Embedder)
		if err != nil {
			return nil, err
		}
		slog.Info("using configured embedder", "dimension", dimension)
		return OpenWithEmbedder(cfg.Path, dimension, cfg.Embedder.Embed)
	}

	vecliteCfg, err := veclite.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load veclite config: %w", err)
	}

	vecEmbedder, err := veclite.NewEmbedderFromConfig(vecliteCfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	slog.Info("loaded veclite config",
		"provider", vecliteCfg.Embedder.Provider,
		"dimension", vecEmbedder.Dimension(),
	)

	embed := func(_ context.Context, text string) ([]float32, error) {
		return vecEmbedder.Embed(text)
	}
	return OpenWithEmbedder(cfg.Path, vecEmbedder.Dimension(), embed)
}

// OpenWithEmbedder creates a History that embeds text with embed.
func OpenWithEmbedder(path string, dimension int, embed EmbedFunc) (*History, error) {
	vecdb, err := veclite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open veclite db: %w", err)
	}

	coll, err := vecdb.CreateCollection(postsCollection,
		veclite.WithDimension(dimension),
		veclite.WithDistanceType(veclite.DistanceCosine),
	)
	if err != nil {
		// Collection might already exist, try to get it
		coll, err = vecdb.GetCollection(postsCollection)
		if err != nil {
			vecdb.Close()
			return nil, fmt.Errorf("get collection: %w", err)
		}
	}

	return &History{
		vecdb: vecdb,
		coll:  coll,
		embed: embed,
	}, nil
}

// Close closes the VecLite database.
func (h *History) Close() error {
	if h.vecdb != nil {
		return h.vecdb.Close()
	}
	return nil
}

// Add indexes a published thread and persists it.
func (h *History) Add(ctx context.Context, r Record) (uint64, error) {
	vec, err := h.embed(ctx, r.Text)
	if err != nil {
		return 0, fmt.Errorf("embed post: %w", err)
	}

	if r.PostedAt.IsZero() {
		r.PostedAt = time.Now()
	}
	payload := map[string]any{
		"platform":  r.Platform,
		"root_id":   r.RootID,
		"url":       r.URL,
		"text":      r.Text,
		"posted_at": r.PostedAt.UTC().Format(time.RFC3339),
	}

	id, err := h.coll.InsertDocument(vec, r.Text, payload)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	if err := h.vecdb.Sync(); err != nil {
		return id, fmt.Errorf("sync history: %w", err)
	}
	return id, nil
}

// Similar returns published posts at or above threshold similarity to text,
// most similar first.
func (h *History) Similar(ctx context.Context, text string, threshold float32, maxResults int) ([]Match, error) {
	if h.coll.Count() == 0 {
		return nil, nil
	}

	vec, err := h.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := h.coll.Search(vec,
		veclite.TopK(maxResults),
		veclite.Threshold(threshold),
	)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}

	return convertResults(results), nil
}

// Count returns the number of posts in the history.
func (h *History) Count() int {
	return h.coll.Count()
}

func convertResults(results []veclite.Result) []Match {
	out := make([]Match, 0, len(results))
	for _, r := range results {
		m := Match{
			ID:         r.Record.ID,
			Similarity: r.Score,
		}

		if r.Record.Payload != nil {
			m.Platform, _ = r.Record.Payload["platform"].(string)
			m.RootID, _ = r.Record.Payload["root_id"].(string)
			m.URL, _ = r.Record.Payload["url"].(string)
			m.Text, _ = r.Record.Payload["text"].(string)
			m.PostedAt, _ = r.Record.Payload["posted_at"].(string)
		}

		// Fall back to Content field for text
		if m.Text == "" && r.Record.Content != "" {
			m.Text = r.Record.Content
		}

		out = append(out, m)
	}
	return out
}

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdulachik/threadsmith/internal/feed"
)

// Store is the part of the database the scheduler maintains.
type Store interface {
	PingContext(ctx context.Context) error
	Prune(ctx context.Context, now time.Time) error
}

// Feeds is the article registry the scheduler keeps warm.
type Feeds interface {
	Names() []string
	Fetch(ctx context.Context, name string) ([]feed.Article, error)
}

// Config holds scheduler configuration.
type Config struct {
	Store  Store
	Feeds  Feeds
	Health *Health

	FeedInterval  time.Duration // 0 disables feed refreshes
	PruneInterval time.Duration // 0 disables pruning
}

// Scheduler runs the backend's periodic maintenance: refreshing the
// article feed cache and pruning stale sessions and articles.
type Scheduler struct {
	store  Store
	feeds  Feeds
	health *Health

	feedInterval  time.Duration
	pruneInterval time.Duration
	now           func() time.Time
}

// New creates a new scheduler.
func New(cfg Config) *Scheduler {
	health := cfg.Health
	if health == nil {
		health = NewHealth()
	}
	return &Scheduler{
		store:         cfg.Store,
		feeds:         cfg.Feeds,
		health:        health,
		feedInterval:  cfg.FeedInterval,
		pruneInterval: cfg.PruneInterval,
		now:           time.Now,
	}
}

// Run starts the maintenance loop and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("starting scheduler",
		"feed_interval", s.feedInterval,
		"prune_interval", s.pruneInterval,
	)

	feedC, stopFeed := ticker(s.feedInterval)
	defer stopFeed()
	pruneC, stopPrune := ticker(s.pruneInterval)
	defer stopPrune()

	s.RunPruneCycle(ctx)
	if s.feedInterval > 0 {
		s.RunFeedCycle(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler shutting down")
			return ctx.Err()

		case <-feedC:
			s.RunFeedCycle(ctx)

		case <-pruneC:
			s.RunPruneCycle(ctx)
		}
	}
}

// RunFeedCycle fetches every source once so the registry cache is warm.
// The feeds component is unhealthy only when every source fails.
func (s *Scheduler) RunFeedCycle(ctx context.Context) {
	if s.feeds == nil {
		return
	}
	slog.Debug("running feed cycle")

	names := s.feeds.Names()
	var ok, articles int
	var lastErr error
	for _, name := range names {
		items, err := s.feeds.Fetch(ctx, name)
		if err != nil {
			lastErr = err
			slog.Warn("feed refresh failed", "source", name, "error", err)
			continue
		}
		ok++
		articles += len(items)
	}

	if ok == 0 && lastErr != nil {
		s.health.SetUnhealthy("feeds", fmt.Errorf("all %d sources failed: %w", len(names), lastErr))
		return
	}
	s.health.SetHealthy("feeds", fmt.Sprintf("%d/%d sources refreshed", ok, len(names)))
	slog.Info("feed cycle complete", "sources", ok, "articles", articles)
}

// RunPruneCycle checks the database and removes expired rows.
func (s *Scheduler) RunPruneCycle(ctx context.Context) {
	if s.store == nil {
		return
	}
	slog.Debug("running prune cycle")

	err := s.health.Probe(ctx, "database", "reachable", s.store.PingContext)
	if err != nil {
		slog.Error("database ping failed", "error", err)
		return
	}
	if s.pruneInterval <= 0 {
		return
	}
	if err := s.store.Prune(ctx, s.now()); err != nil {
		s.health.SetUnhealthy("database", err)
		slog.Error("prune cycle failed", "error", err)
	}
}

// Health returns the health tracker.
func (s *Scheduler) Health() *Health {
	return s.health
}

func ticker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/abdulachik/threadsmith/internal/analyzer"
	"github.com/abdulachik/threadsmith/internal/attach"
	"github.com/abdulachik/threadsmith/internal/client"
	"github.com/abdulachik/threadsmith/internal/composer"
	"github.com/abdulachik/threadsmith/internal/config"
	"github.com/abdulachik/threadsmith/internal/db"
	"github.com/abdulachik/threadsmith/internal/embedder"
	"github.com/abdulachik/threadsmith/internal/feed"
	"github.com/abdulachik/threadsmith/internal/generator"
	"github.com/abdulachik/threadsmith/internal/notify"
	"github.com/abdulachik/threadsmith/internal/poster"
	"github.com/abdulachik/threadsmith/internal/scheduler"
	"github.com/abdulachik/threadsmith/internal/server"
	"github.com/abdulachik/threadsmith/internal/thread"
	"github.com/abdulachik/threadsmith/internal/vectorstore"
)

// App is the backend container holding all dependencies.
type App struct {
	Config    *config.Config
	Store     *db.Store
	Generator *generator.Service
	Feeds     *feed.Registry
	Auth      *poster.TwitterAuth
	Poster    poster.Poster
	Health    *scheduler.Health
	Scheduler *scheduler.Scheduler
	Server    *server.Server
}

// New creates the backend with all dependencies wired up.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := db.NewStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	completer, err := NewCompleter(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	gen := generator.NewService(generator.ServiceConfig{
		Pages:     NewAnalyzer(cfg),
		Completer: completer,
		Policy:    Policy(cfg),
		Recorder:  store,
	})

	feeds := NewFeeds(cfg, store)
	health := scheduler.NewHealth()

	a := &App{
		Config:    cfg,
		Store:     store,
		Generator: gen,
		Feeds:     feeds,
		Health:    health,
		Scheduler: scheduler.New(scheduler.Config{
			Store:         store,
			Feeds:         feeds,
			Health:        health,
			FeedInterval:  cfg.FeedRefreshInterval,
			PruneInterval: cfg.PruneInterval,
		}),
	}

	serverCfg := server.Config{
		Addr:           cfg.ServerAddr,
		PublicURL:      cfg.PublicURL,
		FrontendURL:    cfg.FrontendURL,
		AllowedOrigins: cfg.AllowedOrigins,
		Store:          store,
		Generator:      gen,
		Articles:       feeds,
		Health:         health,
	}

	if cfg.TwitterClientID != "" {
		a.Auth = poster.NewTwitterAuth(poster.TwitterAuthConfig{
			ClientID:     cfg.TwitterClientID,
			ClientSecret: cfg.TwitterClientSecret,
			RedirectURL:  cfg.PublicURL + "/api/twitter/callback",
		})
		a.Poster = poster.NewTwitterPoster(poster.TwitterConfig{})
		serverCfg.Auth = a.Auth
		serverCfg.Poster = a.Poster
	} else {
		slog.Warn("TWITTER_CLIENT_ID not set, posting endpoints are disabled")
	}

	a.Server = server.New(serverCfg)
	return a, nil
}

// Close closes all resources.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// NewCompleter creates the configured LLM completer.
func NewCompleter(cfg *config.Config) (generator.Completer, error) {
	apiKey := cfg.OpenAIAPIKey
	baseURL := cfg.OpenAIBaseURL
	if cfg.LLMProvider == "anthropic" {
		apiKey = cfg.AnthropicAPIKey
		baseURL = ""
	}

	completer, err := generator.NewCompleter(generator.Config{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   apiKey,
		BaseURL:  baseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create completer: %w", err)
	}
	return completer, nil
}

// NewAnalyzer creates the page analyzer.
func NewAnalyzer(cfg *config.Config) *analyzer.Analyzer {
	fetcher := analyzer.NewFetcher(analyzer.FetcherConfig{
		RespectRobots:     cfg.RespectRobots,
		RequestsPerSecond: cfg.FetchRate,
	})
	return analyzer.New(fetcher, cfg.FeedCacheTTL)
}

// NewFeeds creates the article registry. recorder may be nil.
func NewFeeds(cfg *config.Config, recorder feed.Recorder) *feed.Registry {
	sources := feed.DefaultSources(feed.SourcesConfig{
		RedditClientID:     cfg.RedditClientID,
		RedditClientSecret: cfg.RedditClientSecret,
		RedditUserAgent:    cfg.RedditUserAgent,
	})
	return feed.NewRegistry(feed.RegistryConfig{
		Sources:  sources,
		CacheTTL: cfg.FeedCacheTTL,
		Recorder: recorder,
	})
}

// Policy returns the configured splitting policy.
func Policy(cfg *config.Config) thread.Policy {
	return thread.Policy{HardLimit: cfg.ThreadHardLimit, SoftLimit: cfg.ThreadSoftLimit}.Normalize()
}

// NewClient creates a client for the configured backend.
func NewClient(cfg *config.Config) (*client.Client, error) {
	return client.New(client.Config{
		BaseURL:     cfg.BackendURL,
		SessionFile: cfg.SessionFile,
	})
}

// Workspace is the client side of the workflow: a composer talking to the
// backend, plus the resources it holds.
type Workspace struct {
	Client    *client.Client
	Composer  *composer.Composer
	History   *vectorstore.History
	previewer *attach.TempPreviewer
	ownsDir   bool
}

// WorkspaceConfig selects how the workspace publishes.
type WorkspaceConfig struct {
	Notifier notify.Notifier
	// Platform is "twitter" to publish through the backend or "bluesky" to
	// publish directly.
	Platform string
	// PreviewDir holds image previews. Empty uses the system temp dir.
	PreviewDir string
}

// NewWorkspace creates a composer wired to the backend client. Post history
// is enabled when VECLITE_PATH is set; failing to open it only disables the
// similarity check.
func NewWorkspace(ctx context.Context, cfg *config.Config, wc WorkspaceConfig) (*Workspace, error) {
	c, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	var publisher composer.Publisher = c.Publisher()
	switch wc.Platform {
	case "", "twitter":
		wc.Platform = "twitter"
	case "bluesky":
		if err := cfg.ValidateForBluesky(); err != nil {
			return nil, err
		}
		publisher = composer.DirectPublisher{Poster: poster.NewBlueskyPoster(poster.BlueskyConfig{
			Handle:      cfg.BlueskyHandle,
			AppPassword: cfg.BlueskyAppPassword,
		})}
	default:
		return nil, fmt.Errorf("unsupported platform: %s", wc.Platform)
	}

	previewer, err := attach.NewTempPreviewer(wc.PreviewDir)
	if err != nil {
		return nil, fmt.Errorf("create previewer: %w", err)
	}

	ws := &Workspace{Client: c, previewer: previewer, ownsDir: wc.PreviewDir == ""}

	composerCfg := composer.Config{
		Generator:           c.Generation(),
		Publisher:           publisher,
		Notifier:            wc.Notifier,
		Previewer:           previewer,
		Policy:              Policy(cfg),
		SimilarityThreshold: float32(cfg.SimilarityThreshold),
		Platform:            wc.Platform,
	}

	if cfg.VecLitePath != "" {
		history, err := OpenHistory(ctx, cfg)
		if err != nil {
			slog.Warn("post history unavailable", "path", cfg.VecLitePath, "error", err)
		} else {
			ws.History = history
			composerCfg.History = history
		}
	}

	ws.Composer = composer.New(composerCfg)
	return ws, nil
}

// OpenHistory opens the post history at VECLITE_PATH. EMBEDDING_PROVIDER
// selects the embedder; empty uses veclite.yaml.
func OpenHistory(ctx context.Context, cfg *config.Config) (*vectorstore.History, error) {
	vsCfg := vectorstore.Config{Path: cfg.VecLitePath}
	if cfg.EmbeddingProvider != "" {
		e, err := embedder.New(embedder.Config{
			Provider: cfg.EmbeddingProvider,
			Model:    cfg.EmbeddingModel,
			Host:     cfg.OllamaHost,
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		vsCfg.Embedder = e
	}
	return vectorstore.Open(ctx, vsCfg)
}

// Close releases previews and closes the post history.
func (w *Workspace) Close() error {
	if err := w.Composer.Reset(); err != nil {
		slog.Warn("failed to release previews", "error", err)
	}
	if w.ownsDir {
		os.RemoveAll(w.previewer.Dir())
	}
	if w.History != nil {
		return w.History.Close()
	}
	return nil
}

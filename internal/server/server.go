// Package server implements the threadsmith backend HTTP API: page
// analysis and post generation, the X OAuth session, thread publishing and
// the trending articles feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/abdulachik/threadsmith/internal/db"
	"github.com/abdulachik/threadsmith/internal/feed"
	"github.com/abdulachik/threadsmith/internal/generator"
	"github.com/abdulachik/threadsmith/internal/poster"
	"github.com/abdulachik/threadsmith/internal/scheduler"
)

// Generator writes a post for a page.
type Generator interface {
	Analyze(ctx context.Context, url, instructions string) (*generator.Result, error)
}

// Articles serves the trending articles feed.
type Articles interface {
	Names() []string
	Fetch(ctx context.Context, name string) ([]feed.Article, error)
}

// Authenticator runs the X OAuth 2.0 login.
type Authenticator interface {
	Begin() poster.LoginRequest
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
	Me(ctx context.Context, token string) (*poster.User, error)
}

// Store is the persistence the handlers need. *db.Store satisfies it.
type Store interface {
	PingContext(ctx context.Context) error
	CreateSession(ctx context.Context, id string) (db.Session, error)
	GetSession(ctx context.Context, id string) (db.Session, error)
	GetSessionByOAuthState(ctx context.Context, oauthState string) (db.Session, error)
	UpdateSessionAuthState(ctx context.Context, arg db.UpdateSessionAuthStateParams) error
	UpdateSessionToken(ctx context.Context, arg db.UpdateSessionTokenParams) error
	ClearSessionToken(ctx context.Context, id string) error
	CreatePost(ctx context.Context, arg db.CreatePostParams) (db.Post, error)
}

// Config holds server configuration. Auth and Poster may be nil when X is
// not configured; the posting endpoints then answer 503.
type Config struct {
	Addr           string
	PublicURL      string
	FrontendURL    string
	AllowedOrigins []string

	Store     Store
	Generator Generator
	Articles  Articles
	Auth      Authenticator
	Poster    poster.Poster
	Health    *scheduler.Health

	// MaxPostLength rejects longer posts before calling X. 0 lets X decide.
	MaxPostLength int
	// DefaultSource is used by /api/tech-articles when no source is given.
	DefaultSource string
	// RequestTimeout bounds generation and publishing requests.
	RequestTimeout time.Duration
}

// Server is the backend HTTP API.
type Server struct {
	cfg    Config
	store  Store
	health *scheduler.Health
	secure bool
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = "techcrunch"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 3 * time.Minute
	}
	cfg.PublicURL = strings.TrimSuffix(cfg.PublicURL, "/")
	cfg.FrontendURL = strings.TrimSuffix(cfg.FrontendURL, "/")

	health := cfg.Health
	if health == nil {
		health = scheduler.NewHealth()
	}

	return &Server{
		cfg:    cfg,
		store:  cfg.Store,
		health: health,
		secure: strings.HasPrefix(cfg.PublicURL, "https://"),
	}
}

// Handler returns the routed API with logging, recovery and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/url-analysis", s.handleURLAnalysis)

	mux.HandleFunc("GET /api/twitter/login", s.handleLogin)
	mux.HandleFunc("GET /api/twitter/callback", s.handleCallback)
	mux.HandleFunc("GET /api/twitter/user", s.handleUser)
	mux.HandleFunc("GET /api/twitter/test", s.handleTest)
	mux.HandleFunc("POST /api/twitter/post", s.handlePost)
	mux.HandleFunc("GET /api/twitter/logout", s.handleLogout)

	mux.HandleFunc("GET /api/tech-articles", s.handleArticles)
	mux.HandleFunc("GET /api/tech-articles/sources", s.handleSources)

	return logRequests(recoverPanics(cors(s.cfg.AllowedOrigins, mux)))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.cfg.Addr, "public_url", s.cfg.PublicURL)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	slog.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) loginURL() string {
	return s.cfg.PublicURL + "/api/twitter/login"
}

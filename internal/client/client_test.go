package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/threadsmith/internal/feed"
	"github.com/abdulachik/threadsmith/internal/poster"
)

const testSession = "0b5e9d4e-4c4d-4a8e-9a57-2f8d2b9f1a11"

type fakeBackend struct {
	requests atomic.Int32
	loggedIn atomic.Bool
}

func (b *fakeBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/url-analysis", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "https://fail.example" {
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]string{"error": "generation_failed", "message": "summarize stage: rate limited"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":        9,
			"text":      "Post about " + r.URL.Query().Get("url") + " " + r.URL.Query().Get("additional_text"),
			"segments":  []string{"1/2 a", "2/2 b"},
			"is_thread": true,
			"analysis":  map[string]any{"title": "A blog"},
		})
	})

	mux.HandleFunc("POST /api/twitter/post", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"error":    "not_authenticated",
				"message":  "Please authenticate with Twitter first",
				"auth_url": "http://backend.example/api/twitter/login",
			})
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, []string{"first", "second"}, r.MultipartForm.Value["tweets"])
		assert.Equal(t, "9", r.FormValue("generation_id"))

		file, header, err := r.FormFile("image_1")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "img.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, []byte("png"), data)
		_, _, err = r.FormFile("image_0")
		assert.ErrorIs(t, err, http.ErrMissingFile)

		json.NewEncoder(w).Encode(map[string]any{
			"success": true, "message": "Successfully posted thread to Twitter",
			"tweet_count": 2, "image_count": 1, "first_tweet_id": "100",
		})
	})

	mux.HandleFunc("GET /api/tech-articles", func(w http.ResponseWriter, r *http.Request) {
		source := r.URL.Query().Get("source")
		if source == "broken" {
			json.NewEncoder(w).Encode(map[string]any{"articles": []any{}, "source": source, "error": "feed down"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"articles": []feed.Article{{Title: "Go 2", URL: "https://go.dev", Source: "Hacker News"}},
			"source":   source,
			"count":    1,
		})
	})

	mux.HandleFunc("GET /api/tech-articles/sources", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"sources": []string{"hackernews", "techcrunch"}, "default": "techcrunch"})
	})

	mux.HandleFunc("GET /api/twitter/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "threadsmith_session", Value: testSession, Path: "/", MaxAge: 3600, HttpOnly: true})
		http.Redirect(w, r, "https://x.example/authorize?state=s", http.StatusTemporaryRedirect)
	})

	mux.HandleFunc("GET /api/twitter/user", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "not_authenticated", "message": "Not authenticated"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": "42", "username": "alice"}})
	})

	mux.HandleFunc("GET /api/twitter/logout", func(w http.ResponseWriter, r *http.Request) {
		b.loggedIn.Store(false)
		json.NewEncoder(w).Encode(map[string]string{"message": "Logged out successfully"})
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (b *fakeBackend) authorized(r *http.Request) bool {
	c, err := r.Cookie("threadsmith_session")
	return err == nil && c.Value == testSession && b.loggedIn.Load()
}

func newClient(t *testing.T, baseURL, sessionFile string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, Timeout: 5 * time.Second, SessionFile: sessionFile})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "not a url"})
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "http://localhost:8000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/health", c.endpoint("/api/health", nil))
}

func TestGenerationClient(t *testing.T) {
	backend := &fakeBackend{}
	srv := backend.server(t)
	gen := newClient(t, srv.URL, "").Generation()
	ctx := context.Background()

	t.Run("missing url makes no request", func(t *testing.T) {
		_, err := gen.Generate(ctx, "   ", "anything")
		assert.ErrorIs(t, err, ErrMissingURL)
		assert.Zero(t, backend.requests.Load())
	})

	t.Run("success", func(t *testing.T) {
		got, err := gen.Generate(ctx, "https://blog.example", "be brief")
		require.NoError(t, err)
		assert.Equal(t, int64(9), got.ID)
		assert.Equal(t, "Post about https://blog.example be brief", got.Text)
		assert.Equal(t, []string{"1/2 a", "2/2 b"}, got.Segments)
		assert.True(t, got.IsThread)
		require.NotNil(t, got.Analysis)
		assert.Equal(t, "A blog", got.Analysis.Title)
	})

	t.Run("backend failure", func(t *testing.T) {
		_, err := gen.Generate(ctx, "https://fail.example", "")

		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, http.StatusBadGateway, svcErr.StatusCode)
		assert.Equal(t, "generation_failed", svcErr.Code)
		assert.Contains(t, svcErr.Message, "rate limited")
	})
}

func TestPublishClient(t *testing.T) {
	ctx := context.Background()
	parts := []poster.Part{
		{Text: "first"},
		{Text: "second", Image: &poster.Media{Name: "img.png", ContentType: "image/png", Data: []byte("png")}},
	}

	t.Run("not authenticated", func(t *testing.T) {
		backend := &fakeBackend{}
		srv := backend.server(t)

		_, err := newClient(t, srv.URL, "").Publisher().Publish(ctx, parts)

		var authErr *AuthRequiredError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "http://backend.example/api/twitter/login", authErr.LoginURL)
	})

	t.Run("publishes after login", func(t *testing.T) {
		backend := &fakeBackend{}
		srv := backend.server(t)
		c := newClient(t, srv.URL, "")

		_, err := c.Session().Login(ctx)
		require.NoError(t, err)
		backend.loggedIn.Store(true)

		result, err := c.Publisher().PublishFor(ctx, 9, parts)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 2, result.TweetCount)
		assert.Equal(t, 1, result.ImageCount)
		assert.Equal(t, "100", result.FirstTweetID)
	})

	t.Run("failure part way carries published ids", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]any{
				"error":    "publish_incomplete",
				"message":  "post 2 of 2 (1 already published): twitter API error (status 429)",
				"post_ids": []string{"111"},
			})
		}))
		defer srv.Close()

		_, err := newClient(t, srv.URL, "").Publisher().Publish(ctx, parts)

		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, http.StatusBadGateway, svcErr.StatusCode)
		assert.Equal(t, "publish_incomplete", svcErr.Code)
		assert.Equal(t, []string{"111"}, svcErr.PostIDs)
	})

	t.Run("empty thread", func(t *testing.T) {
		backend := &fakeBackend{}
		srv := backend.server(t)

		_, err := newClient(t, srv.URL, "").Publisher().Publish(ctx, nil)
		assert.ErrorIs(t, err, poster.ErrEmptyThread)
		assert.Zero(t, backend.requests.Load())
	})
}

func TestFeedClient(t *testing.T) {
	backend := &fakeBackend{}
	srv := backend.server(t)
	fc := newClient(t, srv.URL, "").Feed()
	ctx := context.Background()

	t.Run("articles", func(t *testing.T) {
		articles, err := fc.Articles(ctx, "hackernews")
		require.NoError(t, err)
		require.Len(t, articles, 1)
		assert.Equal(t, "Go 2", articles[0].Title)
	})

	t.Run("error reported in body", func(t *testing.T) {
		_, err := fc.Articles(ctx, "broken")

		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "feed down", svcErr.Message)
	})

	t.Run("sources", func(t *testing.T) {
		sources, def, err := fc.Sources(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"hackernews", "techcrunch"}, sources)
		assert.Equal(t, "techcrunch", def)
	})
}

func TestSessionClient(t *testing.T) {
	ctx := context.Background()

	t.Run("session survives a restart", func(t *testing.T) {
		backend := &fakeBackend{}
		srv := backend.server(t)
		sessionFile := filepath.Join(t.TempDir(), "state", "session.json")

		first := newClient(t, srv.URL, sessionFile)
		loginURL, err := first.Session().Login(ctx)
		require.NoError(t, err)
		assert.Equal(t, "https://x.example/authorize?state=s", loginURL)

		info, err := os.Stat(sessionFile)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		backend.loggedIn.Store(true)

		second := newClient(t, srv.URL, sessionFile)
		user, err := second.Session().User(ctx)
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("user without login", func(t *testing.T) {
		backend := &fakeBackend{}
		srv := backend.server(t)

		_, err := newClient(t, srv.URL, "").Session().User(ctx)

		var authErr *AuthRequiredError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, srv.URL+"/api/twitter/login", authErr.LoginURL)
	})

	t.Run("wait for login", func(t *testing.T) {
		backend := &fakeBackend{}
		srv := backend.server(t)
		c := newClient(t, srv.URL, "")
		_, err := c.Session().Login(ctx)
		require.NoError(t, err)

		time.AfterFunc(30*time.Millisecond, func() { backend.loggedIn.Store(true) })

		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		user, err := c.Session().WaitForLogin(waitCtx, 10*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, "42", user.ID)
	})

	t.Run("wait for login times out", func(t *testing.T) {
		backend := &fakeBackend{}
		srv := backend.server(t)

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := newClient(t, srv.URL, "").Session().WaitForLogin(waitCtx, 10*time.Millisecond)
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	})

	t.Run("logout removes the session file", func(t *testing.T) {
		backend := &fakeBackend{}
		srv := backend.server(t)
		sessionFile := filepath.Join(t.TempDir(), "session.json")
		c := newClient(t, srv.URL, sessionFile)
		_, err := c.Session().Login(ctx)
		require.NoError(t, err)

		require.NoError(t, c.Session().Logout(ctx))

		_, err = os.Stat(sessionFile)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestJar_SaveFailure(t *testing.T) {
	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	path := filepath.Join(t.TempDir(), "session.json")
	base, err := url.Parse("http://backend.example")
	require.NoError(t, err)
	jar, err := NewJar(base, path)
	require.NoError(t, err)

	// A directory in place of the file makes every write fail.
	require.NoError(t, os.Mkdir(path, 0o700))

	jar.SetCookies(base, []*http.Cookie{{Name: "threadsmith_session", Value: testSession, Path: "/"}})

	cookies := jar.Cookies(base)
	require.Len(t, cookies, 1)
	assert.Equal(t, testSession, cookies[0].Value)
	assert.Contains(t, logs.String(), "failed to save session")
}

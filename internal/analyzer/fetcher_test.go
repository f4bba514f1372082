package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url   string
		valid bool
	}{
		{"https://blog.example.com/post", true},
		{"http://localhost:8080/a", true},
		{"ftp://example.com/file", false},
		{"blog.example.com/post", false},
		{"https://", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidURL)
			}
		})
	}
}

func TestFetcher_Fetch(t *testing.T) {
	var userAgent atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/post", func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		fmt.Fprint(w, "<html><body><p>hello</p></body></html>")
	})
	mux.HandleFunc("/private/post", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "secret")
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 2048))
	})
	mux.HandleFunc("/loop/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/post", http.StatusMovedPermanently)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	f := NewFetcher(FetcherConfig{Timeout: 5 * time.Second, MaxBytes: 1024, RespectRobots: true})

	t.Run("fetches html", func(t *testing.T) {
		page, err := f.Fetch(ctx, server.URL+"/post")
		require.NoError(t, err)

		assert.Contains(t, page.HTML, "<p>hello</p>")
		assert.Equal(t, server.URL+"/post", page.FinalURL)
		assert.Equal(t, DefaultUserAgent, userAgent.Load())
	})

	t.Run("follows redirects", func(t *testing.T) {
		page, err := f.Fetch(ctx, server.URL+"/moved")
		require.NoError(t, err)
		assert.Equal(t, server.URL+"/post", page.FinalURL)
	})

	t.Run("stops after three redirects", func(t *testing.T) {
		_, err := f.Fetch(ctx, server.URL+"/loop/")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redirects")
	})

	t.Run("robots disallow", func(t *testing.T) {
		_, err := f.Fetch(ctx, server.URL+"/private/post")
		assert.ErrorIs(t, err, ErrDisallowed)
	})

	t.Run("robots ignored when disabled", func(t *testing.T) {
		lax := NewFetcher(FetcherConfig{Timeout: 5 * time.Second})
		page, err := lax.Fetch(ctx, server.URL+"/private/post")
		require.NoError(t, err)
		assert.Equal(t, "secret", page.HTML)
	})

	t.Run("non-2xx status", func(t *testing.T) {
		_, err := f.Fetch(ctx, server.URL+"/missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("body is capped", func(t *testing.T) {
		page, err := f.Fetch(ctx, server.URL+"/big")
		require.NoError(t, err)
		assert.Len(t, page.HTML, 1024)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := f.Fetch(ctx, "mailto:someone@example.com")
		assert.ErrorIs(t, err, ErrInvalidURL)
	})
}

func TestLimiter(t *testing.T) {
	t.Run("disabled when rate is zero", func(t *testing.T) {
		l := NewLimiter(0, 1)
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		for range 50 {
			require.NoError(t, l.Wait(ctx, "https://example.com/a"))
		}
	})

	t.Run("limits per host", func(t *testing.T) {
		l := NewLimiter(0.001, 1)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		require.NoError(t, l.Wait(ctx, "https://a.example.com/1"))
		require.NoError(t, l.Wait(ctx, "https://b.example.com/1"), "other hosts have their own budget")
		assert.Error(t, l.Wait(ctx, "https://a.example.com/2"), "second request to the same host must wait")
	})
}

func TestAnalyzer_Cache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<html><body><article><p>This paragraph has plenty of words in it so that it qualifies as a sample paragraph for the generator prompt.</p></article></body></html>`)
	}))
	defer server.Close()

	a := New(NewFetcher(FetcherConfig{}), time.Minute)
	ctx := context.Background()

	first, err := a.Analyze(ctx, server.URL+"/post")
	require.NoError(t, err)
	second, err := a.Analyze(ctx, server.URL+"/post")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, server.URL+"/post", first.URL)

	t.Run("errors are not cached", func(t *testing.T) {
		empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html><body><p>nothing</p></body></html>`)
		}))
		defer empty.Close()

		_, err := a.Analyze(ctx, empty.URL)
		assert.ErrorIs(t, err, ErrNoContent)
	})
}

package poster

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/threadsmith/internal/thread"
)

type fakeX struct {
	mu       sync.Mutex
	tweets   []tweetRequest
	uploads  []string
	failAt   int
	failCode int
	failBody string
}

func (f *fakeX) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /2/tweets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		var req tweetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		f.mu.Lock()
		f.tweets = append(f.tweets, req)
		n := len(f.tweets)
		f.mu.Unlock()

		if f.failAt == n {
			w.WriteHeader(f.failCode)
			w.Write([]byte(f.failBody))
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": strconv.Itoa(100 + n), "text": req.Text}})
	})
	mux.HandleFunc("POST /2/media/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "tweet_image", r.FormValue("media_category"))
		file, header, err := r.FormFile("media")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("png-bytes"), data)

		f.mu.Lock()
		f.uploads = append(f.uploads, header.Filename)
		f.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": "m-1"}})
	})
	mux.HandleFunc("GET /2/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer user-token" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"title":"Unauthorized"}`))
			return
		}
		w.Write([]byte(`{"data":{"id":"42","name":"Gopher","username":"gopher"}}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestTwitter(server *httptest.Server) *TwitterPoster {
	return NewTwitterPoster(TwitterConfig{
		APIURL:    server.URL,
		UploadURL: server.URL + "/2/media/upload",
	})
}

func TestTwitterPoster_PostThread(t *testing.T) {
	ctx := context.Background()

	t.Run("single post", func(t *testing.T) {
		fx := &fakeX{}
		p := newTestTwitter(fx.server(t))

		res, err := p.PostThread(ctx, "user-token", []Part{{Text: "hello"}})
		require.NoError(t, err)
		assert.Equal(t, "101", res.RootID)
		assert.Equal(t, []string{"101"}, res.PostIDs)
		assert.False(t, res.Simulated)
		assert.Equal(t, "Successfully posted to Twitter", res.Message)
		assert.Nil(t, fx.tweets[0].Reply)
	})

	t.Run("thread replies to the previous post", func(t *testing.T) {
		fx := &fakeX{}
		p := newTestTwitter(fx.server(t))

		res, err := p.PostThread(ctx, "user-token", PartsFromTexts([]string{"one", "2/3 two", "3/3 three"}))
		require.NoError(t, err)
		assert.Equal(t, []string{"101", "102", "103"}, res.PostIDs)
		assert.Equal(t, "101", res.RootID)
		assert.Equal(t, "Successfully posted thread to Twitter", res.Message)

		require.Len(t, fx.tweets, 3)
		assert.Equal(t, "101", fx.tweets[1].Reply.InReplyToTweetID)
		assert.Equal(t, "102", fx.tweets[2].Reply.InReplyToTweetID)
	})

	t.Run("image uploaded and attached", func(t *testing.T) {
		fx := &fakeX{}
		p := newTestTwitter(fx.server(t))

		parts := []Part{
			{Text: "one"},
			{Text: "two", Image: &Media{Name: "chart.png", ContentType: "image/png", Data: []byte("png-bytes")}},
		}
		_, err := p.PostThread(ctx, "user-token", parts)
		require.NoError(t, err)

		assert.Equal(t, []string{"chart.png"}, fx.uploads)
		assert.Nil(t, fx.tweets[0].Media)
		assert.Equal(t, []string{"m-1"}, fx.tweets[1].Media.MediaIDs)
	})

	t.Run("access level error is simulated", func(t *testing.T) {
		fx := &fakeX{
			failAt:   1,
			failCode: http.StatusForbidden,
			failBody: `{"errors":[{"message":"You currently have access to a subset of X API V2 endpoints","code":453}]}`,
		}
		p := newTestTwitter(fx.server(t))

		res, err := p.PostThread(ctx, "user-token", PartsFromTexts([]string{"one", "2/2 two"}))
		require.NoError(t, err)
		assert.True(t, res.Simulated)
		assert.Equal(t, simulatedPostID, res.RootID)
		assert.Len(t, fx.tweets, 1, "no replies after a simulated root")
	})

	t.Run("other forbidden is an error", func(t *testing.T) {
		fx := &fakeX{failAt: 1, failCode: http.StatusForbidden, failBody: `{"detail":"duplicate content"}`}
		p := newTestTwitter(fx.server(t))

		_, err := p.PostThread(ctx, "user-token", PartsFromTexts([]string{"one"}))
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})

	t.Run("failure mid thread keeps posted ids", func(t *testing.T) {
		fx := &fakeX{failAt: 2, failCode: http.StatusTooManyRequests, failBody: `{"title":"Too Many Requests"}`}
		p := newTestTwitter(fx.server(t))

		res, err := p.PostThread(ctx, "user-token", PartsFromTexts([]string{"one", "2/3 two", "3/3 three"}))
		assert.Nil(t, res)
		assert.ErrorContains(t, err, "post 2 of 3")
		assert.Len(t, fx.tweets, 2)

		var partial *PartialError
		require.True(t, errors.As(err, &partial))
		assert.Equal(t, 2, partial.Failed)
		assert.Equal(t, []string{"101"}, partial.PostIDs)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	})

	t.Run("failure on first post is not partial", func(t *testing.T) {
		fx := &fakeX{failAt: 1, failCode: http.StatusTooManyRequests, failBody: `{"title":"Too Many Requests"}`}
		p := newTestTwitter(fx.server(t))

		_, err := p.PostThread(ctx, "user-token", PartsFromTexts([]string{"one", "2/2 two"}))
		var partial *PartialError
		assert.False(t, errors.As(err, &partial))
		assert.ErrorContains(t, err, "post 1 of 2")
	})

	t.Run("forbidden mentioning 453 elsewhere is an error", func(t *testing.T) {
		fx := &fakeX{
			failAt:   1,
			failCode: http.StatusForbidden,
			failBody: `{"errors":[{"message":"Tweet 4530 is a duplicate","code":187}]}`,
		}
		p := newTestTwitter(fx.server(t))

		res, err := p.PostThread(ctx, "user-token", PartsFromTexts([]string{"one"}))
		assert.Nil(t, res)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})

	t.Run("long single post is left to X", func(t *testing.T) {
		fx := &fakeX{}
		p := newTestTwitter(fx.server(t))

		text := strings.TrimSpace(strings.Repeat("Go keeps services simple. ", 17))
		th := thread.Split(text, thread.DefaultPolicy())
		require.Equal(t, 1, th.Len())
		require.Greater(t, thread.Len(text), TwitterMaxLength)

		res, err := p.PostThread(ctx, "user-token", PartsFromTexts(th.Texts()))
		require.NoError(t, err)
		assert.Equal(t, []string{"101"}, res.PostIDs)
		require.Len(t, fx.tweets, 1)
		assert.Equal(t, text, fx.tweets[0].Text)
	})

	t.Run("configured max length rejects before posting", func(t *testing.T) {
		fx := &fakeX{}
		p := NewTwitterPoster(TwitterConfig{APIURL: fx.server(t).URL, MaxLength: TwitterMaxLength})

		_, err := p.PostThread(ctx, "user-token", PartsFromTexts([]string{strings.Repeat("a", 281)}))
		assert.ErrorIs(t, err, ErrPostTooLong)
		assert.Empty(t, fx.tweets)
	})

	t.Run("validates before posting", func(t *testing.T) {
		fx := &fakeX{}
		p := newTestTwitter(fx.server(t))

		_, err := p.PostThread(ctx, "user-token", nil)
		assert.ErrorIs(t, err, ErrEmptyThread)
		assert.Empty(t, fx.tweets)
	})
}

func TestTwitterPoster_ValidateCredentials(t *testing.T) {
	fx := &fakeX{}
	p := newTestTwitter(fx.server(t))

	assert.NoError(t, p.ValidateCredentials(context.Background(), "user-token"))
	assert.Error(t, p.ValidateCredentials(context.Background(), "stale"))
	assert.Error(t, p.ValidateCredentials(context.Background(), ""))
	assert.Equal(t, "twitter", p.Platform())
}

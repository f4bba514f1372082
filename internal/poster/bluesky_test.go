package poster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePDS struct {
	mu       sync.Mutex
	sessions int
	records  []createRecordRequest
	blobs    [][]byte
}

func (f *fakePDS) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /com.atproto.server.createSession", func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "app-pass" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"AuthenticationRequired"}`))
			return
		}
		f.mu.Lock()
		f.sessions++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(createSessionResponse{
			DID:       "did:plc:test123",
			Handle:    req.Identifier,
			AccessJwt: "jwt",
		})
	})
	mux.HandleFunc("POST /com.atproto.repo.uploadBlob", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.blobs = append(f.blobs, data)
		f.mu.Unlock()
		w.Write([]byte(`{"blob":{"$type":"blob","ref":{"$link":"bafy"},"mimeType":"image/png","size":9}}`))
	})
	mux.HandleFunc("POST /com.atproto.repo.createRecord", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
		var req createRecordRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		f.mu.Lock()
		f.records = append(f.records, req)
		n := len(f.records)
		f.mu.Unlock()

		json.NewEncoder(w).Encode(strongRef{
			URI: fmt.Sprintf("at://did:plc:test123/app.bsky.feed.post/rkey%d", n),
			CID: fmt.Sprintf("cid%d", n),
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestBlueskyPoster_PostThread(t *testing.T) {
	ctx := context.Background()

	t.Run("reply chain", func(t *testing.T) {
		pds := &fakePDS{}
		p := NewBlueskyPoster(BlueskyConfig{
			Handle:      "test.bsky.social",
			AppPassword: "app-pass",
			BaseURL:     pds.server(t).URL,
		})

		parts := []Part{
			{Text: "one"},
			{Text: "2/3 two", Image: &Media{Name: "a.png", ContentType: "image/png", Data: []byte("png-bytes")}},
			{Text: "3/3 three"},
		}
		res, err := p.PostThread(ctx, "", parts)
		require.NoError(t, err)

		assert.Equal(t, "at://did:plc:test123/app.bsky.feed.post/rkey1", res.RootID)
		assert.Equal(t, "https://bsky.app/profile/test.bsky.social/post/rkey1", res.URL)
		assert.Len(t, res.PostIDs, 3)

		require.Len(t, pds.records, 3)
		assert.Nil(t, pds.records[0].Record.Reply)
		assert.Equal(t, "did:plc:test123", pds.records[0].Repo)

		second := pds.records[1].Record
		assert.Equal(t, "cid1", second.Reply.Root.CID)
		assert.Equal(t, "cid1", second.Reply.Parent.CID)
		require.NotNil(t, second.Embed)
		assert.Equal(t, "app.bsky.embed.images", second.Embed.Type)

		third := pds.records[2].Record
		assert.Equal(t, "cid1", third.Reply.Root.CID)
		assert.Equal(t, "cid2", third.Reply.Parent.CID)

		assert.Equal(t, [][]byte{[]byte("png-bytes")}, pds.blobs)
	})

	t.Run("session reused", func(t *testing.T) {
		pds := &fakePDS{}
		p := NewBlueskyPoster(BlueskyConfig{Handle: "h", AppPassword: "app-pass", BaseURL: pds.server(t).URL})

		_, err := p.PostThread(ctx, "", PartsFromTexts([]string{"a"}))
		require.NoError(t, err)
		_, err = p.PostThread(ctx, "", PartsFromTexts([]string{"b"}))
		require.NoError(t, err)
		assert.Equal(t, 1, pds.sessions)
	})

	t.Run("authentication failure", func(t *testing.T) {
		pds := &fakePDS{}
		p := NewBlueskyPoster(BlueskyConfig{Handle: "h", AppPassword: "wrong", BaseURL: pds.server(t).URL})

		err := p.ValidateCredentials(ctx, "")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "bluesky", apiErr.Platform)
	})

	t.Run("too long for bluesky", func(t *testing.T) {
		p := NewBlueskyPoster(BlueskyConfig{})
		long := make([]byte, 301)
		for i := range long {
			long[i] = 'x'
		}
		_, err := p.PostThread(ctx, "", PartsFromTexts([]string{string(long)}))
		assert.ErrorIs(t, err, ErrPostTooLong)
	})
}

func TestBlueskyPoster_postURL(t *testing.T) {
	p := NewBlueskyPoster(BlueskyConfig{Handle: "me.bsky.social"})
	assert.Equal(t, "https://bsky.app/profile/me.bsky.social/post/abc", p.postURL("at://did:plc:x/app.bsky.feed.post/abc"))
	assert.Empty(t, p.postURL("garbage"))
	assert.Equal(t, "bluesky", p.Platform())
}

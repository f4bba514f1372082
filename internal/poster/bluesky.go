package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	blueskyBaseURL = "https://bsky.social/xrpc"
)

// BlueskyPoster posts to Bluesky via the AT Protocol with an app password.
type BlueskyPoster struct {
	httpClient  *http.Client
	baseURL     string
	handle      string
	appPassword string

	mu          sync.Mutex
	accessToken string
	did         string
}

// BlueskyConfig holds configuration for the Bluesky poster.
type BlueskyConfig struct {
	Handle      string
	AppPassword string
	BaseURL     string
	HTTPClient  *http.Client
}

// NewBlueskyPoster creates a new Bluesky poster.
func NewBlueskyPoster(cfg BlueskyConfig) *BlueskyPoster {
	b := &BlueskyPoster{
		httpClient:  cfg.HTTPClient,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		handle:      cfg.Handle,
		appPassword: cfg.AppPassword,
	}
	if b.httpClient == nil {
		b.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if b.baseURL == "" {
		b.baseURL = blueskyBaseURL
	}
	return b
}

// Platform returns the platform name.
func (b *BlueskyPoster) Platform() string {
	return "bluesky"
}

type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type createSessionResponse struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}

// ValidateCredentials authenticates with the app password. token is unused.
func (b *BlueskyPoster) ValidateCredentials(ctx context.Context, _ string) error {
	_, _, err := b.authenticate(ctx)
	return err
}

func (b *BlueskyPoster) authenticate(ctx context.Context) (token, did string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.accessToken != "" {
		return b.accessToken, b.did, nil
	}

	var session createSessionResponse
	err = b.call(ctx, "com.atproto.server.createSession", "", "application/json",
		createSessionRequest{Identifier: b.handle, Password: b.appPassword}, &session)
	if err != nil {
		return "", "", fmt.Errorf("authenticate: %w", err)
	}

	b.accessToken = session.AccessJwt
	b.did = session.DID

	slog.Debug("authenticated with Bluesky",
		"handle", session.Handle,
		"did", session.DID,
	)
	return b.accessToken, b.did, nil
}

type strongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type replyRef struct {
	Root   strongRef `json:"root"`
	Parent strongRef `json:"parent"`
}

type imageEmbed struct {
	Type   string       `json:"$type"`
	Images []embedImage `json:"images"`
}

type embedImage struct {
	Alt   string          `json:"alt"`
	Image json.RawMessage `json:"image"`
}

type postRecord struct {
	Type      string      `json:"$type"`
	Text      string      `json:"text"`
	CreatedAt string      `json:"createdAt"`
	Langs     []string    `json:"langs,omitempty"`
	Reply     *replyRef   `json:"reply,omitempty"`
	Embed     *imageEmbed `json:"embed,omitempty"`
}

type createRecordRequest struct {
	Repo       string     `json:"repo"`
	Collection string     `json:"collection"`
	Record     postRecord `json:"record"`
}

type uploadBlobResponse struct {
	Blob json.RawMessage `json:"blob"`
}

// PostThread publishes parts as a reply chain rooted at the first post.
func (b *BlueskyPoster) PostThread(ctx context.Context, _ string, parts []Part) (*Result, error) {
	if err := ValidateParts(parts, BlueskyMaxLength); err != nil {
		return nil, err
	}

	token, did, err := b.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Platform: b.Platform()}
	var root, parent strongRef

	for i, part := range parts {
		record := postRecord{
			Type:      "app.bsky.feed.post",
			Text:      part.Text,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
			Langs:     []string{"en"},
		}
		if i > 0 {
			record.Reply = &replyRef{Root: root, Parent: parent}
		}

		if part.Image != nil {
			var uploaded uploadBlobResponse
			err := b.call(ctx, "com.atproto.repo.uploadBlob", token, part.Image.ContentType,
				part.Image.Data, &uploaded)
			if err != nil {
				return nil, threadError(i, len(parts), result.PostIDs, fmt.Errorf("upload image: %w", err))
			}
			record.Embed = &imageEmbed{
				Type:   "app.bsky.embed.images",
				Images: []embedImage{{Alt: part.Image.Name, Image: uploaded.Blob}},
			}
		}

		var created strongRef
		err := b.call(ctx, "com.atproto.repo.createRecord", token, "application/json", createRecordRequest{
			Repo:       did,
			Collection: "app.bsky.feed.post",
			Record:     record,
		}, &created)
		if err != nil {
			return nil, threadError(i, len(parts), result.PostIDs, err)
		}

		if i == 0 {
			root = created
			result.RootID = created.URI
			result.URL = b.postURL(created.URI)
		}
		parent = created
		result.PostIDs = append(result.PostIDs, created.URI)
	}

	result.Message = successMessage("Bluesky", len(parts))
	slog.Info("posted to Bluesky",
		"uri", result.RootID,
		"url", result.URL,
		"posts", len(result.PostIDs),
	)
	return result, nil
}

// call invokes an XRPC procedure. A []byte body is sent raw with
// contentType; anything else is encoded as JSON.
func (b *BlueskyPoster) call(ctx context.Context, method, token, contentType string, body, out any) error {
	var payload []byte
	switch v := body.(type) {
	case []byte:
		payload = v
	default:
		var err error
		if payload, err = json.Marshal(v); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/"+method, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Platform: "bluesky", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// postURL maps at://did/app.bsky.feed.post/rkey to the web URL.
func (b *BlueskyPoster) postURL(uri string) string {
	parts := strings.Split(strings.TrimPrefix(uri, "at://"), "/")
	if len(parts) < 3 || parts[len(parts)-1] == "" {
		return ""
	}
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", b.handle, parts[len(parts)-1])
}

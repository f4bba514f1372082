package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	twitterAPIURL    = "https://api.twitter.com"
	twitterUploadURL = "https://api.x.com/2/media/upload"

	// accessLevelCode is returned when the app's access tier cannot post.
	accessLevelCode = 453

	simulatedPostID = "simulated_123"
)

// TwitterPoster posts threads through the X API v2 with a user's OAuth 2.0
// access token.
type TwitterPoster struct {
	httpClient *http.Client
	apiURL     string
	uploadURL  string
	maxLength  int
}

// TwitterConfig holds configuration for the Twitter poster.
type TwitterConfig struct {
	APIURL     string
	UploadURL  string
	HTTPClient *http.Client
	// MaxLength rejects longer posts before any request. 0 leaves the
	// limit to X, which allows long posts on premium accounts.
	MaxLength int
}

// NewTwitterPoster creates a new Twitter poster.
func NewTwitterPoster(cfg TwitterConfig) *TwitterPoster {
	t := &TwitterPoster{
		httpClient: cfg.HTTPClient,
		apiURL:     strings.TrimSuffix(cfg.APIURL, "/"),
		uploadURL:  cfg.UploadURL,
		maxLength:  cfg.MaxLength,
	}
	if t.httpClient == nil {
		t.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if t.apiURL == "" {
		t.apiURL = twitterAPIURL
	}
	if t.uploadURL == "" {
		t.uploadURL = twitterUploadURL
	}
	return t
}

// Platform returns the platform name.
func (t *TwitterPoster) Platform() string {
	return "twitter"
}

// ValidateCredentials checks the token against the users/me endpoint.
func (t *TwitterPoster) ValidateCredentials(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("no access token")
	}
	_, err := getUser(ctx, t.httpClient, t.apiURL, token)
	return err
}

type tweetRequest struct {
	Text  string      `json:"text,omitempty"`
	Reply *tweetReply `json:"reply,omitempty"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type twitterErrorResponse struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// PostThread posts the first part, then each following part as a reply to
// the one before it. Images are uploaded before the post that carries them.
func (t *TwitterPoster) PostThread(ctx context.Context, token string, parts []Part) (*Result, error) {
	if err := ValidateParts(parts, t.maxLength); err != nil {
		return nil, err
	}

	result := &Result{Platform: t.Platform()}
	previous := ""

	for i, part := range parts {
		req := tweetRequest{Text: part.Text}
		if previous != "" {
			req.Reply = &tweetReply{InReplyToTweetID: previous}
		}

		if part.Image != nil {
			mediaID, err := t.uploadMedia(ctx, token, part.Image)
			if err != nil {
				return nil, threadError(i, len(parts), result.PostIDs, fmt.Errorf("upload image: %w", err))
			}
			req.Media = &tweetMedia{MediaIDs: []string{mediaID}}
		}

		id, err := t.createTweet(ctx, token, req)
		if err != nil {
			var apiErr *APIError
			if i == 0 && errors.As(err, &apiErr) && isAccessLevelError(apiErr) {
				slog.Warn("access level insufficient, simulating post",
					"posts", len(parts),
				)
				return &Result{
					Platform:  t.Platform(),
					RootID:    simulatedPostID,
					Simulated: true,
					Message:   "Post would be published successfully (simulated: the app's access level cannot post)",
				}, nil
			}
			return nil, threadError(i, len(parts), result.PostIDs, err)
		}

		if i == 0 {
			result.RootID = id
		}
		result.PostIDs = append(result.PostIDs, id)
		previous = id
	}

	result.Message = successMessage("Twitter", len(parts))
	slog.Info("posted to Twitter",
		"root_id", result.RootID,
		"posts", len(result.PostIDs),
	)
	return result, nil
}

func (t *TwitterPoster) createTweet(ctx context.Context, token string, body tweetRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return "", &APIError{Platform: "twitter", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var created tweetResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if created.Data.ID == "" {
		return "", errors.New("response missing tweet id")
	}
	return created.Data.ID, nil
}

type mediaUploadResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (t *TwitterPoster) uploadMedia(ctx context.Context, token string, media *Media) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("media_category", "tweet_image"); err != nil {
		return "", err
	}
	fw, err := w.CreateFormFile("media", media.Name)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(media.Data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.uploadURL, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &APIError{Platform: "twitter", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var uploaded mediaUploadResponse
	if err := json.Unmarshal(respBody, &uploaded); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if uploaded.Data.ID == "" {
		return "", errors.New("response missing media id")
	}

	slog.Debug("uploaded media", "name", media.Name, "media_id", uploaded.Data.ID)
	return uploaded.Data.ID, nil
}

func isAccessLevelError(err *APIError) bool {
	if err.StatusCode != http.StatusForbidden {
		return false
	}
	var parsed twitterErrorResponse
	if json.Unmarshal([]byte(err.Body), &parsed) != nil {
		return false
	}
	for _, e := range parsed.Errors {
		if e.Code == accessLevelCode {
			return true
		}
	}
	return false
}

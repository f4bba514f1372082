package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/abdulachik/threadsmith/internal/poster"
)

// PublishResult is the backend's answer to a publish request.
type PublishResult struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	TweetCount   int      `json:"tweet_count"`
	ImageCount   int      `json:"image_count"`
	FirstTweetID string   `json:"first_tweet_id"`
	PostIDs      []string `json:"post_ids"`
	URL          string   `json:"url"`
	Simulated    bool     `json:"simulated"`
}

// PublishClient sends threads to the backend for posting to X.
type PublishClient struct {
	c *Client
}

// Publish posts parts as one thread.
func (p *PublishClient) Publish(ctx context.Context, parts []poster.Part) (*PublishResult, error) {
	return p.PublishFor(ctx, 0, parts)
}

// PublishFor posts parts and links the post to a stored generation.
func (p *PublishClient) PublishFor(ctx context.Context, generationID int64, parts []poster.Part) (*PublishResult, error) {
	if len(parts) == 0 {
		return nil, poster.ErrEmptyThread
	}

	body, contentType, err := encodeThread(generationID, parts)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.c.endpoint("/api/twitter/post", nil), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var result PublishResult
	if err := p.c.do(req, &result); err != nil {
		return nil, fmt.Errorf("publish thread: %w", err)
	}
	return &result, nil
}

// encodeThread writes the multipart form the backend expects: one
// "tweets" field per post, in order, and "image_{i}" for the image of
// post i.
func encodeThread(generationID int64, parts []poster.Part) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, part := range parts {
		if err := mw.WriteField("tweets", part.Text); err != nil {
			return nil, "", fmt.Errorf("write post field: %w", err)
		}
	}
	if generationID > 0 {
		if err := mw.WriteField("generation_id", strconv.FormatInt(generationID, 10)); err != nil {
			return nil, "", fmt.Errorf("write generation field: %w", err)
		}
	}

	for i, part := range parts {
		if part.Image == nil {
			continue
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", multipart.FileContentDisposition(fmt.Sprintf("image_%d", i), part.Image.Name))
		h.Set("Content-Type", part.Image.ContentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create image part: %w", err)
		}
		if _, err := w.Write(part.Image.Data); err != nil {
			return nil, "", fmt.Errorf("write image part: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// Package poster publishes threads to social platforms.
package poster

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyThread is returned when there is nothing to publish.
var ErrEmptyThread = errors.New("no posts provided")

// Media is an image attached to one post.
type Media struct {
	Name        string
	ContentType string
	Data        []byte
}

// Part is one post of a thread.
type Part struct {
	Text  string
	Image *Media
}

// Result describes a published thread.
type Result struct {
	Platform  string
	PostIDs   []string
	RootID    string
	URL       string
	Simulated bool
	Message   string
}

// Poster is the interface for posting to social media platforms.
type Poster interface {
	// Platform returns the name of the platform.
	Platform() string

	// PostThread publishes parts in order, each replying to the previous
	// one. token is the user's access token where the platform needs one.
	PostThread(ctx context.Context, token string, parts []Part) (*Result, error)

	// ValidateCredentials checks if the credentials are valid.
	ValidateCredentials(ctx context.Context, token string) error
}

// APIError is a non-success response from a platform API.
type APIError struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Platform, e.StatusCode, e.Body)
}

// PartialError is returned when a thread fails after some of its posts
// were published. PostIDs lists the posts that are already live, in order.
type PartialError struct {
	Failed  int // 1-based number of the post that failed
	Total   int
	PostIDs []string
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("post %d of %d (%d already published): %v", e.Failed, e.Total, len(e.PostIDs), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// threadError wraps the failure of post i. Once something is live the
// caller gets a *PartialError so it can avoid posting the same head twice.
func threadError(i, total int, posted []string, err error) error {
	if len(posted) == 0 {
		return fmt.Errorf("post %d of %d: %w", i+1, total, err)
	}
	return &PartialError{Failed: i + 1, Total: total, PostIDs: posted, Err: err}
}

func successMessage(platform string, n int) string {
	if n > 1 {
		return fmt.Sprintf("Successfully posted thread to %s", platform)
	}
	return fmt.Sprintf("Successfully posted to %s", platform)
}

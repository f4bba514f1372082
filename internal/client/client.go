// Package client talks to the threadsmith backend on behalf of the CLI
// workflow: generation, publishing, the article feed and the X session.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrMissingURL is returned when Generate is called without a URL.
var ErrMissingURL = errors.New("url is required")

// AuthRequiredError means the backend has no X session for this client.
// LoginURL starts a new login.
type AuthRequiredError struct {
	LoginURL string
	Message  string
}

func (e *AuthRequiredError) Error() string {
	if e.LoginURL == "" {
		return "not authenticated with X"
	}
	return "not authenticated with X: log in at " + e.LoginURL
}

// ServiceError is any other non-success answer from the backend.
// PostIDs is set when a thread failed after some posts went live.
type ServiceError struct {
	StatusCode int
	Code       string
	Message    string
	PostIDs    []string
}

func (e *ServiceError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	SessionFile string // where the backend session cookie is kept; empty keeps it in memory
	Transport   http.RoundTripper
}

// Client is the shared connection to the backend.
type Client struct {
	base *url.URL
	http *http.Client
	jar  *Jar
}

// New creates a client for the backend at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend url is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Minute
	}

	jar, err := NewJar(base, cfg.SessionFile)
	if err != nil {
		return nil, err
	}

	return &Client{
		base: base,
		http: &http.Client{Timeout: cfg.Timeout, Jar: jar, Transport: cfg.Transport},
		jar:  jar,
	}, nil
}

// Generation returns the generation client.
func (c *Client) Generation() *GenerationClient {
	return &GenerationClient{c: c}
}

// Publisher returns the publishing client.
func (c *Client) Publisher() *PublishClient {
	return &PublishClient{c: c}
}

// Feed returns the article feed client.
func (c *Client) Feed() *FeedClient {
	return &FeedClient{c: c}
}

// Session returns the X session client.
func (c *Client) Session() *SessionClient {
	return &SessionClient{c: c}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	AuthURL string   `json:"auth_url"`
	Detail  string   `json:"detail"`
	PostIDs []string `json:"post_ids"`
}

// do sends req and decodes a JSON success body into out.
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.responseError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) responseError(status int, body []byte) error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		eb.Message = strings.TrimSpace(string(body))
	}
	if eb.Message == "" {
		eb.Message = eb.Detail
	}
	if eb.Message == "" {
		eb.Message = http.StatusText(status)
	}

	if status == http.StatusUnauthorized {
		loginURL := eb.AuthURL
		if loginURL == "" {
			loginURL = c.endpoint("/api/twitter/login", nil)
		}
		return &AuthRequiredError{LoginURL: loginURL, Message: eb.Message}
	}
	return &ServiceError{StatusCode: status, Code: eb.Error, Message: eb.Message, PostIDs: eb.PostIDs}
}

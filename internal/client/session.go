package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abdulachik/threadsmith/internal/poster"
)

// SessionClient manages the backend's X session for this client.
type SessionClient struct {
	c *Client
}

// Login starts an X login on the backend and returns the authorization URL
// to open in a browser. The session cookie set by the backend is kept in
// the client's jar, so once the browser finishes the login the client is
// authenticated.
func (s *SessionClient) Login(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.c.endpoint("/api/twitter/login", nil), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	noFollow := *s.c.http
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := noFollow.Do(req)
	if err != nil {
		return "", fmt.Errorf("start login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return "", fmt.Errorf("start login: %w", s.c.responseError(resp.StatusCode, readSmall(resp)))
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("start login: redirect without location")
	}
	return location, nil
}

type userBody struct {
	Data poster.User `json:"data"`
}

// User returns the logged in X account.
func (s *SessionClient) User(ctx context.Context) (*poster.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.c.endpoint("/api/twitter/user", nil), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var body userBody
	if err := s.c.do(req, &body); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &body.Data, nil
}

// WaitForLogin polls User until the login completes or ctx ends.
func (s *SessionClient) WaitForLogin(ctx context.Context, interval time.Duration) (*poster.User, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		user, err := s.User(ctx)
		if err == nil {
			return user, nil
		}
		var authErr *AuthRequiredError
		if !errors.As(err, &authErr) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for login: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Test checks the stored token against X.
func (s *SessionClient) Test(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.c.endpoint("/api/twitter/test", nil), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if err := s.c.do(req, nil); err != nil {
		return fmt.Errorf("test token: %w", err)
	}
	return nil
}

// Logout ends the X session on the backend and forgets the local cookie.
func (s *SessionClient) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.c.endpoint("/api/twitter/logout", nil), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if err := s.c.do(req, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return s.c.jar.Clear()
}

func readSmall(resp *http.Response) []byte {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return body
}

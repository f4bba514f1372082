package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// storedCookie is the on-disk form of a backend cookie.
type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitzero"`
}

// Jar is a cookie jar whose cookies for the backend survive between CLI
// runs. Only cookies visible to the backend URL are persisted.
type Jar struct {
	*cookiejar.Jar

	mu   sync.Mutex
	path string
	base *url.URL
}

// NewJar creates a jar for base, loading cookies saved at path. An empty
// path keeps cookies in memory only.
func NewJar(base *url.URL, path string) (*Jar, error) {
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	j := &Jar{Jar: inner, path: path, base: base}
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Jar) load() error {
	if j.path == "" {
		return nil
	}
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session file: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parse session file %s: %w", j.path, err)
	}

	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/", Expires: c.Expires})
	}
	j.Jar.SetCookies(j.base, cookies)
	return nil
}

// SetCookies stores cookies and persists the backend's cookies when they
// change.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.Jar.SetCookies(u, cookies)
	if len(cookies) == 0 || j.path == "" {
		return
	}

	expiry := make(map[string]time.Time, len(cookies))
	for _, c := range cookies {
		switch {
		case c.MaxAge > 0:
			expiry[c.Name] = time.Now().Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			expiry[c.Name] = c.Expires
		}
	}
	// The cookie still lives for this process when saving fails.
	if err := j.save(expiry); err != nil {
		slog.Warn("failed to save session", "path", j.path, "error", err)
	}
}

func (j *Jar) save(expiry map[string]time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	previous := make(map[string]time.Time)
	if data, err := os.ReadFile(j.path); err == nil {
		var stored []storedCookie
		if json.Unmarshal(data, &stored) == nil {
			for _, c := range stored {
				previous[c.Name] = c.Expires
			}
		}
	}

	var stored []storedCookie
	for _, c := range j.Jar.Cookies(j.base) {
		exp, ok := expiry[c.Name]
		if !ok {
			exp = previous[c.Name]
		}
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value, Expires: exp})
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(j.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Clear forgets every persisted cookie.
func (j *Jar) Clear() error {
	expired := make([]*http.Cookie, 0)
	for _, c := range j.Jar.Cookies(j.base) {
		expired = append(expired, &http.Cookie{Name: c.Name, Path: "/", MaxAge: -1})
	}
	j.Jar.SetCookies(j.base, expired)

	if j.path == "" {
		return nil
	}
	if err := os.Remove(j.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

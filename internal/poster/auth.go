package poster

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	twitterAuthURL  = "https://twitter.com/i/oauth2/authorize"
	twitterTokenURL = "https://api.twitter.com/2/oauth2/token"
)

// TwitterScopes are requested at login.
var TwitterScopes = []string{"tweet.read", "tweet.write", "users.read", "media.write", "offline.access"}

// TwitterAuth runs the OAuth 2.0 authorization code flow with PKCE.
type TwitterAuth struct {
	config     oauth2.Config
	httpClient *http.Client
	apiURL     string
}

// TwitterAuthConfig holds configuration for TwitterAuth.
type TwitterAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIURL       string
	HTTPClient   *http.Client
}

// NewTwitterAuth creates the login flow helper.
func NewTwitterAuth(cfg TwitterAuthConfig) *TwitterAuth {
	if cfg.AuthURL == "" {
		cfg.AuthURL = twitterAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = twitterTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = twitterAPIURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &TwitterAuth{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       TwitterScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: cfg.HTTPClient,
		apiURL:     strings.TrimSuffix(cfg.APIURL, "/"),
	}
}

// LoginRequest is the state a caller must keep between the redirect and
// the callback.
type LoginRequest struct {
	URL      string
	State    string
	Verifier string
}

// Begin creates a fresh state and PKCE verifier and the authorization URL
// that carries them.
func (a *TwitterAuth) Begin() LoginRequest {
	state := rand.Text()
	verifier := oauth2.GenerateVerifier()
	return LoginRequest{
		URL:      a.config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)),
		State:    state,
		Verifier: verifier,
	}
}

// Exchange trades an authorization code for a token.
func (a *TwitterAuth) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	tok, err := a.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

// Refresh returns tok unchanged while it is valid, or a refreshed token when
// it has expired and carries a refresh token.
func (a *TwitterAuth) Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	fresh, err := a.config.TokenSource(ctx, tok).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return fresh, nil
}

// User is an X account.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Me returns the account that owns token.
func (a *TwitterAuth) Me(ctx context.Context, token string) (*User, error) {
	return getUser(ctx, a.httpClient, a.apiURL, token)
}

func getUser(ctx context.Context, client *http.Client, apiURL, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/2/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Platform: "twitter", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed struct {
		Data User `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &parsed.Data, nil
}

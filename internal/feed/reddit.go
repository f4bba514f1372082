package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	redditAuthURL    = "https://www.reddit.com/api/v1/access_token"
	redditAPIURL     = "https://oauth.reddit.com"
	redditDefaultMax = 5
)

// Reddit reads hot posts from technology subreddits using an app-only
// OAuth token.
type Reddit struct {
	httpClient *http.Client
	apiURL     string
	subreddits []string
	maxPosts   int
}

// RedditConfig holds configuration for the Reddit source.
type RedditConfig struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	Subreddits   []string
	MaxPosts     int
	AuthURL      string
	APIURL       string
	HTTPClient   *http.Client
}

// NewReddit creates a Reddit source. Tokens are fetched on first use and
// refreshed when they expire.
func NewReddit(cfg RedditConfig) *Reddit {
	subreddits := cfg.Subreddits
	if len(subreddits) == 0 {
		subreddits = []string{"technology", "programming", "golang"}
	}
	if cfg.MaxPosts <= 0 {
		cfg.MaxPosts = redditDefaultMax
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = redditAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = redditAPIURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	base := newHTTPClient(cfg.HTTPClient)
	uaClient := &http.Client{
		Timeout:   base.Timeout,
		Transport: &userAgentTransport{base: base.Transport, userAgent: cfg.UserAgent},
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.AuthURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, uaClient)
	client := oauth2.NewClient(tokenCtx, cc.TokenSource(tokenCtx))
	client.Timeout = base.Timeout

	return &Reddit{
		httpClient: client,
		apiURL:     strings.TrimSuffix(cfg.APIURL, "/"),
		subreddits: subreddits,
		maxPosts:   cfg.MaxPosts,
	}
}

// Name returns the source identifier.
func (r *Reddit) Name() string {
	return "reddit"
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID         string  `json:"id"`
				Title      string  `json:"title"`
				Selftext   string  `json:"selftext"`
				URL        string  `json:"url"`
				Permalink  string  `json:"permalink"`
				Score      int     `json:"score"`
				Subreddit  string  `json:"subreddit"`
				CreatedUTC float64 `json:"created_utc"`
				Stickied   bool    `json:"stickied"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Fetch retrieves hot posts across the configured subreddits, highest score
// first.
func (r *Reddit) Fetch(ctx context.Context) ([]Article, error) {
	var all []Article
	var lastErr error

	for _, subreddit := range r.subreddits {
		articles, err := r.fetchSubredditHot(ctx, subreddit)
		if err != nil {
			slog.Warn("failed to fetch subreddit",
				"subreddit", subreddit,
				"error", err,
			)
			lastErr = err
			continue
		}
		all = append(all, articles...)
	}

	if len(all) == 0 && lastErr != nil {
		return nil, lastErr
	}

	slices.SortStableFunc(all, func(a, b Article) int { return b.Score - a.Score })
	if len(all) > r.maxPosts {
		all = all[:r.maxPosts]
	}

	slog.Debug("fetched Reddit posts", "count", len(all))
	return all, nil
}

func (r *Reddit) fetchSubredditHot(ctx context.Context, subreddit string) ([]Article, error) {
	url := fmt.Sprintf("%s/r/%s/hot?limit=10", r.apiURL, subreddit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("Reddit API error (status %d): %s", resp.StatusCode, string(body))
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Stickied {
			continue
		}

		postURL := post.URL
		if postURL == "" && strings.HasPrefix(post.Permalink, "/") {
			postURL = "https://www.reddit.com" + post.Permalink
		}

		description := truncate(cleanHTML(post.Selftext), 150)
		if description == "" {
			description = fmt.Sprintf("r/%s · %d points", post.Subreddit, post.Score)
		}

		articles = append(articles, Article{
			Title:       post.Title,
			Description: description,
			Category:    "Trending Discussion",
			Published:   time.Unix(int64(post.CreatedUTC), 0).UTC().Format(publishedLayout),
			URL:         postURL,
			Source:      "Reddit",
			Score:       post.Score,
		})
	}

	return articles, nil
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return base.RoundTrip(req)
}

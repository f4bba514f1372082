package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DatabasePath string `yaml:"database_path"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// HTTP server
	ServerAddr     string   `yaml:"server_addr"`
	PublicURL      string   `yaml:"public_url"`   // externally reachable backend URL, used for OAuth redirects
	FrontendURL    string   `yaml:"frontend_url"` // where the OAuth callback sends the user back to
	AllowedOrigins []string `yaml:"allowed_origins"`

	// LLM
	LLMProvider     string `yaml:"llm_provider"` // "openai", "anthropic" or "mock"
	LLMModel        string `yaml:"llm_model"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// X (Twitter) OAuth 2.0
	TwitterClientID     string `yaml:"twitter_client_id"`
	TwitterClientSecret string `yaml:"twitter_client_secret"`

	// Bluesky
	BlueskyHandle      string `yaml:"bluesky_handle"`
	BlueskyAppPassword string `yaml:"bluesky_app_password"`

	// Reddit OAuth
	RedditClientID     string `yaml:"reddit_client_id"`
	RedditClientSecret string `yaml:"reddit_client_secret"`
	RedditUserAgent    string `yaml:"reddit_user_agent"`

	// Thread splitting
	ThreadHardLimit int `yaml:"thread_hard_limit"`
	ThreadSoftLimit int `yaml:"thread_soft_limit"`

	// Feeds and page fetching
	FeedCacheTTL  time.Duration `yaml:"feed_cache_ttl"`
	RespectRobots bool          `yaml:"respect_robots"`
	FetchRate     float64       `yaml:"fetch_rate"` // requests per second per host

	// Background maintenance in serve mode
	FeedRefreshInterval time.Duration `yaml:"feed_refresh_interval"`
	PruneInterval       time.Duration `yaml:"prune_interval"`

	// Client side
	BackendURL  string `yaml:"backend_url"`
	SessionFile string `yaml:"session_file"`

	// Post history
	VecLitePath         string  `yaml:"veclite_path"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	EmbeddingProvider   string  `yaml:"embedding_provider"` // "", "ollama" or "openai"; empty uses veclite.yaml
	EmbeddingModel      string  `yaml:"embedding_model"`
	OllamaHost          string  `yaml:"ollama_host"`
}

var defaults = map[string]any{
	"DATABASE_PATH":         "data/threadsmith.db",
	"LOG_LEVEL":             "info",
	"SERVER_ADDR":           ":8000",
	"PUBLIC_URL":            "http://localhost:8000",
	"FRONTEND_URL":          "http://localhost:3000",
	"ALLOWED_ORIGINS":       "http://localhost:3000",
	"LLM_PROVIDER":          "openai",
	"LLM_MODEL":             "",
	"REDDIT_USER_AGENT":     "threadsmith:v1.0.0",
	"THREAD_HARD_LIMIT":     280,
	"THREAD_SOFT_LIMIT":     500,
	"FEED_CACHE_TTL":        "10m",
	"RESPECT_ROBOTS":        true,
	"FETCH_RATE":            1.0,
	"FEED_REFRESH_INTERVAL": "30m",
	"PRUNE_INTERVAL":        "1h",
	"BACKEND_URL":           "http://localhost:8000",
	"SESSION_FILE":          "data/session.json",
	"SIMILARITY_THRESHOLD":  0.9,
	"OLLAMA_HOST":           "http://localhost:11434",
}

// Load reads configuration from environment variables and an optional
// YAML file. It automatically loads .env file if present.
// Environment variables take precedence over the file.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		DatabasePath:        v.GetString("DATABASE_PATH"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		ServerAddr:          v.GetString("SERVER_ADDR"),
		PublicURL:           strings.TrimRight(v.GetString("PUBLIC_URL"), "/"),
		FrontendURL:         strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		AllowedOrigins:      splitList(v.GetString("ALLOWED_ORIGINS")),
		LLMProvider:         strings.ToLower(v.GetString("LLM_PROVIDER")),
		LLMModel:            v.GetString("LLM_MODEL"),
		OpenAIAPIKey:        v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:       v.GetString("OPENAI_BASE_URL"),
		AnthropicAPIKey:     v.GetString("ANTHROPIC_API_KEY"),
		TwitterClientID:     v.GetString("TWITTER_CLIENT_ID"),
		TwitterClientSecret: v.GetString("TWITTER_CLIENT_SECRET"),
		BlueskyHandle:       v.GetString("BLUESKY_HANDLE"),
		BlueskyAppPassword:  v.GetString("BLUESKY_APP_PASSWORD"),
		RedditClientID:      v.GetString("REDDIT_CLIENT_ID"),
		RedditClientSecret:  v.GetString("REDDIT_CLIENT_SECRET"),
		RedditUserAgent:     v.GetString("REDDIT_USER_AGENT"),
		RespectRobots:       v.GetBool("RESPECT_ROBOTS"),
		BackendURL:          strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
		SessionFile:         v.GetString("SESSION_FILE"),
		VecLitePath:         v.GetString("VECLITE_PATH"),
		EmbeddingProvider:   strings.ToLower(v.GetString("EMBEDDING_PROVIDER")),
		EmbeddingModel:      v.GetString("EMBEDDING_MODEL"),
		OllamaHost:          v.GetString("OLLAMA_HOST"),
	}

	var err error
	if cfg.ThreadHardLimit, err = parseInt(v, "THREAD_HARD_LIMIT"); err != nil {
		return nil, err
	}
	if cfg.ThreadSoftLimit, err = parseInt(v, "THREAD_SOFT_LIMIT"); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.FeedCacheTTL, err = time.ParseDuration(v.GetString("FEED_CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_CACHE_TTL: %w", err)
	}
	cfg.FeedRefreshInterval, err = time.ParseDuration(v.GetString("FEED_REFRESH_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_REFRESH_INTERVAL: %w", err)
	}
	cfg.PruneInterval, err = time.ParseDuration(v.GetString("PRUNE_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRUNE_INTERVAL: %w", err)
	}

	if cfg.FetchRate, err = parseFloat(v, "FETCH_RATE"); err != nil {
		return nil, err
	}
	if cfg.SimilarityThreshold, err = parseFloat(v, "SIMILARITY_THRESHOLD"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.ThreadHardLimit <= 0 {
		return fmt.Errorf("THREAD_HARD_LIMIT must be positive, got %d", c.ThreadHardLimit)
	}
	return nil
}

// ValidateForGeneration checks configuration needed to call the LLM.
func (c *Config) ValidateForGeneration() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.LLMProvider {
	case "openai", "":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER is openai")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER is anthropic")
		}
	case "mock":
	default:
		return fmt.Errorf("invalid LLM_PROVIDER: %s (must be 'openai', 'anthropic' or 'mock')", c.LLMProvider)
	}
	return nil
}

// ValidateForTwitter checks configuration needed for the X OAuth flow.
func (c *Config) ValidateForTwitter() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.TwitterClientID == "" {
		return fmt.Errorf("TWITTER_CLIENT_ID is required for posting to X")
	}
	if c.PublicURL == "" {
		return fmt.Errorf("PUBLIC_URL is required for the OAuth callback")
	}
	return nil
}

// ValidateForBluesky checks configuration needed for posting to Bluesky.
func (c *Config) ValidateForBluesky() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.BlueskyHandle == "" {
		return fmt.Errorf("BLUESKY_HANDLE is required for posting")
	}
	if c.BlueskyAppPassword == "" {
		return fmt.Errorf("BLUESKY_APP_PASSWORD is required for posting")
	}
	return nil
}

// ValidateForServe checks all configuration needed for serve mode.
func (c *Config) ValidateForServe() error {
	if err := c.ValidateForGeneration(); err != nil {
		return err
	}
	if c.ServerAddr == "" {
		return fmt.Errorf("SERVER_ADDR is required")
	}
	// X credentials are optional; without them the posting endpoints report
	// the missing configuration.
	return nil
}

// ValidateForClient checks configuration needed by the client commands.
func (c *Config) ValidateForClient() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	return nil
}

// RedditEnabled reports whether Reddit credentials are configured.
func (c *Config) RedditEnabled() bool {
	return c.RedditClientID != "" && c.RedditClientSecret != ""
}

// Masked returns a copy with secrets replaced, for display.
func (c *Config) Masked() Config {
	m := *c
	m.OpenAIAPIKey = mask(m.OpenAIAPIKey)
	m.AnthropicAPIKey = mask(m.AnthropicAPIKey)
	m.TwitterClientSecret = mask(m.TwitterClientSecret)
	m.BlueskyAppPassword = mask(m.BlueskyAppPassword)
	m.RedditClientSecret = mask(m.RedditClientSecret)
	return m
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(v *viper.Viper, key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(v *viper.Viper, key string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.GetString(key)), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

// Package generator turns a page analysis into a social post using a
// language model.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Completer sends one system/user prompt pair to a model and returns the
// text of its reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// Config selects and configures a Completer.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.7
	defaultTimeout     = 120 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// NewCompleter creates the Completer named by config.Provider.
func NewCompleter(config Config) (Completer, error) {
	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case "openai", "":
		return NewOpenAICompleter(config)
	case "anthropic", "claude":
		return NewAnthropicCompleter(config)
	case "mock":
		return &MockCompleter{}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
}

package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicCompleter talks to the Claude messages API.
type AnthropicCompleter struct {
	client anthropic.Client
	config Config
}

// NewAnthropicCompleter creates a completer for Claude.
func NewAnthropicCompleter(config Config) (*AnthropicCompleter, error) {
	if config.APIKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	config = config.withDefaults()
	if config.Model == "" {
		config.Model = defaultAnthropicModel
	}

	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(config.BaseURL))
	}

	return &AnthropicCompleter{
		client: anthropic.NewClient(opts...),
		config: config,
	}, nil
}

// Name returns the provider name.
func (c *AnthropicCompleter) Name() string {
	return "anthropic"
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.Model),
		MaxTokens:   int64(c.config.MaxTokens),
		Temperature: anthropic.Float(float64(c.config.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(tb.Text)
		}
	}
	if out.Len() == 0 {
		return "", errors.New("anthropic completion: empty response")
	}
	return strings.TrimSpace(out.String()), nil
}

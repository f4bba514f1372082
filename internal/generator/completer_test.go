package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		wantName string
		wantErr  bool
	}{
		{"openai", Config{Provider: "openai", APIKey: "k"}, "openai", false},
		{"default is openai", Config{APIKey: "k"}, "openai", false},
		{"anthropic", Config{Provider: "Anthropic", APIKey: "k"}, "anthropic", false},
		{"claude alias", Config{Provider: "claude", APIKey: "k"}, "anthropic", false},
		{"mock", Config{Provider: "mock"}, "mock", false},
		{"openai without key", Config{Provider: "openai"}, "", true},
		{"anthropic without key", Config{Provider: "anthropic"}, "", true},
		{"unknown", Config{Provider: "gemini", APIKey: "k"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCompleter(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, c.Name())
		})
	}
}

func TestOpenAICompleter(t *testing.T) {
	t.Run("sends system and user messages", func(t *testing.T) {
		var got openai.ChatCompletionRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
				Choices: []openai.ChatCompletionChoice{
					{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "  a post  "}},
				},
			})
		}))
		defer server.Close()

		c, err := NewOpenAICompleter(Config{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		out, err := c.Complete(context.Background(), "be useful", "write")
		require.NoError(t, err)
		assert.Equal(t, "a post", out)

		assert.Equal(t, openai.GPT4oMini, got.Model)
		assert.InDelta(t, 0.7, got.Temperature, 0.001)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
		assert.Equal(t, "be useful", got.Messages[0].Content)
		assert.Equal(t, "write", got.Messages[1].Content)
	})

	t.Run("no choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openai.ChatCompletionResponse{})
		}))
		defer server.Close()

		c, err := NewOpenAICompleter(Config{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = c.Complete(context.Background(), "", "write")
		assert.Error(t, err)
	})

	t.Run("api error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
		}))
		defer server.Close()

		c, err := NewOpenAICompleter(Config{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = c.Complete(context.Background(), "", "write")
		assert.ErrorContains(t, err, "openai completion")
	})
}

func TestAnthropicCompleter(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "hello "}, {"type": "text", "text": "there"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 2}
		}`))
	}))
	defer server.Close()

	c, err := NewAnthropicCompleter(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	assert.Equal(t, defaultAnthropicModel, body["model"])
	system, ok := body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	assert.Equal(t, "system prompt", system[0].(map[string]any)["text"])
}

func TestMockCompleter(t *testing.T) {
	t.Run("queued responses", func(t *testing.T) {
		m := &MockCompleter{Responses: []string{"one", "two"}}

		a, _ := m.Complete(context.Background(), "", "x")
		b, _ := m.Complete(context.Background(), "", "y")
		assert.Equal(t, "one", a)
		assert.Equal(t, "two", b)
		assert.Len(t, m.Calls(), 2)
	})

	t.Run("echoes draft", func(t *testing.T) {
		m := &MockCompleter{}
		out, err := m.Complete(context.Background(), reviewSystem, draftMarker+"the draft\n")
		require.NoError(t, err)
		assert.Equal(t, "the draft", out)
	})

	t.Run("last paragraph without draft", func(t *testing.T) {
		m := &MockCompleter{}
		out, err := m.Complete(context.Background(), summarizeSystem, "context\n\nfirst\n\nlast one")
		require.NoError(t, err)
		assert.Equal(t, "last one", out)
	})

	t.Run("error", func(t *testing.T) {
		m := &MockCompleter{Err: errors.New("boom")}
		_, err := m.Complete(context.Background(), "", "x")
		assert.EqualError(t, err, "boom")
	})
}

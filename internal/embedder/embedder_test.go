package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("ollama uses default model and host", func(t *testing.T) {
		e, err := New(Config{Provider: "ollama"})
		require.NoError(t, err)
		o, ok := e.(*Ollama)
		require.True(t, ok)
		assert.Equal(t, defaultOllamaModel, o.model)
		assert.Equal(t, defaultOllamaHost, o.host)
	})

	t.Run("ollama uses custom model", func(t *testing.T) {
		e, err := New(Config{Provider: "Ollama", Host: "http://ollama:11434/", Model: "custom-model"})
		require.NoError(t, err)
		o := e.(*Ollama)
		assert.Equal(t, "custom-model", o.model)
		assert.Equal(t, "http://ollama:11434", o.host)
	})

	t.Run("openai needs a key", func(t *testing.T) {
		_, err := New(Config{Provider: "openai"})
		assert.ErrorContains(t, err, "API key")
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "word2vec"})
		assert.ErrorContains(t, err, "unsupported embedding provider")
	})
}

func TestOllama_Embed(t *testing.T) {
	t.Run("successful embedding", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/embeddings", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var req ollamaRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test text", req.Prompt)
			assert.Equal(t, defaultOllamaModel, req.Model)

			embedding := make([]float64, 768)
			for i := range embedding {
				embedding[i] = float64(i) / 768.0
			}
			json.NewEncoder(w).Encode(ollamaResponse{Embedding: embedding})
		}))
		defer server.Close()

		e := NewOllama(Config{Host: server.URL})
		embedding, err := e.Embed(context.Background(), "test text")

		require.NoError(t, err)
		assert.Len(t, embedding, 768)
		assert.InDelta(t, 0.5, embedding[384], 1e-6)
	})

	t.Run("handles error response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("internal error"))
		}))
		defer server.Close()

		_, err := NewOllama(Config{Host: server.URL}).Embed(context.Background(), "test text")
		assert.ErrorContains(t, err, "status 500")
	})

	t.Run("handles empty embedding", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float64{}})
		}))
		defer server.Close()

		_, err := NewOllama(Config{Host: server.URL}).Embed(context.Background(), "test text")
		assert.ErrorIs(t, err, ErrEmptyEmbedding)
	})
}

func TestOllama_Ping(t *testing.T) {
	tags := func(names ...string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/tags", r.URL.Path)
			models := make([]map[string]string, len(names))
			for i, n := range names {
				models[i] = map[string]string{"name": n}
			}
			json.NewEncoder(w).Encode(map[string]any{"models": models})
		}
	}

	t.Run("model found", func(t *testing.T) {
		server := httptest.NewServer(tags("nomic-embed-text:latest", "llama2:latest"))
		defer server.Close()

		assert.NoError(t, NewOllama(Config{Host: server.URL}).Ping(context.Background()))
	})

	t.Run("model not found", func(t *testing.T) {
		server := httptest.NewServer(tags("llama2:latest"))
		defer server.Close()

		err := NewOllama(Config{Host: server.URL}).Ping(context.Background())
		assert.ErrorContains(t, err, "not found")
	})
}

func TestOpenAI_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, defaultOpenAIModel, req.Model)
		assert.Equal(t, []string{"hello"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer server.Close()

	e, err := New(Config{Provider: "openai", APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	t.Run("embed", func(t *testing.T) {
		v, err := e.Embed(context.Background(), "hello")
		require.NoError(t, err)
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)
	})

	t.Run("dimension", func(t *testing.T) {
		server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"data": []map[string]any{{"index": 0, "embedding": []float32{1, 2, 3, 4}}},
			})
		})
		n, err := Dimension(context.Background(), e)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})
}

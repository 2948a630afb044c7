package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaChat(t *testing.T) {
	var gotReq ollamaChatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:           "test-model",
			Message:         ollamaMessage{Role: "assistant", Content: "hello there"},
			Done:            true,
			DoneReason:      "stop",
			PromptEvalCount: 12,
			EvalCount:       5,
		})
	}))
	defer server.Close()

	provider := NewOllamaProvider(&ProviderConfig{
		Endpoint: server.URL,
		Model:    "test-model",
	})

	resp, err := provider.Chat(context.Background(), &ChatRequest{
		SystemPrompt: "be brief",
		Messages: []Message{
			{Role: "user", Content: "hi"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, 12, resp.PromptTokens)
	assert.Equal(t, 5, resp.CompletionTokens)
	assert.Equal(t, 17, resp.TokensUsed)
	assert.Equal(t, "stop", resp.FinishReason)

	// Request must be non-streaming with the system prompt first.
	assert.False(t, gotReq.Stream)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "be brief", gotReq.Messages[0].Content)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
}

func TestOllamaChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	provider := NewOllamaProvider(&ProviderConfig{Endpoint: server.URL})

	_, err := provider.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestOllamaAvailable(t *testing.T) {
	t.Run("with models", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/tags", r.URL.Path)
			w.Write([]byte(`{"models":[{"name":"llama3"}]}`))
		}))
		defer server.Close()

		provider := NewOllamaProvider(&ProviderConfig{Endpoint: server.URL})
		assert.True(t, provider.Available())
	})

	t.Run("no models", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"models":[]}`))
		}))
		defer server.Close()

		provider := NewOllamaProvider(&ProviderConfig{Endpoint: server.URL})
		assert.False(t, provider.Available())
	})

	t.Run("unreachable", func(t *testing.T) {
		provider := NewOllamaProvider(&ProviderConfig{Endpoint: "http://127.0.0.1:1"})
		assert.False(t, provider.Available())
	})
}

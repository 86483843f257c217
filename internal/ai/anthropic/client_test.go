package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/brendankhow/IS469-G2-Group4/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "{\"tool_name\": \"finish\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	g, err := NewGenerator("test-key", "", nil, option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), ai.Request{System: "json only", Prompt: "next?", Temperature: 0.3, MaxTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, `{"tool_name": "finish"}`, out)

	assert.Equal(t, "claude-sonnet-4-20250514", body["model"])
	assert.InDelta(t, 300, body["max_tokens"], 1e-9)
	assert.InDelta(t, 0.3, body["temperature"], 1e-9)
	system, ok := body["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer server.Close()

	g, err := NewGenerator("test-key", "claude-3-5-haiku-latest", nil, option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)
	assert.Equal(t, "claude-3-5-haiku-latest", g.Model())

	_, err = g.Generate(context.Background(), ai.Request{Prompt: "hi"})
	assert.Error(t, err)
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	_, err := NewGenerator(" ", "", nil)
	assert.Error(t, err)
}

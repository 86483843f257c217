package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brendankhow/IS469-G2-Group4/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.2:1b","message":{"role":"assistant","content":" {\"tool_name\":\"finish\"} "},"done":true}`))
	}))
	defer server.Close()

	g, err := NewGenerator(server.URL+"/", "llama3.2:1b", server.Client(), nil)
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), ai.Request{
		System:      "json only",
		Prompt:      "next?",
		Temperature: 0.3,
		MaxTokens:   300,
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"tool_name":"finish"}`, out)

	assert.Equal(t, "llama3.2:1b", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, "json", got.Format)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "next?", got.Messages[1].Content)
	assert.InDelta(t, 0.3, got.Options["temperature"], 1e-9)
	assert.InDelta(t, 300, got.Options["num_predict"], 1e-9)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"model not loaded"}`},
		{name: "error field", status: http.StatusOK, body: `{"error":"model 'x' not found"}`},
		{name: "bad json", status: http.StatusOK, body: `not json`},
		{name: "empty content", status: http.StatusOK, body: `{"message":{"role":"assistant","content":""},"done":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			g, err := NewGenerator(server.URL, "m", server.Client(), nil)
			require.NoError(t, err)

			_, err = g.Generate(context.Background(), ai.Request{Prompt: "hi"})
			assert.Error(t, err)
		})
	}
}

func TestNewGeneratorDefaults(t *testing.T) {
	_, err := NewGenerator("", " ", nil, nil)
	assert.Error(t, err)

	g, err := NewGenerator("", "llama3.2:1b", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, g.baseURL)
	assert.Equal(t, "llama3.2:1b", g.Model())
}

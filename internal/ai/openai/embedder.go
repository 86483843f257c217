package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingURL is the OpenAI compatible endpoint of a local Ollama.
	DefaultEmbeddingURL   = "http://localhost:11434/v1"
	DefaultEmbeddingModel = "all-minilm"
)

type embeddingCreator interface {
	CreateEmbeddings(ctx context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error)
}

// Embedder turns query text into a vector for similarity search.
type Embedder struct {
	client embeddingCreator
	model  string
}

// NewEmbedder creates an embedder. Local servers accept any api key, so an
// empty one is replaced with a placeholder.
func NewEmbedder(apiKey, baseURL, model string) *Embedder {
	if strings.TrimSpace(apiKey) == "" {
		apiKey = "ollama"
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultEmbeddingURL
	}
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{client: newClient(apiKey, baseURL), model: model}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text to embed must not be empty")
	}

	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("embedding response is empty")
	}
	return resp.Data[0].Embedding, nil
}

package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/brendankhow/IS469-G2-Group4/internal/ai"
	"go.uber.org/zap"
)

const (
	DefaultModel     = anthropic.ModelClaudeSonnet4_20250514
	defaultMaxTokens = 1024
)

type messageCreator interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Generator sends single-turn prompts to the Messages API.
type Generator struct {
	messages messageCreator
	model    anthropic.Model
	logger   *zap.Logger
}

// NewGenerator creates a generator. Extra request options (base url, retries)
// are passed to the SDK client.
func NewGenerator(apiKey, model string, logger *zap.Logger, opts ...option.RequestOption) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	m := anthropic.Model(strings.TrimSpace(model))
	if m == "" {
		m = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &Generator{messages: &client.Messages, model: m, logger: logger}, nil
}

// Generate implements ai.Generator. The Messages API has no JSON mode, so
// req.JSON relies on the prompt alone.
func (g *Generator) Generate(ctx context.Context, req ai.Request) (string, error) {
	if g == nil || g.messages == nil {
		return "", errors.New("anthropic generator is not initialized")
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       g.model,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if system := strings.TrimSpace(req.System); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := g.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			builder.WriteString(variant.Text)
		}
	}

	g.logger.Debug("anthropic message finished",
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)

	out := strings.TrimSpace(builder.String())
	if out == "" {
		return "", errors.New("anthropic returned empty response")
	}
	return out, nil
}

func (g *Generator) Model() string { return string(g.model) }

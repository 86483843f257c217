package ai

import (
	"context"
)

// Request is a single prompt sent to a text generation transport.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// JSON asks the transport to force a JSON response when it supports it.
	JSON bool
}

// Generator is one text generation transport (a hosted API or a local server).
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Profile describes a backend for accounting and reporting.
type Profile struct {
	Label           string
	Model           string
	Provider        string
	Size            string
	CostPer1KTokens float64

	DecisionTemperature float64
	DecisionMaxTokens   int
	RankingMaxTokens    int
	JSONMode            bool
}

const (
	defaultDecisionTemperature = 0.3
	defaultDecisionMaxTokens   = 300
	defaultRankingMaxTokens    = 4000
)

// LargeProfile is the high-capability remote backend preset.
func LargeProfile() Profile {
	return Profile{
		Label:               "DeepSeek-V3",
		Model:               "deepseek-ai/DeepSeek-V3-0324",
		Provider:            "huggingface",
		Size:                "large",
		CostPer1KTokens:     0.002,
		DecisionTemperature: defaultDecisionTemperature,
		DecisionMaxTokens:   defaultDecisionMaxTokens,
		RankingMaxTokens:    defaultRankingMaxTokens,
	}
}

// SmallProfile is the fast, free local backend preset.
func SmallProfile() Profile {
	return Profile{
		Label:               "Llama3.2:1B",
		Model:               "llama3.2:1b",
		Provider:            "ollama",
		Size:                "small",
		DecisionTemperature: defaultDecisionTemperature,
		DecisionMaxTokens:   defaultDecisionMaxTokens,
		RankingMaxTokens:    defaultRankingMaxTokens,
		JSONMode:            true,
	}
}

func (p Profile) withDefaults() Profile {
	if p.DecisionTemperature <= 0 {
		p.DecisionTemperature = defaultDecisionTemperature
	}
	if p.DecisionMaxTokens <= 0 {
		p.DecisionMaxTokens = defaultDecisionMaxTokens
	}
	if p.RankingMaxTokens <= 0 {
		p.RankingMaxTokens = defaultRankingMaxTokens
	}
	if p.Label == "" {
		p.Label = p.Model
	}
	return p
}

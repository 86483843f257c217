package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/brendankhow/IS469-G2-Group4/internal/logger"
	"github.com/brendankhow/IS469-G2-Group4/internal/utils"
	"go.uber.org/zap"
)

const defaultMaxLogLength = 200

// Router is a decision backend built on a text generation transport. All
// backend output is validated before use; a decision that cannot be used is
// replaced by the shared fallback.
type Router struct {
	generator Generator
	profile   Profile
	logger    *zap.Logger
	maxLogLen int

	mu    sync.Mutex
	usage usage
}

type usage struct {
	calls     int
	tokens    int
	cost      float64
	fallbacks int
	errors    int
	latency   time.Duration
}

func NewRouter(generator Generator, profile Profile, log *zap.Logger, maxLogLength int) *Router {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	profile = profile.withDefaults()

	return &Router{
		generator: generator,
		profile:   profile,
		logger:    logger.WithBackendFields(log, profile.Provider, profile.Model, profile.Size),
		maxLogLen: maxLogLength,
	}
}

func (r *Router) Profile() Profile { return r.profile }

// DecideNextAction asks the model for the next capability. It never returns an
// error: transport and parse failures produce a fallback decision.
func (r *Router) DecideNextAction(ctx context.Context, view agent.StateView, specs []agent.CapabilitySpec) (agent.Decision, error) {
	prompt := buildDecisionPrompt(view, specs)

	raw, err := r.generate(ctx, "decision", Request{
		System:      decisionSystemPrompt,
		Prompt:      prompt,
		Temperature: r.profile.DecisionTemperature,
		MaxTokens:   r.profile.DecisionMaxTokens,
		JSON:        r.profile.JSONMode,
	})
	if err != nil {
		return r.fallback(view, specs, err), nil
	}

	decision, err := parseDecision(raw)
	if err != nil {
		return r.fallback(view, specs, err), nil
	}

	return decision, nil
}

// RankCandidates asks the model to score every candidate. Failures are
// returned so the ranking capability can leave rankings untouched.
func (r *Router) RankCandidates(ctx context.Context, candidates []agent.Candidate, query string, temperature float64) ([]agent.Assessment, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	raw, err := r.generate(ctx, "ranking", Request{
		System:      rankSystemPrompt,
		Prompt:      buildRankPrompt(candidates, query),
		Temperature: temperature,
		MaxTokens:   r.profile.RankingMaxTokens,
		JSON:        r.profile.JSONMode,
	})
	if err != nil {
		return nil, fmt.Errorf("%s ranking: %w", r.profile.Label, err)
	}

	assessments, err := parseRankings(raw)
	if err != nil {
		r.countError()
		r.logger.Warn("unusable ranking response",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
		)
		return nil, fmt.Errorf("%s ranking: %w", r.profile.Label, err)
	}

	return assessments, nil
}

// Stats returns a snapshot of the usage counters.
func (r *Router) Stats() agent.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := agent.Stats{
		Model:        r.profile.Model,
		Provider:     r.profile.Provider,
		Size:         r.profile.Size,
		TotalCalls:   r.usage.calls,
		TotalTokens:  r.usage.tokens,
		TotalCost:    r.usage.cost,
		Fallbacks:    r.usage.fallbacks,
		Errors:       r.usage.errors,
		TotalLatency: r.usage.latency.Seconds(),
	}
	if s.TotalCalls > 0 {
		s.AvgTokensPerCall = float64(s.TotalTokens) / float64(s.TotalCalls)
	}
	return s
}

func (r *Router) generate(ctx context.Context, purpose string, req Request) (string, error) {
	if r.generator == nil {
		r.countError()
		return "", errors.New("backend generator is not configured")
	}

	r.logger.Debug("generate request",
		zap.String("purpose", purpose),
		zap.Int("prompt_length", utf8.RuneCountInString(req.Prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(req.Prompt, r.maxLogLen)),
	)

	started := time.Now()
	raw, err := r.generator.Generate(ctx, req)
	latency := time.Since(started)
	if err != nil {
		r.countError()
		return "", err
	}

	r.logger.Debug("generate response",
		zap.String("purpose", purpose),
		zap.Duration("latency", latency),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	tokens := utils.WordCount(req.Prompt, raw)

	r.mu.Lock()
	r.usage.calls++
	r.usage.tokens += tokens
	r.usage.cost += float64(tokens) / 1000 * r.profile.CostPer1KTokens
	r.usage.latency += latency
	r.mu.Unlock()

	return raw, nil
}

func (r *Router) fallback(view agent.StateView, specs []agent.CapabilitySpec, cause error) agent.Decision {
	r.mu.Lock()
	r.usage.fallbacks++
	r.mu.Unlock()

	decision := agent.Fallback(view, specs)
	r.logger.Warn("decision unusable, using fallback",
		zap.Error(cause),
		zap.String(logger.FieldCapability, string(decision.Capability)),
	)
	return decision
}

func (r *Router) countError() {
	r.mu.Lock()
	r.usage.errors++
	r.mu.Unlock()
}

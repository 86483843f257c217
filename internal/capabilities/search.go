package capabilities

import (
	"context"
	"errors"
	"fmt"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"go.uber.org/zap"
)

const (
	DefaultTopK = 10
	MaxTopK     = 50
)

type SearchOptions struct {
	DefaultTopK      int
	DefaultThreshold float64
}

type searchParams struct {
	TopK      int     `mapstructure:"top_k"`
	Threshold float64 `mapstructure:"threshold"`
}

// Search runs semantic resume search and merges the matches into the state.
type Search struct {
	source  CandidateSource
	options SearchOptions
	logger  *zap.Logger
}

func NewSearch(source CandidateSource, options SearchOptions, logger *zap.Logger) *Search {
	if options.DefaultTopK <= 0 {
		options.DefaultTopK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Search{source: source, options: options, logger: logger}
}

func (s *Search) Name() agent.CapabilityName { return agent.SearchCandidates }

func (s *Search) Description() string {
	return fmt.Sprintf("Search for candidates matching the job requirements using semantic resume search. Parameters: top_k (default %d, max %d), threshold (0-1 minimum similarity).", s.options.DefaultTopK, MaxTopK)
}

func (s *Search) Execute(ctx context.Context, state *agent.RunState, params agent.Params) (agent.Payload, error) {
	if s.source == nil {
		return nil, errors.New("candidate source is not configured")
	}

	p := s.params(params)

	found, err := s.source.Search(ctx, state.Query(), p.TopK, p.Threshold)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}

	added := state.MergeCandidates(found)

	s.logger.Info("candidate search finished",
		zap.Int("top_k", p.TopK),
		zap.Float64("threshold", p.Threshold),
		zap.Int("matches", len(found)),
		zap.Int("added", added),
		zap.Int("total", state.Len()),
	)

	return agent.Payload{
		"count": len(found),
		"added": added,
		"total": state.Len(),
	}, nil
}

// params applies defaults and bounds. Unreadable parameters fall back to the
// defaults instead of failing the search.
func (s *Search) params(raw agent.Params) searchParams {
	p := searchParams{TopK: s.options.DefaultTopK, Threshold: s.options.DefaultThreshold}
	if err := decodeParams(raw, &p); err != nil {
		s.logger.Warn("ignoring unreadable search parameters", zap.Error(err), zap.Any("params", raw))
		p = searchParams{TopK: s.options.DefaultTopK, Threshold: s.options.DefaultThreshold}
	}

	switch {
	case p.TopK <= 0:
		p.TopK = s.options.DefaultTopK
	case p.TopK > MaxTopK:
		p.TopK = MaxTopK
	}
	switch {
	case p.Threshold < 0:
		p.Threshold = 0
	case p.Threshold > 1:
		p.Threshold = 1
	}
	return p
}

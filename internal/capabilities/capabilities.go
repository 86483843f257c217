// Package capabilities holds the units of work the orchestration loop can
// choose from: candidate search, the two enrichments and ranking.
package capabilities

import (
	"context"
	"fmt"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/mitchellh/mapstructure"
)

// CandidateSource finds candidates whose resumes match a query.
type CandidateSource interface {
	Search(ctx context.Context, query string, limit int, threshold float64) ([]agent.Candidate, error)
}

// PortfolioSource returns GitHub evidence for a candidate. A nil portfolio
// with a nil error means no data.
type PortfolioSource interface {
	Portfolio(ctx context.Context, candidate agent.Candidate, query string) (*agent.Portfolio, error)
}

// PersonalitySource returns the latest trait assessment, or nil when there is
// none.
type PersonalitySource interface {
	Personality(ctx context.Context, studentID string) (*agent.Personality, error)
}

// Ranker scores candidates against a query. agent.Backend satisfies it.
type Ranker interface {
	RankCandidates(ctx context.Context, candidates []agent.Candidate, query string, temperature float64) ([]agent.Assessment, error)
}

// decodeParams copies loosely typed backend parameters into out. Numbers
// given as strings are accepted.
func decodeParams(params agent.Params, out any) error {
	if len(params) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("create params decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(params)); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

func snapshot(state *agent.RunState) []agent.Candidate {
	shared := state.Candidates()
	out := make([]agent.Candidate, 0, len(shared))
	for _, c := range shared {
		out = append(out, c.Clone())
	}
	return out
}

package agent

import (
	"context"
	"fmt"
)

// DecisionSource tells whether a decision came from the backend or from the
// rule-based fallback.
type DecisionSource string

const (
	SourceBackend  DecisionSource = "backend"
	SourceFallback DecisionSource = "fallback"
)

// Decision is a proposal for the next capability to run.
type Decision struct {
	Capability CapabilityName `json:"tool_name"`
	Rationale  string         `json:"reasoning"`
	Parameters Params         `json:"parameters,omitempty"`
	Confidence float64        `json:"confidence"`
	Source     DecisionSource `json:"source"`
}

// Stats are the cumulative usage counters of a decision backend.
type Stats struct {
	Model            string  `json:"model"`
	Provider         string  `json:"provider"`
	Size             string  `json:"size"`
	TotalCalls       int     `json:"total_calls"`
	TotalTokens      int     `json:"total_tokens"`
	TotalCost        float64 `json:"total_cost"`
	AvgTokensPerCall float64 `json:"avg_tokens_per_call"`
	Fallbacks        int     `json:"fallbacks"`
	Errors           int     `json:"errors"`
	TotalLatency     float64 `json:"total_latency_seconds"`
}

// Backend proposes the next action and ranks candidates. Implementations must
// not hold on to or modify the candidates they receive.
type Backend interface {
	DecideNextAction(ctx context.Context, view StateView, specs []CapabilitySpec) (Decision, error)
	RankCandidates(ctx context.Context, candidates []Candidate, query string, temperature float64) ([]Assessment, error)
	Stats() Stats
}

// GoalReached evaluates the success predicate: at least minCandidates rankings
// scoring minFitScore or more. No rankings never satisfies it.
func GoalReached(rankings []RankedCandidate, minCandidates int, minFitScore float64) bool {
	if len(rankings) == 0 {
		return false
	}
	return HighQualityCount(rankings, minFitScore) >= minCandidates
}

func HighQualityCount(rankings []RankedCandidate, minFitScore float64) int {
	n := 0
	for _, r := range rankings {
		if r.FitScore >= minFitScore {
			n++
		}
	}
	return n
}

const (
	fallbackTopK   = 5
	maxFallbackTop = 50
)

var enrichmentOrder = []struct {
	name CapabilityName
	kind EnrichmentKind
}{
	{AnalyzeGitHub, EnrichmentGitHub},
	{GetPersonality, EnrichmentPersonality},
}

// Fallback is the deterministic decision used when a backend cannot produce a
// usable proposal. It only proposes capabilities present in specs.
func Fallback(view StateView, specs []CapabilitySpec) Decision {
	offered := make(map[CapabilityName]bool, len(specs))
	for _, s := range specs {
		offered[s.Name] = true
	}

	decide := func(name CapabilityName, why string, params Params) Decision {
		return Decision{
			Capability: name,
			Rationale:  "Fallback: " + why,
			Parameters: params,
			Confidence: 1,
			Source:     SourceFallback,
		}
	}

	if view.Candidates == 0 && offered[SearchCandidates] {
		return decide(SearchCandidates, "no candidates yet", searchParams(view.SearchRuns))
	}

	if view.Candidates > 0 {
		if unenriched := view.Candidates - view.Enriched; unenriched > 0 {
			for _, e := range enrichmentOrder {
				if offered[e.name] && view.Pending[e.kind] > 0 {
					return decide(e.name, fmt.Sprintf("%d candidates not enriched yet", unenriched), nil)
				}
			}
		}

		if !view.RankingsCurrent && offered[RankCandidates] {
			return decide(RankCandidates, "need ranking", nil)
		}
	}

	if view.GoalMet || view.GoalSatisfied {
		return decide(Finish, "goal reached", nil)
	}

	if offered[SearchCandidates] {
		return decide(SearchCandidates, "expanding search for better matches", searchParams(view.SearchRuns))
	}

	if view.Candidates > 0 && offered[RankCandidates] {
		return decide(RankCandidates, "re-ranking with what we have", nil)
	}

	return decide(Finish, "nothing left to do", nil)
}

func searchParams(previousRuns int) Params {
	topK := fallbackTopK * (previousRuns + 1)
	if topK > maxFallbackTop {
		topK = maxFallbackTop
	}
	return Params{"top_k": topK, "threshold": 0.0}
}

package capabilities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"go.uber.org/zap"
)

const (
	DefaultFitScore           = 5.0
	DefaultRankingTemperature = 0.7

	highTraitThreshold = 0.7
	missingDataBullet  = "Evaluation data was missing for this candidate; a neutral default score was assigned."
	balancedTraits     = "Balanced traits"
)

var (
	ErrNothingToRank = errors.New("no candidates to rank")
	ErrNoAssessments = errors.New("ranking backend returned no assessments")
)

type RankingOptions struct {
	DefaultFitScore    float64
	DefaultTemperature float64
}

type rankingParams struct {
	Temperature float64 `mapstructure:"temperature"`
}

// Ranking scores every candidate with the active backend and replaces the
// rankings in one step.
type Ranking struct {
	ranker  Ranker
	options RankingOptions
	logger  *zap.Logger
}

func NewRanking(ranker Ranker, options RankingOptions, logger *zap.Logger) *Ranking {
	if options.DefaultTemperature <= 0 {
		options.DefaultTemperature = DefaultRankingTemperature
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranking{ranker: ranker, options: options, logger: logger}
}

func (r *Ranking) Name() agent.CapabilityName { return agent.RankCandidates }

func (r *Ranking) Description() string {
	return "Holistically evaluate and rank all candidates, using enrichment data when present. Provides fit scores (0-10) and detailed evaluations. Parameters: temperature (optional)."
}

func (r *Ranking) Execute(ctx context.Context, state *agent.RunState, params agent.Params) (agent.Payload, error) {
	if r.ranker == nil {
		return nil, errors.New("ranker is not configured")
	}
	if state.Len() == 0 {
		return nil, ErrNothingToRank
	}

	p := rankingParams{Temperature: r.options.DefaultTemperature}
	if err := decodeParams(params, &p); err != nil || p.Temperature < 0 {
		r.logger.Warn("ignoring unreadable ranking parameters", zap.Error(err), zap.Any("params", params))
		p.Temperature = r.options.DefaultTemperature
	}

	candidates := snapshot(state)
	assessments, err := r.ranker.RankCandidates(ctx, candidates, state.Query(), p.Temperature)
	if err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}
	if len(assessments) == 0 {
		return nil, ErrNoAssessments
	}

	rankings, defaulted := MergeAssessments(candidates, assessments, r.options.DefaultFitScore)
	if err := state.ReplaceRankings(rankings); err != nil {
		return nil, err
	}

	highQuality := agent.HighQualityCount(rankings, state.MinFitScore())
	r.logger.Info("candidates ranked",
		zap.Int("count", len(rankings)),
		zap.Int("high_quality", highQuality),
		zap.Int("defaulted", defaulted),
	)

	return agent.Payload{
		"count":              len(rankings),
		"high_quality_count": highQuality,
		"defaulted":          defaulted,
	}, nil
}

// MergeAssessments produces exactly one ranking per candidate, in candidate
// order. An assessment is matched by student ID, then by its 1-based index,
// then by position when it carries neither. Candidates left without a usable
// score get defaultScore and are flagged as missing data. It returns the
// number of defaulted candidates.
func MergeAssessments(candidates []agent.Candidate, assessments []agent.Assessment, defaultScore float64) ([]agent.RankedCandidate, int) {
	byID := make(map[string]int, len(assessments))
	byIndex := make(map[int]int, len(assessments))
	for i, a := range assessments {
		if id := strings.TrimSpace(a.ID); id != "" {
			if _, ok := byID[id]; !ok {
				byID[id] = i
			}
		}
		if a.Index > 0 {
			if _, ok := byIndex[a.Index]; !ok {
				byIndex[a.Index] = i
			}
		}
	}

	used := make([]bool, len(assessments))
	take := func(i int, ok bool) (agent.Assessment, bool) {
		if !ok || used[i] {
			return agent.Assessment{}, false
		}
		used[i] = true
		return assessments[i], true
	}

	rankings := make([]agent.RankedCandidate, 0, len(candidates))
	defaulted := 0
	for pos, c := range candidates {
		i, ok := byID[c.ID]
		a, found := take(i, ok)
		if !found {
			i, ok = byIndex[pos+1]
			a, found = take(i, ok)
		}
		if !found && pos < len(assessments) && assessments[pos].ID == "" && assessments[pos].Index == 0 {
			a, found = take(pos, true)
		}

		ranked := agent.RankedCandidate{Candidate: c.Clone(), NextStep: agent.NextStepReview}
		if found && a.HasScore {
			ranked.FitScore = a.FitScore
			ranked.EvaluationBullets = a.EvaluationBullets
			ranked.NotableProjects = a.NotableProjects
			ranked.NextStep = a.NextStep
			ranked.PersonalityInsight = a.PersonalityInsight
		} else {
			defaulted++
			ranked.FitScore = defaultScore
			ranked.MissingData = true
			if found {
				ranked.EvaluationBullets = append(ranked.EvaluationBullets, a.EvaluationBullets...)
				ranked.NotableProjects = a.NotableProjects
			}
			ranked.EvaluationBullets = append(ranked.EvaluationBullets, missingDataBullet)
		}
		if ranked.NextStep == "" {
			ranked.NextStep = agent.NextStepReview
		}
		if ranked.PersonalityInsight == "" && c.Personality != nil {
			ranked.PersonalityInsight = PersonalityInsight(c.Personality)
		}

		rankings = append(rankings, ranked)
	}

	return rankings, defaulted
}

// PersonalityInsight summarises the traits scoring above 0.7.
func PersonalityInsight(p *agent.Personality) string {
	traits := []struct {
		name  string
		value float64
	}{
		{"conscientiousness", p.Conscientiousness},
		{"extraversion", p.Extraversion},
		{"openness", p.Openness},
		{"agreeableness", p.Agreeableness},
		{"neuroticism", p.Neuroticism},
	}

	var high []string
	for _, t := range traits {
		if t.value > highTraitThreshold {
			high = append(high, t.name)
		}
	}
	if len(high) == 0 {
		return balancedTraits
	}
	return "High " + strings.Join(high, ", ")
}

// Package compare runs one request against two decision backends and scores
// the outcomes against each other.
package compare

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"go.uber.org/zap"
)

// Tie is the winner name used when both contenders score the same points.
const Tie = "Tie"

const (
	goalPoints    = 3
	qualityPoints = 2
	speedPoints   = 1
	costPoints    = 1
)

// Runner runs a single search. *agent.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req agent.Request) (*agent.Report, error)
}

// Contender is a named runner taking part in a comparison.
type Contender struct {
	Name   string
	Runner Runner
}

// Result summarises one contender's run.
type Result struct {
	Name            string             `json:"name"`
	Model           string             `json:"model"`
	Provider        string             `json:"provider"`
	Size            string             `json:"size"`
	CandidatesFound int                `json:"candidates_found"`
	Elapsed         time.Duration      `json:"elapsed"`
	Calls           int                `json:"llm_calls"`
	Tokens          int                `json:"total_tokens"`
	Cost            float64            `json:"estimated_cost"`
	GoalMet         bool               `json:"goal_achieved"`
	Iterations      int                `json:"iterations"`
	TopScore        *float64           `json:"top_candidate_score,omitempty"`
	AverageScore    *float64           `json:"avg_candidate_score,omitempty"`
	Trace           []agent.TraceEntry `json:"decision_trace"`
	Points          int                `json:"points"`
}

type Metrics struct {
	SpeedupFactor       float64            `json:"speedup_factor"`
	CostSavings         float64            `json:"cost_savings"`
	QualityDelta        float64            `json:"quality_delta"`
	IterationEfficiency map[string]float64 `json:"iteration_efficiency"`
	DecisionCountDelta  int                `json:"decision_count_delta"`
}

type Comparison struct {
	Query        string    `json:"query"`
	Timestamp    time.Time `json:"timestamp"`
	A            Result    `json:"a"`
	B            Result    `json:"b"`
	Winner       string    `json:"winner"`
	WinnerReason string    `json:"winner_reason"`
	Metrics      Metrics   `json:"comparison_metrics"`
}

type Harness struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Harness {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harness{logger: logger}
}

// Compare runs req against a, then b. Either run failing aborts the
// comparison.
func (h *Harness) Compare(ctx context.Context, req agent.Request, a, b Contender) (*Comparison, error) {
	reportA, err := h.run(ctx, req, a, 1)
	if err != nil {
		return nil, err
	}
	reportB, err := h.run(ctx, req, b, 2)
	if err != nil {
		return nil, err
	}

	c := &Comparison{
		Query:     strings.TrimSpace(req.Query),
		Timestamp: time.Now().UTC(),
		A:         resultOf(a.Name, reportA),
		B:         resultOf(b.Name, reportB),
	}
	c.Winner, c.WinnerReason = score(&c.A, &c.B)
	c.Metrics = metricsOf(c.A, c.B)

	h.logger.Info("comparison finished",
		zap.String("winner", c.Winner),
		zap.Int(a.Name+"_points", c.A.Points),
		zap.Int(b.Name+"_points", c.B.Points),
	)

	return c, nil
}

func (h *Harness) run(ctx context.Context, req agent.Request, c Contender, n int) (*agent.Report, error) {
	h.logger.Info("running contender", zap.String("contender", c.Name), zap.Int("order", n))
	report, err := c.Runner.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", c.Name, err)
	}
	return report, nil
}

func resultOf(name string, r *agent.Report) Result {
	res := Result{
		Name:            name,
		Model:           r.BackendStats.Model,
		Provider:        r.BackendStats.Provider,
		Size:            r.BackendStats.Size,
		CandidatesFound: len(r.FinalRankings),
		Elapsed:         r.Elapsed,
		Calls:           r.BackendStats.TotalCalls,
		Tokens:          r.BackendStats.TotalTokens,
		Cost:            r.BackendStats.TotalCost,
		GoalMet:         r.GoalMet,
		Iterations:      r.Iterations,
		Trace:           r.DecisionTrace,
	}
	if top, ok := r.TopScore(); ok {
		res.TopScore = &top
	}
	if avg, ok := r.AverageScore(); ok {
		res.AverageScore = &avg
	}
	return res
}

func score(a, b *Result) (string, string) {
	var reasons []string

	switch {
	case a.GoalMet && !b.GoalMet:
		a.Points += goalPoints
		reasons = append(reasons, fmt.Sprintf("%s achieved goal, %s didn't", a.Name, b.Name))
	case b.GoalMet && !a.GoalMet:
		b.Points += goalPoints
		reasons = append(reasons, fmt.Sprintf("%s achieved goal, %s didn't", b.Name, a.Name))
	case a.GoalMet && b.GoalMet:
		reasons = append(reasons, "both achieved goal")
	}

	if a.TopScore != nil && b.TopScore != nil {
		switch {
		case *a.TopScore > *b.TopScore:
			a.Points += qualityPoints
			reasons = append(reasons, fmt.Sprintf("%s: higher quality (%.1f vs %.1f)", a.Name, *a.TopScore, *b.TopScore))
		case *b.TopScore > *a.TopScore:
			b.Points += qualityPoints
			reasons = append(reasons, fmt.Sprintf("%s: higher quality (%.1f vs %.1f)", b.Name, *b.TopScore, *a.TopScore))
		}
	}

	switch {
	case a.Elapsed < b.Elapsed:
		a.Points += speedPoints
		reasons = append(reasons, fmt.Sprintf("%s: faster (%s vs %s)", a.Name, a.Elapsed.Round(time.Millisecond), b.Elapsed.Round(time.Millisecond)))
	case b.Elapsed < a.Elapsed:
		b.Points += speedPoints
		reasons = append(reasons, fmt.Sprintf("%s: faster (%s vs %s)", b.Name, b.Elapsed.Round(time.Millisecond), a.Elapsed.Round(time.Millisecond)))
	}

	switch {
	case a.Cost < b.Cost:
		a.Points += costPoints
		reasons = append(reasons, fmt.Sprintf("%s: cheaper ($%.4f vs $%.4f)", a.Name, a.Cost, b.Cost))
	case b.Cost < a.Cost:
		b.Points += costPoints
		reasons = append(reasons, fmt.Sprintf("%s: cheaper ($%.4f vs $%.4f)", b.Name, b.Cost, a.Cost))
	}

	detail := strings.Join(reasons, "; ")
	switch {
	case a.Points > b.Points:
		return a.Name, fmt.Sprintf("%s wins (%d vs %d points). %s", a.Name, a.Points, b.Points, detail)
	case b.Points > a.Points:
		return b.Name, fmt.Sprintf("%s wins (%d vs %d points). %s", b.Name, b.Points, a.Points, detail)
	default:
		return Tie, fmt.Sprintf("tie (%d points each). %s", a.Points, detail)
	}
}

func metricsOf(a, b Result) Metrics {
	m := Metrics{
		CostSavings:        a.Cost - b.Cost,
		DecisionCountDelta: a.Calls - b.Calls,
		IterationEfficiency: map[string]float64{
			a.Name: efficiency(a),
			b.Name: efficiency(b),
		},
	}
	if b.Elapsed > 0 {
		m.SpeedupFactor = a.Elapsed.Seconds() / b.Elapsed.Seconds()
	}
	if a.TopScore != nil && b.TopScore != nil {
		m.QualityDelta = *a.TopScore - *b.TopScore
	}
	return m
}

func efficiency(r Result) float64 {
	if r.Iterations == 0 {
		return 0
	}
	return float64(r.CandidatesFound) / float64(r.Iterations)
}

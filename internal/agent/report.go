package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Status is the state of the orchestration state machine.
type Status string

const (
	StatusRunning           Status = "running"
	StatusGoalMet           Status = "goal_met"
	StatusExhausted         Status = "exhausted"
	StatusStoppedByDecision Status = "stopped_by_decision"
)

// Terminal reports whether no further iterations follow the status.
func (s Status) Terminal() bool {
	return s == StatusGoalMet || s == StatusExhausted || s == StatusStoppedByDecision
}

const MessageNoCandidates = "no candidates found"

// Report is everything a caller gets back from a run.
type Report struct {
	RunID              string            `json:"run_id"`
	Query              string            `json:"query"`
	Status             Status            `json:"status"`
	FinalRankings      []RankedCandidate `json:"final_rankings"`
	DecisionTrace      []TraceEntry      `json:"decision_trace"`
	GoalMet            bool              `json:"goal_met"`
	Iterations         int               `json:"iterations"`
	TotalExecutionTime time.Duration     `json:"total_execution_time"`
	Elapsed            time.Duration     `json:"elapsed"`
	BackendStats       Stats             `json:"backend_stats"`
	CandidatesFound    int               `json:"candidates_found"`
	EnrichedCount      int               `json:"enriched_count"`
	ToolsUsed          []CapabilityName  `json:"tools_used"`
	Message            string            `json:"message,omitempty"`
	Canceled           bool              `json:"canceled,omitempty"`
	StartedAt          time.Time         `json:"started_at"`
}

// TopScore returns the best fit score in the report and false when nothing
// was ranked.
func (r *Report) TopScore() (float64, bool) {
	if len(r.FinalRankings) == 0 {
		return 0, false
	}
	top := r.FinalRankings[0].FitScore
	for _, c := range r.FinalRankings[1:] {
		if c.FitScore > top {
			top = c.FitScore
		}
	}
	return top, true
}

func (r *Report) AverageScore() (float64, bool) {
	if len(r.FinalRankings) == 0 {
		return 0, false
	}
	var sum float64
	for _, c := range r.FinalRankings {
		sum += c.FitScore
	}
	return sum / float64(len(r.FinalRankings)), true
}

// ByNextStep groups ranked candidates by the recommended next step.
func (r *Report) ByNextStep() map[NextStep][]string {
	report := make(map[NextStep][]string)
	for _, c := range r.FinalRankings {
		report[c.NextStep] = append(report[c.NextStep], fmt.Sprintf("%s (%s) score=%.1f", c.Name, c.ID, c.FitScore))
	}
	return report
}

// DumpToTmpFile writes the report as indented JSON to a new temp file and
// returns its name.
func (r *Report) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "talentscout_report_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// WriteFile writes the report as indented JSON to path.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

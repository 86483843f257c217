package agent

import (
	"errors"
	"fmt"
	"time"
)

var ErrRankingsExceedCandidates = errors.New("rankings exceed candidates")

// TraceEntry is one executed (or skipped) capability call. Entries are never
// modified after they are appended.
type TraceEntry struct {
	Iteration  int            `json:"iteration"`
	Capability CapabilityName `json:"capability"`
	Rationale  string         `json:"rationale"`
	Confidence float64        `json:"confidence"`
	Source     DecisionSource `json:"source"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Duration   time.Duration  `json:"duration"`
	At         time.Time      `json:"at"`
}

// RunState is the mutable record of one search. It is owned by a single
// orchestrator run and is not safe for concurrent use.
type RunState struct {
	query string

	candidates []*Candidate
	index      map[string]int

	rankings []RankedCandidate

	iterations    int
	maxIterations int
	minCandidates int
	minFitScore   float64
	goalMet       bool

	trace     []TraceEntry
	toolsUsed []CapabilityName
	execTime  time.Duration
}

// NewRunState creates a fresh state for a single search.
func NewRunState(query string, minCandidates int, minFitScore float64, maxIterations int) *RunState {
	return &RunState{
		query:         query,
		index:         make(map[string]int),
		maxIterations: maxIterations,
		minCandidates: minCandidates,
		minFitScore:   minFitScore,
	}
}

func (s *RunState) Query() string        { return s.query }
func (s *RunState) Iterations() int      { return s.iterations }
func (s *RunState) MaxIterations() int   { return s.maxIterations }
func (s *RunState) MinCandidates() int   { return s.minCandidates }
func (s *RunState) MinFitScore() float64 { return s.minFitScore }
func (s *RunState) GoalMet() bool        { return s.goalMet }

// Candidates returns the candidate records in retrieval order. The records
// are shared with the state so capabilities can attach enrichment.
func (s *RunState) Candidates() []*Candidate {
	return append([]*Candidate(nil), s.candidates...)
}

func (s *RunState) Len() int { return len(s.candidates) }

// FindByID returns the candidate with the given identity key or nil.
func (s *RunState) FindByID(id string) *Candidate {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.candidates[i]
}

// MergeCandidates appends new candidates and merges repeated identities into
// the existing record. It returns the number of new candidates.
func (s *RunState) MergeCandidates(found []Candidate) int {
	added := 0
	for i := range found {
		c := found[i]
		if c.ID == "" {
			continue
		}
		if pos, ok := s.index[c.ID]; ok {
			s.candidates[pos].merge(&c)
			continue
		}
		clone := c.Clone()
		s.index[c.ID] = len(s.candidates)
		s.candidates = append(s.candidates, &clone)
		added++
	}
	return added
}

// EnrichedCandidates is derived on every call: candidates with at least one
// enrichment attempted.
func (s *RunState) EnrichedCandidates() []*Candidate {
	out := make([]*Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		if c.Enriched() {
			out = append(out, c)
		}
	}
	return out
}

func (s *RunState) FinalRankings() []RankedCandidate {
	return append([]RankedCandidate(nil), s.rankings...)
}

// ReplaceRankings swaps in a new ranking wholesale.
func (s *RunState) ReplaceRankings(rankings []RankedCandidate) error {
	if len(rankings) > len(s.candidates) {
		return fmt.Errorf("%w: %d > %d", ErrRankingsExceedCandidates, len(rankings), len(s.candidates))
	}
	s.rankings = append([]RankedCandidate(nil), rankings...)
	return nil
}

// RankingsCurrent reports whether the rankings cover exactly the current
// candidate set.
func (s *RunState) RankingsCurrent() bool {
	if len(s.rankings) == 0 || len(s.rankings) != len(s.candidates) {
		return false
	}
	for _, r := range s.rankings {
		if _, ok := s.index[r.ID]; !ok {
			return false
		}
	}
	return true
}

func (s *RunState) Trace() []TraceEntry {
	return append([]TraceEntry(nil), s.trace...)
}

func (s *RunState) ToolsUsed() []CapabilityName {
	return append([]CapabilityName(nil), s.toolsUsed...)
}

// TotalExecutionTime is the sum of capability durations recorded in the trace.
func (s *RunState) TotalExecutionTime() time.Duration { return s.execTime }

func (s *RunState) appendTrace(entry TraceEntry) {
	s.trace = append(s.trace, entry)
	s.toolsUsed = append(s.toolsUsed, entry.Capability)
	s.execTime += entry.Duration
}

func (s *RunState) countRuns(name CapabilityName) int {
	n := 0
	for _, t := range s.trace {
		if t.Capability == name && t.Error != unknownCapabilityError {
			n++
		}
	}
	return n
}

// StateView is a read-only snapshot handed to decision backends.
type StateView struct {
	Query           string
	Iterations      int
	MaxIterations   int
	MinCandidates   int
	MinFitScore     float64
	Candidates      int
	Enriched        int
	Ranked          int
	RankingsCurrent bool
	TopFitScore     float64
	GoalMet         bool
	GoalSatisfied   bool
	SearchRuns      int
	// Pending counts candidates with no attempt yet, per enrichment kind.
	Pending     map[EnrichmentKind]int
	RecentTrace []TraceEntry
}

const recentTraceSize = 3

func (s *RunState) View() StateView {
	v := StateView{
		Query:           s.query,
		Iterations:      s.iterations,
		MaxIterations:   s.maxIterations,
		MinCandidates:   s.minCandidates,
		MinFitScore:     s.minFitScore,
		Candidates:      len(s.candidates),
		Enriched:        len(s.EnrichedCandidates()),
		Ranked:          len(s.rankings),
		RankingsCurrent: s.RankingsCurrent(),
		GoalMet:         s.goalMet,
		GoalSatisfied:   GoalReached(s.rankings, s.minCandidates, s.minFitScore),
		SearchRuns:      s.countRuns(SearchCandidates),
		Pending:         make(map[EnrichmentKind]int, 2),
	}

	for i, r := range s.rankings {
		if i == 0 || r.FitScore > v.TopFitScore {
			v.TopFitScore = r.FitScore
		}
	}

	for _, kind := range []EnrichmentKind{EnrichmentGitHub, EnrichmentPersonality} {
		for _, c := range s.candidates {
			if !c.Attempted(kind) {
				v.Pending[kind]++
			}
		}
	}

	start := len(s.trace) - recentTraceSize
	if start < 0 {
		start = 0
	}
	v.RecentTrace = append([]TraceEntry(nil), s.trace[start:]...)

	return v
}

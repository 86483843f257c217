package agent

import (
	"errors"
	"testing"
	"time"
)

func TestMergeCandidates(t *testing.T) {
	s := NewRunState("go", 1, 7, 5)

	found := []Candidate{
		{ID: "a", Name: "Ada", Skills: []string{"Go"}, ResumeSimilarity: 0.4, GitHubUsername: NoGitHubUsername},
		{ID: ""},
		{ID: "b", Name: "Bob"},
	}
	if added := s.MergeCandidates(found); added != 2 {
		t.Fatalf("expected 2 added, got %d", added)
	}

	found[0].Skills[0] = "mutated"

	added := s.MergeCandidates([]Candidate{
		{ID: "a", Skills: []string{"go", "SQL"}, ResumeSimilarity: 0.9, ResumeExcerpt: "better", GitHubUsername: "ada"},
	})
	if added != 0 {
		t.Fatalf("expected no new candidates, got %d", added)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 candidates, got %d", s.Len())
	}

	a := s.FindByID("a")
	if a == nil {
		t.Fatal("candidate a not found")
	}
	if len(a.Skills) != 2 || a.Skills[0] != "Go" || a.Skills[1] != "SQL" {
		t.Fatalf("unexpected skills: %v", a.Skills)
	}
	if a.ResumeSimilarity != 0.9 || a.ResumeExcerpt != "better" {
		t.Fatalf("expected best match to win: %+v", a)
	}
	if a.GitHubUsername != "ada" {
		t.Fatalf("expected placeholder username to be replaced, got %q", a.GitHubUsername)
	}
	if s.Candidates()[0].ID != "a" || s.Candidates()[1].ID != "b" {
		t.Fatal("retrieval order must be kept")
	}
}

func TestRankings(t *testing.T) {
	s := NewRunState("go", 1, 7, 5)
	s.MergeCandidates([]Candidate{{ID: "a"}, {ID: "b"}})

	if s.RankingsCurrent() {
		t.Fatal("no rankings is never current")
	}

	err := s.ReplaceRankings([]RankedCandidate{
		{Candidate: Candidate{ID: "a"}}, {Candidate: Candidate{ID: "b"}}, {Candidate: Candidate{ID: "c"}},
	})
	if !errors.Is(err, ErrRankingsExceedCandidates) {
		t.Fatalf("expected ErrRankingsExceedCandidates, got %v", err)
	}

	if err := s.ReplaceRankings([]RankedCandidate{{Candidate: Candidate{ID: "b"}}, {Candidate: Candidate{ID: "a"}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.RankingsCurrent() {
		t.Fatal("expected rankings to be current")
	}

	s.MergeCandidates([]Candidate{{ID: "c"}})
	if s.RankingsCurrent() {
		t.Fatal("rankings must go stale after a new candidate")
	}
}

func TestEnrichedCandidates(t *testing.T) {
	s := NewRunState("go", 1, 7, 5)
	s.MergeCandidates([]Candidate{{ID: "a"}, {ID: "b"}})

	s.FindByID("b").MarkAttempted(EnrichmentPersonality)

	enriched := s.EnrichedCandidates()
	if len(enriched) != 1 || enriched[0].ID != "b" {
		t.Fatalf("unexpected enriched set: %+v", enriched)
	}
}

func TestView(t *testing.T) {
	s := NewRunState("go", 2, 7, 5)
	s.MergeCandidates([]Candidate{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	s.FindByID("a").MarkAttempted(EnrichmentGitHub)
	if err := s.ReplaceRankings([]RankedCandidate{
		{Candidate: Candidate{ID: "a"}, FitScore: 6},
		{Candidate: Candidate{ID: "b"}, FitScore: 8},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i <= 4; i++ {
		s.appendTrace(TraceEntry{Iteration: i, Capability: SearchCandidates, Duration: time.Second})
	}
	s.appendTrace(TraceEntry{Iteration: 5, Capability: SearchCandidates, Error: unknownCapabilityError})

	v := s.View()
	if v.Candidates != 3 || v.Enriched != 1 || v.Ranked != 2 {
		t.Fatalf("unexpected counts: %+v", v)
	}
	if v.RankingsCurrent {
		t.Fatal("two rankings for three candidates are not current")
	}
	if v.TopFitScore != 8 {
		t.Fatalf("expected top score 8, got %v", v.TopFitScore)
	}
	if v.GoalSatisfied {
		t.Fatal("only one ranking reaches the threshold")
	}
	if v.Pending[EnrichmentGitHub] != 2 || v.Pending[EnrichmentPersonality] != 3 {
		t.Fatalf("unexpected pending: %v", v.Pending)
	}
	if v.SearchRuns != 4 {
		t.Fatalf("expected 4 search runs, got %d", v.SearchRuns)
	}
	if len(v.RecentTrace) != 3 || v.RecentTrace[0].Iteration != 3 {
		t.Fatalf("unexpected recent trace: %+v", v.RecentTrace)
	}
	if s.TotalExecutionTime() != 4*time.Second {
		t.Fatalf("unexpected execution time: %v", s.TotalExecutionTime())
	}
}

func TestCandidateClone(t *testing.T) {
	c := Candidate{
		ID:          "a",
		Skills:      []string{"Go"},
		Portfolio:   &Portfolio{Projects: []Project{{RepoName: "x"}}, Summary: &PortfolioSummary{Followers: 1}},
		Personality: &Personality{Openness: 0.5},
	}
	c.MarkAttempted(EnrichmentGitHub)

	clone := c.Clone()
	clone.Skills[0] = "Rust"
	clone.Portfolio.Projects[0].RepoName = "y"
	clone.Portfolio.Summary.Followers = 2
	clone.Personality.Openness = 0.9
	clone.MarkAttempted(EnrichmentPersonality)

	if c.Skills[0] != "Go" || c.Portfolio.Projects[0].RepoName != "x" || c.Portfolio.Summary.Followers != 1 {
		t.Fatal("clone shares data with the original")
	}
	if c.Personality.Openness != 0.5 || c.Attempted(EnrichmentPersonality) {
		t.Fatal("clone shares enrichment with the original")
	}
}

package capabilities

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newState(t *testing.T, candidates ...agent.Candidate) *agent.RunState {
	t.Helper()
	state := agent.NewRunState("go backend engineer", 2, 7, 10)
	state.MergeCandidates(candidates)
	return state
}

type fakeSource struct {
	mu        sync.Mutex
	results   [][]agent.Candidate
	err       error
	limits    []int
	threshold []float64
}

func (f *fakeSource) Search(_ context.Context, _ string, limit int, threshold float64) ([]agent.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	f.threshold = append(f.threshold, threshold)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return nil, nil
	}
	out := f.results[0]
	f.results = f.results[1:]
	return out, nil
}

func TestSearchMergesByID(t *testing.T) {
	source := &fakeSource{results: [][]agent.Candidate{
		{{ID: "a", Name: "Ada", ResumeSimilarity: 0.5}, {ID: "b", Name: "Bob"}},
		{{ID: "b", Name: "Bob", ResumeSimilarity: 0.9}, {ID: "c", Name: "Cy"}},
	}}
	search := NewSearch(source, SearchOptions{}, zap.NewNop())
	state := newState(t)

	payload, err := search.Execute(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Equal(t, agent.Payload{"count": 2, "added": 2, "total": 2}, payload)

	payload, err = search.Execute(context.Background(), state, agent.Params{"top_k": "20", "threshold": 0.3})
	require.NoError(t, err)
	assert.Equal(t, agent.Payload{"count": 2, "added": 1, "total": 3}, payload)

	assert.Equal(t, []int{DefaultTopK, 20}, source.limits)
	assert.InDelta(t, 0.3, source.threshold[1], 1e-9)
	assert.InDelta(t, 0.9, state.FindByID("b").ResumeSimilarity, 1e-9)
}

func TestSearchParamsBounds(t *testing.T) {
	search := NewSearch(&fakeSource{}, SearchOptions{DefaultTopK: 7, DefaultThreshold: 0.1}, zap.NewNop())

	tests := []struct {
		name      string
		params    agent.Params
		topK      int
		threshold float64
	}{
		{name: "defaults", params: nil, topK: 7, threshold: 0.1},
		{name: "capped", params: agent.Params{"top_k": 500, "threshold": 3}, topK: MaxTopK, threshold: 1},
		{name: "non positive", params: agent.Params{"top_k": -1, "threshold": -2}, topK: 7, threshold: 0},
		{name: "unreadable", params: agent.Params{"top_k": []string{"x"}}, topK: 7, threshold: 0.1},
		{name: "extra keys ignored", params: agent.Params{"top_k": 15.0, "query": "x"}, topK: 15, threshold: 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := search.params(tt.params)
			assert.Equal(t, tt.topK, p.TopK)
			assert.InDelta(t, tt.threshold, p.Threshold, 1e-9)
		})
	}
}

func TestSearchProviderError(t *testing.T) {
	search := NewSearch(&fakeSource{err: errors.New("db down")}, SearchOptions{}, zap.NewNop())
	state := newState(t)

	_, err := search.Execute(context.Background(), state, nil)
	require.Error(t, err)
	assert.Zero(t, state.Len())
}

type fakePersonality struct {
	mu    sync.Mutex
	calls []string
	data  map[string]*agent.Personality
	fail  map[string]error
	delay map[string]time.Duration
}

func (f *fakePersonality) Personality(ctx context.Context, id string) (*agent.Personality, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	delay := f.delay[id]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	return f.data[id], nil
}

func TestPersonalityPartialFailure(t *testing.T) {
	source := &fakePersonality{
		data: map[string]*agent.Personality{
			"a": {Openness: 0.9},
			"c": {Conscientiousness: 0.8},
		},
		fail: map[string]error{"b": errors.New("timeout talking to db")},
	}
	capability := NewPersonality(source, EnrichOptions{}, zap.NewNop())
	state := newState(t, agent.Candidate{ID: "a"}, agent.Candidate{ID: "b"}, agent.Candidate{ID: "c"})

	payload, err := capability.Execute(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Equal(t, agent.Payload{"attempted": 3, "enriched": 2, "failed": 1, "total": 3}, payload)

	for _, id := range []string{"a", "b", "c"} {
		assert.True(t, state.FindByID(id).Attempted(agent.EnrichmentPersonality), id)
	}
	assert.NotNil(t, state.FindByID("a").Personality)
	assert.Nil(t, state.FindByID("b").Personality)
	assert.NotNil(t, state.FindByID("c").Personality)
	assert.Len(t, state.EnrichedCandidates(), 3)
}

func TestPersonalitySkipsAttemptedCandidates(t *testing.T) {
	source := &fakePersonality{}
	capability := NewPersonality(source, EnrichOptions{Concurrency: 1}, zap.NewNop())
	state := newState(t, agent.Candidate{ID: "a"}, agent.Candidate{ID: "b"})
	state.FindByID("a").MarkAttempted(agent.EnrichmentPersonality)

	payload, err := capability.Execute(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, payload["attempted"])
	assert.Equal(t, 0, payload["enriched"])
	assert.Equal(t, []string{"b"}, source.calls)

	payload, err = capability.Execute(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, payload["attempted"])
}

func TestPersonalityItemTimeout(t *testing.T) {
	source := &fakePersonality{
		data:  map[string]*agent.Personality{"fast": {Openness: 0.5}, "slow": {Openness: 0.5}},
		delay: map[string]time.Duration{"slow": time.Second},
	}
	capability := NewPersonality(source, EnrichOptions{ItemTimeout: 20 * time.Millisecond}, zap.NewNop())
	state := newState(t, agent.Candidate{ID: "slow"}, agent.Candidate{ID: "fast"})

	payload, err := capability.Execute(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, payload["enriched"])
	assert.Equal(t, 1, payload["failed"])
	assert.Nil(t, state.FindByID("slow").Personality)
	assert.True(t, state.FindByID("slow").Attempted(agent.EnrichmentPersonality))
}

type fakePortfolio struct {
	mu    sync.Mutex
	calls []string
	fail  error
}

func (f *fakePortfolio) Portfolio(_ context.Context, c agent.Candidate, query string) (*agent.Portfolio, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c.GitHubUsername)
	f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return &agent.Portfolio{Projects: []agent.Project{{RepoName: c.GitHubUsername + "/api", Description: query}}}, nil
}

func TestPortfolioSkipsMissingUsernames(t *testing.T) {
	source := &fakePortfolio{}
	capability := NewPortfolio(source, EnrichOptions{}, zap.NewNop())
	state := newState(t,
		agent.Candidate{ID: "a", GitHubUsername: "ada"},
		agent.Candidate{ID: "b", GitHubUsername: agent.NoGitHubUsername},
		agent.Candidate{ID: "c"},
	)

	payload, err := capability.Execute(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, payload["enriched"])
	assert.Equal(t, []string{"ada"}, source.calls)

	assert.Equal(t, "ada/api", state.FindByID("a").Portfolio.Projects[0].RepoName)
	require.NotNil(t, state.FindByID("b").Portfolio)
	assert.Empty(t, state.FindByID("b").Portfolio.Projects)
	assert.True(t, state.FindByID("c").Attempted(agent.EnrichmentGitHub))
}

func TestPortfolioFailureStillSucceeds(t *testing.T) {
	capability := NewPortfolio(&fakePortfolio{fail: errors.New("rate limited")}, EnrichOptions{}, zap.NewNop())
	state := newState(t, agent.Candidate{ID: "a", GitHubUsername: "ada"})

	payload, err := capability.Execute(context.Background(), state, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, payload["failed"])
	assert.Nil(t, state.FindByID("a").Portfolio)
	assert.True(t, state.FindByID("a").Enriched())
}

type fakeProjects struct {
	projects []agent.Project
	err      error
	limit    int
}

func (f *fakeProjects) Projects(_ context.Context, _, _ string, limit int) ([]agent.Project, error) {
	f.limit = limit
	return f.projects, f.err
}

type fakeSummaries struct {
	summary *agent.PortfolioSummary
	err     error
}

func (f *fakeSummaries) Summary(context.Context, string) (*agent.PortfolioSummary, error) {
	return f.summary, f.err
}

func TestPortfolioLookup(t *testing.T) {
	projects := &fakeProjects{projects: []agent.Project{{RepoName: "api"}}}
	summary := &agent.PortfolioSummary{Username: "ada", PublicRepos: 4}
	lookup := NewPortfolioLookup(projects, &fakeSummaries{summary: summary}, 0, nil)

	got, err := lookup.Portfolio(context.Background(), agent.Candidate{ID: "a", GitHubUsername: "ada"}, "q")
	require.NoError(t, err)
	assert.Equal(t, DefaultProjectsPerCandidate, projects.limit)
	assert.Equal(t, "api", got.Projects[0].RepoName)
	assert.Equal(t, summary, got.Summary)

	lookup = NewPortfolioLookup(&fakeProjects{}, &fakeSummaries{err: errors.New("404")}, 2, nil)
	got, err = lookup.Portfolio(context.Background(), agent.Candidate{ID: "a", GitHubUsername: "ada"}, "q")
	require.NoError(t, err)
	assert.NotNil(t, got.Projects)
	assert.Nil(t, got.Summary)

	lookup = NewPortfolioLookup(&fakeProjects{err: errors.New("db")}, nil, 2, nil)
	_, err = lookup.Portfolio(context.Background(), agent.Candidate{ID: "a", GitHubUsername: "ada"}, "q")
	assert.Error(t, err)
}

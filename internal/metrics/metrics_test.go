package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveDecision(agent.SearchCandidates, agent.SourceBackend, 0.9)
	r.ObserveDecision(agent.RankCandidates, agent.SourceFallback, 1)
	r.ObserveDecision(agent.RankCandidates, agent.SourceFallback, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisions.WithLabelValues("search_candidates", "backend")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.decisions.WithLabelValues("rank_candidates", "fallback")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.fallbacks.WithLabelValues("rank_candidates")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.fallbacks))
}

func TestRecorderCapabilitiesAndRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveCapability(agent.AnalyzeGitHub, true, 2*time.Second)
	r.ObserveCapability(agent.AnalyzeGitHub, false, time.Second)
	r.ObserveRun(agent.StatusGoalMet, 4, 10*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.capabilityRuns.WithLabelValues("analyze_github", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.capabilityRuns.WithLabelValues("analyze_github", "error")))

	expected := `
# HELP talentscout_run_total Finished runs by terminal status
# TYPE talentscout_run_total counter
talentscout_run_total{status="goal_met"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "talentscout_run_total"))
}

func TestRecordersDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

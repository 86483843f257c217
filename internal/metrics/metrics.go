// Package metrics exposes orchestration loop instruments to prometheus.
package metrics

import (
	"time"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "talentscout"

// Recorder implements agent.Recorder. Collectors are registered on the
// registerer passed to New, so several recorders can live in one process.
type Recorder struct {
	decisions          *prometheus.CounterVec
	fallbacks          *prometheus.CounterVec
	decisionConfidence prometheus.Histogram
	capabilityRuns     *prometheus.CounterVec
	capabilityDuration *prometheus.HistogramVec
	runs               *prometheus.CounterVec
	runIterations      prometheus.Histogram
	runDuration        prometheus.Histogram
}

func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "decisions_total",
			Help:      "Decisions taken by the loop, by proposed capability and source",
		}, []string{"capability", "source"}),

		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "fallbacks_total",
			Help:      "Decisions produced by the rule-based fallback",
		}, []string{"capability"}),

		decisionConfidence: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "decision_confidence",
			Help:      "Distribution of decision confidence",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),

		capabilityRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capability",
			Name:      "executions_total",
			Help:      "Capability executions by outcome",
		}, []string{"capability", "status"}),

		capabilityDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "capability",
			Name:      "duration_seconds",
			Help:      "Capability execution time in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"capability"}),

		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Finished runs by terminal status",
		}, []string{"status"}),

		runIterations: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "iterations",
			Help:      "Iterations used per run",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),

		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall time of a run in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
	}
}

func (r *Recorder) ObserveDecision(capability agent.CapabilityName, source agent.DecisionSource, confidence float64) {
	r.decisions.WithLabelValues(string(capability), string(source)).Inc()
	if source == agent.SourceFallback {
		r.fallbacks.WithLabelValues(string(capability)).Inc()
	}
	r.decisionConfidence.Observe(confidence)
}

func (r *Recorder) ObserveCapability(capability agent.CapabilityName, success bool, d time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	r.capabilityRuns.WithLabelValues(string(capability), status).Inc()
	r.capabilityDuration.WithLabelValues(string(capability)).Observe(d.Seconds())
}

func (r *Recorder) ObserveRun(status agent.Status, iterations int, d time.Duration) {
	r.runs.WithLabelValues(string(status)).Inc()
	r.runIterations.Observe(float64(iterations))
	r.runDuration.Observe(d.Seconds())
}

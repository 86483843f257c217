package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brendankhow/IS469-G2-Group4/internal/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrInvalidMaxIterations = errors.New("max iterations must be positive")
	ErrInvalidMinCandidates = errors.New("min candidates must not be negative")
	ErrEmptyQuery           = errors.New("query must not be empty")
)

const unknownCapabilityError = "unknown capability"

var tracer = otel.Tracer("talentscout/agent")

// Request describes one search.
type Request struct {
	Query         string
	MinCandidates int
	MinFitScore   float64
	MaxIterations int
}

func (r Request) validate() error {
	if r.MaxIterations <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxIterations, r.MaxIterations)
	}
	if r.MinCandidates < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMinCandidates, r.MinCandidates)
	}
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

// Recorder receives loop events for metrics.
type Recorder interface {
	ObserveDecision(capability CapabilityName, source DecisionSource, confidence float64)
	ObserveCapability(capability CapabilityName, success bool, d time.Duration)
	ObserveRun(status Status, iterations int, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDecision(CapabilityName, DecisionSource, float64) {}
func (nopRecorder) ObserveCapability(CapabilityName, bool, time.Duration)   {}
func (nopRecorder) ObserveRun(Status, int, time.Duration)                   {}

// Orchestrator runs the decision loop against one backend and a fixed set of
// capabilities.
type Orchestrator struct {
	backend         Backend
	registry        *Registry
	logger          *zap.Logger
	recorder        Recorder
	decisionTimeout time.Duration
}

type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger.WithFields(l) }
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithDecisionTimeout bounds every backend decision call. A timed out call is
// replaced by the fallback decision.
func WithDecisionTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.decisionTimeout = d }
}

func New(backend Backend, registry *Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:  backend,
		registry: registry,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the loop until the goal is met, the iterations run out or the
// backend asks to stop. Only invalid requests return an error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Report, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := o.logger.With(zap.String(logger.FieldRunID, runID))

	ctx, span := tracer.Start(ctx, "orchestrator.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("run.max_iterations", req.MaxIterations),
	))
	defer span.End()

	state := NewRunState(strings.TrimSpace(req.Query), req.MinCandidates, req.MinFitScore, req.MaxIterations)
	started := time.Now()
	status := StatusRunning
	canceled := false

	log.Info("orchestration started",
		zap.String("query", state.Query()),
		zap.Int("min_candidates", req.MinCandidates),
		zap.Float64("min_fit_score", req.MinFitScore),
		zap.Int("max_iterations", req.MaxIterations),
	)

	for status == StatusRunning {
		if state.iterations >= state.maxIterations {
			status = StatusExhausted
			log.Info("iterations exhausted", zap.Int("iterations", state.iterations))
			break
		}
		if err := ctx.Err(); err != nil {
			canceled = true
			status = StatusExhausted
			log.Warn("run canceled", zap.Error(err))
			break
		}

		state.iterations++
		iterLog := log.With(zap.Int(logger.FieldIteration, state.iterations))

		decision := o.decide(ctx, state, iterLog)

		if decision.Capability == Finish {
			state.goalMet = GoalReached(state.rankings, state.minCandidates, state.minFitScore)
			status = StatusStoppedByDecision
			iterLog.Info("stopped by decision",
				zap.String("rationale", decision.Rationale),
				zap.Bool("goal_met", state.goalMet),
			)
			break
		}

		state.appendTrace(o.execute(ctx, state, decision, iterLog))

		if GoalReached(state.rankings, state.minCandidates, state.minFitScore) {
			state.goalMet = true
			status = StatusGoalMet
			iterLog.Info("goal met",
				zap.Int("high_quality", HighQualityCount(state.rankings, state.minFitScore)),
			)
		}
	}

	elapsed := time.Since(started)
	o.recorder.ObserveRun(status, state.iterations, elapsed)
	span.SetAttributes(
		attribute.String("run.status", string(status)),
		attribute.Int("run.iterations", state.iterations),
	)

	report := &Report{
		RunID:              runID,
		Query:              state.Query(),
		Status:             status,
		FinalRankings:      state.FinalRankings(),
		DecisionTrace:      state.Trace(),
		GoalMet:            state.goalMet,
		Iterations:         state.iterations,
		TotalExecutionTime: state.TotalExecutionTime(),
		Elapsed:            elapsed,
		BackendStats:       o.backend.Stats(),
		CandidatesFound:    state.Len(),
		EnrichedCount:      len(state.EnrichedCandidates()),
		ToolsUsed:          state.ToolsUsed(),
		Canceled:           canceled,
		StartedAt:          started.UTC(),
	}
	if report.CandidatesFound == 0 {
		report.Message = MessageNoCandidates
	}

	log.Info("orchestration finished",
		zap.String("status", string(status)),
		zap.Bool("goal_met", report.GoalMet),
		zap.Int("iterations", report.Iterations),
		zap.Int("candidates", report.CandidatesFound),
		zap.Int("enriched", report.EnrichedCount),
		zap.Int("ranked", len(report.FinalRankings)),
		zap.Duration("elapsed", elapsed),
	)

	return report, nil
}

func (o *Orchestrator) decide(ctx context.Context, state *RunState, log *zap.Logger) Decision {
	specs := o.registry.Specs()
	view := state.View()

	ctx, span := tracer.Start(ctx, "orchestrator.decide")
	defer span.End()

	dctx := ctx
	if o.decisionTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, o.decisionTimeout)
		defer cancel()
	}

	decision, err := o.backend.DecideNextAction(dctx, view, specs)
	if err == nil && strings.TrimSpace(string(decision.Capability)) == "" {
		err = errors.New("decision names no capability")
	}
	if err != nil {
		span.RecordError(err)
		log.Warn("decision backend failed, using fallback", zap.Error(err))
		decision = Fallback(view, specs)
	}
	if decision.Source == "" {
		decision.Source = SourceBackend
	}

	if name, perr := ParseCapabilityName(string(decision.Capability)); perr == nil {
		decision.Capability = name
	}

	span.SetAttributes(
		attribute.String("decision.capability", string(decision.Capability)),
		attribute.String("decision.source", string(decision.Source)),
	)
	o.recorder.ObserveDecision(decision.Capability, decision.Source, decision.Confidence)

	log.Info("decision",
		zap.String(logger.FieldCapability, string(decision.Capability)),
		zap.String("rationale", decision.Rationale),
		zap.Float64("confidence", decision.Confidence),
		zap.String("source", string(decision.Source)),
	)

	return decision
}

func (o *Orchestrator) execute(ctx context.Context, state *RunState, decision Decision, log *zap.Logger) TraceEntry {
	entry := TraceEntry{
		Iteration:  state.iterations,
		Capability: decision.Capability,
		Rationale:  decision.Rationale,
		Confidence: decision.Confidence,
		Source:     decision.Source,
		At:         time.Now().UTC(),
	}

	capability, err := o.registry.Lookup(decision.Capability)
	if err != nil {
		entry.Error = unknownCapabilityError
		log.Warn("skipping unknown capability", zap.String(logger.FieldCapability, string(decision.Capability)), zap.Error(err))
		return entry
	}

	ctx, span := tracer.Start(ctx, "capability."+string(capability.Name()))
	defer span.End()

	started := time.Now()
	payload, err := capability.Execute(ctx, state, decision.Parameters)
	outcome := Outcome{
		Capability: capability.Name(),
		Success:    err == nil,
		Payload:    payload,
		Duration:   time.Since(started),
	}
	if err != nil {
		outcome.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	o.recorder.ObserveCapability(outcome.Capability, outcome.Success, outcome.Duration)

	fields := []zap.Field{
		zap.String(logger.FieldCapability, string(outcome.Capability)),
		zap.Bool("success", outcome.Success),
		zap.Duration("duration", outcome.Duration),
		zap.Int("candidates", state.Len()),
		zap.Int("enriched", len(state.EnrichedCandidates())),
		zap.Int("ranked", len(state.rankings)),
	}
	if outcome.Success {
		log.Info("capability executed", fields...)
	} else {
		log.Warn("capability failed, continuing", append(fields, zap.String("error", outcome.Error))...)
	}

	entry.Success = outcome.Success
	entry.Error = outcome.Error
	entry.Duration = outcome.Duration
	return entry
}

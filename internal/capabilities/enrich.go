package capabilities

import (
	"context"
	"time"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/brendankhow/IS469-G2-Group4/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultItemTimeout = 20 * time.Second

// EnrichOptions bound the per-candidate fan-out. Zero concurrency means one
// goroutine per pending candidate.
type EnrichOptions struct {
	ItemTimeout time.Duration
	Concurrency int
}

type fetchResult[T any] struct {
	value T
	err   error
}

// enrich runs fetch for every candidate whose kind flag is unset, then writes
// results back in candidate order. Item failures are logged and leave the
// payload empty; every pending candidate ends up flagged as attempted.
func enrich[T any](
	ctx context.Context,
	state *agent.RunState,
	kind agent.EnrichmentKind,
	opts EnrichOptions,
	log *zap.Logger,
	fetch func(ctx context.Context, c agent.Candidate) (T, error),
	apply func(c *agent.Candidate, value T) bool,
) agent.Payload {
	var pending []*agent.Candidate
	for _, c := range state.Candidates() {
		if !c.Attempted(kind) {
			pending = append(pending, c)
		}
	}

	results := make([]fetchResult[T], len(pending))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, c := range pending {
		candidate := c.Clone()
		g.Go(func() error {
			itemCtx, cancel := gctx, context.CancelFunc(func() {})
			if opts.ItemTimeout > 0 {
				itemCtx, cancel = context.WithTimeout(gctx, opts.ItemTimeout)
			}
			defer cancel()

			value, err := fetch(itemCtx, candidate)
			results[i] = fetchResult[T]{value: value, err: err}
			return nil
		})
	}
	_ = g.Wait()

	enriched, failed := 0, 0
	for i, c := range pending {
		c.MarkAttempted(kind)

		if err := results[i].err; err != nil {
			failed++
			log.Warn("enrichment failed for candidate",
				zap.String(logger.FieldCandidate, c.ID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			continue
		}
		if apply(c, results[i].value) {
			enriched++
		}
	}

	log.Info("enrichment finished",
		zap.String("kind", string(kind)),
		zap.Int("attempted", len(pending)),
		zap.Int("enriched", enriched),
		zap.Int("failed", failed),
	)

	return agent.Payload{
		"attempted": len(pending),
		"enriched":  enriched,
		"failed":    failed,
		"total":     state.Len(),
	}
}

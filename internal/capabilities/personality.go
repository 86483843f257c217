package capabilities

import (
	"context"
	"errors"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"go.uber.org/zap"
)

// Personality attaches the latest personality assessment to candidates.
type Personality struct {
	source  PersonalitySource
	options EnrichOptions
	logger  *zap.Logger
}

func NewPersonality(source PersonalitySource, options EnrichOptions, logger *zap.Logger) *Personality {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Personality{source: source, options: options, logger: logger}
}

func (p *Personality) Name() agent.CapabilityName { return agent.GetPersonality }

func (p *Personality) Description() string {
	return "Retrieve personality traits and interview performance data for cultural fit assessment. Adds personality insights to candidates."
}

func (p *Personality) Execute(ctx context.Context, state *agent.RunState, _ agent.Params) (agent.Payload, error) {
	if p.source == nil {
		return nil, errors.New("personality source is not configured")
	}

	fetch := func(ctx context.Context, c agent.Candidate) (*agent.Personality, error) {
		return p.source.Personality(ctx, c.ID)
	}
	apply := func(c *agent.Candidate, traits *agent.Personality) bool {
		if traits == nil {
			return false
		}
		c.Personality = traits
		return true
	}

	return enrich(ctx, state, agent.EnrichmentPersonality, p.options, p.logger, fetch, apply), nil
}

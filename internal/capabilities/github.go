package capabilities

import (
	"context"
	"errors"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/brendankhow/IS469-G2-Group4/internal/logger"
	"go.uber.org/zap"
)

const DefaultProjectsPerCandidate = 3

// Portfolio enriches candidates with GitHub projects and an account summary.
type Portfolio struct {
	source  PortfolioSource
	options EnrichOptions
	logger  *zap.Logger
}

func NewPortfolio(source PortfolioSource, options EnrichOptions, logger *zap.Logger) *Portfolio {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Portfolio{source: source, options: options, logger: logger}
}

func (p *Portfolio) Name() agent.CapabilityName { return agent.AnalyzeGitHub }

func (p *Portfolio) Description() string {
	return "Deep-dive into candidates' GitHub portfolios to assess technical skills, project quality and coding activity. Enriches candidates with GitHub project data."
}

func (p *Portfolio) Execute(ctx context.Context, state *agent.RunState, _ agent.Params) (agent.Payload, error) {
	if p.source == nil {
		return nil, errors.New("portfolio source is not configured")
	}

	query := state.Query()
	fetch := func(ctx context.Context, c agent.Candidate) (*agent.Portfolio, error) {
		if !c.HasGitHub() {
			return &agent.Portfolio{Projects: []agent.Project{}}, nil
		}
		return p.source.Portfolio(ctx, c, query)
	}
	apply := func(c *agent.Candidate, portfolio *agent.Portfolio) bool {
		if portfolio == nil {
			return false
		}
		c.Portfolio = portfolio
		return true
	}

	return enrich(ctx, state, agent.EnrichmentGitHub, p.options, p.logger, fetch, apply), nil
}

// ProjectSource returns the repositories of one student most similar to the
// query.
type ProjectSource interface {
	Projects(ctx context.Context, studentID, query string, limit int) ([]agent.Project, error)
}

// SummarySource describes a public GitHub account.
type SummarySource interface {
	Summary(ctx context.Context, username string) (*agent.PortfolioSummary, error)
}

// PortfolioLookup combines stored project embeddings with a live account
// summary. The summary is optional: its failures are logged and dropped.
type PortfolioLookup struct {
	projects  ProjectSource
	summaries SummarySource
	limit     int
	logger    *zap.Logger
}

func NewPortfolioLookup(projects ProjectSource, summaries SummarySource, limit int, logger *zap.Logger) *PortfolioLookup {
	if limit <= 0 {
		limit = DefaultProjectsPerCandidate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortfolioLookup{projects: projects, summaries: summaries, limit: limit, logger: logger}
}

func (l *PortfolioLookup) Portfolio(ctx context.Context, c agent.Candidate, query string) (*agent.Portfolio, error) {
	projects, err := l.projects.Projects(ctx, c.ID, query, l.limit)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []agent.Project{}
	}

	portfolio := &agent.Portfolio{Projects: projects}
	if l.summaries == nil {
		return portfolio, nil
	}

	summary, err := l.summaries.Summary(ctx, c.GitHubUsername)
	if err != nil {
		l.logger.Debug("github summary unavailable",
			zap.String(logger.FieldCandidate, c.ID),
			zap.String("github_username", c.GitHubUsername),
			zap.Error(err),
		)
		return portfolio, nil
	}
	portfolio.Summary = summary

	return portfolio, nil
}

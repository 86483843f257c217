package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/brendankhow/IS469-G2-Group4/internal/ai"
	"github.com/brendankhow/IS469-G2-Group4/internal/ai/anthropic"
	"github.com/brendankhow/IS469-G2-Group4/internal/ai/gemini"
	"github.com/brendankhow/IS469-G2-Group4/internal/ai/ollama"
	"github.com/brendankhow/IS469-G2-Group4/internal/ai/openai"
	"github.com/brendankhow/IS469-G2-Group4/internal/capabilities"
	"github.com/brendankhow/IS469-G2-Group4/internal/github"
	"github.com/brendankhow/IS469-G2-Group4/internal/history"
	"github.com/brendankhow/IS469-G2-Group4/internal/metrics"
	"github.com/brendankhow/IS469-G2-Group4/internal/postgres"
	"github.com/brendankhow/IS469-G2-Group4/internal/secrets"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	BackendLarge = "large"
	BackendSmall = "small"

	providerOpenAI    = "openai"
	providerGemini    = "gemini"
	providerAnthropic = "anthropic"
	providerOllama    = "ollama"
)

var providerModels = map[string]string{
	providerOpenAI:    "deepseek-ai/DeepSeek-V3-0324",
	providerGemini:    "gemini-2.5-flash",
	providerAnthropic: string(anthropic.DefaultModel),
	providerOllama:    "llama3.2:1b",
}

// environment holds everything shared by the runs of one command.
type environment struct {
	config    *Config
	logger    *zap.Logger
	store     *postgres.Store
	summaries capabilities.SummarySource
	metrics   *prometheus.Registry
	recorder  *metrics.Recorder
	history   *history.Store
}

func newEnvironment(ctx context.Context, config *Config, logger *zap.Logger) (*environment, error) {
	databaseURL, err := secrets.Load(secrets.Source{
		Name:  "database url",
		Value: config.Database.URL,
		File:  config.Database.URLFile,
		Env:   "DATABASE_URL",
	})
	if err != nil {
		return nil, err
	}

	embeddingKey, err := secrets.LoadOptional(secrets.Source{
		Name:  "embedding api key",
		Value: config.Embedding.APIKey,
		File:  config.Embedding.APIKeyFile,
		Env:   "OPENAI_API_KEY",
	})
	if err != nil {
		return nil, err
	}
	embedder := openai.NewEmbedder(embeddingKey, config.Embedding.BaseURL, config.Embedding.Model)

	store, err := postgres.Connect(ctx, databaseURL, embedder, logger.Named("postgres"))
	if err != nil {
		return nil, err
	}

	env := &environment{
		config:  config,
		logger:  logger,
		store:   store,
		metrics: prometheus.NewRegistry(),
	}
	env.recorder = metrics.New(env.metrics)

	if config.Features.GitHubSummary {
		token, err := secrets.LoadOptional(secrets.Source{
			Name:  "github token",
			Value: config.GitHub.Token,
			File:  config.GitHub.TokenFile,
			Env:   "GITHUB_TOKEN",
		})
		if err != nil {
			env.Close()
			return nil, err
		}
		if token == "" {
			logger.Warn("github token is not set, portfolio summaries use unauthenticated requests")
		}
		client := github.New(logger.Named("github"), token, config.HTTPTimeout)
		if config.GitHub.APIURL != "" {
			client.APIURL = strings.TrimSuffix(config.GitHub.APIURL, "/")
		}
		env.summaries = client
	}

	if path := strings.TrimSpace(config.History.Path); path != "" {
		hist, err := history.Open(path)
		if err != nil {
			logger.Warn("run history is disabled", zap.String("path", path), zap.Error(err))
		} else {
			env.history = hist
		}
	}

	return env, nil
}

func (e *environment) Close() {
	if e.history != nil {
		if err := e.history.Close(); err != nil {
			e.logger.Warn("closing run history", zap.Error(err))
		}
	}
	e.store.Close()
}

// serveMetrics starts the metrics endpoint when an address is configured.
func (e *environment) serveMetrics(ctx context.Context) {
	addr := strings.TrimSpace(e.config.MetricsAddr)
	if addr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, addr, e.metrics, e.logger); err != nil {
			e.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
}

func (e *environment) saveReport(ctx context.Context, report *agent.Report) {
	if e.history == nil {
		return
	}
	if err := e.history.Save(ctx, report); err != nil {
		e.logger.Warn("saving run to history", zap.Error(err))
		return
	}
	e.logger.Debug("run saved to history", zap.String("path", e.history.Path()))
}

// newOrchestrator builds the capability set around one backend. The ranking
// capability is bound to the same backend that takes decisions.
func (e *environment) newOrchestrator(router *ai.Router) (*agent.Orchestrator, error) {
	cfg := e.config
	enrich := capabilities.EnrichOptions{
		ItemTimeout: cfg.Enrichment.ItemTimeout,
		Concurrency: cfg.Enrichment.Concurrency,
	}

	lookup := capabilities.NewPortfolioLookup(e.store, e.summaries, cfg.Enrichment.ProjectsPerCandidate, e.logger)

	registry, err := agent.NewRegistry(
		capabilities.NewSearch(e.store, capabilities.SearchOptions{
			DefaultTopK:      cfg.Search.TopK,
			DefaultThreshold: cfg.Search.Threshold,
		}, e.logger),
		capabilities.NewPortfolio(lookup, enrich, e.logger),
		capabilities.NewPersonality(e.store, enrich, e.logger),
		capabilities.NewRanking(router, capabilities.RankingOptions{
			DefaultFitScore:    cfg.Ranking.DefaultFitScore,
			DefaultTemperature: cfg.Ranking.Temperature,
		}, e.logger),
	)
	if err != nil {
		return nil, err
	}

	if !cfg.Features.GitHubAnalysis {
		registry.Disable(agent.AnalyzeGitHub, "disabled by features.github-analysis")
	}
	if !cfg.Features.PersonalityAnalysis {
		registry.Disable(agent.GetPersonality, "disabled by features.personality-analysis")
	}

	for _, s := range registry.Describe() {
		e.logger.Debug("capability",
			zap.String("name", string(s.Name)),
			zap.Bool("enabled", s.Enabled),
			zap.String("reason", s.Reason),
		)
	}

	return agent.New(router, registry,
		agent.WithLogger(e.logger),
		agent.WithRecorder(e.recorder),
		agent.WithDecisionTimeout(cfg.DecisionTimeout),
	), nil
}

func backendConfig(config *Config, size string) (BackendConfig, error) {
	switch size {
	case BackendLarge:
		return config.Backends.Large, nil
	case BackendSmall:
		return config.Backends.Small, nil
	default:
		return BackendConfig{}, fmt.Errorf("unknown backend %q (want %s or %s)", size, BackendLarge, BackendSmall)
	}
}

// profileFor starts from the preset of the size and applies the configured
// provider, model and price on top.
func profileFor(size string, cfg BackendConfig) ai.Profile {
	profile := ai.LargeProfile()
	if size == BackendSmall {
		profile = ai.SmallProfile()
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider != "" && provider != providerOf(profile) {
		profile.Provider = provider
		profile.Model = providerModels[provider]
		profile.Label = ""
		profile.JSONMode = provider == providerOllama
	}
	if model := strings.TrimSpace(cfg.Model); model != "" && model != profile.Model {
		profile.Model = model
		profile.Label = ""
	}
	if cfg.CostPer1KTokens > 0 || provider == providerOllama {
		profile.CostPer1KTokens = cfg.CostPer1KTokens
	}
	return profile
}

// providerOf maps a preset's provider onto the transport serving it.
func providerOf(p ai.Profile) string {
	if p.Provider == "huggingface" {
		return providerOpenAI
	}
	return p.Provider
}

func newBackend(ctx context.Context, config *Config, size string, logger *zap.Logger) (*ai.Router, error) {
	cfg, err := backendConfig(config, size)
	if err != nil {
		return nil, err
	}
	profile := profileFor(size, cfg)
	log := logger.Named(size)

	key := func(name, env string) (string, error) {
		return secrets.Load(secrets.Source{Name: name, Value: cfg.APIKey, File: cfg.APIKeyFile, Env: env})
	}

	var generator ai.Generator
	switch providerOf(profile) {
	case providerOpenAI:
		baseURL := cfg.BaseURL
		env := "OPENAI_API_KEY"
		if baseURL == "" {
			baseURL = openai.HuggingFaceRouterURL
			env = "HF_API_KEY"
		}
		apiKey, err := key("openai compatible api key", env)
		if err != nil {
			return nil, err
		}
		generator, err = openai.NewGenerator(apiKey, baseURL, profile.Model, log)
		if err != nil {
			return nil, err
		}
	case providerGemini:
		apiKey, err := key("gemini api key", "GEMINI_API_KEY")
		if err != nil {
			return nil, err
		}
		generator, err = gemini.NewGenerator(ctx, apiKey, profile.Model, cfg.MaxRetries, log)
		if err != nil {
			return nil, err
		}
	case providerAnthropic:
		apiKey, err := key("anthropic api key", "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		opts := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		generator, err = anthropic.NewGenerator(apiKey, profile.Model, log, opts...)
		if err != nil {
			return nil, err
		}
	case providerOllama:
		generator, err = ollama.NewGenerator(cfg.BaseURL, profile.Model, nil, log)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	return ai.NewRouter(generator, profile, logger, config.MaxLogLength), nil
}

func requestFrom(config *Config, query string) agent.Request {
	return agent.Request{
		Query:         query,
		MinCandidates: config.MinCandidates,
		MinFitScore:   config.MinFitScore,
		MaxIterations: config.MaxIterations,
	}
}

package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "talentscout"
)

type Config struct {
	Query           string        `mapstructure:"query"`
	MinCandidates   int           `mapstructure:"min-candidates" validate:"gte=0"`
	MinFitScore     float64       `mapstructure:"min-fit-score"`
	MaxIterations   int           `mapstructure:"max-iterations" validate:"gt=0"`
	DecisionTimeout time.Duration `mapstructure:"decision-timeout" validate:"gte=0"`
	HTTPTimeout     time.Duration `mapstructure:"http-timeout" validate:"gte=0"`
	MaxLogLength    int           `mapstructure:"max-log-length" validate:"gte=0"`
	MetricsAddr     string        `mapstructure:"metrics-addr"`

	Database   DatabaseConfig   `mapstructure:"database"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Backends   BackendsConfig   `mapstructure:"backends"`
	Search     SearchConfig     `mapstructure:"search"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	Features   FeaturesConfig   `mapstructure:"features"`
	GitHub     GitHubConfig     `mapstructure:"github"`
	History    HistoryConfig    `mapstructure:"history"`
}

type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	URLFile string `mapstructure:"url-file"`
}

type EmbeddingConfig struct {
	BaseURL    string `mapstructure:"base-url"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type BackendsConfig struct {
	Large BackendConfig `mapstructure:"large"`
	Small BackendConfig `mapstructure:"small"`
}

type BackendConfig struct {
	Provider        string  `mapstructure:"provider" validate:"oneof=openai gemini anthropic ollama"`
	Model           string  `mapstructure:"model"`
	BaseURL         string  `mapstructure:"base-url"`
	APIKey          string  `mapstructure:"api-key"`
	APIKeyFile      string  `mapstructure:"api-key-file"`
	MaxRetries      int     `mapstructure:"max-retries" validate:"gte=0"`
	CostPer1KTokens float64 `mapstructure:"cost-per-1k-tokens" validate:"gte=0"`
}

type SearchConfig struct {
	TopK      int     `mapstructure:"top-k" validate:"gt=0,lte=50"`
	Threshold float64 `mapstructure:"threshold" validate:"gte=0,lte=1"`
}

type EnrichmentConfig struct {
	ItemTimeout          time.Duration `mapstructure:"item-timeout" validate:"gte=0"`
	Concurrency          int           `mapstructure:"concurrency" validate:"gte=0"`
	ProjectsPerCandidate int           `mapstructure:"projects-per-candidate" validate:"gte=0"`
}

type RankingConfig struct {
	DefaultFitScore float64 `mapstructure:"default-fit-score"`
	Temperature     float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

type FeaturesConfig struct {
	GitHubAnalysis      bool `mapstructure:"github-analysis"`
	PersonalityAnalysis bool `mapstructure:"personality-analysis"`
	GitHubSummary       bool `mapstructure:"github-summary"`
}

type GitHubConfig struct {
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token-file"`
	APIURL    string `mapstructure:"api-url"`
}

type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "talentscout searches candidate profiles and lets a model decide how to enrich and rank them",
	}

	validate = validator.New()
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is talentscout.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults()
}

func setDefaults() {
	viper.SetDefault("min-candidates", 3)
	viper.SetDefault("min-fit-score", 7.0)
	viper.SetDefault("max-iterations", 5)
	viper.SetDefault("decision-timeout", 30*time.Second)
	viper.SetDefault("http-timeout", 10*time.Second)
	viper.SetDefault("max-log-length", 200)

	viper.SetDefault("backends.large.provider", "openai")
	viper.SetDefault("backends.large.max-retries", 3)
	viper.SetDefault("backends.large.cost-per-1k-tokens", 0.002)
	viper.SetDefault("backends.small.provider", "ollama")

	viper.SetDefault("search.top-k", 10)
	viper.SetDefault("search.threshold", 0.0)
	viper.SetDefault("enrichment.item-timeout", 20*time.Second)
	viper.SetDefault("enrichment.projects-per-candidate", 3)
	viper.SetDefault("ranking.default-fit-score", 5.0)
	viper.SetDefault("ranking.temperature", 0.7)

	viper.SetDefault("features.github-analysis", true)
	viper.SetDefault("features.personality-analysis", true)
	viper.SetDefault("features.github-summary", true)

	viper.SetDefault("history.path", ".talentscout/history.db")
}

func initConfig() {
	// A missing .env is fine; values may come from the real environment.
	_ = godotenv.Load()

	viper.SetEnvPrefix("TALENTSCOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("database.url", "DATABASE_URL"); err != nil {
		log.Fatalf("binding DATABASE_URL environment variable: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The default config file is optional; an explicit or broken one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

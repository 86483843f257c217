package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/brendankhow/IS469-G2-Group4/internal/agent"
	"github.com/brendankhow/IS469-G2-Group4/internal/logger"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptShowRankings = "Show rankings"
	PromptByNextStep   = "Report by next step"
	PromptShowTrace    = "Show decision trace"
	PromptReportToFile = "Dump report to file"
	PromptExit         = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowRankings, PromptByNextStep, PromptShowTrace, PromptReportToFile, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search, enrich and rank candidates for a job query",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindSearchFlags(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("backend", "b", "", "decision backend: large or small (asks when unset)")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not show the interactive result menu")
	addSearchFlags(runCmd)
}

// addSearchFlags registers the flags shared by every command that runs a search.
func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("query", "q", "", "job requirements to search for")
	cmd.Flags().Int("min-candidates", 3, "candidates needed at or above the minimum fit score")
	cmd.Flags().Float64("min-fit-score", 7, "minimum fit score of a good candidate")
	cmd.Flags().Int("max-iterations", 5, "upper bound of loop iterations")
	cmd.Flags().StringP("output", "o", "", "write the result as json to this file")
	cmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
}

// bindSearchFlags binds the flags of the command actually invoked, so two
// commands sharing flag names do not override each other.
func bindSearchFlags(cmd *cobra.Command) {
	for _, name := range []string{"query", "min-candidates", "min-fit-score", "max-iterations", "metrics-addr"} {
		viper.BindPFlag(name, cmd.Flags().Lookup(name))
	}
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting talentscout", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	query, err := resolveQuery(config)
	if err != nil {
		logger.Fatal("reading the query", zap.Error(err))
	}

	size, err := resolveBackend(cmd)
	if err != nil {
		logger.Fatal("choosing a backend", zap.Error(err))
	}

	router, err := newBackend(ctx, config, size, logger)
	if err != nil {
		logger.Fatal("creating the decision backend", zap.Error(err), zap.String("backend", size))
	}

	env, err := newEnvironment(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing candidate data sources", zap.Error(err),
			zap.String("hint", "set DATABASE_URL or database.url in the configuration file"),
		)
	}
	defer env.Close()

	env.serveMetrics(ctx)

	orchestrator, err := env.newOrchestrator(router)
	if err != nil {
		logger.Fatal("preparing capabilities", zap.Error(err))
	}

	report, err := orchestrator.Run(ctx, requestFrom(config, query))
	if err != nil {
		logger.Fatal("running the search", zap.Error(err))
	}

	env.saveReport(ctx, report)

	if output := cmd.Flag("output").Value.String(); output != "" {
		if err := report.WriteFile(output); err != nil {
			logger.Fatal("writing the report", zap.Error(err), zap.String("filename", output))
		}
		logger.Info("report written", zap.String("filename", output))
	}

	logSummary(logger, report)

	if report.CandidatesFound == 0 {
		logger.Info("exiting", zap.String("reason", report.Message))
		return
	}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, report); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, report *agent.Report) error {
	switch action {
	case PromptShowRankings:
		pretty, _ := json.MarshalIndent(report.FinalRankings, "", "  ")
		logger.Info(string(pretty), zap.Int("ranked count", len(report.FinalRankings)))
		return nil
	case PromptByNextStep:
		pretty, _ := json.MarshalIndent(report.ByNextStep(), "", "  ")
		logger.Info(string(pretty), zap.Int("ranked count", len(report.FinalRankings)))
		return nil
	case PromptShowTrace:
		pretty, _ := json.MarshalIndent(report.DecisionTrace, "", "  ")
		logger.Info(string(pretty), zap.Int("iterations", report.Iterations))
		return nil
	case PromptReportToFile:
		filename, err := report.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		logger.Info("dumping report to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func logSummary(logger *zap.Logger, report *agent.Report) {
	fields := []zap.Field{
		zap.String("run_id", report.RunID),
		zap.String("status", string(report.Status)),
		zap.Bool("goal_met", report.GoalMet),
		zap.Int("iterations", report.Iterations),
		zap.Int("candidates", report.CandidatesFound),
		zap.Int("enriched", report.EnrichedCount),
		zap.Int("ranked", len(report.FinalRankings)),
		zap.Int("backend_calls", report.BackendStats.TotalCalls),
		zap.Int("backend_fallbacks", report.BackendStats.Fallbacks),
		zap.Float64("backend_cost", report.BackendStats.TotalCost),
	}
	if top, ok := report.TopScore(); ok {
		fields = append(fields, zap.Float64("top_score", top))
	}
	logger.Info("search finished", fields...)
}

func resolveQuery(config *Config) (string, error) {
	if q := strings.TrimSpace(config.Query); q != "" {
		return q, nil
	}

	queryPrompt := promptui.Prompt{
		Label: "Job requirements",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return agent.ErrEmptyQuery
			}
			return nil
		},
	}
	q, err := queryPrompt.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(q), nil
}

func resolveBackend(cmd *cobra.Command) (string, error) {
	if flag := cmd.Flag("backend"); flag != nil {
		if b := strings.ToLower(strings.TrimSpace(flag.Value.String())); b != "" {
			return b, nil
		}
	}

	backendPrompt := promptui.Select{
		Label: "Decision backend",
		Items: []string{BackendLarge, BackendSmall},
	}
	_, b, err := backendPrompt.Run()
	return b, err
}

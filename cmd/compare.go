package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/brendankhow/IS469-G2-Group4/internal/compare"
	"github.com/brendankhow/IS469-G2-Group4/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run the same search with the large and the small backend and score them",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindSearchFlags(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		runCompare(cmd)
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	addSearchFlags(compareCmd)
}

func runCompare(cmd *cobra.Command) {
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

	query, err := resolveQuery(config)
	if err != nil {
		logger.Fatal("reading the query", zap.Error(err))
	}

	env, err := newEnvironment(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing candidate data sources", zap.Error(err))
	}
	defer env.Close()

	env.serveMetrics(ctx)

	contenders := make([]compare.Contender, 0, 2)
	for _, size := range []string{BackendLarge, BackendSmall} {
		router, err := newBackend(ctx, config, size, logger)
		if err != nil {
			logger.Fatal("creating the decision backend", zap.Error(err), zap.String("backend", size))
		}
		orchestrator, err := env.newOrchestrator(router)
		if err != nil {
			logger.Fatal("preparing capabilities", zap.Error(err))
		}
		contenders = append(contenders, compare.Contender{Name: router.Profile().Label, Runner: orchestrator})
	}

	result, err := compare.New(logger).Compare(ctx, requestFrom(config, query), contenders[0], contenders[1])
	if err != nil {
		logger.Fatal("comparing backends", zap.Error(err))
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Fatal("encoding the comparison", zap.Error(err))
	}

	if output := cmd.Flag("output").Value.String(); output != "" {
		if err := os.WriteFile(output, pretty, 0o644); err != nil {
			logger.Fatal("writing the comparison", zap.Error(err), zap.String("filename", output))
		}
		logger.Info("comparison written", zap.String("filename", output))
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(pretty))
	logger.Info("winner", zap.String("name", result.Winner), zap.String("reason", result.WinnerReason))
}

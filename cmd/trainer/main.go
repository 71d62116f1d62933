package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chessgames/internal/trainer"
	"chessgames/pkg/config"
	"chessgames/pkg/logger"
	"chessgames/pkg/schema"

	"github.com/spf13/cobra"
)

func main() {
	var cfgPath string
	cmd := &cobra.Command{
		Use:          "trainer",
		Short:        "Fit the game outcome classifier on the processed design matrix",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfgPath)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to a config file")
	flags.String("in", "", "processed CSV (data.processed_path)")
	flags.String("model", "", "where to save the model (data.model_path)")
	flags.Int64("seed", 0, "split seed (model.seed)")
	flags.Float64("test-size", 0, "held-out share (model.test_size)")
	flags.Int("max-iter", 0, "optimizer iterations (model.max_iter)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfgPath string) error {
	flags := cmd.Flags()
	cfg, err := config.Load(cfgPath,
		config.FlagBinding{Key: "data.processed_path", Flag: flags.Lookup("in")},
		config.FlagBinding{Key: "data.model_path", Flag: flags.Lookup("model")},
		config.FlagBinding{Key: "model.seed", Flag: flags.Lookup("seed")},
		config.FlagBinding{Key: "model.test_size", Flag: flags.Lookup("test-size")},
		config.FlagBinding{Key: "model.max_iter", Flag: flags.Lookup("max-iter")},
	)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "trainer",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := schema.Open(cfg.Schema, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := trainer.NewService(l, store, trainer.OptionsFromConfig(cfg))
	res, err := svc.Run(ctx)
	if err != nil {
		l.Error("training failed", err)
		return err
	}
	return trainer.WriteReport(cmd.OutOrStdout(), res)
}

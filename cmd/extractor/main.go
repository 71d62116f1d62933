package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chessgames/internal/extractor"
	"chessgames/pkg/config"
	"chessgames/pkg/logger"
	"chessgames/pkg/schema"
	"chessgames/pkg/worker"
	"chessgames/pkg/writer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var cfgPath string
	cmd := &cobra.Command{
		Use:          "extractor",
		Short:        "Turn the raw chess games CSV into the processed design matrix",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfgPath)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to a config file")
	flags.String("raw", "", "raw games CSV (data.raw_path)")
	flags.String("out", "", "processed CSV (data.processed_path)")
	flags.String("schema-mode", "", "build or frozen (schema.mode)")
	flags.Int("eco-cutoff", 0, "minimum games per ECO category (features.eco_cutoff)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfgPath string) error {
	// 1. Load config
	flags := cmd.Flags()
	cfg, err := config.Load(cfgPath,
		config.FlagBinding{Key: "data.raw_path", Flag: flags.Lookup("raw")},
		config.FlagBinding{Key: "data.processed_path", Flag: flags.Lookup("out")},
		config.FlagBinding{Key: "schema.mode", Flag: flags.Lookup("schema-mode")},
		config.FlagBinding{Key: "features.eco_cutoff", Flag: flags.Lookup("eco-cutoff")},
	)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize logger
	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "extractor",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Schema store
	store, closeStore, err := schema.Open(cfg.Schema, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeStore()

	// 4. Optional Postgres export
	var exporter extractor.Exporter
	if cfg.ExportEnabled() {
		pgWriter, err := writer.NewPostgresWriter(ctx, writer.PostgresConfig{
			URI:      cfg.Postgres.URI,
			MinConns: int32(cfg.Postgres.MinConns),
			MaxConns: int32(cfg.Postgres.MaxConns),
		}, l.Named("export"))
		if err != nil {
			l.Error("failed to connect to postgres", err)
			return err
		}
		defer pgWriter.Close()

		exporter = worker.NewWorkerPool(
			l.Named("export"),
			pgWriter,
			cfg.Export.WorkerCount,
			cfg.Export.BatchSize,
			cfg.Export.FlushInterval,
		)
	}

	// 5. Run
	svc := extractor.NewService(l, store, exporter, extractor.OptionsFromConfig(cfg))
	res, err := svc.Run(ctx)
	if err != nil {
		l.Error("extraction failed", err)
		return err
	}

	l.Info("extraction complete",
		zap.Int("games_read", res.GamesRead),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("rows_written", res.RowsWritten),
		zap.Bool("exported", exporter != nil))
	return nil
}

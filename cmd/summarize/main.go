package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chessgames/internal/summary"
	"chessgames/pkg/config"
	"chessgames/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var (
		cfgPath    string
		outcomeECO int
	)
	cmd := &cobra.Command{
		Use:          "summarize",
		Short:        "Print descriptive statistics of the raw chess games CSV",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfgPath, outcomeECO)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to a config file")
	flags.String("raw", "", "raw games CSV (data.raw_path)")
	flags.Int("eco-cutoff", 0, "minimum games per ECO category (features.eco_cutoff)")
	flags.IntVar(&outcomeECO, "outcome-eco-chars", 2, "ECO prefix length for the outcome breakdown")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfgPath string, outcomeECO int) error {
	flags := cmd.Flags()
	cfg, err := config.Load(cfgPath,
		config.FlagBinding{Key: "data.raw_path", Flag: flags.Lookup("raw")},
		config.FlagBinding{Key: "features.eco_cutoff", Flag: flags.Lookup("eco-cutoff")},
	)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "summarize",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw, err := os.ReadFile(cfg.Data.RawPath)
	if err != nil {
		l.Error("failed to read raw dataset", err, zap.String("path", cfg.Data.RawPath))
		return err
	}

	// Rendered in full before anything reaches stdout
	var report bytes.Buffer
	err = summary.Write(&report, raw, summary.Options{
		ECOLengths:          cfg.Features.ECOLengths,
		Cutoff:              cfg.Features.ECOCutoff,
		MaxTimeLimitMinutes: cfg.Features.MaxTimeLimitMinutes,
		OutcomeECOChars:     outcomeECO,
	})
	if err != nil {
		l.Error("summary failed", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		l.Info("summary interrupted")
		return err
	}

	l.Info("summary complete", zap.String("path", cfg.Data.RawPath), zap.Int("bytes", len(raw)))
	_, err = report.WriteTo(cmd.OutOrStdout())
	return err
}

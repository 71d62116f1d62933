package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chessgames/internal/replayer"
	"chessgames/pkg/config"
	"chessgames/pkg/logger"
	"chessgames/pkg/producer"

	"github.com/spf13/cobra"
)

func main() {
	var cfgPath string
	cmd := &cobra.Command{
		Use:          "replayer",
		Short:        "Publish the raw chess games CSV to Kafka",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfgPath)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to a config file")
	flags.String("raw", "", "raw games CSV (data.raw_path)")
	flags.Int("batch-size", 0, "messages per publish (export.batch_size)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfgPath string) error {
	flags := cmd.Flags()
	cfg, err := config.Load(cfgPath,
		config.FlagBinding{Key: "data.raw_path", Flag: flags.Lookup("raw")},
		config.FlagBinding{Key: "export.batch_size", Flag: flags.Lookup("batch-size")},
	)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateStreaming(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "replayer",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(cfg.Data.RawPath)
	if err != nil {
		return fmt.Errorf("failed to open raw dataset: %w", err)
	}
	defer f.Close()

	svc := replayer.NewService(l, producer.NewKafkaProducer(producer.Config{
		Brokers:    cfg.Kafka.Brokers,
		Topic:      cfg.Kafka.GamesTopic,
		RequireAll: cfg.Kafka.RequireAllAcks,
	}), cfg.Export.BatchSize)
	defer svc.Close()

	if _, err := svc.Replay(ctx, f); err != nil {
		l.Error("replay failed", err)
		return err
	}
	return nil
}

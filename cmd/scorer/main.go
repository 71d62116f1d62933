package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chessgames/internal/scorer"
	"chessgames/pkg/config"
	"chessgames/pkg/consumer"
	"chessgames/pkg/logger"
	"chessgames/pkg/model"
	"chessgames/pkg/producer"
	"chessgames/pkg/schema"
	"chessgames/pkg/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var cfgPath string
	cmd := &cobra.Command{
		Use:          "scorer",
		Short:        "Score raw games from Kafka and publish outcome predictions",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfgPath)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to a config file")
	flags.String("model", "", "trained model (data.model_path)")
	flags.String("addr", "", "observability server address (server.addr)")
	flags.Bool("from-beginning", false, "read the games topic from the oldest offset (kafka.from_beginning)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, cfgPath string) error {
	// 1. Load config
	flags := cmd.Flags()
	cfg, err := config.Load(cfgPath,
		config.FlagBinding{Key: "data.model_path", Flag: flags.Lookup("model")},
		config.FlagBinding{Key: "server.addr", Flag: flags.Lookup("addr")},
		config.FlagBinding{Key: "kafka.from_beginning", Flag: flags.Lookup("from-beginning")},
	)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateStreaming(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 2. Initialize logger
	l, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Environment,
		ServiceName: "scorer",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	l.Info("scorer service initializing", zap.String("env", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Start observability server; not ready until the model is loaded
	obsServer := server.New(cfg.Server.Addr, l)
	go func() {
		if err := obsServer.Start(); err != nil {
			l.Error("observability server failed", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		obsServer.Shutdown(shutdownCtx)
	}()

	// 4. Load the frozen schema and the model trained against it
	store, closeStore, err := schema.Open(cfg.Schema, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeStore()

	sc, err := store.Load(ctx)
	if err != nil {
		l.Error("failed to load schema", err)
		return err
	}
	m, err := model.Load(cfg.Data.ModelPath)
	if err != nil {
		l.Error("failed to load model", err, zap.String("path", cfg.Data.ModelPath))
		return err
	}

	// 5. Initialize Kafka clients
	kafkaConsumer := consumer.NewKafkaConsumer(consumer.Config{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.GamesTopic,
		GroupID:       cfg.Kafka.GroupID,
		FromBeginning: cfg.Kafka.FromBeginning,
	})
	kafkaProducer := producer.NewKafkaProducer(producer.Config{
		Brokers:    cfg.Kafka.Brokers,
		Topic:      cfg.Kafka.PredictionsTopic,
		RequireAll: cfg.Kafka.RequireAllAcks,
	})

	// 6. Create service
	svc, err := scorer.NewService(l, kafkaConsumer, kafkaProducer, sc, m)
	if err != nil {
		kafkaConsumer.Close()
		kafkaProducer.Close()
		l.Error("model and schema disagree", err)
		return err
	}
	obsServer.MarkReady(m.SchemaVersion, cfg.Data.ModelPath)

	// 7. Start service
	l.Info("scorer service starting")
	err = svc.Start(ctx)
	obsServer.MarkNotReady()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			l.Info("scorer service stopping")
			return nil
		}
		l.Error("scorer service failed", err)
		return err
	}
	return nil
}

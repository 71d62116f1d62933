package replayer

import (
	"context"
	"fmt"
	"io"

	"chessgames/pkg/logger"
	"chessgames/pkg/metrics"
	"chessgames/pkg/parser"
	"chessgames/pkg/producer"

	"go.uber.org/zap"
)

// Service publishes raw games to Kafka, one JSON message per game keyed by id
type Service struct {
	logger    *logger.Logger
	producer  producer.Producer
	batchSize int
}

// NewService creates a new Replayer service instance
func NewService(l *logger.Logger, p producer.Producer, batchSize int) *Service {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Service{logger: l, producer: p, batchSize: batchSize}
}

// Replay reads a raw games CSV, drops duplicate ids and publishes the rest
// in batches. It returns the number of games published.
func (s *Service) Replay(ctx context.Context, r io.Reader) (int, error) {
	games, err := parser.ReadGames(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read games: %w", err)
	}
	games, dropped := parser.Deduplicate(games)
	s.logger.Info("replaying games", zap.Int("games", len(games)), zap.Int("duplicates", dropped))

	published := 0
	batch := make([]producer.Message, 0, s.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.producer.PublishBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to publish batch after %d games: %w", published, err)
		}
		published += len(batch)
		metrics.ReplayerGamesPublishedTotal.Add(float64(len(batch)))
		batch = batch[:0]
		return nil
	}

	for _, g := range games {
		data, err := parser.MarshalGameRecord(g)
		if err != nil {
			return published, fmt.Errorf("game %s: %w", g.ID, err)
		}
		batch = append(batch, producer.Message{Key: []byte(g.ID), Value: data})
		if len(batch) == s.batchSize {
			if err := flush(); err != nil {
				return published, err
			}
		}
	}
	if err := flush(); err != nil {
		return published, err
	}

	s.logger.Info("replay complete", zap.Int("published", published))
	return published, nil
}

// Close closes the producer
func (s *Service) Close() error {
	return s.producer.Close()
}

package scorer

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"chessgames/pkg/consumer"
	"chessgames/pkg/features"
	"chessgames/pkg/logger"
	"chessgames/pkg/metrics"
	"chessgames/pkg/model"
	"chessgames/pkg/parser"
	"chessgames/pkg/producer"
	"chessgames/pkg/retry"
	"chessgames/pkg/schema"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Prediction is published for every scored game
type Prediction struct {
	GameID        string             `json:"game_id"`
	SchemaVersion string             `json:"schema_version"`
	Predicted     string             `json:"predicted"`
	Outcome       int                `json:"outcome"`
	Probabilities map[string]float64 `json:"probabilities"`
}

type lagReporter interface {
	Lag() int64
}

// Service scores raw games from Kafka and publishes predictions
type Service struct {
	logger      *logger.Logger
	consumer    consumer.Consumer
	producer    producer.Producer
	schema      *schema.Schema
	model       *model.Model
	retryPolicy retry.Policy
}

// NewService creates a new Scorer service instance. The model must have been
// trained against sc.
func NewService(
	l *logger.Logger,
	c consumer.Consumer,
	p producer.Producer,
	sc *schema.Schema,
	m *model.Model,
) (*Service, error) {
	if err := sc.Verify(m.SchemaVersion); err != nil {
		return nil, fmt.Errorf("model does not match schema: %w", err)
	}
	if !slices.Equal(m.Features, sc.Columns()) {
		return nil, fmt.Errorf("%w: model features differ from schema columns", schema.ErrSchemaMismatch)
	}
	return &Service{
		logger:      l,
		consumer:    c,
		producer:    p,
		schema:      sc,
		model:       m,
		retryPolicy: retry.Default(),
	}, nil
}

// Score encodes a game and predicts its outcome
func (s *Service) Score(g parser.GameRecord) (Prediction, error) {
	x, err := s.schema.Encode(g)
	if err != nil {
		return Prediction{}, err
	}
	proba, err := s.model.PredictProba(x)
	if err != nil {
		return Prediction{}, err
	}

	p := Prediction{
		GameID:        g.ID,
		SchemaVersion: s.schema.Version,
		Probabilities: make(map[string]float64, len(proba)),
	}
	best := 0
	for i, c := range s.model.Classes {
		p.Probabilities[features.OutcomeLabel(c)] = proba[i]
		if proba[i] > proba[best] {
			best = i
		}
	}
	p.Outcome = s.model.Classes[best]
	p.Predicted = features.OutcomeLabel(p.Outcome)
	return p, nil
}

// Start begins the message consumption and scoring loop. The consumer and
// producer are closed when it returns.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("starting scorer service", zap.String("schema_version", s.schema.Version))

	defer func() {
		if err := s.Stop(); err != nil {
			s.logger.Error("error during service stop", err)
		}
	}()

	msgChan, errChan := s.consumer.Consume(ctx)

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				return drainErrors(ctx, errChan)
			}
			if err := s.handleMessage(ctx, msg); err != nil {
				s.logger.Error("failed to handle message", err,
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset))
				return err
			}
			if lr, ok := s.consumer.(lagReporter); ok {
				metrics.ScorerConsumerLag.Set(float64(lr.Lag()))
			}

		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			if err != nil {
				return fmt.Errorf("consumer error: %w", err)
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drainErrors reports a fetch error that raced with the message channel
// closing
func drainErrors(ctx context.Context, errChan <-chan error) error {
	for errChan != nil {
		select {
		case err, ok := <-errChan:
			if !ok {
				return nil
			}
			if err != nil {
				return fmt.Errorf("consumer error: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Service) handleMessage(ctx context.Context, msg consumer.Message) error {
	metrics.ScorerMessagesConsumedTotal.Inc()

	g, err := parser.ParseGameRecord(msg.Value)
	if err == nil {
		var pred Prediction
		if pred, err = s.Score(g); err == nil {
			if err := s.publish(ctx, pred); err != nil {
				return err
			}
			return s.consumer.Commit(ctx, msg)
		}
	}

	// Malformed or unscorable games are skipped, the offset still moves on
	metrics.ScorerMalformedTotal.Inc()
	s.logger.Warn("skipping game",
		zap.Error(err),
		zap.Int64("offset", msg.Offset),
		zap.ByteString("payload", msg.Value))
	return s.consumer.Commit(ctx, msg)
}

func (s *Service) publish(ctx context.Context, pred Prediction) error {
	data, err := json.Marshal(pred)
	if err != nil {
		return fmt.Errorf("failed to serialize prediction: %w", err)
	}

	err = retry.Do(ctx, s.retryPolicy, func(ctx context.Context) error {
		result := <-s.producer.PublishAsync(ctx, []byte(pred.GameID), data)
		return result.Error
	})
	if err != nil {
		metrics.ScorerPublishErrorsTotal.Inc()
		return fmt.Errorf("failed to publish prediction after retries: %w", err)
	}

	metrics.ScorerPredictionsTotal.WithLabelValues(pred.Predicted).Inc()
	s.logger.ForGame(pred.GameID).Debug("published prediction", zap.String("predicted", pred.Predicted))
	return nil
}

// Stop closes the consumer and the producer
func (s *Service) Stop() error {
	s.logger.Info("stopping scorer service")
	return errors.Join(s.consumer.Close(), s.producer.Close())
}

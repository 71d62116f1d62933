package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Extractor Metrics
	ExtractorGamesReadTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessgames_extractor_games_read_total",
		Help: "The total number of raw game rows read",
	})
	ExtractorDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessgames_extractor_duplicates_total",
		Help: "The total number of rows dropped as duplicate game ids",
	})
	ExtractorRowsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessgames_extractor_rows_written_total",
		Help: "The total number of design-matrix rows written",
	})

	// Export Metrics
	ExportBatchWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessgames_export_batch_writes_total",
		Help: "The total number of batch write operations to PostgreSQL",
	})
	ExportWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessgames_export_write_errors_total",
		Help: "The total number of errors occurred during PostgreSQL writes",
	})
	ExportUpsertLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chessgames_export_upsert_latency_seconds",
		Help:    "Latency of PostgreSQL UPSERT operations",
		Buckets: prometheus.DefBuckets,
	})

	// Scorer Metrics
	ScorerMessagesConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessgames_scorer_messages_consumed_total",
		Help: "The total number of game messages consumed from Kafka",
	})
	ScorerMalformedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessgames_scorer_malformed_total",
		Help: "The total number of game messages skipped as malformed",
	})
	ScorerPredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chessgames_scorer_predictions_total",
		Help: "The total number of predictions published, by predicted outcome",
	}, []string{"outcome"})
	ScorerPublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessgames_scorer_publish_errors_total",
		Help: "The total number of errors occurred while publishing predictions",
	})
	ScorerConsumerLag = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chessgames_scorer_consumer_lag",
		Help: "Games waiting on the input topic behind the scorer",
	})

	// Replayer Metrics
	ReplayerGamesPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chessgames_replayer_games_published_total",
		Help: "The total number of raw games published to Kafka",
	})
)

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Schema modes
const (
	SchemaModeBuild  = "build"
	SchemaModeFrozen = "frozen"
)

// Schema store backends
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// AppConfig holds the complete configuration for the application
type AppConfig struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	ServiceName string         `mapstructure:"service_name"`
	Data        DataConfig     `mapstructure:"data"`
	Features    FeaturesConfig `mapstructure:"features"`
	Schema      SchemaConfig   `mapstructure:"schema"`
	Model       ModelConfig    `mapstructure:"model"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
	Export      ExportConfig   `mapstructure:"export"`
	Server      ServerConfig   `mapstructure:"server"`
}

type DataConfig struct {
	RawPath       string `mapstructure:"raw_path"`
	ProcessedPath string `mapstructure:"processed_path"`
	ModelPath     string `mapstructure:"model_path"`
}

type FeaturesConfig struct {
	ECOLengths          []int   `mapstructure:"eco_lengths"`
	ECOCutoff           int     `mapstructure:"eco_cutoff"`
	MaxTimeLimitMinutes float64 `mapstructure:"max_time_limit_minutes"`
}

type SchemaConfig struct {
	Mode     string `mapstructure:"mode"`
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
	RedisKey string `mapstructure:"redis_key"`
}

type ModelConfig struct {
	TestSize float64 `mapstructure:"test_size"`
	Seed     int64   `mapstructure:"seed"`
	MaxIter  int     `mapstructure:"max_iter"`
	C        float64 `mapstructure:"c"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	GamesTopic       string   `mapstructure:"games_topic"`
	PredictionsTopic string   `mapstructure:"predictions_topic"`
	GroupID          string   `mapstructure:"group_id"`
	FromBeginning    bool     `mapstructure:"from_beginning"`
	RequireAllAcks   bool     `mapstructure:"require_all_acks"`
}

type PostgresConfig struct {
	URI      string `mapstructure:"uri"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

type ExportConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	WorkerCount   int           `mapstructure:"worker_count"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// FlagBinding lets a command-line flag override a configuration key
type FlagBinding struct {
	Key  string
	Flag *pflag.Flag
}

// Load loads configuration from defaults, an optional file, environment
// variables and command-line flags, in increasing order of precedence
func Load(path string, bindings ...FlagBinding) (*AppConfig, error) {
	v := viper.New()

	// Default values
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("service_name", "chessgames")
	v.SetDefault("data.raw_path", "./data/chess_games.csv")
	v.SetDefault("data.processed_path", "./data/processed_chess_games.csv")
	v.SetDefault("data.model_path", "./data/model.json")
	v.SetDefault("features.eco_lengths", []int{1, 2, 3})
	v.SetDefault("features.eco_cutoff", 100)
	v.SetDefault("features.max_time_limit_minutes", 60.0)
	v.SetDefault("schema.mode", SchemaModeBuild)
	v.SetDefault("schema.backend", BackendFile)
	v.SetDefault("schema.path", "./data/schema.json")
	v.SetDefault("schema.redis_key", "chessgames:schema")
	v.SetDefault("model.test_size", 0.2)
	v.SetDefault("model.seed", 13)
	v.SetDefault("model.max_iter", 1000)
	v.SetDefault("model.c", 1.0)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("kafka.games_topic", "chess.games")
	v.SetDefault("kafka.predictions_topic", "chess.predictions")
	v.SetDefault("kafka.group_id", "chessgames-scorer")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("export.batch_size", 1000)
	v.SetDefault("export.flush_interval", 500*time.Millisecond)
	v.SetDefault("export.worker_count", 4)
	v.SetDefault("server.addr", ":8080")

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// Bind environment variables explicitly for nested structs to ensure Unmarshal picks them up
	v.BindEnv("service_name", "SERVICE_NAME")
	v.BindEnv("environment", "ENVIRONMENT")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("data.raw_path", "DATA_RAW_PATH")
	v.BindEnv("data.processed_path", "DATA_PROCESSED_PATH")
	v.BindEnv("data.model_path", "DATA_MODEL_PATH")
	v.BindEnv("features.eco_cutoff", "FEATURES_ECO_CUTOFF")
	v.BindEnv("features.max_time_limit_minutes", "FEATURES_MAX_TIME_LIMIT_MINUTES")
	v.BindEnv("schema.mode", "SCHEMA_MODE")
	v.BindEnv("schema.backend", "SCHEMA_BACKEND")
	v.BindEnv("schema.path", "SCHEMA_PATH")
	v.BindEnv("schema.redis_key", "SCHEMA_REDIS_KEY")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.games_topic", "KAFKA_GAMES_TOPIC")
	v.BindEnv("kafka.predictions_topic", "KAFKA_PREDICTIONS_TOPIC")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("kafka.from_beginning", "KAFKA_FROM_BEGINNING")
	v.BindEnv("kafka.require_all_acks", "KAFKA_REQUIRE_ALL_ACKS")
	v.BindEnv("postgres.uri", "POSTGRES_URI")
	v.BindEnv("postgres.max_conns", "POSTGRES_MAX_CONNS")
	v.BindEnv("postgres.min_conns", "POSTGRES_MIN_CONNS")
	v.BindEnv("export.batch_size", "EXPORT_BATCH_SIZE")
	v.BindEnv("export.flush_interval", "EXPORT_FLUSH_INTERVAL")
	v.BindEnv("export.worker_count", "EXPORT_WORKER_COUNT")
	v.BindEnv("server.addr", "SERVER_ADDR")

	for _, b := range bindings {
		if b.Flag == nil {
			continue
		}
		if err := v.BindPFlag(b.Key, b.Flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", b.Flag.Name, err)
		}
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Manual check for Kafka brokers if they came as a single string from env
	brokers := v.GetString("kafka.brokers")
	if brokers != "" && len(config.Kafka.Brokers) <= 1 {
		config.Kafka.Brokers = strings.Split(brokers, ",")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *AppConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service_name is required")
	}
	if c.Data.RawPath == "" {
		return errors.New("data.raw_path is required")
	}
	if c.Data.ProcessedPath == "" {
		return errors.New("data.processed_path is required")
	}
	if len(c.Features.ECOLengths) == 0 {
		return errors.New("features.eco_lengths is required")
	}
	seen := make(map[int]bool, len(c.Features.ECOLengths))
	for _, n := range c.Features.ECOLengths {
		if n < 1 || n > 3 {
			return fmt.Errorf("features.eco_lengths: %d is outside 1..3", n)
		}
		if seen[n] {
			return fmt.Errorf("features.eco_lengths: %d is listed twice", n)
		}
		seen[n] = true
	}
	if c.Features.ECOCutoff < 1 {
		return errors.New("features.eco_cutoff must be positive")
	}
	if c.Features.MaxTimeLimitMinutes <= 0 {
		return errors.New("features.max_time_limit_minutes must be positive")
	}
	if c.Schema.Mode != SchemaModeBuild && c.Schema.Mode != SchemaModeFrozen {
		return fmt.Errorf("schema.mode must be %q or %q", SchemaModeBuild, SchemaModeFrozen)
	}
	switch c.Schema.Backend {
	case BackendFile:
		if c.Schema.Path == "" {
			return errors.New("schema.path is required for the file backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis backend")
		}
		if c.Schema.RedisKey == "" {
			return errors.New("schema.redis_key is required for the redis backend")
		}
	default:
		return fmt.Errorf("schema.backend must be %q or %q", BackendFile, BackendRedis)
	}
	if c.Model.TestSize <= 0 || c.Model.TestSize >= 1 {
		return errors.New("model.test_size must be between 0 and 1")
	}
	if c.Model.MaxIter < 1 {
		return errors.New("model.max_iter must be positive")
	}
	if c.Model.C <= 0 {
		return errors.New("model.c must be positive")
	}
	return nil
}

// ValidateStreaming checks the settings the Kafka-facing binaries need
func (c *AppConfig) ValidateStreaming() error {
	if len(c.Kafka.Brokers) == 0 || c.Kafka.Brokers[0] == "" {
		return errors.New("kafka.brokers is required")
	}
	if c.Kafka.GamesTopic == "" {
		return errors.New("kafka.games_topic is required")
	}
	if c.Kafka.PredictionsTopic == "" {
		return errors.New("kafka.predictions_topic is required")
	}
	return nil
}

// ExportEnabled reports whether the design matrix should also go to Postgres
func (c *AppConfig) ExportEnabled() bool {
	return c.Postgres.URI != ""
}

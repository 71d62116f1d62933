package schema

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"chessgames/pkg/config"

	"github.com/redis/go-redis/v9"
)

// ErrSchemaNotFound is returned by Load when nothing was saved yet
var ErrSchemaNotFound = errors.New("schema not found")

// Store persists a frozen schema between extraction, training and scoring
type Store interface {
	// Save persists the schema, replacing any previous one
	Save(ctx context.Context, s *Schema) error

	// Load retrieves the saved schema. Returns ErrSchemaNotFound if none exists.
	Load(ctx context.Context) (*Schema, error)
}

// FileStore implements Store using a local JSON file
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Save(ctx context.Context, sc *Schema) error {
	data, err := sc.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0644)
}

func (s *FileStore) Load(ctx context.Context) (*Schema, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSchemaNotFound
		}
		return nil, err
	}
	return Unmarshal(data)
}

// RedisStore implements Store using a Redis key
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{
		client: client,
		key:    key,
	}
}

func (s *RedisStore) Save(ctx context.Context, sc *Schema) error {
	data, err := sc.Marshal()
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key, data, 0).Err()
}

func (s *RedisStore) Load(ctx context.Context) (*Schema, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSchemaNotFound
		}
		return nil, err
	}
	return Unmarshal(data)
}

// Open returns the store selected by the schema config and a function that
// releases it
func Open(cfg config.SchemaConfig, rc config.RedisConfig) (Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.Path), func() error { return nil }, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		return NewRedisStore(client, cfg.RedisKey), client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown schema backend %q", cfg.Backend)
}

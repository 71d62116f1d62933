package schema

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"chessgames/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tmpDir := t.TempDir()

	properties.Property("file and redis stores return the saved schema", prop.ForAll(
		func(codes []string, cutoff int) bool {
			sc := Build(codes, Options{Lengths: []int{1, 2, 3}, Cutoff: cutoff, MaxTimeLimitMinutes: 60})

			stores := []Store{
				NewFileStore(filepath.Join(tmpDir, "schema.json")),
				NewRedisStore(redisClient, "schema-test"),
			}
			for _, s := range stores {
				if err := s.Save(context.Background(), sc); err != nil {
					return false
				}
				loaded, err := s.Load(context.Background())
				if err != nil {
					return false
				}
				if loaded.Version != sc.Version || loaded.Width() != sc.Width() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.OneConstOf("A00", "B01", "B02", "C20", "D10", "E60")),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestStoreNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	_, err = NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "missing").Load(context.Background())
	assert.True(t, errors.Is(err, ErrSchemaNotFound))

	_, err = NewFileStore(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())
	assert.True(t, errors.Is(err, ErrSchemaNotFound))
}

func TestFileStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "schema.json")
	sc := Build([]string{"A00"}, Options{Lengths: []int{1}, Cutoff: 1, MaxTimeLimitMinutes: 60})

	require.NoError(t, NewFileStore(path).Save(context.Background(), sc))
	loaded, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sc.Version, loaded.Version)
}

func TestOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	sc := Build([]string{"B01"}, Options{Lengths: []int{1}, Cutoff: 1, MaxTimeLimitMinutes: 60})
	cases := []config.SchemaConfig{
		{Backend: config.BackendFile, Path: filepath.Join(t.TempDir(), "schema.json")},
		{Backend: config.BackendRedis, RedisKey: "chessgames:schema"},
	}
	for _, cfg := range cases {
		store, closeFn, err := Open(cfg, config.RedisConfig{Addr: mr.Addr()})
		require.NoError(t, err, cfg.Backend)
		require.NoError(t, store.Save(context.Background(), sc))
		loaded, err := store.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, sc.Version, loaded.Version)
		assert.NoError(t, closeFn())
	}
	assert.True(t, mr.Exists("chessgames:schema"))

	_, _, err = Open(config.SchemaConfig{Backend: "s3"}, config.RedisConfig{})
	assert.Error(t, err)
}

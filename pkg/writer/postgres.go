package writer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chessgames/pkg/logger"
	"chessgames/pkg/retry"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// copyThreshold is the batch size from which COPY is used instead of INSERT
const copyThreshold = 100

// ErrMixedBatch is returned for a batch whose rows disagree on schema
// version or feature count
var ErrMixedBatch = errors.New("batch mixes schema versions or feature widths")

// PGWriter implements RowWriter using pgxpool. Rows are upserted by game id
// into the design_matrix table.
type PGWriter struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// PostgresConfig holds database connection settings
type PostgresConfig struct {
	URI      string
	MinConns int32
	MaxConns int32
}

const createTable = `
	CREATE TABLE IF NOT EXISTS design_matrix (
		game_id        TEXT PRIMARY KEY,
		schema_version TEXT NOT NULL,
		features       DOUBLE PRECISION[] NOT NULL,
		outcome        INTEGER NOT NULL,
		is_draw        INTEGER NOT NULL
	)
`

// NewPostgresWriter creates a new PGWriter instance and makes sure the
// target table exists
func NewPostgresWriter(ctx context.Context, cfg PostgresConfig, l *logger.Logger) (*PGWriter, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, createTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create design_matrix table: %w", err)
	}

	return &PGWriter{pool: pool, logger: l}, nil
}

// WriteBatch writes the rows using the best available protocol
func (w *PGWriter) WriteBatch(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := CheckBatch(rows); err != nil {
		return retry.Permanent(err)
	}

	if w.ShouldUseCopy(rows) {
		return w.writeBatchCopy(ctx, rows)
	}
	return w.writeBatchInsert(ctx, rows)
}

const upsertSet = `
	ON CONFLICT (game_id) DO UPDATE SET
		schema_version = EXCLUDED.schema_version,
		features = EXCLUDED.features,
		outcome = EXCLUDED.outcome,
		is_draw = EXCLUDED.is_draw
`

// writeBatchInsert upserts row by row inside one transaction
func (w *PGWriter) writeBatchInsert(ctx context.Context, rows []Row) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO design_matrix (game_id, schema_version, features, outcome, is_draw)
		VALUES ($1, $2, $3, $4, $5)
	` + upsertSet + `
		RETURNING (xmax = 0) AS inserted
	`
	for _, r := range rows {
		var inserted bool
		err := tx.QueryRow(ctx, query, r.GameID, r.SchemaVersion, r.Values, r.Outcome, r.IsDraw).Scan(&inserted)
		if err != nil {
			return err
		}

		status := "updated"
		if inserted {
			status = "inserted"
		}
		w.logger.ForGame(r.GameID).Debug("upsert complete", zap.String("status", status))
	}
	return tx.Commit(ctx)
}

// writeBatchCopy stages rows in a temp table with COPY, then upserts them
func (w *PGWriter) writeBatchCopy(ctx context.Context, rows []Row) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "CREATE TEMP TABLE design_matrix_temp (LIKE design_matrix) ON COMMIT DROP")
	if err != nil {
		return fmt.Errorf("failed to create temp table: %w", err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"design_matrix_temp"},
		[]string{"game_id", "schema_version", "features", "outcome", "is_draw"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.GameID, r.SchemaVersion, r.Values, r.Outcome, r.IsDraw}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy from failed: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO design_matrix SELECT * FROM design_matrix_temp`+upsertSet)
	if err != nil {
		return fmt.Errorf("upsert from temp table failed: %w", err)
	}

	return tx.Commit(ctx)
}

// Close closes the pool
func (w *PGWriter) Close() error {
	w.pool.Close()
	return nil
}

// ShouldUseCopy reports whether a batch is large enough for the COPY protocol
func (w *PGWriter) ShouldUseCopy(rows []Row) bool {
	return len(rows) >= copyThreshold
}

// CheckBatch verifies that every row shares the first row's schema version
// and feature width
func CheckBatch(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	version, width := rows[0].SchemaVersion, len(rows[0].Values)
	for _, r := range rows[1:] {
		if r.SchemaVersion != version {
			return fmt.Errorf("%w: game %s has schema %q, batch has %q", ErrMixedBatch, r.GameID, r.SchemaVersion, version)
		}
		if len(r.Values) != width {
			return fmt.Errorf("%w: game %s has %d features, batch has %d", ErrMixedBatch, r.GameID, len(r.Values), width)
		}
	}
	return nil
}

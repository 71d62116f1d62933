package writer

import "context"

// Row is one design-matrix row
type Row struct {
	GameID        string    `db:"game_id"`
	SchemaVersion string    `db:"schema_version"`
	Values        []float64 `db:"features"`
	Outcome       int       `db:"outcome"`
	IsDraw        int       `db:"is_draw"`
}

// RowWriter persists batches of design-matrix rows
type RowWriter interface {
	// WriteBatch writes a batch of rows
	WriteBatch(ctx context.Context, rows []Row) error

	// Close releases the underlying resources
	Close() error
}

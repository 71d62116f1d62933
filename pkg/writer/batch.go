package writer

import "time"

// RowBatch accumulates rows for a single worker until the batch is full or
// its oldest row has waited long enough. It is not safe for concurrent use.
type RowBatch struct {
	rows     []Row
	capacity int
	oldest   time.Time
	now      func() time.Time
}

// NewRowBatch returns an empty batch that reports full at capacity rows
func NewRowBatch(capacity int) *RowBatch {
	if capacity < 1 {
		capacity = 1
	}
	return &RowBatch{
		rows:     make([]Row, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

// Add appends a row and reports whether the batch is now full
func (b *RowBatch) Add(row Row) bool {
	if len(b.rows) == 0 {
		b.oldest = b.now()
	}
	b.rows = append(b.rows, row)
	return len(b.rows) >= b.capacity
}

// Take hands over the buffered rows and starts a fresh batch
func (b *RowBatch) Take() []Row {
	rows := b.rows
	b.rows = make([]Row, 0, b.capacity)
	return rows
}

// Len returns the number of buffered rows
func (b *RowBatch) Len() int {
	return len(b.rows)
}

// Stale reports whether a non-empty batch has held its first row for at
// least maxAge
func (b *RowBatch) Stale(maxAge time.Duration) bool {
	return len(b.rows) > 0 && b.now().Sub(b.oldest) >= maxAge
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chessgames/pkg/logger"
	"chessgames/pkg/metrics"
	"chessgames/pkg/retry"
	"chessgames/pkg/writer"

	"go.uber.org/zap"
)

// WorkerPool fans design-matrix rows out to workers that batch them into a
// RowWriter. Failed batches are retried; a batch that still fails is
// reported by Shutdown.
type WorkerPool struct {
	logger        *logger.Logger
	writer        writer.RowWriter
	numWorkers    int
	batchSize     int
	flushInterval time.Duration
	retryPolicy   retry.Policy
	inputChan     chan writer.Row
	wg            sync.WaitGroup
	workerCtx     context.Context
	cancel        context.CancelFunc

	mu   sync.Mutex
	errs []error
}

// NewWorkerPool creates a new WorkerPool instance
func NewWorkerPool(l *logger.Logger, w writer.RowWriter, numWorkers, batchSize int, flushInterval time.Duration) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool{
		logger:        l,
		writer:        w,
		numWorkers:    numWorkers,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		retryPolicy:   retry.Default(),
		inputChan:     make(chan writer.Row, numWorkers*2), // Buffered for smooth handoff
	}
}

// WithRetryPolicy overrides the retry policy used for batch writes
func (p *WorkerPool) WithRetryPolicy(policy retry.Policy) *WorkerPool {
	p.retryPolicy = policy
	return p
}

// Start initializes the worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	p.workerCtx = workerCtx
	p.cancel = cancel

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.runWorker(workerCtx, i)
	}
}

// Submit sends a row to the pool
func (p *WorkerPool) Submit(ctx context.Context, row writer.Row) error {
	select {
	case p.inputChan <- row:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *WorkerPool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()

	p.logger.Debug("worker started", zap.Int("worker_id", id))

	batch := writer.NewRowBatch(p.batchSize)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case row, ok := <-p.inputChan:
			if !ok {
				p.flush(ctx, batch)
				return
			}
			if batch.Add(row) {
				p.flush(ctx, batch)
			}

		case <-ticker.C:
			if batch.Stale(p.flushInterval) {
				p.flush(ctx, batch)
			}

		case <-ctx.Done():
			p.flush(context.Background(), batch)
			return
		}
	}
}

func (p *WorkerPool) flush(ctx context.Context, batch *writer.RowBatch) {
	rows := batch.Take()
	if len(rows) == 0 {
		return
	}

	policy := p.retryPolicy
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		p.logger.Warn("retrying batch write",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Int("rows", len(rows)))
	}

	start := time.Now()
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		return p.writer.WriteBatch(ctx, rows)
	})
	if err != nil {
		p.logger.Error("failed to write batch", err, zap.Int("rows", len(rows)))
		metrics.ExportWriteErrorsTotal.Inc()
		p.mu.Lock()
		p.errs = append(p.errs, fmt.Errorf("batch of %d rows starting at %s: %w", len(rows), rows[0].GameID, err))
		p.mu.Unlock()
		return
	}
	metrics.ExportUpsertLatency.Observe(time.Since(start).Seconds())
	metrics.ExportBatchWritesTotal.Inc()
}

// Shutdown stops accepting rows, waits for workers to flush, and returns
// any batch that could not be written
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	close(p.inputChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	errs := p.errs
	// Workers stop early when the Start context is cancelled
	if stranded := len(p.inputChan); stranded > 0 {
		cause := errors.New("pool not started")
		if p.workerCtx != nil && p.workerCtx.Err() != nil {
			cause = context.Cause(p.workerCtx)
		}
		errs = append(errs, fmt.Errorf("%d rows never written: %w", stranded, cause))
	}
	return errors.Join(errs...)
}

package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"site-monitor/simulator/internal/domain"
	"site-monitor/simulator/internal/metrics"
)

type StatePublisher interface {
	PipelineStateUpdate(ctx context.Context, site *domain.SiteSnapshot) error
}

// StateWriter pushes the latest state of every site to the live store.
// Within a batch only the newest snapshot of each site is written.
type StateWriter struct {
	ch        <-chan *domain.TickResult
	store     StatePublisher
	logger    *zap.Logger
	batchSize int
	flushMS   int
}

const (
	defaultBatchSize = 16
	defaultFlushMS   = 250
)

// NewStateWriter falls back to the defaults for a non-positive batch size or
// flush interval.
func NewStateWriter(
	ch <-chan *domain.TickResult,
	store StatePublisher,
	logger *zap.Logger,
	batchSize int,
	flushMS int,
) *StateWriter {
	if batchSize <= 0 {
		logger.Warn("invalid state batch size, using default",
			zap.Int("batch_size", batchSize), zap.Int("default", defaultBatchSize))
		batchSize = defaultBatchSize
	}
	if flushMS <= 0 {
		logger.Warn("invalid state flush interval, using default",
			zap.Int("flush_ms", flushMS), zap.Int("default", defaultFlushMS))
		flushMS = defaultFlushMS
	}
	return &StateWriter{
		ch:        ch,
		store:     store,
		logger:    logger,
		batchSize: batchSize,
		flushMS:   flushMS,
	}
}

func (w *StateWriter) Run(ctx context.Context) {
	batch := make([]*domain.TickResult, 0, w.batchSize)
	ticker := time.NewTicker(time.Duration(w.flushMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case res, ok := <-w.ch:
			if !ok {
				w.flush(ctx, batch)
				return
			}
			batch = append(batch, res)
			if len(batch) >= w.batchSize {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			w.flush(context.Background(), batch)
			return
		}
	}
}

func (w *StateWriter) flush(ctx context.Context, batch []*domain.TickResult) {
	if len(batch) == 0 {
		return
	}
	latest := make(map[string]*domain.SiteSnapshot)
	var order []string
	for _, res := range batch {
		for i := range res.Sites {
			s := &res.Sites[i]
			if _, seen := latest[s.Name]; !seen {
				order = append(order, s.Name)
			}
			latest[s.Name] = s
		}
	}
	for _, name := range order {
		if err := w.store.PipelineStateUpdate(ctx, latest[name]); err != nil {
			metrics.RedisWriteFailures.Inc()
			w.logger.Warn("state update failed", zap.String("site", name), zap.Error(err))
		}
	}
}

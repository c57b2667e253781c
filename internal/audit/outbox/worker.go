package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"homehelp/internal/platform/kafka/producer"
)

// Producer is the subset of the Kafka producer the worker needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Worker polls the outbox table and publishes unpublished rows to Kafka.
// It is the outbox's sole consumer; run exactly one per deployment. Rows
// stay in the outbox until a publish succeeds, so delivery is
// at-least-once; consumers deduplicate on entry ID.
type Worker struct {
	store     Store
	producer  Producer
	topic     string
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	depth     func(int)
}

// Option configures a Worker.
type Option func(*Worker)

// WithInterval sets the polling interval (default 2s).
func WithInterval(d time.Duration) Option {
	return func(w *Worker) { w.interval = d }
}

// WithBatchSize sets the maximum rows fetched per poll (default 100).
func WithBatchSize(n int) Option {
	return func(w *Worker) { w.batchSize = n }
}

// WithDepthGauge registers a callback receiving the outbox depth each poll.
func WithDepthGauge(fn func(int)) Option {
	return func(w *Worker) { w.depth = fn }
}

// NewWorker creates an outbox worker publishing to the given topic.
func NewWorker(store Store, p Producer, topic string, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		store:     store,
		producer:  p,
		topic:     topic,
		logger:    logger,
		interval:  2 * time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the context is cancelled, then performs one final drain pass.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			w.poll(drainCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	rows, err := w.store.FetchUnpublished(ctx, w.batchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "outbox fetch failed", "error", err)
		return
	}

	published := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		msg := &producer.Message{
			Topic: w.topic,
			Key:   []byte(row.EntryID.String()),
			Value: row.Payload,
			Headers: map[string]string{
				"entry_id": row.EntryID.String(),
			},
		}
		if err := w.producer.Produce(ctx, msg); err != nil {
			// Stop the batch on first failure to preserve ordering; the
			// remaining rows stay queued for the next poll.
			w.logger.WarnContext(ctx, "outbox publish failed",
				"error", err,
				"outbox_id", row.ID.String(),
			)
			break
		}
		published = append(published, row.ID)
	}

	if len(published) > 0 {
		if err := w.store.MarkPublished(ctx, published); err != nil {
			w.logger.ErrorContext(ctx, "outbox mark published failed", "error", err)
		}
	}

	if w.depth != nil {
		if depth, err := w.store.Depth(ctx); err == nil {
			w.depth(depth)
		}
	}
}

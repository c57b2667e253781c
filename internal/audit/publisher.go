package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Recorder accepts audit entries without blocking the caller. The gateway and
// services depend on this interface rather than the concrete publisher.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// DroppedFunc is invoked when an entry is discarded because the buffer is full.
type DroppedFunc func()

// Publisher writes audit entries asynchronously through a bounded buffer.
// Writes never block the calling request: when the buffer is full the entry
// is dropped and counted. Auditing is observability, not a ledger.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	buffer  chan Entry
	dropped DroppedFunc

	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}
}

// NewPublisher creates a publisher draining into the given store.
// bufferSize bounds the number of in-flight entries; onDropped may be nil.
func NewPublisher(store Store, logger *slog.Logger, bufferSize int, onDropped DroppedFunc) *Publisher {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	p := &Publisher{
		store:   store,
		logger:  logger,
		buffer:  make(chan Entry, bufferSize),
		dropped: onDropped,
		stop:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Record enqueues an entry for persistence. It never blocks and never
// returns an error: a full buffer drops the entry with a warning.
func (p *Publisher) Record(ctx context.Context, entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	select {
	case p.buffer <- entry:
	default:
		if p.dropped != nil {
			p.dropped()
		}
		p.logger.WarnContext(ctx, "audit buffer full, entry dropped",
			"kind", string(entry.Kind),
			"subject_id", entry.SubjectID,
		)
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case entry := <-p.buffer:
			p.persist(entry)
		case <-p.stop:
			// Drain whatever is already buffered before exiting.
			for {
				select {
				case entry := <-p.buffer:
					p.persist(entry)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) persist(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.store.Insert(ctx, entry); err != nil {
		p.logger.Error("failed to persist audit entry",
			"error", err,
			"kind", string(entry.Kind),
			"entry_id", entry.ID.String(),
		)
	}
}

// Close stops the worker after draining buffered entries.
func (p *Publisher) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	p.wg.Wait()
}

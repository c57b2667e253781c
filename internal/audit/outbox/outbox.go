// Package outbox relays audit entries from the transactional outbox table to
// Kafka. Rows are written in the same transaction as the audit entry itself,
// so nothing is published that was never persisted.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Row is one unpublished outbox record.
type Row struct {
	ID          uuid.UUID
	EntryID     uuid.UUID
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// Store provides access to the outbox table.
type Store interface {
	// FetchUnpublished returns up to limit unpublished rows, oldest first.
	FetchUnpublished(ctx context.Context, limit int) ([]Row, error)

	// MarkPublished stamps the given rows as published.
	MarkPublished(ctx context.Context, ids []uuid.UUID) error

	// Depth returns the number of unpublished rows.
	Depth(ctx context.Context) (int, error)
}

// PostgresStore is the production outbox store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FetchUnpublished reads without row locks: a single worker owns the outbox
// (one goroutine per process, one replica of the service), and delivery is
// at-least-once anyway, so a rare duplicate publish after a crash between
// fetch and mark is absorbed by consumer-side deduplication on entry ID.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_id, payload, created_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox rows: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.EntryID, &r.Payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox
		SET published_at = NOW()
		WHERE id = ANY($1::uuid[])`, uuidArrayLiteral(raw))
	if err != nil {
		return fmt.Errorf("mark outbox rows published: %w", err)
	}
	return nil
}

func (s *PostgresStore) Depth(ctx context.Context) (int, error) {
	var depth int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_outbox WHERE published_at IS NULL`).Scan(&depth)
	if err != nil {
		return 0, fmt.Errorf("outbox depth: %w", err)
	}
	return depth, nil
}

// uuidArrayLiteral renders a Postgres array literal cast server-side to uuid[].
func uuidArrayLiteral(vals []string) string {
	out := "{"
	for i, v := range vals {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out + "}"
}

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	id "homehelp/pkg/domain"
)

// PostgresStore persists audit entries in the audit_entries table and mirrors
// each insert into audit_outbox within the same transaction, so the outbox
// worker can publish entries to Kafka without risking a write that was
// audited but never queued.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, entry Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_entries (
			id, kind, subject_id, reference_id,
			request_payload, response_payload,
			succeeded, error_text, actor_id, correlation_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(entry.ID), string(entry.Kind), nullString(entry.SubjectID), nullString(entry.ReferenceID),
		nullRaw(entry.RequestPayload), nullRaw(entry.ResponsePayload),
		entry.Succeeded, nullString(entry.ErrorText), nullString(entry.ActorID), nullString(entry.CorrelationID), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_outbox (id, entry_id, payload, created_at)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), uuid.UUID(entry.ID), payload, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `
		SELECT id, kind, subject_id, reference_id,
		       request_payload, response_payload,
		       succeeded, error_text, actor_id, correlation_id, created_at
		FROM audit_entries`

	where, args := buildWhere(filter)
	query += where
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	entries := make([]Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context, filter Filter) (int, error) {
	query := "SELECT COUNT(*) FROM audit_entries"
	where, args := buildWhere(filter)
	query += where

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}

func buildWhere(filter Filter) (string, []any) {
	var conds []string
	var args []any

	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conds = append(conds, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Succeeded != nil {
		args = append(args, *filter.Succeeded)
		conds = append(conds, fmt.Sprintf("succeeded = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry                             Entry
		entryID                           uuid.UUID
		kind                              string
		subjectID, referenceID, errorText sql.NullString
		actorID, correlationID            sql.NullString
		requestPayload, responsePayload   []byte
	)

	err := rows.Scan(
		&entryID, &kind, &subjectID, &referenceID,
		&requestPayload, &responsePayload,
		&entry.Succeeded, &errorText, &actorID, &correlationID, &entry.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("scan audit entry: %w", err)
	}

	entry.ID = id.EntryID(entryID)
	entry.Kind = Kind(kind)
	entry.SubjectID = subjectID.String
	entry.ReferenceID = referenceID.String
	entry.ErrorText = errorText.String
	entry.ActorID = actorID.String
	entry.CorrelationID = correlationID.String
	entry.RequestPayload = requestPayload
	entry.ResponsePayload = responsePayload
	return entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

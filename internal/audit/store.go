package audit

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an entry lookup finds nothing.
var ErrNotFound = errors.New("audit entry not found")

// Store persists audit entries. Implementations must treat entries as
// append-only: there are no update or delete operations.
type Store interface {
	// Insert appends an entry to the log.
	Insert(ctx context.Context, entry Entry) error

	// List returns entries matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]Entry, error)

	// Count returns the total number of entries matching the filter,
	// ignoring limit and offset.
	Count(ctx context.Context, filter Filter) (int, error)
}

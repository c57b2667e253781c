// Package session stores in-flight verification sessions keyed by (actor, flow).
package session

import (
	"context"
	"errors"
	"time"

	"homehelp/internal/verification/models"
	id "homehelp/pkg/domain"
)

// ErrNotFound is returned when no session exists for (actor, flow).
var ErrNotFound = errors.New("verification session not found")

// Store holds verification sessions for the duration of the OTP window.
// Put replaces any existing session for the same key wholesale.
type Store interface {
	Get(ctx context.Context, actorID id.UserID, flow models.Flow) (*models.Session, error)
	Put(ctx context.Context, sess *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, actorID id.UserID, flow models.Flow) error
}

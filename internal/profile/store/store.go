// Package store persists identity profiles.
package store

import (
	"context"
	"errors"

	"homehelp/internal/profile/models"
	id "homehelp/pkg/domain"
)

var (
	// ErrNotFound is returned when a profile lookup finds nothing.
	ErrNotFound = errors.New("profile not found")

	// ErrDuplicateIdentity is returned when a create would give two profiles
	// of the same class the same government id.
	ErrDuplicateIdentity = errors.New("government id already registered for this class")
)

// Store provides access to identity profiles. Uniqueness of
// (class, government id) is enforced at this boundary.
type Store interface {
	// Create inserts a new profile. Returns ErrDuplicateIdentity if another
	// profile of the same class already holds the government id.
	Create(ctx context.Context, profile *models.Profile) error

	// Update rewrites an existing profile in place.
	Update(ctx context.Context, profile *models.Profile) error

	// GetByID fetches a profile by its ID.
	GetByID(ctx context.Context, profileID id.ProfileID) (*models.Profile, error)

	// GetByUser fetches the profile a user owns within a class.
	GetByUser(ctx context.Context, userID id.UserID, class models.Class) (*models.Profile, error)

	// GetByGovernmentID fetches the profile holding a government id within a class.
	GetByGovernmentID(ctx context.Context, class models.Class, governmentID string) (*models.Profile, error)
}

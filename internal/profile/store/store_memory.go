package store

import (
	"context"
	"sync"
	"time"

	"homehelp/internal/profile/models"
	id "homehelp/pkg/domain"
)

// InMemoryStore is a Store implementation for tests and local development.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.ProfileID]*models.Profile
}

// NewInMemoryStore creates an empty in-memory profile store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[id.ProfileID]*models.Profile),
	}
}

func (s *InMemoryStore) Create(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.profiles {
		if existing.Class == profile.Class && existing.GovernmentID == profile.GovernmentID {
			return ErrDuplicateIdentity
		}
	}

	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	stored := *profile
	s.profiles[profile.ID] = &stored
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profile.ID]; !ok {
		return ErrNotFound
	}

	for _, existing := range s.profiles {
		if existing.ID != profile.ID && existing.Class == profile.Class && existing.GovernmentID == profile.GovernmentID {
			return ErrDuplicateIdentity
		}
	}

	profile.UpdatedAt = time.Now().UTC()
	stored := *profile
	s.profiles[profile.ID] = &stored
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, profileID id.ProfileID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[profileID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

func (s *InMemoryStore) GetByUser(_ context.Context, userID id.UserID, class models.Class) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, profile := range s.profiles {
		if profile.OwnerUserID == userID && profile.Class == class {
			copied := *profile
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) GetByGovernmentID(_ context.Context, class models.Class, governmentID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, profile := range s.profiles {
		if profile.Class == class && profile.GovernmentID == governmentID {
			copied := *profile
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

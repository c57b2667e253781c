package session

import (
	"context"
	"sync"
	"time"

	"homehelp/internal/verification/models"
	id "homehelp/pkg/domain"
)

type key struct {
	actor id.UserID
	flow  models.Flow
}

// InMemoryStore is a session store for tests and local development. Expiry
// is enforced lazily on Get, mirroring Redis TTL behavior.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[key]*models.Session
	now      func() time.Time
}

// NewInMemoryStore creates an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[key]*models.Session),
		now:      time.Now,
	}
}

// WithClock overrides the store's clock for expiry tests.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) Get(_ context.Context, actorID id.UserID, flow models.Flow) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{actor: actorID, flow: flow}
	sess, ok := s.sessions[k]
	if !ok {
		return nil, ErrNotFound
	}
	if sess.Expired(s.now()) {
		delete(s.sessions, k)
		return nil, ErrNotFound
	}

	copied := *sess
	return &copied, nil
}

func (s *InMemoryStore) Put(_ context.Context, sess *models.Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stamp the caller's session so the expiry is visible without a re-read,
	// matching the Redis store.
	if ttl > 0 && sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = s.now().Add(ttl)
	}
	stored := *sess
	s.sessions[key{actor: sess.ActorID, flow: sess.Flow}] = &stored
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, actorID id.UserID, flow models.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key{actor: actorID, flow: flow})
	return nil
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"homehelp/internal/verification/models"
	id "homehelp/pkg/domain"
)

const keyPrefix = "verification:session:"

// RedisStore is the production session store. Sessions are JSON-serialized
// under verification:session:<actor>:<flow> with the OTP window as TTL, so
// expiry needs no background sweeper.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(actorID id.UserID, flow models.Flow) string {
	return keyPrefix + actorID.String() + ":" + string(flow)
}

func (s *RedisStore) Get(ctx context.Context, actorID id.UserID, flow models.Flow) (*models.Session, error) {
	raw, err := s.client.Get(ctx, redisKey(actorID, flow)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	// The TTL normally handles expiry; the stored timestamp is a backstop
	// against clock drift between writers.
	if sess.Expired(time.Now()) {
		_ = s.client.Del(ctx, redisKey(actorID, flow)).Err()
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *RedisStore) Put(ctx context.Context, sess *models.Session, ttl time.Duration) error {
	if ttl > 0 && sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = time.Now().Add(ttl)
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.client.Set(ctx, redisKey(sess.ActorID, sess.Flow), raw, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, actorID id.UserID, flow models.Flow) error {
	if err := s.client.Del(ctx, redisKey(actorID, flow)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

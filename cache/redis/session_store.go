// Package redis implements the session store on Redis for multi-process
// deployments.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prepstack/identity-core/cache"
	"github.com/prepstack/identity-core/domain"
)

// SessionStore implements cache.SessionStore using Redis.
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore creates a Redis-backed session store. prefix namespaces
// the key so several environments can share one Redis.
func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix}
}

func (r *SessionStore) redisKey() string {
	return fmt.Sprintf("%s:session:current", r.prefix)
}

// Set stores the bridged session with its TTL. Redis expiry enforces the
// lifetime bound even across process restarts.
func (r *SessionStore) Set(ctx context.Context, session *domain.BridgedSession, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Until(session.ExpiresAt)
	}
	if ttl <= 0 {
		return r.Clear(ctx)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, r.redisKey(), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session in Redis: %w", err)
	}
	return nil
}

// Get retrieves the bridged session.
func (r *SessionStore) Get(ctx context.Context) (*domain.BridgedSession, error) {
	payload, err := r.client.Get(ctx, r.redisKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrNoSession
		}
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var session domain.BridgedSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Clear removes the bridged session.
func (r *SessionStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.redisKey()).Err(); err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	return nil
}

var _ cache.SessionStore = (*SessionStore)(nil)

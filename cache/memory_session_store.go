package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/prepstack/identity-core/domain"
)

// currentSessionKey is the single slot the bridged session occupies; the
// backing-store session is process-wide singleton state.
const currentSessionKey = "current"

// MemorySessionStore implements SessionStore with ttlcache. Suited for tests
// and single-node deployments.
type MemorySessionStore struct {
	cache *ttlcache.Cache[string, *domain.BridgedSession]
}

// NewMemorySessionStore creates an in-memory session store with automatic
// expiry.
func NewMemorySessionStore() *MemorySessionStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *domain.BridgedSession](),
	)
	go cache.Start()

	return &MemorySessionStore{cache: cache}
}

// Set implements SessionStore.Set.
func (s *MemorySessionStore) Set(_ context.Context, session *domain.BridgedSession, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Until(session.ExpiresAt)
	}
	if ttl <= 0 {
		return s.Clear(context.Background())
	}
	s.cache.Set(currentSessionKey, session, ttl)
	return nil
}

// Get implements SessionStore.Get.
func (s *MemorySessionStore) Get(_ context.Context) (*domain.BridgedSession, error) {
	item := s.cache.Get(currentSessionKey)
	if item == nil {
		return nil, ErrNoSession
	}
	return item.Value(), nil
}

// Clear implements SessionStore.Clear.
func (s *MemorySessionStore) Clear(_ context.Context) error {
	s.cache.Delete(currentSessionKey)
	return nil
}

// Close stops the background expiry goroutine.
func (s *MemorySessionStore) Close() {
	s.cache.Stop()
}

var _ SessionStore = (*MemorySessionStore)(nil)

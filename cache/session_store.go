// Package cache provides the stores for the bridged backing-store session.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/prepstack/identity-core/domain"
)

// ErrNoSession is returned when no bridged session is installed.
var ErrNoSession = errors.New("cache: no active session")

// SessionStore holds the process-wide bridged session. Only the session
// bridge writes it; every other component reads.
type SessionStore interface {
	// Set installs the session. ttl bounds its lifetime; entries expire on
	// their own even if Clear is never called.
	Set(ctx context.Context, session *domain.BridgedSession, ttl time.Duration) error

	// Get returns the installed session or ErrNoSession.
	Get(ctx context.Context) (*domain.BridgedSession, error)

	// Clear removes the session. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error
}

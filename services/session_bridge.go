package services

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prepstack/identity-core/cache"
	"github.com/prepstack/identity-core/domain"
	autherrors "github.com/prepstack/identity-core/errors"
	"github.com/prepstack/identity-core/internal/federation"
	"github.com/prepstack/identity-core/internal/idmap"
	"github.com/prepstack/identity-core/log"
)

// SessionBridge exchanges the primary provider's session for a backing-store
// session and owns the store's write path. Reconcile is idempotent: repeated
// runs for an unchanged provider state are no-ops, and a lost provider
// session actively tears the bridged session down.
type SessionBridge struct {
	primary  federation.PrimaryProvider
	store    cache.SessionStore
	logger   log.Logger
	template string
	timeout  time.Duration
	// maxTTL caps the bridged session even when the provider token declares
	// a later expiry.
	maxTTL time.Duration

	mu sync.Mutex
	// lastSessionID de-duplicates redundant reconciles for one provider
	// session.
	lastSessionID string
}

// NewSessionBridge wires the bridge. template names the provider's token
// template scoped for the backing store.
func NewSessionBridge(
	primary federation.PrimaryProvider,
	store cache.SessionStore,
	logger log.Logger,
	template string,
	timeout time.Duration,
	maxTTL time.Duration,
) *SessionBridge {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxTTL <= 0 {
		maxTTL = time.Hour
	}
	return &SessionBridge{
		primary:  primary,
		store:    store,
		logger:   logger,
		template: template,
		timeout:  timeout,
		maxTTL:   maxTTL,
	}
}

// Reconcile aligns the backing-store session with the primary provider's
// current state. Safe to invoke repeatedly and in quick succession.
//
// Token-exchange failure leaves the backing store unauthenticated even
// though the provider still reports a session: split-brain resolves to
// "logged out of the backing store", never "logged in with garbage".
func (b *SessionBridge) Reconcile(ctx context.Context) (*domain.BridgedSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := b.primary.Snapshot()
	if !snap.Loaded {
		// Provider state unresolved; decide nothing yet.
		current, _ := b.store.Get(ctx)
		return current, nil
	}

	if snap.SessionID == "" {
		return nil, b.teardownLocked(ctx)
	}

	if snap.SessionID == b.lastSessionID {
		if current, err := b.store.Get(ctx); err == nil {
			return current, nil
		}
		// Store entry expired or was lost; fall through and rebridge.
	}

	tokenCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	token, err := b.primary.GetToken(tokenCtx, b.template)
	if err != nil {
		b.logger.Error(ctx, "token exchange with primary provider failed", err, map[string]interface{}{
			"provider_session_id": snap.SessionID,
		})
		if clearErr := b.teardownLocked(ctx); clearErr != nil {
			b.logger.Warn(ctx, "failed to clear bridged session after exchange failure", map[string]interface{}{
				"error": clearErr.Error(),
			})
		}
		return nil, autherrors.ProviderUnavailable(err)
	}

	mapped, err := idmap.Map(snap.UserID)
	if err != nil {
		b.logger.Error(ctx, "identity mapping failed during session bridge", err, map[string]interface{}{
			"provider_user_id": snap.UserID,
		})
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(b.maxTTL)
	if exp, ok := tokenExpiry(token); ok && exp.Before(expiresAt) {
		expiresAt = exp
	}
	if !expiresAt.After(now) {
		b.logger.Warn(ctx, "provider token already expired, not bridging", map[string]interface{}{
			"provider_session_id": snap.SessionID,
		})
		return nil, b.teardownLocked(ctx)
	}

	session := &domain.BridgedSession{
		AccessToken:       token,
		ProviderSessionID: snap.SessionID,
		MappedID:          mapped.String(),
		ExpiresAt:         expiresAt,
		CreatedAt:         now,
	}
	if err := b.store.Set(ctx, session, time.Until(expiresAt)); err != nil {
		b.logger.Error(ctx, "failed to install bridged session", err, nil)
		return nil, autherrors.ProviderUnavailable(err)
	}

	b.lastSessionID = snap.SessionID
	b.logger.Info(ctx, "bridged session installed", map[string]interface{}{
		"provider_session_id": snap.SessionID,
		"mapped_id":           session.MappedID,
		"expires_at":          expiresAt,
	})
	return session, nil
}

// SignOut revokes the provider session and tears down the bridged session.
func (b *SessionBridge) SignOut(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	signOutCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if err := b.primary.SignOut(signOutCtx); err != nil {
		b.logger.Warn(ctx, "provider sign-out failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return b.teardownLocked(ctx)
}

// Current returns the installed bridged session, letting downstream hooks
// read the mapped id without touching raw provider tokens.
func (b *SessionBridge) Current(ctx context.Context) (*domain.BridgedSession, error) {
	return b.store.Get(ctx)
}

func (b *SessionBridge) teardownLocked(ctx context.Context) error {
	b.lastSessionID = ""
	if err := b.store.Clear(ctx); err != nil {
		return autherrors.ProviderUnavailable(err)
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backing store verifies the token itself, the bridge only needs the
// lifetime bound.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

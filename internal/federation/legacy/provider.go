// Package legacy implements the secondary identity provider over the
// product's original email/password credential store.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/prepstack/identity-core/domain"
	"github.com/prepstack/identity-core/internal/federation"
	"github.com/prepstack/identity-core/log"
)

// Provider errors surfaced to the login/register flows.
var (
	ErrInvalidCredentials = errors.New("legacy: invalid email or password")
	ErrEmailTaken         = errors.New("legacy: email already registered")
)

// Provider is the legacy credential store behind the SecondaryProvider
// surface. Its observable state resolves synchronously, matching the
// provider contract.
type Provider struct {
	creds   domain.CredentialRepository
	hasher  PasswordHasher
	logger  log.Logger
	timeout time.Duration

	mu      sync.RWMutex
	current *domain.LegacyUser
}

// NewProvider wires the legacy provider.
func NewProvider(creds domain.CredentialRepository, hasher PasswordHasher, logger log.Logger, timeout time.Duration) *Provider {
	if hasher == nil {
		hasher = NewBcryptPasswordHasher(0)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{creds: creds, hasher: hasher, logger: logger, timeout: timeout}
}

// Snapshot returns the current authentication state.
func (p *Provider) Snapshot() federation.SecondarySnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return federation.SecondarySnapshot{}
	}
	user := *p.current
	return federation.SecondarySnapshot{Authenticated: true, User: &user}
}

// Login verifies the credentials and establishes the provider session.
func (p *Provider) Login(ctx context.Context, email, password string) error {
	lookupCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	user, err := p.creds.GetByEmail(lookupCtx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("legacy: credential lookup: %w", err)
	}

	if err := p.hasher.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("legacy: verify password: %w", err)
	}

	if err := p.creds.TouchLogin(lookupCtx, user.ID); err != nil {
		// Login still succeeds; the timestamp is advisory.
		p.logger.Warn(ctx, "failed to record last login", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}

	p.mu.Lock()
	p.current = user
	p.mu.Unlock()
	return nil
}

// Register creates a new account and establishes the provider session.
// Duplicate emails are rejected.
func (p *Provider) Register(ctx context.Context, name, email, password string, role domain.Role) error {
	hash, err := p.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("legacy: hash password: %w", err)
	}
	if role == "" {
		role = domain.RoleStudent
	}

	user := &domain.LegacyUser{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	createCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.creds.Create(createCtx, user); err != nil {
		if errors.Is(err, domain.ErrCredentialExists) {
			return ErrEmailTaken
		}
		return fmt.Errorf("legacy: create credential: %w", err)
	}

	p.mu.Lock()
	p.current = user
	p.mu.Unlock()
	return nil
}

// Logout clears the provider session.
func (p *Provider) Logout(_ context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ federation.SecondaryProvider = (*Provider)(nil)

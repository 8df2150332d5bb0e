// Package federation reconciles the two asynchronously resolving identity
// sources into one internal identity space.
package federation

import (
	"context"

	"github.com/prepstack/identity-core/domain"
)

// PrimarySnapshot is the synchronously observable state of the primary hosted
// identity provider.
type PrimarySnapshot struct {
	// Loaded reports whether the provider has finished resolving its initial
	// state. Until then no authorization decision may be made.
	Loaded    bool
	UserID    string
	SessionID string
}

// Authenticated reports a loaded snapshot with a present identity.
func (s PrimarySnapshot) Authenticated() bool {
	return s.Loaded && s.UserID != ""
}

// PrimaryProvider is the narrow surface of the hosted identity provider.
type PrimaryProvider interface {
	Snapshot() PrimarySnapshot

	// GetToken requests a signed, time-boxed token minted from the named
	// template, scoped for the backing data store.
	GetToken(ctx context.Context, template string) (string, error)

	// FetchIdentity loads the external identity for the current session.
	FetchIdentity(ctx context.Context) (*domain.ExternalIdentity, error)

	SignOut(ctx context.Context) error
}

// SecondarySnapshot is the synchronously observable state of the legacy
// credential store. The legacy store resolves immediately, so it carries no
// loading flag.
type SecondarySnapshot struct {
	Authenticated bool
	User          *domain.LegacyUser
}

// SecondaryProvider is the narrow surface of the legacy credential store.
type SecondaryProvider interface {
	Snapshot() SecondarySnapshot
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, name, email, password string, role domain.Role) error
	Logout(ctx context.Context) error
}

package domain

import (
	"context"
	"errors"
)

// Not-found sentinels returned by repositories. Any other lookup error is a
// conflict and must abort the caller's write path.
var (
	ErrProfileNotFound      = errors.New("domain: profile not found")
	ErrSubscriptionNotFound = errors.New("domain: subscription not found")
	ErrCredentialNotFound   = errors.New("domain: credential not found")
	ErrProfileExists        = errors.New("domain: profile already exists")
	ErrCredentialExists     = errors.New("domain: credential already exists")
)

// ProfileRepository stores internal identity records keyed by mapped UUID.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	Create(ctx context.Context, profile *Profile) error
}

// SubscriptionRepository reads billing records keyed by mapped UUID.
type SubscriptionRepository interface {
	// LatestByProfileID returns the most recently created subscription for
	// the mapped identity.
	LatestByProfileID(ctx context.Context, profileID string) (*Subscription, error)
	ListByProfileID(ctx context.Context, profileID string) ([]*Subscription, error)
}

// CredentialRepository stores accounts of the secondary legacy credential
// store.
type CredentialRepository interface {
	GetByEmail(ctx context.Context, email string) (*LegacyUser, error)
	Create(ctx context.Context, user *LegacyUser) error
	TouchLogin(ctx context.Context, id string) error
}

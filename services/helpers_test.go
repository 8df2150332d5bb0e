package services_test

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/prepstack/identity-core/domain"
	"github.com/prepstack/identity-core/internal/federation"
	"github.com/prepstack/identity-core/log"
)

func testLogger() log.Logger {
	return log.NewZerologAdapter(zerolog.Disabled, false)
}

// signedToken returns an HS256 JWT with the given expiry. The bridge only
// reads claims, so the signing key is irrelevant.
func signedToken(exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user_1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	if err != nil {
		panic(err)
	}
	return signed
}

type fakePrimary struct {
	snap       federation.PrimarySnapshot
	token      string
	tokenErr   error
	tokenCalls atomic.Int64
	signOuts   atomic.Int64
}

func (f *fakePrimary) Snapshot() federation.PrimarySnapshot { return f.snap }

func (f *fakePrimary) GetToken(context.Context, string) (string, error) {
	f.tokenCalls.Add(1)
	return f.token, f.tokenErr
}

func (f *fakePrimary) FetchIdentity(context.Context) (*domain.ExternalIdentity, error) {
	return &domain.ExternalIdentity{ProviderUserID: f.snap.UserID}, nil
}

func (f *fakePrimary) SignOut(context.Context) error {
	f.signOuts.Add(1)
	return nil
}

type fakeProfiles struct {
	byID      map[string]*domain.Profile
	lookupErr error
	createErr error
	// missNextLookups forces that many not-found answers before real
	// lookups resume, to stage lookup/insert races.
	missNextLookups int
	createCalls     atomic.Int64
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byID: make(map[string]*domain.Profile)}
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if f.missNextLookups > 0 {
		f.missNextLookups--
		return nil, domain.ErrProfileNotFound
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Create(_ context.Context, p *domain.Profile) error {
	f.createCalls.Add(1)
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byID[p.ID]; ok {
		return domain.ErrProfileExists
	}
	f.byID[p.ID] = p
	return nil
}

type fakeSubs struct {
	latest   map[string]*domain.Subscription
	fetchErr error
	// block, when set, stalls fetches for blockFor until released. Used to
	// simulate a slow response racing an identity switch.
	block    chan struct{}
	blockFor string
}

func (f *fakeSubs) LatestByProfileID(ctx context.Context, profileID string) (*domain.Subscription, error) {
	if f.block != nil && (f.blockFor == "" || f.blockFor == profileID) {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	sub, ok := f.latest[profileID]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (f *fakeSubs) ListByProfileID(ctx context.Context, profileID string) ([]*domain.Subscription, error) {
	sub, err := f.LatestByProfileID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return []*domain.Subscription{sub}, nil
}

type fakeGenerations struct {
	gen atomic.Uint64
}

func (f *fakeGenerations) Generation() uint64 { return f.gen.Load() }

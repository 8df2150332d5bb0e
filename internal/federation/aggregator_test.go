package federation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/identity-core/domain"
	"github.com/prepstack/identity-core/internal/federation"
	"github.com/prepstack/identity-core/internal/idmap"
	"github.com/prepstack/identity-core/log"
)

type fakePrimary struct {
	snap     federation.PrimarySnapshot
	identity *domain.ExternalIdentity
	fetchErr error
	token    string
	tokenErr error
}

func (f *fakePrimary) Snapshot() federation.PrimarySnapshot { return f.snap }

func (f *fakePrimary) GetToken(context.Context, string) (string, error) {
	return f.token, f.tokenErr
}

func (f *fakePrimary) FetchIdentity(context.Context) (*domain.ExternalIdentity, error) {
	return f.identity, f.fetchErr
}

func (f *fakePrimary) SignOut(context.Context) error { return nil }

type fakeSecondary struct {
	snap federation.SecondarySnapshot
}

func (f *fakeSecondary) Snapshot() federation.SecondarySnapshot { return f.snap }

func (f *fakeSecondary) Login(context.Context, string, string) error { return nil }

func (f *fakeSecondary) Register(context.Context, string, string, string, domain.Role) error {
	return nil
}

func (f *fakeSecondary) Logout(context.Context) error { return nil }

type fakeProfiles struct {
	byID      map[string]*domain.Profile
	lookupErr error
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Create(_ context.Context, p *domain.Profile) error {
	if f.byID == nil {
		f.byID = make(map[string]*domain.Profile)
	}
	if _, ok := f.byID[p.ID]; ok {
		return domain.ErrProfileExists
	}
	f.byID[p.ID] = p
	return nil
}

func testLogger() log.Logger {
	return log.NewZerologAdapter(zerolog.Disabled, false)
}

func newAggregator(p federation.PrimaryProvider, s federation.SecondaryProvider, profiles domain.ProfileRepository, markers *federation.MarkerStore) *federation.Aggregator {
	if markers == nil {
		markers = federation.NewMarkerStore()
	}
	return federation.NewAggregator(
		p, s, profiles,
		federation.NewRoleResolver("ops@example.com"),
		markers,
		testLogger(),
		time.Second,
	)
}

func TestObserve_PrimaryLoadingWinsOverSecondary(t *testing.T) {
	primary := &fakePrimary{snap: federation.PrimarySnapshot{Loaded: false}}
	secondary := &fakeSecondary{snap: federation.SecondarySnapshot{
		Authenticated: true,
		User:          &domain.LegacyUser{ID: "legacy-1", Email: "a@b.com"},
	}}

	agg := newAggregator(primary, secondary, &fakeProfiles{}, nil)
	snap, err := agg.Observe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, federation.ReadinessLoading, snap.Readiness)
	assert.Equal(t, federation.SourceNone, snap.Source)
	assert.Empty(t, snap.ExternalID)
}

func TestObserve_PrimaryPrecedenceOverSecondary(t *testing.T) {
	mapped := idmap.MustMap("user_primary")
	primary := &fakePrimary{
		snap:     federation.PrimarySnapshot{Loaded: true, UserID: "user_primary", SessionID: "sess_1"},
		identity: &domain.ExternalIdentity{ProviderUserID: "user_primary", DisplayName: "Pat", Email: "pat@example.com"},
	}
	secondary := &fakeSecondary{snap: federation.SecondarySnapshot{
		Authenticated: true,
		User:          &domain.LegacyUser{ID: "legacy-1", Name: "Legacy Lee", Email: "lee@example.com"},
	}}
	profiles := &fakeProfiles{byID: map[string]*domain.Profile{
		mapped.String(): {ID: mapped.String(), Role: domain.RoleStudent},
	}}

	agg := newAggregator(primary, secondary, profiles, nil)
	snap, err := agg.Observe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, federation.SourcePrimary, snap.Source)
	assert.Equal(t, federation.ReadinessAuthenticated, snap.Readiness)
	assert.Equal(t, "user_primary", snap.ExternalID)
	assert.Equal(t, mapped, snap.MappedID)
	assert.Equal(t, "Pat", snap.DisplayName)
	assert.Equal(t, domain.RoleStudent, snap.Role)
	assert.True(t, snap.IsStudent())
	assert.False(t, snap.IsAdmin())
}

func TestObserve_SecondaryFallback(t *testing.T) {
	primary := &fakePrimary{snap: federation.PrimarySnapshot{Loaded: true}}
	secondary := &fakeSecondary{snap: federation.SecondarySnapshot{
		Authenticated: true,
		User:          &domain.LegacyUser{ID: "legacy-1", Name: "Legacy Lee", Email: "lee@example.com"},
	}}

	agg := newAggregator(primary, secondary, &fakeProfiles{}, nil)
	snap, err := agg.Observe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, federation.SourceSecondary, snap.Source)
	assert.Equal(t, federation.ReadinessAuthenticated, snap.Readiness)
	assert.Equal(t, idmap.MustMap("legacy-1"), snap.MappedID)
	// No profile record yet, so the fixed operator-email rule applies.
	assert.Equal(t, domain.RoleStudent, snap.Role)
}

func TestObserve_RoleComesFromProfileRecord(t *testing.T) {
	mapped := idmap.MustMap("user_admin")
	primary := &fakePrimary{
		snap:     federation.PrimarySnapshot{Loaded: true, UserID: "user_admin"},
		identity: &domain.ExternalIdentity{Email: "someone@example.com"},
	}
	profiles := &fakeProfiles{byID: map[string]*domain.Profile{
		mapped.String(): {ID: mapped.String(), Role: domain.RoleAdmin},
	}}

	agg := newAggregator(primary, &fakeSecondary{}, profiles, nil)
	snap, err := agg.Observe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, snap.Role)
	assert.True(t, snap.IsAdmin())
}

func TestObserve_OperatorEmailResolvesAdminWithoutProfile(t *testing.T) {
	primary := &fakePrimary{
		snap:     federation.PrimarySnapshot{Loaded: true, UserID: "user_ops"},
		identity: &domain.ExternalIdentity{Email: "OPS@example.com"},
	}

	agg := newAggregator(primary, &fakeSecondary{}, &fakeProfiles{}, nil)
	snap, err := agg.Observe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, snap.Role)
}

func TestObserve_Unauthenticated(t *testing.T) {
	primary := &fakePrimary{snap: federation.PrimarySnapshot{Loaded: true}}
	agg := newAggregator(primary, &fakeSecondary{}, &fakeProfiles{}, nil)

	snap, err := agg.Observe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, federation.ReadinessUnauthenticated, snap.Readiness)
	assert.Equal(t, domain.RoleNone, snap.Role)
	assert.False(t, snap.Authenticated())
}

func TestObserve_MarkerExposedOnFallbackPath(t *testing.T) {
	primary := &fakePrimary{snap: federation.PrimarySnapshot{Loaded: true}}
	markers := federation.NewMarkerStore()
	markers.Set("ops")

	agg := newAggregator(primary, &fakeSecondary{}, &fakeProfiles{}, markers)
	snap, err := agg.Observe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, federation.ReadinessUnauthenticated, snap.Readiness)
	assert.True(t, snap.Marker.Present)
	assert.Equal(t, "ops", snap.Marker.Username)
	assert.Equal(t, "ops", snap.DisplayName)
}

func TestObserve_GenerationBumpsOnIdentityChange(t *testing.T) {
	primary := &fakePrimary{snap: federation.PrimarySnapshot{Loaded: true, UserID: "user_a"}}
	agg := newAggregator(primary, &fakeSecondary{}, &fakeProfiles{}, nil)

	first, err := agg.Observe(context.Background())
	require.NoError(t, err)
	again, err := agg.Observe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Generation, again.Generation)

	primary.snap.UserID = "user_b"
	changed, err := agg.Observe(context.Background())
	require.NoError(t, err)
	assert.Greater(t, changed.Generation, first.Generation)

	primary.snap.UserID = ""
	out, err := agg.Observe(context.Background())
	require.NoError(t, err)
	assert.Greater(t, out.Generation, changed.Generation)
}

func TestObserve_IdentityFetchFailureDegrades(t *testing.T) {
	primary := &fakePrimary{
		snap:     federation.PrimarySnapshot{Loaded: true, UserID: "user_x"},
		fetchErr: errors.New("upstream 503"),
	}
	agg := newAggregator(primary, &fakeSecondary{}, &fakeProfiles{}, nil)

	snap, err := agg.Observe(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Authenticated())
	assert.Empty(t, snap.Email)
	assert.Equal(t, domain.RoleNone, snap.Role)
}

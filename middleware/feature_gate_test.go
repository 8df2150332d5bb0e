package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/identity-core/domain"
	"github.com/prepstack/identity-core/internal/federation"
	"github.com/prepstack/identity-core/internal/idmap"
	"github.com/prepstack/identity-core/middleware"
	"github.com/prepstack/identity-core/services"
)

type fakeSubs struct {
	latest   map[string]*domain.Subscription
	fetchErr error
}

func (f *fakeSubs) LatestByProfileID(_ context.Context, profileID string) (*domain.Subscription, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	sub, ok := f.latest[profileID]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (f *fakeSubs) ListByProfileID(_ context.Context, profileID string) ([]*domain.Subscription, error) {
	sub, ok := f.latest[profileID]
	if !ok {
		return nil, nil
	}
	return []*domain.Subscription{sub}, nil
}

func gatedRequest(t *testing.T, agg *federation.Aggregator, subs *fakeSubs) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/premium", nil), rec)

	gate := services.NewSubscriptionGate(subs, agg, testLogger(), time.Second)
	mw := middleware.FeatureGate(middleware.FeatureGateConfig{
		Aggregator: agg,
		Gate:       gate,
		Logger:     testLogger(),
		UpgradeURL: "/pricing",
	})
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "premium content")
	})
	require.NoError(t, handler(c))
	return rec
}

func entitledSub(profileID string) *domain.Subscription {
	now := time.Now()
	return &domain.Subscription{
		ID:          "sub_1",
		ProfileID:   profileID,
		Tier:        domain.PlanPro,
		Status:      domain.SubscriptionActive,
		PeriodStart: now.AddDate(0, -1, 0),
		PeriodEnd:   now.AddDate(1, 0, 0),
		CreatedAt:   now.AddDate(0, -1, 0),
	}
}

func TestFeatureGate_EntitledRendersContent(t *testing.T) {
	mapped := idmap.MustMap("user_1").String()
	agg := newAggregator(&fakePrimary{
		snap: federation.PrimarySnapshot{Loaded: true, UserID: "user_1"},
	}, nil, nil)
	subs := &fakeSubs{latest: map[string]*domain.Subscription{mapped: entitledSub(mapped)}}

	rec := gatedRequest(t, agg, subs)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "premium content", rec.Body.String())
}

func TestFeatureGate_FreeTierGetsUpgradePrompt(t *testing.T) {
	mapped := idmap.MustMap("user_1").String()
	sub := entitledSub(mapped)
	sub.Tier = domain.PlanFree
	agg := newAggregator(&fakePrimary{
		snap: federation.PrimarySnapshot{Loaded: true, UserID: "user_1"},
	}, nil, nil)
	subs := &fakeSubs{latest: map[string]*domain.Subscription{mapped: sub}}

	rec := gatedRequest(t, agg, subs)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "premium content")
	assert.Contains(t, rec.Body.String(), "/pricing")
}

func TestFeatureGate_LapsedPeriodGetsUpgradePrompt(t *testing.T) {
	mapped := idmap.MustMap("user_1").String()
	sub := entitledSub(mapped)
	sub.PeriodEnd = time.Now().AddDate(0, 0, -1)
	agg := newAggregator(&fakePrimary{
		snap: federation.PrimarySnapshot{Loaded: true, UserID: "user_1"},
	}, nil, nil)
	subs := &fakeSubs{latest: map[string]*domain.Subscription{mapped: sub}}

	rec := gatedRequest(t, agg, subs)
	assert.NotContains(t, rec.Body.String(), "premium content")
	assert.Contains(t, rec.Body.String(), "/pricing")
}

func TestFeatureGate_LoadingRendersPlaceholder(t *testing.T) {
	agg := newAggregator(&fakePrimary{snap: federation.PrimarySnapshot{Loaded: false}}, nil, nil)
	subs := &fakeSubs{latest: map[string]*domain.Subscription{}}

	rec := gatedRequest(t, agg, subs)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "loading")
	assert.NotContains(t, rec.Body.String(), "premium content")
	assert.NotContains(t, rec.Body.String(), "/pricing")
}

func TestFeatureGate_FetchFailureFailsClosed(t *testing.T) {
	agg := newAggregator(&fakePrimary{
		snap: federation.PrimarySnapshot{Loaded: true, UserID: "user_1"},
	}, nil, nil)
	subs := &fakeSubs{fetchErr: assert.AnError}

	rec := gatedRequest(t, agg, subs)
	assert.NotContains(t, rec.Body.String(), "premium content")
	assert.Contains(t, rec.Body.String(), "/pricing")
}

func TestFeatureGate_UnauthenticatedGetsUpgradePrompt(t *testing.T) {
	agg := newAggregator(&fakePrimary{snap: federation.PrimarySnapshot{Loaded: true}}, nil, nil)
	subs := &fakeSubs{latest: map[string]*domain.Subscription{}}

	rec := gatedRequest(t, agg, subs)
	assert.NotContains(t, rec.Body.String(), "premium content")
	assert.Contains(t, rec.Body.String(), "/pricing")
}

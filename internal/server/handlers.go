package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/prepstack/identity-core/cache"
	"github.com/prepstack/identity-core/config"
	"github.com/prepstack/identity-core/domain"
	"github.com/prepstack/identity-core/internal/federation"
	"github.com/prepstack/identity-core/internal/federation/legacy"
	"github.com/prepstack/identity-core/log"
	"github.com/prepstack/identity-core/middleware"
	"github.com/prepstack/identity-core/services"
)

// PrimaryRefresher re-resolves the primary provider's session snapshot.
// The auth context endpoint drives it so every observation starts from a
// fresh introspection.
type PrimaryRefresher interface {
	Refresh(ctx context.Context) error
}

// AuthAPI exposes the identity core over HTTP: the auth context endpoint that
// drives reconciliation, the legacy credential endpoints, and a handful of
// guarded routes.
type AuthAPI struct {
	cfg        *config.ServerConfig
	logger     log.Logger
	refresher  PrimaryRefresher
	aggregator *federation.Aggregator
	bridge     *services.SessionBridge
	sync       *services.ProfileSynchronizer
	gate       *services.SubscriptionGate
	legacy     *legacy.Provider
	markers    *federation.MarkerStore
	subs       domain.SubscriptionRepository
}

func NewAuthAPI(
	cfg *config.ServerConfig,
	logger log.Logger,
	refresher PrimaryRefresher,
	aggregator *federation.Aggregator,
	bridge *services.SessionBridge,
	sync *services.ProfileSynchronizer,
	gate *services.SubscriptionGate,
	legacyProvider *legacy.Provider,
	markers *federation.MarkerStore,
	subs domain.SubscriptionRepository,
) *AuthAPI {
	return &AuthAPI{
		cfg:        cfg,
		logger:     logger,
		refresher:  refresher,
		aggregator: aggregator,
		bridge:     bridge,
		sync:       sync,
		gate:       gate,
		legacy:     legacyProvider,
		markers:    markers,
		subs:       subs,
	}
}

// RegisterRoutes attaches all API routes to the router.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/v1")

	v1.GET("/auth/context", a.authContext)
	v1.POST("/auth/login", a.login)
	v1.POST("/auth/register", a.register)
	v1.POST("/auth/logout", a.logout)
	v1.POST("/auth/signout", a.signOut)
	v1.GET("/session", a.currentSession)

	guard := middleware.Guard(middleware.GuardConfig{
		Aggregator: a.aggregator,
		Logger:     a.logger,
		SignInURL:  a.cfg.SignInURL,
		LandingURL: a.cfg.LandingURL,
	})
	adminGuard := middleware.Guard(middleware.GuardConfig{
		Aggregator:   a.aggregator,
		Logger:       a.logger,
		RequiredRole: domain.RoleAdmin,
		SignInURL:    a.cfg.SignInURL,
		LandingURL:   a.cfg.LandingURL,
	})
	featureGate := middleware.FeatureGate(middleware.FeatureGateConfig{
		Aggregator: a.aggregator,
		Gate:       a.gate,
		Logger:     a.logger,
		UpgradeURL: a.cfg.UpgradeURL,
	})

	v1.GET("/subscriptions", a.listSubscriptions, guard)
	v1.GET("/premium/summary", a.premiumSummary, guard, featureGate)
	v1.GET("/admin/overview", a.adminOverview, adminGuard)
}

type authContextResponse struct {
	Readiness     string `json:"readiness"`
	Source        string `json:"source,omitempty"`
	MappedID      string `json:"mapped_id,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role"`
	MarkerPresent bool   `json:"marker_present"`
	Generation    uint64 `json:"generation"`
}

// authContext observes the aggregate auth state and, for an authenticated
// identity, runs session bridging and profile synchronization before
// responding. Repeat calls are no-ops once state is aligned.
func (a *AuthAPI) authContext(c echo.Context) error {
	ctx := c.Request().Context()

	if err := a.refresher.Refresh(ctx); err != nil {
		// A failed introspection leaves the previous snapshot in place;
		// the aggregator reports loading or the last known state.
		a.logger.Warn(ctx, "primary session introspection failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	snap, err := a.aggregator.Observe(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "auth state unavailable")
	}

	if snap.Authenticated() {
		if _, err := a.bridge.Reconcile(ctx); err != nil {
			a.logger.Warn(ctx, "session bridging failed", map[string]interface{}{
				"mapped_id": snap.MappedID.String(),
				"error":     err.Error(),
			})
		}
		candidate := services.ProfileCandidate{
			FullName:   snap.DisplayName,
			AvatarURL:  snap.AvatarURL,
			Role:       snap.Role,
			Provenance: provenanceOf(snap.Source),
		}
		if _, err := a.sync.EnsureProfile(ctx, snap.MappedID, candidate); err != nil {
			a.logger.Warn(ctx, "profile synchronization failed", map[string]interface{}{
				"mapped_id": snap.MappedID.String(),
				"error":     err.Error(),
			})
		}
	}

	resp := authContextResponse{
		Readiness:     snap.Readiness.String(),
		Role:          string(snap.Role),
		MarkerPresent: snap.Marker.Present,
		Generation:    snap.Generation,
	}
	if snap.Authenticated() {
		resp.Source = sourceName(snap.Source)
		resp.MappedID = snap.MappedID.String()
		resp.DisplayName = snap.DisplayName
		resp.Email = snap.Email
	}
	return c.JSON(http.StatusOK, resp)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *AuthAPI) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := a.legacy.Login(c.Request().Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, legacy.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}
	return c.NoContent(http.StatusNoContent)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *AuthAPI) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	err := a.legacy.Register(c.Request().Context(), req.Name, req.Email, req.Password, domain.RoleStudent)
	if err != nil {
		if errors.Is(err, legacy.ErrEmailTaken) {
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}
	return c.NoContent(http.StatusCreated)
}

func (a *AuthAPI) logout(c echo.Context) error {
	a.markers.Clear()
	if err := a.legacy.Logout(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "logout failed")
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *AuthAPI) signOut(c echo.Context) error {
	if err := a.bridge.SignOut(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "sign-out failed")
	}
	return c.NoContent(http.StatusNoContent)
}

type sessionResponse struct {
	MappedID          string `json:"mapped_id"`
	ProviderSessionID string `json:"provider_session_id"`
	ExpiresAt         string `json:"expires_at"`
}

// currentSession reports the bridged session without exposing raw tokens.
func (a *AuthAPI) currentSession(c echo.Context) error {
	session, err := a.bridge.Current(c.Request().Context())
	if err != nil {
		if errors.Is(err, cache.ErrNoSession) {
			return echo.NewHTTPError(http.StatusNotFound, "no bridged session")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "session lookup failed")
	}
	return c.JSON(http.StatusOK, sessionResponse{
		MappedID:          session.MappedID,
		ProviderSessionID: session.ProviderSessionID,
		ExpiresAt:         session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (a *AuthAPI) listSubscriptions(c echo.Context) error {
	mappedID, _ := c.Get(middleware.ContextKeyMappedID).(string)
	if mappedID == "" {
		return c.JSON(http.StatusOK, []*domain.Subscription{})
	}
	subs, err := a.subs.ListByProfileID(c.Request().Context(), mappedID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "subscription lookup failed")
	}
	if subs == nil {
		subs = []*domain.Subscription{}
	}
	return c.JSON(http.StatusOK, subs)
}

func (a *AuthAPI) premiumSummary(c echo.Context) error {
	mappedID, _ := c.Get(middleware.ContextKeyMappedID).(string)
	return c.JSON(http.StatusOK, map[string]string{
		"mapped_id": mappedID,
		"content":   "premium",
	})
}

func (a *AuthAPI) adminOverview(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"area": "admin"})
}

func provenanceOf(s federation.Source) domain.Provenance {
	if s == federation.SourceSecondary {
		return domain.ProvenanceSecondary
	}
	return domain.ProvenancePrimary
}

func sourceName(s federation.Source) string {
	switch s {
	case federation.SourcePrimary:
		return "primary"
	case federation.SourceSecondary:
		return "secondary"
	default:
		return ""
	}
}

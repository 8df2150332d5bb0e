// Package middleware holds the HTTP-boundary guards consumed by route and
// feature wrappers.
package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/prepstack/identity-core/domain"
	"github.com/prepstack/identity-core/internal/federation"
	"github.com/prepstack/identity-core/log"
)

// Context keys set for granted requests so downstream handlers and hooks
// read the mapped id, never raw provider tokens.
const (
	ContextKeyMappedID = "mapped_id"
	ContextKeyRole     = "role"
)

// loadingPlaceholder is the neutral body served while auth state is
// unresolved: no guarded content, no redirect.
const loadingPlaceholder = `{"status":"loading"}`

// GuardConfig configures one protected boundary.
type GuardConfig struct {
	Aggregator *federation.Aggregator
	Logger     log.Logger
	// RequiredRole, when set, must be satisfied by the resolved role or the
	// elevated-access marker.
	RequiredRole domain.Role
	// SignInURL receives unauthenticated visitors.
	SignInURL string
	// LandingURL receives authenticated visitors whose role falls short.
	LandingURL string
}

// Guard is the per-boundary authorization state machine: Loading renders a
// neutral placeholder, Denied redirects, Granted runs the wrapped handler.
// State is re-evaluated from the aggregator on every request, so a session
// expiring flips Granted to Denied live.
func Guard(cfg GuardConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			snap, err := cfg.Aggregator.Observe(c.Request().Context())
			if err != nil {
				// Raw provider or mapping errors never reach the user; the
				// boundary answer is a generic sign-in redirect.
				cfg.Logger.Error(c.Request().Context(), "auth observation failed", err, nil)
				return c.Redirect(http.StatusFound, cfg.SignInURL)
			}

			switch {
			case snap.Readiness == federation.ReadinessLoading:
				return c.JSONBlob(http.StatusOK, []byte(loadingPlaceholder))

			case !snap.Authenticated() && !snap.Marker.Present:
				return c.Redirect(http.StatusFound, cfg.SignInURL)

			case cfg.RequiredRole != "" && !snap.Role.Satisfies(cfg.RequiredRole) && !snap.Marker.Present:
				return c.Redirect(http.StatusFound, cfg.LandingURL)

			default:
				c.Set(ContextKeyMappedID, snap.MappedID.String())
				c.Set(ContextKeyRole, snap.Role)
				return next(c)
			}
		}
	}
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/prepstack/identity-core/internal/federation"
	"github.com/prepstack/identity-core/log"
	"github.com/prepstack/identity-core/services"
)

// FeatureGateConfig configures a premium feature boundary.
type FeatureGateConfig struct {
	Aggregator *federation.Aggregator
	Gate       *services.SubscriptionGate
	Logger     log.Logger
	// UpgradeURL is offered in the call-to-action shown in place of gated
	// content.
	UpgradeURL string
}

type upgradeResponse struct {
	UpgradeRequired bool   `json:"upgrade_required"`
	UpgradeURL      string `json:"upgrade_url,omitempty"`
}

// FeatureGate wraps premium handlers. While auth state is unresolved it
// serves the neutral placeholder; entitled identities get the content
// unmodified; everyone else gets the upgrade call-to-action. Entitlement is
// re-evaluated whenever the mapped id changes, and fetch failures resolve to
// the call-to-action, never to content.
func FeatureGate(cfg FeatureGateConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			snap, err := cfg.Aggregator.Observe(ctx)
			if err != nil {
				cfg.Logger.Error(ctx, "auth observation failed at feature gate", err, nil)
				return c.JSON(http.StatusOK, upgradeResponse{UpgradeRequired: true, UpgradeURL: cfg.UpgradeURL})
			}

			if snap.Readiness == federation.ReadinessLoading {
				return c.JSONBlob(http.StatusOK, []byte(loadingPlaceholder))
			}

			mappedID := ""
			if snap.Authenticated() {
				mappedID = snap.MappedID.String()
			}
			state := cfg.Gate.Refresh(ctx, mappedID, snap.Generation)
			if state == services.Entitled {
				c.Set(ContextKeyMappedID, mappedID)
				return next(c)
			}
			return c.JSON(http.StatusOK, upgradeResponse{UpgradeRequired: true, UpgradeURL: cfg.UpgradeURL})
		}
	}
}

// Package router registers the HTTP routes on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/localmarket/internal/handler"
	"github.com/iliyamo/localmarket/internal/middleware"
)

// RegisterRoutes registers the operational endpoints: liveness and
// Prometheus metrics.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterPublic registers the unauthenticated browse endpoints behind
// limit, the shared rate limiter.
func RegisterPublic(e *echo.Echo, d *handler.DiscoveryHandler, del *handler.DeliveryHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", limit)
	g.GET("/products/home", d.HomeProducts)
	g.GET("/discover", d.Discover)
	g.GET("/delivery-zones/:id", d.ZoneInfo)
	g.POST("/products/:id/delivery-eligibility", del.CheckEligibility)
}

// RegisterAdmin registers operator endpoints.  They require a token with
// adminRole.
func RegisterAdmin(e *echo.Echo, a *handler.AdminCacheHandler, jwtSecret, adminRole string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(adminRole),
	)
	g.POST("/cache/invalidate", a.Invalidate)
}

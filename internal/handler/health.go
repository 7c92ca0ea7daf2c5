package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness for load balancers.  The spatial store is
// required; the cache is optional and only reported.
type HealthHandler struct {
	DB           Pinger
	CacheEnabled bool
}

// Health handles GET /healthz.  It answers 503 when the database does not
// respond within a second.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second)
	defer cancel()

	cacheState := "disabled"
	if h.CacheEnabled {
		cacheState = "enabled"
	}
	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"status": "unavailable",
				"db":     "down",
				"cache":  cacheState,
			})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "ok",
		"db":     "up",
		"cache":  cacheState,
	})
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/localmarket/internal/cache"
	"github.com/iliyamo/localmarket/internal/middleware"
	"github.com/iliyamo/localmarket/internal/model"
)

// CacheInvalidator is implemented by *cache.Invalidator.
type CacheInvalidator interface {
	Apply(ctx context.Context, ch model.EntityChange) (int, error)
}

// AdminCacheHandler lets operators drop cache families by hand, for
// example after a bulk import that published no change events.
type AdminCacheHandler struct {
	Invalidator CacheInvalidator
}

func NewAdminCacheHandler(inv CacheInvalidator) *AdminCacheHandler {
	return &AdminCacheHandler{Invalidator: inv}
}

type invalidateBody struct {
	Entity string `json:"entity" validate:"required,oneof=product market_stand farm delivery_zone user"`
	ID     string `json:"id" validate:"required_if=Entity user,max=64"`
}

// Invalidate handles POST /v1/admin/cache/invalidate.
func (h *AdminCacheHandler) Invalidate(c echo.Context) error {
	var body invalidateBody
	if err := c.Bind(&body); err != nil {
		return validationFailed(c, map[string]string{"body": "json"})
	}
	body.Entity = strings.ToLower(strings.TrimSpace(body.Entity))
	body.ID = strings.TrimSpace(body.ID)
	if err := validate.Struct(body); err != nil {
		return validationFailed(c, fieldErrors(err))
	}

	removed, err := h.Invalidator.Apply(c.Request().Context(), model.EntityChange{
		Entity:     body.Entity,
		ID:         body.ID,
		Action:     "updated",
		OccurredAt: time.Now().UTC(),
	})
	switch {
	case errors.Is(err, cache.ErrUnknownEntity):
		return validationFailed(c, map[string]string{"entity": "oneof"})
	case err != nil:
		return internalError(c, err, "cache invalidation")
	}

	zerolog.Ctx(c.Request().Context()).Info().
		Str("entity", body.Entity).
		Str("id", body.ID).
		Str("by", middleware.UserID(c)).
		Int("removed", removed).
		Msg("cache invalidated by operator")
	return c.JSON(http.StatusOK, echo.Map{"removed": removed})
}

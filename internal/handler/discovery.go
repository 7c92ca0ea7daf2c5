package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/localmarket/internal/discovery"
	"github.com/iliyamo/localmarket/internal/repository"
)

// DiscoveryService is implemented by *discovery.Service.
type DiscoveryService interface {
	HomeProducts(ctx context.Context, q discovery.HomeQuery) []discovery.ProductDTO
	Discover(ctx context.Context, q discovery.DiscoverQuery) []discovery.ResultItem
	ZoneInfo(ctx context.Context, id string) (discovery.ZoneDTO, error)
}

// DiscoveryHandler serves the public browse endpoints.  None of them require
// authentication.
type DiscoveryHandler struct {
	Svc DiscoveryService
}

func NewDiscoveryHandler(svc DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{Svc: svc}
}

// HomeProducts handles GET /v1/products/home.
//
// Query: lat, lng, source (browser|zipcode|ip), zip, radius_km or
// radius_miles, limit.  Every parameter is optional.  Store failures are
// not surfaced: the list is simply empty.
func (h *DiscoveryHandler) HomeProducts(c echo.Context) error {
	p := newQueryParser(c)
	q := p.homeQuery()
	if len(p.fields) > 0 {
		return validationFailed(c, p.fields)
	}

	items := h.Svc.HomeProducts(c.Request().Context(), q)
	return c.JSON(http.StatusOK, echo.Map{
		"data":  items,
		"total": len(items),
	})
}

// Discover handles GET /v1/discover: the home query plus view, categories,
// max_distance_miles, min_price, max_price and fulfillment filters.
func (h *DiscoveryHandler) Discover(c echo.Context) error {
	p := newQueryParser(c)
	q := discovery.DiscoverQuery{HomeQuery: p.homeQuery(), Filter: p.filterState()}
	if len(p.fields) > 0 {
		return validationFailed(c, p.fields)
	}

	items := h.Svc.Discover(c.Request().Context(), q)
	return c.JSON(http.StatusOK, echo.Map{
		"data":  items,
		"total": len(items),
		"view":  q.Filter.View,
	})
}

// ZoneInfo handles GET /v1/delivery-zones/:id.
func (h *DiscoveryHandler) ZoneInfo(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if err := validate.Var(id, "required,max=64"); err != nil {
		return validationFailed(c, map[string]string{"id": "required"})
	}

	z, err := h.Svc.ZoneInfo(c.Request().Context(), id)
	switch {
	case errors.Is(err, repository.ErrZoneNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "zone_not_found"})
	case err != nil:
		return internalError(c, err, "load delivery zone")
	}
	return c.JSON(http.StatusOK, z)
}

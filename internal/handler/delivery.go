package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/localmarket/internal/delivery"
)

// EligibilityChecker is implemented by *delivery.Engine.
type EligibilityChecker interface {
	Check(ctx context.Context, req delivery.Request) (delivery.Result, error)
}

type DeliveryHandler struct {
	Checker EligibilityChecker
}

func NewDeliveryHandler(checker EligibilityChecker) *DeliveryHandler {
	return &DeliveryHandler{Checker: checker}
}

type eligibilityBody struct {
	UserZipCode   string `json:"userZipCode"`
	UserCity      string `json:"userCity"`
	UserState     string `json:"userState"`
	OrderSubtotal *int64 `json:"orderSubtotal"`
}

// CheckEligibility handles POST /v1/products/:id/delivery-eligibility.
// Every eligibility state, including NOT_FOUND, is a 200; only malformed
// input is a 400.
func (h *DeliveryHandler) CheckEligibility(c echo.Context) error {
	var body eligibilityBody
	if err := c.Bind(&body); err != nil {
		return validationFailed(c, map[string]string{"body": "json"})
	}

	res, err := h.Checker.Check(c.Request().Context(), delivery.Request{
		ProductID:     c.Param("id"),
		UserZipCode:   body.UserZipCode,
		UserCity:      body.UserCity,
		UserState:     body.UserState,
		OrderSubtotal: body.OrderSubtotal,
	})
	var verr *delivery.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationFailed(c, verr.Fields)
	case err != nil:
		return internalError(c, err, "delivery eligibility check")
	}
	return c.JSON(http.StatusOK, res)
}

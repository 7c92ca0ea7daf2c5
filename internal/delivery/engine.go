// Package delivery decides whether a product can be delivered to a shopper
// and, when it can, which dates are on offer.
//
// A check always ends in one of the Status values below.  "Not eligible" is
// an ordinary answer, not an error; errors are reserved for malformed input
// (*ValidationError) and store failures.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/localmarket/internal/metrics"
	"github.com/iliyamo/localmarket/internal/model"
	"github.com/iliyamo/localmarket/internal/repository"
)

var tracer = otel.Tracer("github.com/iliyamo/localmarket/internal/delivery")

// Status is the terminal state of an eligibility check.
type Status string

const (
	StatusNotFound   Status = "NOT_FOUND"
	StatusNoDelivery Status = "NO_DELIVERY"
	StatusNoZone     Status = "NO_ZONE"
	StatusNotMatched Status = "NOT_MATCHED"
	StatusEligible   Status = "ELIGIBLE"
)

const (
	reasonNotFound      = "Product not found"
	reasonNoDelivery    = "This product is not available for delivery"
	reasonNoZone        = "No delivery zone configured"
	reasonZoneInactive  = "Delivery zone is not active"
	reasonNoMatchAtAll  = "Delivery is not available to your location"
	reasonNoMatchForZip = "Delivery is not available to ZIP code %s"
)

// RecurringWindowDays is how far ahead recurring delivery dates are offered.
const RecurringWindowDays = 56

// ProductSource loads a product with its zone and weekday listings.  It
// returns repository.ErrProductNotFound when the product does not exist.
type ProductSource interface {
	DeliveryProduct(ctx context.Context, id string) (*model.DeliveryProduct, error)
}

// Request is a shopper's eligibility question.  OrderSubtotal, in cents, is
// optional and only used to waive the fee above the zone threshold.
type Request struct {
	ProductID     string `json:"productId" validate:"required,max=64"`
	UserZipCode   string `json:"userZipCode" validate:"omitempty,zipcode"`
	UserCity      string `json:"userCity" validate:"omitempty,max=100"`
	UserState     string `json:"userState" validate:"omitempty,len=2,alpha"`
	OrderSubtotal *int64 `json:"orderSubtotal" validate:"omitempty,min=0"`
}

// Result is the answer to a Request.  MatchedZipCode and MatchedCity are
// mutually exclusive: a ZIP match wins over a city/state match.
type Result struct {
	Status                Status                 `json:"status"`
	IsEligible            bool                   `json:"isEligible"`
	Reason                string                 `json:"reason"`
	ZoneID                *string                `json:"zoneId"`
	ZoneName              *string                `json:"zoneName"`
	MatchedZipCode        *string                `json:"matchedZipCode"`
	MatchedCity           *string                `json:"matchedCity"`
	MatchedState          *string                `json:"matchedState"`
	DeliveryFee           *int64                 `json:"deliveryFee"`
	FreeDeliveryThreshold *int64                 `json:"freeDeliveryThreshold"`
	MinimumOrder          *int64                 `json:"minimumOrder"`
	DeliveryOptions       []model.DeliveryOption `json:"deliveryOptions"`
}

// Engine runs eligibility checks.  Now and Location define "today"; both
// are fields so tests can pin the calendar.
type Engine struct {
	Products ProductSource
	Now      func() time.Time
	Location *time.Location
}

// NewEngine builds an Engine that reads the wall clock in loc.
func NewEngine(products ProductSource, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		Products: products,
		Now:      time.Now,
		Location: loc,
	}
}

// Check validates req, loads the product and walks the eligibility states.
func (e *Engine) Check(ctx context.Context, req Request) (Result, error) {
	req.UserZipCode = strings.TrimSpace(req.UserZipCode)
	req.UserCity = strings.TrimSpace(req.UserCity)
	req.UserState = strings.TrimSpace(req.UserState)
	if err := validate.Struct(req); err != nil {
		return Result{}, toValidationError(err)
	}

	ctx, span := tracer.Start(ctx, "delivery.Check")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", req.ProductID))

	p, err := e.Products.DeliveryProduct(ctx, req.ProductID)
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return e.finish(ctx, denied(StatusNotFound, reasonNotFound)), nil
	case err != nil:
		return Result{}, err
	}

	res := e.evaluate(ctx, p, req)
	span.SetAttributes(attribute.String("delivery.status", string(res.Status)))
	return e.finish(ctx, res), nil
}

func (e *Engine) finish(ctx context.Context, res Result) Result {
	metrics.EligibilityChecks.WithLabelValues(string(res.Status)).Inc()
	zerolog.Ctx(ctx).Debug().
		Str("status", string(res.Status)).
		Int("options", len(res.DeliveryOptions)).
		Msg("delivery eligibility checked")
	return res
}

func denied(s Status, reason string) Result {
	return Result{Status: s, Reason: reason, DeliveryOptions: []model.DeliveryOption{}}
}

func (e *Engine) evaluate(ctx context.Context, p *model.DeliveryProduct, req Request) Result {
	if !p.DeliveryAvailable {
		return denied(StatusNoDelivery, reasonNoDelivery)
	}
	if p.DeliveryZoneID == nil || *p.DeliveryZoneID == "" || p.Zone == nil {
		return denied(StatusNoZone, reasonNoZone)
	}
	z := p.Zone
	if !z.IsActive {
		return denied(StatusNoZone, reasonZoneInactive)
	}

	res := Result{
		ZoneID:                &z.ID,
		ZoneName:              &z.Name,
		FreeDeliveryThreshold: z.FreeDeliveryThreshold,
		MinimumOrder:          z.MinimumOrder,
		DeliveryOptions:       []model.DeliveryOption{},
	}

	if !z.HasCoverage() {
		zerolog.Ctx(ctx).Warn().
			Str("zone_id", z.ID).
			Str("product_id", p.ID).
			Msg("delivery zone has no zip codes, cities or states")
	}
	m, ok := matchZone(z, req.UserZipCode, req.UserCity, req.UserState)
	if !ok {
		res.Status = StatusNotMatched
		res.Reason = reasonNoMatchAtAll
		if req.UserZipCode != "" {
			res.Reason = fmt.Sprintf(reasonNoMatchForZip, req.UserZipCode)
		}
		return res
	}

	fee := feeFor(z, req.OrderSubtotal)
	res.Status = StatusEligible
	res.IsEligible = true
	res.DeliveryFee = &fee
	res.MatchedZipCode = m.zip
	res.MatchedCity = m.city
	res.MatchedState = m.state
	res.DeliveryOptions = buildOptions(p, fee, e.today())
	return res
}

func (e *Engine) today() time.Time {
	loc := e.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return startOfDay(now().In(loc))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// feeFor waives the zone fee once the subtotal reaches the threshold.
func feeFor(z *model.DeliveryZone, subtotal *int64) int64 {
	if subtotal != nil && z.FreeDeliveryThreshold != nil && *subtotal >= *z.FreeDeliveryThreshold {
		return 0
	}
	return z.DeliveryFee
}

package handler

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/localmarket/internal/discovery"
	"github.com/iliyamo/localmarket/internal/geo"
	"github.com/iliyamo/localmarket/internal/model"
)

// queryParser reads optional query parameters and collects one failure per
// parameter instead of stopping at the first.
type queryParser struct {
	c      echo.Context
	fields map[string]string
}

func newQueryParser(c echo.Context) *queryParser {
	return &queryParser{c: c, fields: map[string]string{}}
}

func (p *queryParser) fail(name, rule string) {
	if _, seen := p.fields[name]; !seen {
		p.fields[name] = rule
	}
}

func (p *queryParser) str(name string) string {
	return strings.TrimSpace(p.c.QueryParam(name))
}

func (p *queryParser) float(name string) *float64 {
	raw := p.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.fail(name, "number")
		return nil
	}
	return &v
}

func (p *queryParser) nonNegative(name string) *float64 {
	v := p.float(name)
	if v != nil && *v < 0 {
		p.fail(name, "min")
		return nil
	}
	return v
}

func (p *queryParser) int(name string) int {
	raw := p.str(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(name, "number")
		return 0
	}
	if v < 0 {
		p.fail(name, "min")
		return 0
	}
	return v
}

// list accepts both ?x=a,b and ?x=a&x=b.
func (p *queryParser) list(name string) []string {
	var out []string
	for _, raw := range p.c.QueryParams()[name] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// location reads lat, lng and source.  Coordinates come as a pair; source
// defaults to browser.
func (p *queryParser) location() (lat, lng *float64) {
	lat, lng = p.float("lat"), p.float("lng")
	switch {
	case lat == nil && lng == nil:
		return nil, nil
	case lat == nil:
		p.fail("lat", "required_with")
		return nil, nil
	case lng == nil:
		p.fail("lng", "required_with")
		return nil, nil
	}
	src := model.LocationSource(strings.ToLower(p.str("source")))
	if src == "" {
		src = model.SourceBrowser
	}
	sig := model.LocationSignal{Source: src, Coords: model.Coords{Lat: *lat, Lng: *lng}}
	switch err := sig.Validate(); {
	case errors.Is(err, model.ErrUnknownSource):
		p.fail("source", "oneof")
	case errors.Is(err, model.ErrLatOutOfRange):
		p.fail("lat", "latitude")
	case errors.Is(err, model.ErrLngOutOfRange):
		p.fail("lng", "longitude")
	case err == nil:
		return lat, lng
	}
	return nil, nil
}

func (p *queryParser) zip() string {
	zip := model.NormalizeZip(p.str("zip"))
	if zip != "" && validate.Var(zip, "numeric,len=5") != nil {
		p.fail("zip", "zipcode")
		return ""
	}
	return zip
}

// radiusKm prefers radius_km and falls back to radius_miles.
func (p *queryParser) radiusKm() float64 {
	if km := p.nonNegative("radius_km"); km != nil {
		return *km
	}
	if mi := p.nonNegative("radius_miles"); mi != nil {
		return geo.MilesToKm(*mi)
	}
	return 0
}

func (p *queryParser) homeQuery() discovery.HomeQuery {
	lat, lng := p.location()
	return discovery.HomeQuery{
		Lat:      lat,
		Lng:      lng,
		ZipCode:  p.zip(),
		RadiusKm: p.radiusKm(),
		Limit:    p.int("limit"),
	}
}

func (p *queryParser) filterState() discovery.FilterState {
	f := discovery.FilterState{
		View:             discovery.View(strings.ToLower(p.str("view"))),
		Categories:       p.list("categories"),
		MaxDistanceMiles: p.nonNegative("max_distance_miles"),
		MinPrice:         p.nonNegative("min_price"),
		MaxPrice:         p.nonNegative("max_price"),
	}
	switch f.View {
	case "":
		f.View = discovery.ViewAll
	case discovery.ViewAll, discovery.ViewProducts, discovery.ViewStands, discovery.ViewFarms:
	default:
		p.fail("view", "oneof")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		p.fail("min_price", "ltefield")
	}
	for _, m := range p.list("fulfillment") {
		m = strings.ToLower(m)
		if m != discovery.FulfillmentPickup && m != discovery.FulfillmentDelivery {
			p.fail("fulfillment", "oneof")
			continue
		}
		f.Fulfillment = append(f.Fulfillment, m)
	}
	return f
}

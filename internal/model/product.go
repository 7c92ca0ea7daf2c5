package model

import "time"

// StandRef is the market stand a product is picked up from.  It is nil for
// delivery-only products.
type StandRef struct {
	ID           string  // market_stands.id
	Name         string  // market_stands.name
	Latitude     float64 // market_stands.latitude
	Longitude    float64 // market_stands.longitude
	LocationName string  // market_stands.location_name
}

// DeliveryMatch is attached to a product when its delivery zone covers the
// ZIP code the shopper searched with.
type DeliveryMatch struct {
	ZoneID      string // delivery_zones.id
	DeliveryFee int64  // delivery_zones.delivery_fee (cents)
}

// SpatialProduct is one row of a radius/delivery product search.
//
// Fields:
//
//	Price          – minor currency units (cents).
//	Inventory      – never negative.
//	MarketStand    – nil for delivery-only products.
//	DeliveryZoneID – the zone configured on the product, if any.
//	DistanceKm     – great-circle distance to the stand; nil when the
//	                 request carried no coordinates or the product has no stand.
//	Delivery       – set when the zone covers the requester's ZIP.
type SpatialProduct struct {
	ID                string
	Name              string
	Price             int64
	Images            []string
	Inventory         int
	Tags              []string
	DeliveryAvailable bool
	AvailableFrom     *time.Time
	AvailableUntil    *time.Time
	CreatedAt         time.Time
	MarketStand       *StandRef
	DeliveryZoneID    *string
	DistanceKm        *float64
	Delivery          *DeliveryMatch
}

// Fulfillable reports whether a shopper can actually obtain the product:
// either by pickup at a stand or by delivery through a configured zone.
func (p SpatialProduct) Fulfillable() bool {
	if p.MarketStand != nil {
		return true
	}
	return p.DeliveryAvailable && p.DeliveryZoneID != nil && *p.DeliveryZoneID != ""
}

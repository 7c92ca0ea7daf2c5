package model

import "time"

// DeliveryType selects how delivery dates are produced for a product.
type DeliveryType string

const (
	DeliveryOneTime   DeliveryType = "ONE_TIME"  // explicit calendar dates
	DeliveryRecurring DeliveryType = "RECURRING" // weekly pattern projected forward
)

// DeliveryListing is the stock a product offers for delivery on one weekday.
type DeliveryListing struct {
	DayOfWeek string // canonical weekday name
	Inventory int
}

// DeliveryProduct is a product loaded together with its zone and per-day
// listings for an eligibility check.
type DeliveryProduct struct {
	ID                string
	Name              string
	DeliveryAvailable bool
	Inventory         int
	DeliveryZoneID    *string
	DeliveryType      DeliveryType // empty when not configured
	DeliveryDates     []time.Time
	Zone              *DeliveryZone
	Listings          []DeliveryListing
}

// DeliveryOption is one selectable delivery date.  Options are derived per
// request and never cached.
type DeliveryOption struct {
	Date               string `json:"date"` // YYYY-MM-DD
	DayOfWeek          string `json:"dayOfWeek"`
	TimeWindow         string `json:"timeWindow"`
	DeliveryFee        int64  `json:"deliveryFee"`
	AvailableInventory int    `json:"availableInventory"`
	IsRecurring        bool   `json:"isRecurring"`
	ZoneID             string `json:"zoneId"`
}

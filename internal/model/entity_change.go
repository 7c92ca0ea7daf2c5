package model

import "time"

// Entity names carried by catalog change events.
const (
	EntityProduct      = "product"
	EntityMarketStand  = "market_stand"
	EntityFarm         = "farm"
	EntityDeliveryZone = "delivery_zone"
	EntityUser         = "user"
)

// EntityChange is published by the catalog whenever a row the discovery
// caches are derived from is created, updated or deleted.
type EntityChange struct {
	Entity     string    `json:"entity"`
	ID         string    `json:"id"`
	Action     string    `json:"action"` // created, updated, deleted
	OccurredAt time.Time `json:"occurred_at"`
}

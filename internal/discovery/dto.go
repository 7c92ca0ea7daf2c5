package discovery

import (
	"time"

	"github.com/iliyamo/localmarket/internal/model"
)

// The DTOs below are what gets cached and what clients receive.  Every
// field is always present in the JSON: optional values are explicit nulls
// and lists are never null, so a decoded cache entry has exactly the shape
// of a freshly serialized one.

// StandDTO is the market stand a product can be picked up from.
type StandDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	LocationName string  `json:"locationName"`
}

// DeliveryInfoDTO describes how a product is delivered.  MatchesZip is true
// when the product's zone covers the ZIP code of the search, in which case
// DeliveryFee carries the zone fee.
type DeliveryInfoDTO struct {
	IsAvailable bool   `json:"isAvailable"`
	ZoneID      string `json:"zoneId"`
	MatchesZip  bool   `json:"matchesZip"`
	DeliveryFee *int64 `json:"deliveryFee"`
}

// ProductDTO is a serialized spatial product.  Distance is in kilometers.
type ProductDTO struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Price             int64            `json:"price"`
	Images            []string         `json:"images"`
	Inventory         int              `json:"inventory"`
	Tags              []string         `json:"tags"`
	DeliveryAvailable bool             `json:"deliveryAvailable"`
	AvailableFrom     *string          `json:"availableFrom"`
	AvailableUntil    *string          `json:"availableUntil"`
	CreatedAt         string           `json:"createdAt"`
	MarketStand       *StandDTO        `json:"marketStand"`
	DeliveryZoneID    *string          `json:"deliveryZoneId"`
	Distance          *float64         `json:"distance"`
	DeliveryInfo      *DeliveryInfoDTO `json:"deliveryInfo"`
	Unfulfillable     bool             `json:"unfulfillable"`
}

// PlaceDTO is a serialized market stand or farm.
type PlaceDTO struct {
	Type         model.PlaceKind `json:"type"`
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	LocationName string          `json:"locationName"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	Images       []string        `json:"images"`
	Tags         []string        `json:"tags"`
	Distance     *float64        `json:"distance"`
}

// ZoneDTO is the public view of a delivery zone.
type ZoneDTO struct {
	ID                    string            `json:"id"`
	Name                  string            `json:"name"`
	ZipCodes              []string          `json:"zipCodes"`
	Cities                []string          `json:"cities"`
	States                []string          `json:"states"`
	DeliveryFee           int64             `json:"deliveryFee"`
	FreeDeliveryThreshold *int64            `json:"freeDeliveryThreshold"`
	MinimumOrder          *int64            `json:"minimumOrder"`
	DeliveryDays          []string          `json:"deliveryDays"`
	TimeWindows           map[string]string `json:"timeWindows"`
	IsActive              bool              `json:"isActive"`
}

func isoTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func isoTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := isoTime(*t)
	return &s
}

func list(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// SerializeProduct converts a store row into its DTO.  A product that can
// be neither picked up nor delivered is kept and flagged unfulfillable.
func SerializeProduct(p model.SpatialProduct) ProductDTO {
	dto := ProductDTO{
		ID:                p.ID,
		Name:              p.Name,
		Price:             p.Price,
		Images:            list(p.Images),
		Inventory:         max(p.Inventory, 0),
		Tags:              list(p.Tags),
		DeliveryAvailable: p.DeliveryAvailable,
		AvailableFrom:     isoTimePtr(p.AvailableFrom),
		AvailableUntil:    isoTimePtr(p.AvailableUntil),
		CreatedAt:         isoTime(p.CreatedAt),
		DeliveryZoneID:    clonePtr(p.DeliveryZoneID),
		Distance:          clonePtr(p.DistanceKm),
		Unfulfillable:     !p.Fulfillable(),
	}
	if s := p.MarketStand; s != nil {
		dto.MarketStand = &StandDTO{
			ID:           s.ID,
			Name:         s.Name,
			Latitude:     s.Latitude,
			Longitude:    s.Longitude,
			LocationName: s.LocationName,
		}
	}
	if p.DeliveryAvailable && p.DeliveryZoneID != nil && *p.DeliveryZoneID != "" {
		info := &DeliveryInfoDTO{IsAvailable: true, ZoneID: *p.DeliveryZoneID}
		if m := p.Delivery; m != nil {
			fee := m.DeliveryFee
			info.MatchesZip = true
			info.DeliveryFee = &fee
		}
		dto.DeliveryInfo = info
	}
	return dto
}

// SerializeProducts never returns nil.
func SerializeProducts(ps []model.SpatialProduct) []ProductDTO {
	out := make([]ProductDTO, len(ps))
	for i, p := range ps {
		out[i] = SerializeProduct(p)
	}
	return out
}

func SerializePlace(pl model.SpatialPlace) PlaceDTO {
	return PlaceDTO{
		Type:         pl.Kind,
		ID:           pl.ID,
		Name:         pl.Name,
		Description:  pl.Description,
		LocationName: pl.LocationName,
		Latitude:     pl.Latitude,
		Longitude:    pl.Longitude,
		Images:       list(pl.Images),
		Tags:         list(pl.Tags),
		Distance:     clonePtr(pl.DistanceKm),
	}
}

// SerializePlaces never returns nil.
func SerializePlaces(pls []model.SpatialPlace) []PlaceDTO {
	out := make([]PlaceDTO, len(pls))
	for i, pl := range pls {
		out[i] = SerializePlace(pl)
	}
	return out
}

func SerializeZone(z *model.DeliveryZone) ZoneDTO {
	windows := make(map[string]string, len(z.TimeWindows))
	for k, v := range z.TimeWindows {
		windows[k] = v
	}
	return ZoneDTO{
		ID:                    z.ID,
		Name:                  z.Name,
		ZipCodes:              list(z.ZipCodes),
		Cities:                list(z.Cities),
		States:                list(z.States),
		DeliveryFee:           z.DeliveryFee,
		FreeDeliveryThreshold: clonePtr(z.FreeDeliveryThreshold),
		MinimumOrder:          clonePtr(z.MinimumOrder),
		DeliveryDays:          list(z.DeliveryDays),
		TimeWindows:           windows,
		IsActive:              z.IsActive,
	}
}

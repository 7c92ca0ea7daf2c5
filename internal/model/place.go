package model

// PlaceKind distinguishes the two kinds of physical sellers.
type PlaceKind string

const (
	PlaceStand PlaceKind = "stand"
	PlaceFarm  PlaceKind = "farm"
)

// SpatialPlace is a market stand or farm returned by a nearby search.
type SpatialPlace struct {
	Kind         PlaceKind
	ID           string
	Name         string
	Description  string
	LocationName string
	Latitude     float64
	Longitude    float64
	Images       []string
	Tags         []string
	DistanceKm   *float64
}

package cache

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/localmarket/internal/geo"
	"github.com/iliyamo/localmarket/internal/model"
)

// Key families.  Every cached listing lives under one of these so a write
// to the underlying entity can drop the whole family with one pattern.
const (
	productsFamily = "products"
	standsFamily   = "stands"
	farmsFamily    = "farms"
	zonesFamily    = "zones"
	userFamily     = "user" // reserved, see UserKeyPattern
)

// HomeProductsKey buckets the coordinates to a 0.1 degree grid so nearby
// shoppers share an entry.  Missing coordinates become "none".
func HomeProductsKey(lat, lng *float64, zip string, radiusKm float64, limit int) string {
	return fmt.Sprintf("%s:home:%s:zip:%s:r:%s:l:%d",
		productsFamily, coordPart(lat, lng), orNone(zip), ftoa(radiusKm), limit)
}

// NearbyPlacesKey is the stand/farm counterpart of HomeProductsKey.
func NearbyPlacesKey(kind model.PlaceKind, lat, lng *float64, radiusKm float64, limit int) string {
	family := standsFamily
	if kind == model.PlaceFarm {
		family = farmsFamily
	}
	return fmt.Sprintf("%s:nearby:%s:r:%s:l:%d", family, coordPart(lat, lng), ftoa(radiusKm), limit)
}

// ZoneKey caches a single delivery zone.
func ZoneKey(id string) string { return zonesFamily + ":" + id }

// UserKeyPattern matches everything cached for one user.  The family is
// reserved for per-user entries under the shared prefix; the discovery
// listings are not user-scoped and nothing in this service writes it, so a
// user change removes only keys other writers put there and often none.
func UserKeyPattern(id string) string { return userFamily + ":" + escapeGlob(id) + ":*" }

// PatternsFor lists the key patterns invalidated by a change to entity.
// The second result is false for entities the cache knows nothing about.
func PatternsFor(entity, id string) ([]string, bool) {
	all := func(family string) string { return family + ":*" }
	switch entity {
	case model.EntityProduct:
		return []string{all(productsFamily)}, true
	case model.EntityMarketStand:
		return []string{all(productsFamily), all(standsFamily)}, true
	case model.EntityFarm:
		return []string{all(productsFamily), all(farmsFamily)}, true
	case model.EntityDeliveryZone:
		return []string{ZoneKey(escapeGlob(id)), all(productsFamily)}, true
	case model.EntityUser:
		if id == "" {
			return nil, false
		}
		return []string{UserKeyPattern(id)}, true
	}
	return nil, false
}

func coordPart(lat, lng *float64) string {
	if lat == nil || lng == nil {
		return "lat:none:lng:none"
	}
	return "lat:" + geo.FormatBucket(*lat) + ":lng:" + geo.FormatBucket(*lng)
}

func orNone(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "none"
	}
	return s
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globEscaper.Replace(s) }

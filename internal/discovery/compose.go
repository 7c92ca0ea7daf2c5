package discovery

import (
	"math"
	"sort"
	"strings"

	"github.com/iliyamo/localmarket/internal/geo"
)

// View selects which result families Compose keeps.
type View string

const (
	ViewAll      View = "all"
	ViewProducts View = "products"
	ViewStands   View = "stands"
	ViewFarms    View = "farms"
)

// Fulfillment modes accepted by FilterState.Fulfillment.
const (
	FulfillmentPickup   = "pickup"
	FulfillmentDelivery = "delivery"
)

// ItemType tags a ResultItem.
type ItemType string

const (
	ItemProduct ItemType = "product"
	ItemStand   ItemType = "stand"
	ItemFarm    ItemType = "farm"
)

// FilterState is the shopper's current browse filters.  Nil bounds and
// empty lists do not filter.  Prices are in dollars, distance in miles.
type FilterState struct {
	View             View
	Categories       []string
	MaxDistanceMiles *float64
	MinPrice         *float64
	MaxPrice         *float64
	Fulfillment      []string
}

// ResultItem is one row of a composed result list; exactly one of Product
// and Place is set.
type ResultItem struct {
	Type     ItemType    `json:"type"`
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Distance *float64    `json:"distance"`
	Tags     []string    `json:"tags"`
	Product  *ProductDTO `json:"product"`
	Place    *PlaceDTO   `json:"place"`
}

// Compose merges the three result families, applies f and orders the rest
// by distance with unknown distances last.  It does no I/O and never
// mutates its inputs.
func Compose(products []ProductDTO, stands, farms []PlaceDTO, f FilterState) []ResultItem {
	view := f.View
	if view == "" {
		view = ViewAll
	}
	cats := lowerAll(f.Categories)
	var maxKm *float64
	if f.MaxDistanceMiles != nil {
		v := geo.MilesToKm(*f.MaxDistanceMiles)
		maxKm = &v
	}

	out := make([]ResultItem, 0, len(products)+len(stands)+len(farms))

	if view == ViewAll || view == ViewProducts {
		for i := range products {
			p := &products[i]
			if !matchesCategories(p.Tags, cats) || !withinDistance(p.Distance, maxKm) ||
				!withinPrice(p.Price, f.MinPrice, f.MaxPrice) || !matchesFulfillment(p, f.Fulfillment) {
				continue
			}
			out = append(out, ResultItem{
				Type: ItemProduct, ID: p.ID, Name: p.Name, Distance: p.Distance, Tags: p.Tags, Product: p,
			})
		}
	}
	places := func(items []PlaceDTO, t ItemType) {
		for i := range items {
			pl := &items[i]
			if !matchesCategories(pl.Tags, cats) || !withinDistance(pl.Distance, maxKm) {
				continue
			}
			out = append(out, ResultItem{
				Type: t, ID: pl.ID, Name: pl.Name, Distance: pl.Distance, Tags: pl.Tags, Place: pl,
			})
		}
	}
	if view == ViewAll || view == ViewStands {
		places(stands, ItemStand)
	}
	if view == ViewAll || view == ViewFarms {
		places(farms, ItemFarm)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Distance, out[j].Distance
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a < *b
	})
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// matchesCategories is a loose match: a selected category and a tag match
// when either contains the other.
func matchesCategories(tags, cats []string) bool {
	if len(cats) == 0 {
		return true
	}
	for _, c := range cats {
		for _, t := range tags {
			t = strings.ToLower(t)
			if strings.Contains(t, c) || strings.Contains(c, t) {
				return true
			}
		}
	}
	return false
}

func withinDistance(d, maxKm *float64) bool {
	return maxKm == nil || d == nil || *d <= *maxKm
}

func toCents(dollars float64) int64 { return int64(math.Round(dollars * 100)) }

func withinPrice(cents int64, lo, hi *float64) bool {
	if lo != nil && cents < toCents(*lo) {
		return false
	}
	if hi != nil && cents > toCents(*hi) {
		return false
	}
	return true
}

func matchesFulfillment(p *ProductDTO, modes []string) bool {
	if len(modes) == 0 {
		return true
	}
	for _, m := range modes {
		switch strings.ToLower(m) {
		case FulfillmentPickup:
			if p.MarketStand != nil {
				return true
			}
		case FulfillmentDelivery:
			if p.DeliveryInfo != nil && p.DeliveryInfo.IsAvailable {
				return true
			}
		}
	}
	return false
}

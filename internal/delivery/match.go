package delivery

import (
	"strings"

	"github.com/iliyamo/localmarket/internal/model"
)

type zoneMatch struct {
	zip, city, state *string
}

// matchZone tries the ZIP code first and only then city and state
// together.  A city alone never matches: city names repeat across states.
func matchZone(z *model.DeliveryZone, zip, city, state string) (zoneMatch, bool) {
	if zip = model.NormalizeZip(zip); zip != "" {
		for _, zz := range z.ZipCodes {
			if model.NormalizeZip(zz) == zip {
				return zoneMatch{zip: &zip}, true
			}
		}
	}
	if city != "" && state != "" && containsFold(z.Cities, city) && containsFold(z.States, state) {
		return zoneMatch{city: &city, state: &state}, true
	}
	return zoneMatch{}, false
}

func containsFold(set []string, s string) bool {
	for _, v := range set {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

package repository

import (
	"strings"
	"time"

	"github.com/iliyamo/localmarket/internal/model"
)

var deliveryDateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// toDeliveryProduct converts the gorm row into the model the eligibility
// engine works on.  Unparseable dates and unknown weekdays are dropped.
func toDeliveryProduct(row *deliveryProductRow) *model.DeliveryProduct {
	if row == nil {
		return nil
	}
	p := &model.DeliveryProduct{
		ID:                row.ID,
		Name:              row.Name,
		DeliveryAvailable: row.DeliveryAvailable,
		Inventory:         max(row.Inventory, 0),
		DeliveryZoneID:    row.DeliveryZoneID,
		DeliveryType:      toDeliveryType(row.DeliveryType),
		DeliveryDates:     parseDeliveryDates(row.DeliveryDates),
		Zone:              toDeliveryZone(row.Zone),
	}
	if len(row.Listings) > 0 {
		p.Listings = make([]model.DeliveryListing, 0, len(row.Listings))
		for _, l := range row.Listings {
			day, ok := model.NormalizeDay(l.DayOfWeek)
			if !ok {
				continue
			}
			p.Listings = append(p.Listings, model.DeliveryListing{DayOfWeek: day, Inventory: l.Inventory})
		}
	}
	return p
}

func toDeliveryType(s *string) model.DeliveryType {
	if s == nil {
		return ""
	}
	switch t := model.DeliveryType(strings.ToUpper(strings.TrimSpace(*s))); t {
	case model.DeliveryOneTime, model.DeliveryRecurring:
		return t
	}
	return ""
}

func parseDeliveryDates(raw []string) []time.Time {
	if len(raw) == 0 {
		return nil
	}
	out := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		for _, layout := range deliveryDateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// toDeliveryZone converts a zone row.  Time windows are validated here, on
// read, so the engine only ever sees canonical weekday keys.
func toDeliveryZone(row *deliveryZoneRow) *model.DeliveryZone {
	if row == nil {
		return nil
	}
	days := make([]string, 0, len(row.DeliveryDays))
	for _, d := range row.DeliveryDays {
		if day, ok := model.NormalizeDay(d); ok {
			days = append(days, day)
		}
	}
	return &model.DeliveryZone{
		ID:                    row.ID,
		Name:                  row.Name,
		ZipCodes:              nonNil(row.ZipCodes),
		Cities:                nonNil(row.Cities),
		States:                nonNil(row.States),
		DeliveryFee:           row.DeliveryFee,
		FreeDeliveryThreshold: row.FreeDeliveryThreshold,
		MinimumOrder:          row.MinimumOrder,
		DeliveryDays:          days,
		TimeWindows:           model.ParseTimeWindows(row.DeliveryTimeWindows),
		IsActive:              row.IsActive,
	}
}

func nonNil(l StringList) []string {
	if l == nil {
		return []string{}
	}
	return l
}

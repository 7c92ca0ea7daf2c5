package delivery

import (
	"sort"
	"time"

	"github.com/iliyamo/localmarket/internal/model"
)

const dateLayout = "2006-01-02"

// buildOptions lists the delivery dates for an eligible product, sorted by
// date.  A product without an explicit type is one-time when it carries
// dates and recurring otherwise.
func buildOptions(p *model.DeliveryProduct, fee int64, today time.Time) []model.DeliveryOption {
	kind := p.DeliveryType
	if kind == "" {
		kind = model.DeliveryRecurring
		if len(p.DeliveryDates) > 0 {
			kind = model.DeliveryOneTime
		}
	}

	var opts []model.DeliveryOption
	if kind == model.DeliveryOneTime {
		opts = oneTimeOptions(p, fee, today)
	} else {
		opts = recurringOptions(p, fee, today)
	}
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Date < opts[j].Date })
	return opts
}

func newOption(day time.Time, z *model.DeliveryZone, fee int64, inventory int, recurring bool) model.DeliveryOption {
	return model.DeliveryOption{
		Date:               day.Format(dateLayout),
		DayOfWeek:          day.Weekday().String(),
		TimeWindow:         z.TimeWindows.Window(day.Weekday()),
		DeliveryFee:        fee,
		AvailableInventory: inventory,
		IsRecurring:        recurring,
		ZoneID:             z.ID,
	}
}

// oneTimeOptions emits each listed calendar date once, skipping dates
// before today.  Stored dates are calendar days, so only their Y-M-D is
// used.
func oneTimeOptions(p *model.DeliveryProduct, fee int64, today time.Time) []model.DeliveryOption {
	out := make([]model.DeliveryOption, 0, len(p.DeliveryDates))
	seen := make(map[string]struct{}, len(p.DeliveryDates))
	for _, d := range p.DeliveryDates {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, today.Location())
		if day.Before(today) {
			continue
		}
		key := day.Format(dateLayout)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, newOption(day, p.Zone, fee, p.Inventory, false))
	}
	return out
}

// recurringOptions walks RecurringWindowDays days from today.  When the
// product has weekday listings they alone decide the days, and a listing
// with no stock removes its weekday.  Only a product with no listings at
// all falls back to the zone's delivery days and the product inventory.
func recurringOptions(p *model.DeliveryProduct, fee int64, today time.Time) []model.DeliveryOption {
	type slot struct{ inventory int }
	byDay := make(map[time.Weekday]slot, 7)

	if len(p.Listings) > 0 {
		for _, l := range p.Listings {
			wd, ok := model.ParseWeekday(l.DayOfWeek)
			if !ok || l.Inventory <= 0 {
				continue
			}
			byDay[wd] = slot{inventory: l.Inventory}
		}
	} else {
		for _, name := range p.Zone.DeliveryDays {
			if wd, ok := model.ParseWeekday(name); ok {
				byDay[wd] = slot{inventory: p.Inventory}
			}
		}
	}

	out := make([]model.DeliveryOption, 0, len(byDay)*(RecurringWindowDays/7+1))
	if len(byDay) == 0 {
		return out
	}
	for i := 0; i < RecurringWindowDays; i++ {
		day := today.AddDate(0, 0, i)
		if s, ok := byDay[day.Weekday()]; ok {
			out = append(out, newOption(day, p.Zone, fee, s.inventory, true))
		}
	}
	return out
}

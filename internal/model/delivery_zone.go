package model

import (
	"encoding/json"
	"strings"
	"time"
)

// DefaultTimeWindow is used for any weekday the zone does not configure.
const DefaultTimeWindow = "9am - 5pm"

// DeliveryZone is a named coverage area with fee and schedule rules.  At
// least one of ZipCodes, Cities or States is expected to be non-empty; a
// zone without coverage simply never matches.
//
// Fields:
//
//	DeliveryFee           – cents.
//	FreeDeliveryThreshold – order subtotal (cents) at which the fee is waived.
//	MinimumOrder          – minimum order subtotal (cents), informational.
//	DeliveryDays          – weekday names used for recurring delivery when a
//	                        product has no per-day listings.
//	TimeWindows           – weekday name -> human readable window.
type DeliveryZone struct {
	ID                    string
	Name                  string
	ZipCodes              []string
	Cities                []string
	States                []string
	DeliveryFee           int64
	FreeDeliveryThreshold *int64
	MinimumOrder          *int64
	DeliveryDays          []string
	TimeWindows           TimeWindows
	IsActive              bool
}

// HasCoverage reports whether any coverage dimension is configured.
func (z DeliveryZone) HasCoverage() bool {
	return len(z.ZipCodes) > 0 || len(z.Cities) > 0 || len(z.States) > 0
}

// TimeWindows maps canonical weekday names ("Monday") to a window string.
type TimeWindows map[string]string

// Window returns the configured window for the weekday or DefaultTimeWindow.
func (w TimeWindows) Window(day time.Weekday) string {
	if v, ok := w[day.String()]; ok && v != "" {
		return v
	}
	return DefaultTimeWindow
}

// ParseTimeWindows decodes the loosely typed delivery_time_windows column.
// Keys are matched to weekday names case-insensitively.  Values may be plain
// strings or {"start": "...", "end": "..."} objects; anything else, and any
// unknown key, is dropped.  Malformed JSON yields an empty map.
func ParseTimeWindows(raw []byte) TimeWindows {
	out := TimeWindows{}
	if len(raw) == 0 {
		return out
	}
	var loose map[string]json.RawMessage
	if err := json.Unmarshal(raw, &loose); err != nil {
		return out
	}
	for k, v := range loose {
		day, ok := NormalizeDay(k)
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out[day] = s
			}
			continue
		}
		var se struct {
			Start string `json:"start"`
			End   string `json:"end"`
		}
		if err := json.Unmarshal(v, &se); err == nil && se.Start != "" && se.End != "" {
			out[day] = se.Start + " - " + se.End
		}
	}
	return out
}

var weekdayByName = func() map[string]time.Weekday {
	m := make(map[string]time.Weekday, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		m[strings.ToLower(d.String())] = d
	}
	return m
}()

// NormalizeDay maps "monday", "MONDAY" or " Monday " to "Monday".
func NormalizeDay(s string) (string, bool) {
	d, ok := ParseWeekday(s)
	if !ok {
		return "", false
	}
	return d.String(), true
}

// ParseWeekday parses a weekday name case-insensitively.
func ParseWeekday(s string) (time.Weekday, bool) {
	d, ok := weekdayByName[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

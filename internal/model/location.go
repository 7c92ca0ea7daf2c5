package model

import (
	"errors"
	"strings"
	"time"
)

// LocationSource identifies where a shopper's coordinates came from.
type LocationSource string

const (
	SourceBrowser LocationSource = "browser" // navigator geolocation
	SourceZipCode LocationSource = "zipcode" // centroid of a typed ZIP code
	SourceIP      LocationSource = "ip"      // IP geolocation fallback
)

// Coords is a WGS84 position with optional accuracy in meters.
type Coords struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Accuracy  *float64  `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// LocationSignal is the per-session location a shopper browses with.  It is
// built from request parameters and never persisted.
type LocationSignal struct {
	Source LocationSource `json:"source"`
	Coords Coords         `json:"coords"`
}

var (
	ErrUnknownSource = errors.New("unknown location source")
	ErrLatOutOfRange = errors.New("latitude out of range")
	ErrLngOutOfRange = errors.New("longitude out of range")
)

// Validate checks the source tag and the coordinate ranges.
func (l LocationSignal) Validate() error {
	switch l.Source {
	case SourceBrowser, SourceZipCode, SourceIP:
	default:
		return ErrUnknownSource
	}
	if l.Coords.Lat < -90 || l.Coords.Lat > 90 {
		return ErrLatOutOfRange
	}
	if l.Coords.Lng < -180 || l.Coords.Lng > 180 {
		return ErrLngOutOfRange
	}
	return nil
}

// NormalizeZip trims a ZIP code and reduces ZIP+4 ("94103-1234") to its
// five digit prefix.  Other input is returned trimmed.
func NormalizeZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if len(zip) == 10 && zip[5] == '-' {
		return zip[:5]
	}
	return zip
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeWindows(t *testing.T) {
	raw := []byte(`{
		"monday": "8am - 12pm",
		"TUESDAY": {"start": "1pm", "end": "5pm"},
		"Wednesday": {"start": "1pm"},
		"thursday": 42,
		"funday": "all day",
		" friday ": "  "
	}`)

	got := ParseTimeWindows(raw)

	assert.Equal(t, TimeWindows{
		"Monday":  "8am - 12pm",
		"Tuesday": "1pm - 5pm",
	}, got)
	assert.Equal(t, "8am - 12pm", got.Window(time.Monday))
	assert.Equal(t, DefaultTimeWindow, got.Window(time.Friday))
}

func TestParseTimeWindows_Malformed(t *testing.T) {
	assert.Equal(t, TimeWindows{}, ParseTimeWindows(nil))
	assert.Equal(t, TimeWindows{}, ParseTimeWindows([]byte(`["monday"]`)))
	assert.Equal(t, TimeWindows{}, ParseTimeWindows([]byte(`{`)))
}

func TestNormalizeDay(t *testing.T) {
	d, ok := NormalizeDay(" sATURDAY ")
	assert.True(t, ok)
	assert.Equal(t, "Saturday", d)

	_, ok = NormalizeDay("sat")
	assert.False(t, ok)
}

func TestLocationSignal_Validate(t *testing.T) {
	tests := []struct {
		name string
		sig  LocationSignal
		want error
	}{
		{"browser", LocationSignal{Source: SourceBrowser, Coords: Coords{Lat: 37.7, Lng: -122.4}}, nil},
		{"poles and antimeridian", LocationSignal{Source: SourceIP, Coords: Coords{Lat: -90, Lng: 180}}, nil},
		{"unknown source", LocationSignal{Source: "gps"}, ErrUnknownSource},
		{"lat", LocationSignal{Source: SourceZipCode, Coords: Coords{Lat: 90.01}}, ErrLatOutOfRange},
		{"lng", LocationSignal{Source: SourceZipCode, Coords: Coords{Lng: -180.5}}, ErrLngOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sig.Validate())
		})
	}
}

func TestNormalizeZip(t *testing.T) {
	assert.Equal(t, "94110", NormalizeZip(" 94110-1234 "))
	assert.Equal(t, "94110", NormalizeZip("94110"))
	assert.Equal(t, "9411", NormalizeZip("9411"))
	assert.Equal(t, "", NormalizeZip("   "))
}

func TestDeliveryZone_HasCoverage(t *testing.T) {
	assert.False(t, DeliveryZone{ID: "z1"}.HasCoverage())
	assert.True(t, DeliveryZone{ZipCodes: []string{"94110"}}.HasCoverage())
	assert.True(t, DeliveryZone{Cities: []string{"Oakland"}}.HasCoverage())
	assert.True(t, DeliveryZone{States: []string{"CA"}}.HasCoverage())
}

func TestSpatialProduct_Fulfillable(t *testing.T) {
	zone, empty := "z1", ""

	assert.True(t, SpatialProduct{MarketStand: &StandRef{ID: "s1"}}.Fulfillable())
	assert.True(t, SpatialProduct{DeliveryAvailable: true, DeliveryZoneID: &zone}.Fulfillable())
	assert.False(t, SpatialProduct{DeliveryAvailable: true, DeliveryZoneID: &empty}.Fulfillable())
	assert.False(t, SpatialProduct{DeliveryZoneID: &zone}.Fulfillable())
}

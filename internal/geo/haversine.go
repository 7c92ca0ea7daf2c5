// Package geo holds the in-process distance math.  The database computes
// distances with ST_Distance_Sphere on the same sphere radius, so values
// produced here and by the spatial queries agree to floating point tolerance.
package geo

import "math"

// EarthRadiusKm is the mean earth radius used everywhere distances are computed.
const EarthRadiusKm = 6371.0

// KmPerMile converts the user-facing mile radius into kilometres.
const KmPerMile = 1.60934

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Haversine returns the great-circle distance in kilometres between a and b.
func Haversine(a, b Point) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// MilesToKm converts miles to kilometres.
func MilesToKm(mi float64) float64 { return mi * KmPerMile }

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// Box is an axis-aligned lat/lng rectangle.
type Box struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
}

// BoundingBox returns a rectangle that contains every point within radiusKm
// of center.  It is only a prefilter for the spatial index; exact distance is
// applied afterwards.  Near the poles, or when the box would cross the
// antimeridian, the longitude span is widened to the full range.
func BoundingBox(center Point, radiusKm float64) Box {
	ang := radiusKm / EarthRadiusKm // angular radius
	dLat := ang * 180 / math.Pi
	b := Box{
		MinLat: math.Max(center.Lat-dLat, -90),
		MaxLat: math.Min(center.Lat+dLat, 90),
	}
	cos := math.Cos(toRad(center.Lat))
	if b.MinLat <= -90 || b.MaxLat >= 90 || math.Sin(ang) >= cos {
		b.MinLng, b.MaxLng = -180, 180
		return b
	}
	dLng := math.Asin(math.Sin(ang)/cos) * 180 / math.Pi
	b.MinLng = center.Lng - dLng
	b.MaxLng = center.Lng + dLng
	if b.MinLng < -180 || b.MaxLng > 180 {
		b.MinLng, b.MaxLng = -180, 180
	}
	return b
}

// WKT renders the box as a closed POLYGON in long-lat axis order.
func (b Box) WKT() string {
	return "POLYGON((" +
		ftoa(b.MinLng) + " " + ftoa(b.MinLat) + "," +
		ftoa(b.MaxLng) + " " + ftoa(b.MinLat) + "," +
		ftoa(b.MaxLng) + " " + ftoa(b.MaxLat) + "," +
		ftoa(b.MinLng) + " " + ftoa(b.MaxLat) + "," +
		ftoa(b.MinLng) + " " + ftoa(b.MinLat) + "))"
}

// PointWKT renders p as a POINT in long-lat axis order.
func PointWKT(p Point) string {
	return "POINT(" + ftoa(p.Lng) + " " + ftoa(p.Lat) + ")"
}

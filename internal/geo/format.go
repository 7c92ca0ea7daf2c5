package geo

import (
	"math"
	"strconv"
)

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Bucket truncates a coordinate to a 0.1 degree grid (about 11 km of
// latitude) so that nearby shoppers share cache entries.
func Bucket(deg float64) float64 {
	b := math.Floor(deg*10) / 10
	if b == 0 {
		return 0 // fold -0
	}
	return b
}

// FormatBucket renders a bucketed coordinate with one decimal.
func FormatBucket(deg float64) string {
	return strconv.FormatFloat(Bucket(deg), 'f', 1, 64)
}

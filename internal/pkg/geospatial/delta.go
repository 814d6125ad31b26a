package geospatial

import (
	"fmt"
	"math"
	"strings"
)

const (
	// MetersPerDegreeLongitude is the length of one degree of longitude at
	// the equator (111.32 km).
	MetersPerDegreeLongitude = 111320.0

	// MetersPerDegree is the equatorial circumference (40075 km) per degree.
	MetersPerDegree = 40075000.0 / 360.0
)

// DeltaFunc converts a latitude and accuracy radius (meters) into a
// latitude span in degrees.
type DeltaFunc func(latitude, accuracy float64) float64

// LatitudeDelta returns the latitude span in degrees covering accuracy
// meters around latitude (degrees). Latitude is converted to radians
// before the cosine. A zero, negative or NaN accuracy yields 0.
func LatitudeDelta(latitude, accuracy float64) float64 {
	return latitudeSpan(math.Cos(toRad(latitude)), accuracy)
}

// LegacyLatitudeDelta is LatitudeDelta without the degree to radian
// conversion: the degree value goes straight into the cosine. Kept for
// clients that depend on the historical numbers.
func LegacyLatitudeDelta(latitude, accuracy float64) float64 {
	return latitudeSpan(math.Cos(latitude), accuracy)
}

func latitudeSpan(cos, accuracy float64) float64 {
	if !(accuracy > 0) {
		return 0
	}
	return accuracy / (math.Abs(cos) * MetersPerDegree)
}

// LongitudeDelta returns the longitude span in degrees for accuracy meters.
// It ignores latitude: degrees of longitude shrink toward the poles, which
// this approximation accepts. A zero, negative or NaN accuracy yields 0.
func LongitudeDelta(accuracy float64) float64 {
	if !(accuracy > 0) {
		return 0
	}
	return accuracy / MetersPerDegreeLongitude
}

// Latitude modes accepted by ParseLatitudeMode.
const (
	LatitudeModeRadians = "radians"
	LatitudeModeLegacy  = "legacy"
)

// ParseLatitudeMode returns the DeltaFunc for a configured mode.
// An empty mode selects LatitudeModeRadians.
func ParseLatitudeMode(mode string) (DeltaFunc, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", LatitudeModeRadians:
		return LatitudeDelta, nil
	case LatitudeModeLegacy:
		return LegacyLatitudeDelta, nil
	default:
		return nil, fmt.Errorf("unknown latitude mode %q", mode)
	}
}

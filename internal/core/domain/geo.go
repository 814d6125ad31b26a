package domain

import (
	"fmt"
	"math"
)

// DefaultAccuracy is the accuracy radius in meters assumed when a reading
// carries none, and the radius used for manually committed markers.
const DefaultAccuracy = 65.0

// Coordinate represents a geographic coordinate (WGS 84) in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that both components are finite and within range.
func (c Coordinate) Validate() error {
	if err := ValidateLatitude(c.Latitude); err != nil {
		return err
	}
	return ValidateLongitude(c.Longitude)
}

// ValidateLatitude reports whether lat is a usable latitude.
func ValidateLatitude(lat float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", lat)
	}
	return nil
}

// ValidateLongitude reports whether lon is a usable longitude.
func ValidateLongitude(lon float64) error {
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", lon)
	}
	return nil
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Viewport is the region shown on the map: a center plus the full angular
// height and width of the visible area. It is derived, never persisted.
type Viewport struct {
	Center         Coordinate `json:"center"`
	LatitudeDelta  float64    `json:"latitude_delta"`
	LongitudeDelta float64    `json:"longitude_delta"`
}

// Bounds returns the rectangle covered by the viewport.
func (v Viewport) Bounds() Bounds {
	halfLat := v.LatitudeDelta / 2
	halfLon := v.LongitudeDelta / 2
	return Bounds{
		MinLat: v.Center.Latitude - halfLat,
		MinLon: v.Center.Longitude - halfLon,
		MaxLat: v.Center.Latitude + halfLat,
		MaxLon: v.Center.Longitude + halfLon,
	}
}

// Contains reports whether c lies inside the viewport's bounds.
func (v Viewport) Contains(c Coordinate) bool {
	b := v.Bounds()
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLon && c.Longitude <= b.MaxLon
}

// Marker is a dropped pin. Markers have no id; identity is their slot in
// the collection.
type Marker struct {
	Coordinates Coordinate `json:"coordinates"`
}

// MarkerCollection is an ordered list of markers, newest first.
// Duplicate coordinates are allowed.
type MarkerCollection []Marker

// Prepend returns a new collection with m in front. The receiver is not
// modified and the result never shares its backing array.
func (c MarkerCollection) Prepend(m Marker) MarkerCollection {
	out := make(MarkerCollection, 0, len(c)+1)
	out = append(out, m)
	return append(out, c...)
}

// Clone returns a copy that does not alias c.
func (c MarkerCollection) Clone() MarkerCollection {
	out := make(MarkerCollection, len(c))
	copy(out, c)
	return out
}

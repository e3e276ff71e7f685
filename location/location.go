// Package location defines coordinates, cached positions and the great-circle helpers shared by
// the positioning sources, the acquirer and the position cache.
package location

import (
	"fmt"
	"math"
	"time"

	geo "github.com/kellydunn/golang-geo"
)

// EarthRadiusKm is the mean earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Coordinate is a single position fix. It is a value type and is never mutated once produced.
type Coordinate struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`

	// Altitude in meters above mean sea level, 0 when the source does not report it.
	Altitude float64 `json:"altitude,omitempty"`
	// Accuracy is the estimated horizontal error in meters, 0 when unknown.
	Accuracy float64 `json:"accuracy,omitempty"`
}

// NewCoordinate returns a Coordinate captured at the given instant.
func NewCoordinate(lat, lon float64, ts time.Time) Coordinate {
	return Coordinate{Latitude: lat, Longitude: lon, Timestamp: ts}
}

// Point converts the coordinate to a geo.Point.
func (c Coordinate) Point() *geo.Point {
	return geo.NewPoint(c.Latitude, c.Longitude)
}

// DistanceTo returns the great-circle distance to other in kilometers.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return Distance(c.Latitude, c.Longitude, other.Latitude, other.Longitude)
}

// IsZero reports whether the coordinate sits on (0, 0), which NMEA receivers emit before their
// first fix.
func (c Coordinate) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}

// Valid reports whether latitude and longitude are finite and within range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Distance returns the great-circle distance in kilometers between two points given in degrees,
// using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	d := geo.NewPoint(lat1, lon1).GreatCircleDistance(geo.NewPoint(lat2, lon2))
	if math.IsNaN(d) {
		// the haversine term rounded past 1, which only happens for (near) antipodal points.
		return math.Pi * EarthRadiusKm
	}
	return d
}

// CachedPosition is the last known coordinate together with the instant it was stored.
type CachedPosition struct {
	Coordinate Coordinate `json:"coordinate"`
	CapturedAt time.Time  `json:"captured_at"`
}

// Age returns how old the cached position is at now.
func (p CachedPosition) Age(now time.Time) time.Duration {
	return now.Sub(p.CapturedAt)
}

// IsFresh reports whether a cached position may be returned instead of acquiring a new one:
// it must exist and be strictly younger than maxAge.
func IsFresh(p *CachedPosition, maxAge time.Duration, now time.Time) bool {
	if p == nil {
		return false
	}
	return p.Age(now) < maxAge
}

package location

import (
	"math"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestDistance(t *testing.T) {
	t.Run("coincident points", func(t *testing.T) {
		for _, pt := range [][2]float64{{0, 0}, {45.0703, 7.6869}, {-33.86, 151.2}, {90, 0}, {-90, 180}, {12.5, -179.9}} {
			test.That(t, Distance(pt[0], pt[1], pt[0], pt[1]), test.ShouldEqual, 0)
		}
	})

	t.Run("quarter great circle", func(t *testing.T) {
		test.That(t, Distance(0, 0, 0, 90), test.ShouldAlmostEqual, 10007.543, 0.01)
		test.That(t, Distance(0, 0, 90, 0), test.ShouldAlmostEqual, 10007.543, 0.01)
	})

	t.Run("antipodal points stay finite", func(t *testing.T) {
		half := math.Pi * EarthRadiusKm
		for _, pt := range [][2]float64{{0, 0}, {45, 10}, {-12.3456, 78.9}, {89.9999, 33}} {
			lat2, lon2 := -pt[0], pt[1]+180
			if lon2 > 180 {
				lon2 -= 360
			}
			d := Distance(pt[0], pt[1], lat2, lon2)
			test.That(t, math.IsNaN(d), test.ShouldBeFalse)
			test.That(t, d, test.ShouldAlmostEqual, half, 0.01)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		turin := NewCoordinate(45.0703, 7.6869, time.Time{})
		milan := NewCoordinate(45.4642, 9.19, time.Time{})
		test.That(t, turin.DistanceTo(milan), test.ShouldAlmostEqual, milan.DistanceTo(turin))
		test.That(t, turin.DistanceTo(milan), test.ShouldAlmostEqual, 125.7, 1)
	})
}

func TestIsFresh(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	maxAge := 30 * time.Second
	coord := NewCoordinate(45.07, 7.68, now.Add(-10*time.Second))

	test.That(t, IsFresh(nil, maxAge, now), test.ShouldBeFalse)
	test.That(t, IsFresh(&CachedPosition{coord, now.Add(-10 * time.Second)}, maxAge, now), test.ShouldBeTrue)
	test.That(t, IsFresh(&CachedPosition{coord, now.Add(-40 * time.Second)}, maxAge, now), test.ShouldBeFalse)
	// the bound is exclusive
	test.That(t, IsFresh(&CachedPosition{coord, now.Add(-maxAge)}, maxAge, now), test.ShouldBeFalse)
}

func TestCoordinate(t *testing.T) {
	test.That(t, NewCoordinate(0, 0, time.Time{}).IsZero(), test.ShouldBeTrue)
	test.That(t, NewCoordinate(45, 7, time.Time{}).Valid(), test.ShouldBeTrue)
	test.That(t, NewCoordinate(91, 7, time.Time{}).Valid(), test.ShouldBeFalse)
	test.That(t, NewCoordinate(math.NaN(), 7, time.Time{}).Valid(), test.ShouldBeFalse)
	test.That(t, NewCoordinate(45.0703, 7.6869, time.Time{}).String(), test.ShouldEqual, "45.070300,7.686900")

	p := NewCoordinate(45.0703, 7.6869, time.Time{}).Point()
	test.That(t, p.Lat(), test.ShouldEqual, 45.0703)
	test.That(t, p.Lng(), test.ShouldEqual, 7.6869)
}

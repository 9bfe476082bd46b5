// AngelaMos | 2026
// geo_test.go

package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKmIdenticalPoints(t *testing.T) {
	points := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 40.7128, Lng: -74.0060},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 89.9, Lng: 179.9},
	}

	for _, p := range points {
		assert.InDelta(t, 0, DistanceKm(p.Lat, p.Lng, p.Lat, p.Lng), 1e-9)
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	a := Point{Lat: 40.7128, Lng: -74.0060}
	b := Point{Lat: 40.7580, Lng: -73.9855}

	assert.InDelta(t, a.DistanceTo(b), b.DistanceTo(a), 1e-9)
}

func TestDistanceKmKnownValues(t *testing.T) {
	// One degree of latitude along a meridian.
	assert.InDelta(t, 111.19, DistanceKm(0, 0, 1, 0), 0.01)

	// Lower Manhattan to Midtown.
	assert.InDelta(t, 5.3, DistanceKm(40.7128, -74.0060, 40.7580, -73.9855), 0.1)

	// Antipodal points span half the circumference.
	assert.InDelta(t, 20015.09, DistanceKm(0, 0, 0, 180), 0.1)
}

func TestDistanceKmOutOfRangeDoesNotFail(t *testing.T) {
	d := DistanceKm(200, 400, -300, 10)
	assert.GreaterOrEqual(t, d, 0.0)
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 40.7, Lng: -74}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: -181}.Valid())
}

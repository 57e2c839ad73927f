package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	assert.Zero(t, HaversineMeters(-26.19, 28.03, -26.19, 28.03))

	// One degree of longitude on the equator.
	assert.InDelta(t, EarthRadiusMeters*math.Pi/180, HaversineMeters(0, 0, 0, 1), 1e-6)

	// Johannesburg to Cape Town, roughly 1260 km.
	d := HaversineMeters(-26.2041, 28.0473, -33.9249, 18.4241)
	assert.InDelta(t, 1_262_000, d, 5_000)

	assert.InDelta(t, HaversineMeters(1, 2, 3, 4), HaversineMeters(3, 4, 1, 2), 1e-9)
}

func TestHaversineAlongMeridian(t *testing.T) {
	lat := -26.1929
	for _, d := range []float64{1, 50, 51, 1000} {
		north := lat + (d/EarthRadiusMeters)*180/math.Pi
		assert.InDelta(t, d, HaversineMeters(lat, 28.03, north, 28.03), 1e-6)
	}
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(0, 0))
	assert.True(t, ValidCoordinate(-90, 180))
	assert.False(t, ValidCoordinate(90.0001, 0))
	assert.False(t, ValidCoordinate(0, -180.5))
	assert.False(t, ValidCoordinate(math.NaN(), 0))
	assert.False(t, ValidCoordinate(0, math.Inf(1)))
}

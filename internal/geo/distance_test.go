package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func genLat(t *rapid.T, label string) float64 {
	return rapid.Float64Range(-90, 90).Draw(t, label)
}

func genLng(t *rapid.T, label string) float64 {
	return rapid.Float64Range(-180, 180).Draw(t, label)
}

func TestDistanceMeters_CoincidentIsZero(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lat, lng := genLat(t, "lat"), genLng(t, "lng")
		if d := DistanceMeters(lat, lng, lat, lng); d != 0 {
			t.Fatalf("distance(p, p) = %v, want 0", d)
		}
	})
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lat1, lng1 := genLat(t, "lat1"), genLng(t, "lng1")
		lat2, lng2 := genLat(t, "lat2"), genLng(t, "lng2")

		pq := DistanceMeters(lat1, lng1, lat2, lng2)
		qp := DistanceMeters(lat2, lng2, lat1, lng1)
		if math.Abs(pq-qp) > 1e-6 {
			t.Fatalf("distance not symmetric: %v vs %v", pq, qp)
		}
		if pq < 0 || math.IsNaN(pq) {
			t.Fatalf("distance must be a non-negative number, got %v", pq)
		}
	})
}

func TestDistanceMeters_BoundedByHalfCircumference(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := DistanceMeters(genLat(t, "lat1"), genLng(t, "lng1"), genLat(t, "lat2"), genLng(t, "lng2"))
		if d > math.Pi*EarthRadiusMeters+1e-6 {
			t.Fatalf("distance %v exceeds half circumference", d)
		}
	})
}

func TestDistanceMeters_Antipodal(t *testing.T) {
	d := DistanceMeters(0, 0, 0, 180)
	assert.InDelta(t, math.Pi*EarthRadiusMeters, d, 1e-3)

	d = DistanceMeters(90, 0, -90, 0)
	assert.InDelta(t, math.Pi*EarthRadiusMeters, d, 1e-3)
}

func TestDistanceMeters_KnownPairs(t *testing.T) {
	// Civil Lines bin and a user one ten-thousandth of a degree east of it
	d := DistanceMeters(25.4534, 81.8340, 25.4534, 81.8341)
	assert.InDelta(t, 10.04, d, 0.1)

	// one degree of latitude along a meridian
	d = DistanceMeters(0, 0, 1, 0)
	assert.InDelta(t, 111194.9, d, 1)
}

func TestOffset_RoundTripsThroughDistance(t *testing.T) {
	lat, lng := Offset(25.4534, 81.8340, 30, 40)
	assert.InDelta(t, 50, DistanceMeters(25.4534, 81.8340, lat, lng), 0.1)
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(90, 180))
	assert.True(t, ValidCoordinate(-90, -180))
	assert.False(t, ValidCoordinate(90.0001, 0))
	assert.False(t, ValidCoordinate(0, -180.5))
	assert.False(t, ValidCoordinate(math.NaN(), 0))
}

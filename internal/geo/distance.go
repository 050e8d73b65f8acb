// Package geo holds the great-circle math shared by the tracker, the
// confirmation service and the simulator. Every distance check in the system
// goes through DistanceMeters so client and server agree on the formula.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the Haversine great-circle distance between two
// coordinates given in decimal degrees.
//
//	a = sin²(Δφ/2) + cos φ1 ⋅ cos φ2 ⋅ sin²(Δλ/2)
//	c = 2 ⋅ atan2(√a, √(1−a))
//	d = R ⋅ c
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := toRadians(lat1)
	lat2Rad := toRadians(lat2)
	deltaLat := toRadians(lat2 - lat1)
	deltaLon := toRadians(lon2 - lon1)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	// rounding can push a a hair outside [0,1] near antipodal points
	a = math.Max(0, math.Min(1, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// ValidCoordinate reports whether lat is within [-90,90] and lng within [-180,180].
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Offset moves a coordinate by the given number of meters north and east.
// It uses a local flat-earth approximation and is only meant for the short
// distances a pedestrian covers around a bin.
func Offset(lat, lng, northMeters, eastMeters float64) (float64, float64) {
	dLat := northMeters / EarthRadiusMeters
	dLng := eastMeters / (EarthRadiusMeters * math.Cos(toRadians(lat)))
	return lat + toDegrees(dLat), lng + toDegrees(dLng)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

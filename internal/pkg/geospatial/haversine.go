package geospatial

import "math"

const earthRadiusKm = 6371.0

// MetersPerDegreeLat is the flat-earth length of one degree of latitude.
const MetersPerDegreeLat = 111320.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := ToRad(lat2 - lat1)
	dLon := ToRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(ToRad(lat1))*math.Cos(ToRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// OffsetToDegrees converts a metric offset (east, north) around lat into
// degree deltas using the local flat-earth approximation. lat must be strictly
// between -90 and 90; at the poles the longitude scale is undefined.
func OffsetToDegrees(lat, eastMeters, northMeters float64) (dLat, dLon float64) {
	dLat = northMeters / MetersPerDegreeLat
	dLon = eastMeters / (MetersPerDegreeLat * math.Cos(ToRad(lat)))
	return dLat, dLon
}

// BoundingBox returns a bounding box around a point with the given radius in meters.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta, lonDelta := OffsetToDegrees(lat, radiusMeters, radiusMeters)
	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// ToRad converts degrees to radians.
func ToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

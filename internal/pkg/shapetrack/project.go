package shapetrack

import (
	"math"

	"github.com/chalkin/chalkin/internal/pkg/geospatial"
)

// LatLon is a WGS 84 coordinate in degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Project maps normalized points onto the ground around a centre. A point at
// (±1, ±1) lands scaleMeters/2 east/west and north/south of the centre.
func Project(points []Point, centerLat, centerLon, scaleMeters float64) ([]LatLon, error) {
	if err := validateCenter(centerLat, centerLon); err != nil {
		return nil, err
	}
	if err := validateScale(scaleMeters); err != nil {
		return nil, err
	}

	half := scaleMeters / 2
	out := make([]LatLon, len(points))
	for i, p := range points {
		dLat, dLon := geospatial.OffsetToDegrees(centerLat, p.X*half, p.Y*half)
		out[i] = LatLon{Lat: centerLat + dLat, Lon: centerLon + dLon}
	}
	return out, nil
}

func validateCenter(lat, lon float64) error {
	if math.IsNaN(lat) || lat <= -90 || lat >= 90 {
		return invalid("center_lat", lat, "must be within (-90, 90)")
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return invalid("center_lon", lon, "must be within [-180, 180]")
	}
	return nil
}

func validateScale(scaleMeters float64) error {
	if math.IsNaN(scaleMeters) || math.IsInf(scaleMeters, 0) || scaleMeters <= 0 {
		return invalid("scale_meters", scaleMeters, "must be a positive number")
	}
	return nil
}

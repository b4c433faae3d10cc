package shapetrack

import (
	"time"

	"github.com/chalkin/chalkin/internal/pkg/geospatial"
)

// TrackPoint is a geo point with its timestamp.
type TrackPoint struct {
	LatLon
	Time time.Time `json:"time"`
}

// Track is an ordered, timestamped sequence of geo points.
type Track struct {
	Points []TrackPoint `json:"points"`
}

// ToTrack spreads total evenly over points: point i is stamped
// start + i*total/(N-1). Offsets are computed in integer nanoseconds, so the
// last point is exactly start + total.
func ToTrack(points []LatLon, start time.Time, total time.Duration) (Track, error) {
	n := len(points)
	if n < 2 {
		return Track{}, invalid("num_points", n, "a track needs at least 2 points")
	}
	if err := validateDuration(total, n); err != nil {
		return Track{}, err
	}

	steps := int64(n - 1)
	q, r := int64(total)/steps, int64(total)%steps

	out := make([]TrackPoint, n)
	for i, p := range points {
		k := int64(i)
		out[i] = TrackPoint{LatLon: p, Time: start.Add(time.Duration(q*k + r*k/steps))}
	}
	return Track{Points: out}, nil
}

func validateDuration(total time.Duration, n int) error {
	if total <= 0 {
		return invalid("duration", total, "must be positive")
	}
	if n > 1 && int64(total) < int64(n-1) {
		return invalid("duration", total, "too short for strictly increasing timestamps")
	}
	return nil
}

// Start returns the first timestamp, or the zero time for an empty track.
func (t Track) Start() time.Time {
	if len(t.Points) == 0 {
		return time.Time{}
	}
	return t.Points[0].Time
}

// Duration returns the time between the first and last point.
func (t Track) Duration() time.Duration {
	if len(t.Points) < 2 {
		return 0
	}
	return t.Points[len(t.Points)-1].Time.Sub(t.Points[0].Time)
}

// Distance returns the great-circle length of the track in meters.
func (t Track) Distance() float64 {
	var d float64
	for i := 1; i < len(t.Points); i++ {
		a, b := t.Points[i-1], t.Points[i]
		d += geospatial.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
	}
	return d
}

// Bounds returns the south-west and north-east corners of the track.
func (t Track) Bounds() (sw, ne LatLon) {
	if len(t.Points) == 0 {
		return LatLon{}, LatLon{}
	}
	sw, ne = t.Points[0].LatLon, t.Points[0].LatLon
	for _, p := range t.Points[1:] {
		if p.Lat < sw.Lat {
			sw.Lat = p.Lat
		}
		if p.Lon < sw.Lon {
			sw.Lon = p.Lon
		}
		if p.Lat > ne.Lat {
			ne.Lat = p.Lat
		}
		if p.Lon > ne.Lon {
			ne.Lon = p.Lon
		}
	}
	return sw, ne
}

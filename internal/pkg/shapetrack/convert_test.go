package shapetrack_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalkin/chalkin/internal/pkg/geospatial"
	"github.com/chalkin/chalkin/internal/pkg/shapetrack"
)

const (
	madridLat = 40.416775
	madridLon = -3.703790
	square    = "M 0 0 L 100 0 L 100 100 L 0 100 Z"
)

func madridParams(n int) shapetrack.Params {
	return shapetrack.Params{
		CenterLat:   madridLat,
		CenterLon:   madridLon,
		ScaleMeters: 100,
		NumPoints:   n,
		Start:       start,
		Duration:    time.Hour,
	}
}

func TestConvert_SquareAroundMadrid(t *testing.T) {
	tr, err := shapetrack.Convert(square, madridParams(5))
	require.NoError(t, err)
	require.Len(t, tr.Points, 5)

	first, last := tr.Points[0], tr.Points[4]
	assert.Equal(t, first.LatLon, last.LatLon, "closed path ends where it starts")

	for i := 1; i < 5; i++ {
		a, b := tr.Points[i-1], tr.Points[i]
		side := geospatial.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
		assert.InDelta(t, 100, side, 0.5, "side %d", i)
	}

	sw, ne := tr.Bounds()
	assert.InDelta(t, madridLat, (sw.Lat+ne.Lat)/2, 1e-9)
	assert.InDelta(t, madridLon, (sw.Lon+ne.Lon)/2, 1e-9)

	assert.Equal(t, start, tr.Points[0].Time)
	assert.Equal(t, start.Add(time.Hour), tr.Points[4].Time)
}

func TestConvert_SinglePointRejected(t *testing.T) {
	_, err := shapetrack.Convert(square, madridParams(1))
	var ie *shapetrack.InvalidParameterError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "num_points", ie.Name)
}

func TestConvert_DegenerateShape(t *testing.T) {
	_, err := shapetrack.Convert("M 5 5 L 5 5", madridParams(300))
	var de *shapetrack.DegenerateShapeError
	assert.True(t, errors.As(err, &de), "got %v", err)
}

func TestConvert_PoleRejectedBeforeProjection(t *testing.T) {
	p := madridParams(300)
	p.CenterLat = 90
	_, err := shapetrack.Convert(square, p)
	var ie *shapetrack.InvalidParameterError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "center_lat", ie.Name)
}

func TestConvert_ValidatesBeforeParsing(t *testing.T) {
	p := madridParams(300)
	p.ScaleMeters = -1
	_, err := shapetrack.Convert("not a path", p)
	var ie *shapetrack.InvalidParameterError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "scale_meters", ie.Name)
}

func TestConvert_ParseErrorPassesThrough(t *testing.T) {
	_, err := shapetrack.Convert("M 0 0 K 1 1", madridParams(300))
	var pe *shapetrack.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "K", pe.Token)
}

func TestConvert_RequestedPointCount(t *testing.T) {
	for _, n := range []int{3, 4, 17, 300, 1000} {
		tr, err := shapetrack.Convert(square, madridParams(n))
		require.NoError(t, err)
		assert.Len(t, tr.Points, n)
	}
}

func TestConvert_Deterministic(t *testing.T) {
	p := madridParams(300)
	want, err := shapetrack.Convert(square, p)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]shapetrack.Track, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = shapetrack.Convert(square, p)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestConvert_CustomCurveSteps(t *testing.T) {
	p := madridParams(1 + 16)
	p.CurveSteps = 16
	tr, err := shapetrack.Convert("M 0 0 C 0 10 10 10 10 0", p)
	require.NoError(t, err)
	assert.Len(t, tr.Points, 17)

	p.CurveSteps = -1
	_, err = shapetrack.Convert("M 0 0 C 0 10 10 10 10 0", p)
	assert.True(t, shapetrack.IsInputError(err))
}

func TestConvert_DurationBounds(t *testing.T) {
	tests := []struct {
		name     string
		points   int
		duration time.Duration
		ok       bool
	}{
		{"one second per step", 20, 19 * time.Second, true},
		{"sub-second steps", 20, 5 * time.Second, false},
		{"max points in an hour", 5000, time.Hour, true},
		{"max points just short", 5000, 4998 * time.Second, false},
		{"one week", 2, shapetrack.MaxDuration, true},
		{"longer than a week", 2, shapetrack.MaxDuration + time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := madridParams(tt.points)
			p.Duration = tt.duration
			_, err := shapetrack.Convert(square, p)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ie *shapetrack.InvalidParameterError
			require.True(t, errors.As(err, &ie), "got %v", err)
			assert.Equal(t, "duration", ie.Name)
		})
	}
}

func TestIsInputError(t *testing.T) {
	assert.False(t, shapetrack.IsInputError(nil))
	assert.False(t, shapetrack.IsInputError(errors.New("boom")))
	assert.True(t, shapetrack.IsInputError(&shapetrack.DegenerateShapeError{}))
}

func TestErrorKind(t *testing.T) {
	_, err := shapetrack.Convert("M 0 0 K", madridParams(10))
	assert.Equal(t, shapetrack.KindParse, shapetrack.ErrorKind(err))

	_, err = shapetrack.Convert(square, madridParams(1))
	assert.Equal(t, shapetrack.KindInvalidParameter, shapetrack.ErrorKind(err))

	_, err = shapetrack.Convert("M 1 1 L 1 1", madridParams(10))
	assert.Equal(t, shapetrack.KindDegenerateShape, shapetrack.ErrorKind(err))

	assert.Empty(t, shapetrack.ErrorKind(errors.New("boom")))
}

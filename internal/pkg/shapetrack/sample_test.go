package shapetrack_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalkin/chalkin/internal/pkg/shapetrack"
)

func mustParse(t *testing.T, desc string) []shapetrack.Command {
	t.Helper()
	cmds, err := shapetrack.Parse(desc)
	require.NoError(t, err)
	return cmds
}

func TestSample_ExactCountKeepsRawPoints(t *testing.T) {
	pts, err := shapetrack.Sample(mustParse(t, "M 0 0 L 100 0 L 100 100 L 0 100 Z"), 5)
	require.NoError(t, err)
	assert.Equal(t, []shapetrack.Point{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}, {X: 0, Y: 0},
	}, pts)
}

func TestSample_ResamplesByArcLength(t *testing.T) {
	pts, err := shapetrack.Sample(mustParse(t, "M 0 0 L 10 0"), 11)
	require.NoError(t, err)
	require.Len(t, pts, 11)
	for i, p := range pts {
		assert.InDelta(t, float64(i), p.X, 1e-9, "point %d", i)
		assert.Zero(t, p.Y)
	}
}

func TestSample_Downsample(t *testing.T) {
	pts, err := shapetrack.Sample(mustParse(t, "M 0 0 L 1 0 L 2 0 L 3 0 L 4 0 L 5 0 L 6 0"), 3)
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, shapetrack.Point{X: 0, Y: 0}, pts[0])
	assert.InDelta(t, 3, pts[1].X, 1e-9)
	assert.Equal(t, shapetrack.Point{X: 6, Y: 0}, pts[2])
}

func TestSample_KeepsEndpoints(t *testing.T) {
	pts, err := shapetrack.Sample(mustParse(t, "M 3 4 L 50 7 C 60 60 70 -20 90 12"), 37)
	require.NoError(t, err)
	require.Len(t, pts, 37)
	assert.Equal(t, shapetrack.Point{X: 3, Y: 4}, pts[0])
	assert.Equal(t, shapetrack.Point{X: 90, Y: 12}, pts[36])
}

func TestSample_CubicEvaluation(t *testing.T) {
	pts, err := shapetrack.Sample(mustParse(t, "M 0 0 C 0 10 10 10 10 0"), 5, shapetrack.WithCurveSteps(4))
	require.NoError(t, err)
	require.Len(t, pts, 5)
	assert.InDelta(t, 5, pts[2].X, 1e-12)
	assert.InDelta(t, 7.5, pts[2].Y, 1e-12)
	assert.Equal(t, shapetrack.Point{X: 10, Y: 0}, pts[4])
}

func TestSample_QuadEvaluation(t *testing.T) {
	pts, err := shapetrack.Sample(mustParse(t, "M 0 0 Q 5 10 10 0"), 3, shapetrack.WithCurveSteps(2))
	require.NoError(t, err)
	assert.Equal(t, []shapetrack.Point{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 0}}, pts)
}

func TestSample_DefaultCurveSteps(t *testing.T) {
	pts, err := shapetrack.Sample(mustParse(t, "M 0 0 C 0 10 10 10 10 0"), 1+shapetrack.DefaultCurveSteps)
	require.NoError(t, err)
	// Raw count matches, so every sample lies exactly on the curve.
	assert.InDelta(t, 5, pts[4].X, 1e-12)
	assert.InDelta(t, 7.5, pts[4].Y, 1e-12)
}

func TestSample_ClosePathReturnsToStart(t *testing.T) {
	pts, err := shapetrack.Sample(mustParse(t, "M 1 1 L 2 1 Z"), 3)
	require.NoError(t, err)
	assert.Equal(t, shapetrack.Point{X: 1, Y: 1}, pts[2])
}

func TestSample_ZeroLengthRepeatsPoint(t *testing.T) {
	pts, err := shapetrack.Sample(mustParse(t, "M 5 5 L 5 5"), 4)
	require.NoError(t, err)
	require.Len(t, pts, 4)
	for _, p := range pts {
		assert.Equal(t, shapetrack.Point{X: 5, Y: 5}, p)
	}
}

func TestSample_InvalidArguments(t *testing.T) {
	cmds := mustParse(t, "M 0 0 L 1 1")

	_, err := shapetrack.Sample(cmds, 1)
	var ie *shapetrack.InvalidParameterError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "num_points", ie.Name)

	_, err = shapetrack.Sample(cmds, 10, shapetrack.WithCurveSteps(0))
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "curve_steps", ie.Name)

	_, err = shapetrack.Sample(nil, 10)
	var pe *shapetrack.ParseError
	assert.True(t, errors.As(err, &pe))
}

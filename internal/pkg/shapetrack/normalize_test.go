package shapetrack_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalkin/chalkin/internal/pkg/shapetrack"
)

func TestNormalize_Square(t *testing.T) {
	out, err := shapetrack.Normalize([]shapetrack.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}})
	require.NoError(t, err)
	assert.Equal(t, []shapetrack.Point{{X: -1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: -1}}, out)
}

func TestNormalize_KeepsAspectRatio(t *testing.T) {
	out, err := shapetrack.Normalize([]shapetrack.Point{{X: 10, Y: 10}, {X: 50, Y: 20}})
	require.NoError(t, err)

	// Longer side spans [-1, 1]; the shorter one is scaled by the same factor.
	assert.InDelta(t, -1, out[0].X, 1e-12)
	assert.InDelta(t, 1, out[1].X, 1e-12)
	assert.InDelta(t, 0.25, out[0].Y, 1e-12)
	assert.InDelta(t, -0.25, out[1].Y, 1e-12)
}

func TestNormalize_BoundsAndCentre(t *testing.T) {
	pts, err := shapetrack.Sample(mustParse(t, "M 3 4 L 50 7 C 60 60 70 -20 90 12 Q 40 80 3 4"), 120)
	require.NoError(t, err)

	out, err := shapetrack.Normalize(pts)
	require.NoError(t, err)

	minX, maxX, minY, maxY := math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)
	for _, p := range out {
		assert.LessOrEqual(t, math.Abs(p.X), 1+1e-12)
		assert.LessOrEqual(t, math.Abs(p.Y), 1+1e-12)
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	assert.InDelta(t, 0, (minX+maxX)/2, 1e-12)
	assert.InDelta(t, 0, (minY+maxY)/2, 1e-12)
	assert.InDelta(t, 2, math.Max(maxX-minX, maxY-minY), 1e-12)
}

func TestNormalize_StraightLineIsNotDegenerate(t *testing.T) {
	out, err := shapetrack.Normalize([]shapetrack.Point{{X: 0, Y: 3}, {X: 10, Y: 3}})
	require.NoError(t, err)
	assert.Equal(t, []shapetrack.Point{{X: -1, Y: 0}, {X: 1, Y: 0}}, out)
}

func TestNormalize_Degenerate(t *testing.T) {
	_, err := shapetrack.Normalize([]shapetrack.Point{{X: 5, Y: 5}, {X: 5, Y: 5}})
	var de *shapetrack.DegenerateShapeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.Points)

	_, err = shapetrack.Normalize(nil)
	assert.True(t, errors.As(err, &de))
}


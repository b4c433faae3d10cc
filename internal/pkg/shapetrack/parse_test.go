package shapetrack_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalkin/chalkin/internal/pkg/shapetrack"
)

func TestParse_AbsoluteLines(t *testing.T) {
	cmds, err := shapetrack.Parse("M 0 0 L 100 0 L 100 100 Z")
	require.NoError(t, err)
	require.Len(t, cmds, 4)

	assert.Equal(t, shapetrack.MoveTo, cmds[0].Op)
	assert.Equal(t, shapetrack.Point{X: 100, Y: 100}, cmds[2].Args[0])
	assert.Equal(t, shapetrack.ClosePath, cmds[3].Op)
	assert.Empty(t, cmds[3].Args)
}

func TestParse_RelativeCommands(t *testing.T) {
	cmds, err := shapetrack.Parse("m 10 10 l 5 0 v 5 h -5 z")
	require.NoError(t, err)
	require.Len(t, cmds, 5)

	want := []shapetrack.Point{{X: 10, Y: 10}, {X: 15, Y: 10}, {X: 15, Y: 15}, {X: 10, Y: 15}}
	for i, p := range want {
		assert.Equal(t, p, cmds[i].Args[0], "command %d", i)
	}
	assert.Equal(t, shapetrack.LineTo, cmds[2].Op)
}

func TestParse_RelativeAfterClose(t *testing.T) {
	cmds, err := shapetrack.Parse("M 10 10 l 5 0 z l 0 5")
	require.NoError(t, err)
	require.Len(t, cmds, 4)
	assert.Equal(t, shapetrack.Point{X: 10, Y: 15}, cmds[3].Args[0])
}

func TestParse_ImplicitLineTo(t *testing.T) {
	cmds, err := shapetrack.Parse("M0,0 10,0 10,10")
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	assert.Equal(t, shapetrack.LineTo, cmds[1].Op)
	assert.Equal(t, shapetrack.LineTo, cmds[2].Op)
}

func TestParse_CompactNumbers(t *testing.T) {
	cmds, err := shapetrack.Parse("M0-5L.5.5")
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, shapetrack.Point{X: 0, Y: -5}, cmds[0].Args[0])
	assert.Equal(t, shapetrack.Point{X: 0.5, Y: 0.5}, cmds[1].Args[0])
}

func TestParse_Curves(t *testing.T) {
	cmds, err := shapetrack.Parse("M0 0 C 0 10 10 10 10 0 q 5 -5 10 0")
	require.NoError(t, err)
	require.Len(t, cmds, 3)

	assert.Equal(t, shapetrack.CubicTo, cmds[1].Op)
	assert.Equal(t, []shapetrack.Point{{X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}}, cmds[1].Args)

	assert.Equal(t, shapetrack.QuadTo, cmds[2].Op)
	assert.Equal(t, []shapetrack.Point{{X: 15, Y: -5}, {X: 20, Y: 0}}, cmds[2].Args)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		desc   string
		offset int
		token  string
	}{
		{"empty", "", 0, ""},
		{"blank", "   ", 3, ""},
		{"leading number", "0 0 L 1 1", 0, "0"},
		{"unknown command", "M 0 0 X 1 1", 6, "X"},
		{"missing argument", "M 0 0 L 1", 6, "L"},
		{"argument after close", "M 0 0 L 1 1 Z 5", 14, "5"},
		{"letter as argument", "M 0 0 L a b", 8, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := shapetrack.Parse(tt.desc)
			require.Error(t, err)

			var pe *shapetrack.ParseError
			require.True(t, errors.As(err, &pe), "want ParseError, got %T", err)
			assert.Equal(t, tt.offset, pe.Offset)
			assert.Equal(t, tt.token, pe.Token)
			assert.True(t, shapetrack.IsInputError(err))
		})
	}
}

package bfieldmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAxisLUTLocate(t *testing.T) {
	cases := []struct {
		name  string
		edges []float64
	}{
		{"two lines", []float64{0, 1}},
		{"uniform", []float64{0, 1, 2, 3, 4, 5}},
		{"non-uniform", []float64{-3, -2.9, 0, 0.05, 7, 7.5, 100}},
		{"phi", []float64{-math.Pi, -math.Pi / 2, 0.1, 0.2, math.Pi}},
		{"negative offset", []float64{-1000, -999.5, -990, -900}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lut, err := buildAxisLUT(tc.edges)
			require.NoError(t, err)

			front, back := tc.edges[0], tc.edges[len(tc.edges)-1]
			check := func(x float64) {
				i := lut.locate(tc.edges, x)
				require.True(t, i >= 0 && i+1 < len(tc.edges), "x=%g: index %d", x, i)
				assert.True(t, tc.edges[i] <= x && x <= tc.edges[i+1],
					"x=%g: [%g, %g]", x, tc.edges[i], tc.edges[i+1])
			}
			for k := range 1001 {
				check(front + (back-front)*float64(k)/1000)
			}
			for _, e := range tc.edges {
				check(e)
			}
		})
	}
}

func TestBuildAxisLUTErrors(t *testing.T) {
	cases := []struct {
		name  string
		edges []float64
	}{
		{"empty", nil},
		{"single line", []float64{1}},
		{"repeated line", []float64{0, 1, 1, 2}},
		{"decreasing", []float64{0, 2, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildAxisLUT(tc.edges)
			assert.ErrorIs(t, err, ErrMesh)
		})
	}
}

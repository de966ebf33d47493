package bfieldmap

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// h8Block writes one 2x2x2 grid spanning lo..hi (m) with the linear field
// Bx = 1+2x, By = 3y, Bz = z (T, x y z in m) plus bias on Bz.
func h8Block(lo, hi [3]float64, bias float64) string {
	var sb strings.Builder
	sb.WriteString("2 2 2\n")
	for _, x := range []float64{lo[0], hi[0]} {
		for _, y := range []float64{lo[1], hi[1]} {
			for _, z := range []float64{lo[2], hi[2]} {
				fmt.Fprintf(&sb, "%g %g %g %g %g %g\n", x, y, z, 1+2*x, 3*y, z+bias)
			}
		}
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Interpolation
// ---------------------------------------------------------------------------

func TestH8Linear(t *testing.T) {
	in := "H8 test map\n" + h8Block([3]float64{0, 0, 0}, [3]float64{0.1, 0.1, 0.2}, 0)
	m, err := ReadH8Map(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 1, m.NGrid())

	var deriv [9]float64
	b := m.GetB([3]float64{50, 20, 100}, &deriv)
	assertVec(t, [3]float64{1.1e-3, 6e-5, 1e-4}, b, 1e-12)
	want := [9]float64{2e-6, 0, 0, 0, 3e-6, 0, 0, 0, 1e-6}
	for i := range want {
		assert.InDelta(t, want[i], deriv[i], 1e-15, "deriv[%d]", i)
	}

	// corners reproduce the samples exactly
	assertVec(t, [3]float64{1e-3, 0, 0}, m.GetB([3]float64{0, 0, 0}, nil), 1e-15)
	assertVec(t, [3]float64{1.2e-3, 3e-4, 2e-4}, m.GetB([3]float64{100, 100, 200}, nil), 1e-15)
}

func TestH8Outside(t *testing.T) {
	in := "header\n" + h8Block([3]float64{0, 0, 0}, [3]float64{0.1, 0.1, 0.2}, 0)
	m, err := ReadH8Map(strings.NewReader(in))
	require.NoError(t, err)

	deriv := [9]float64{1, 1, 1, 1, 1, 1, 1, 1, 1}
	b := m.GetB([3]float64{-1, 50, 50}, &deriv)
	assert.Equal(t, [3]float64{}, b)
	assert.Equal(t, [9]float64{}, deriv)
}

func TestH8Offset(t *testing.T) {
	in := "header\n" + h8Block([3]float64{0, 0, 0}, [3]float64{0.1, 0.1, 0.2}, 0)
	m, err := ReadH8Map(strings.NewReader(in))
	require.NoError(t, err)

	g := m.Grid(0)
	g.SetOffset([3]float64{1000, 0, 0})
	assert.Equal(t, [3]float64{1000, 0, 0}, g.Offset())
	assert.False(t, g.Inside([3]float64{50, 20, 100}))
	assert.True(t, g.Inside([3]float64{1050, 20, 100}))
	assertVec(t, [3]float64{1.1e-3, 6e-5, 1e-4}, m.GetB([3]float64{1050, 20, 100}, nil), 1e-12)

	// offsets replace, they do not accumulate
	g.SetOffset([3]float64{0, 0, -200})
	assert.True(t, g.Inside([3]float64{50, 20, -100}))
	assert.False(t, g.Inside([3]float64{1050, 20, 100}))
}

func TestH8GridPrecedence(t *testing.T) {
	in := "header\n" +
		h8Block([3]float64{0, 0, 0}, [3]float64{0.1, 0.1, 0.2}, 0) +
		h8Block([3]float64{0, 0, 0}, [3]float64{1, 1, 1}, 5) +
		"0 0 0\n" +
		h8Block([3]float64{0, 0, 0}, [3]float64{2, 2, 2}, 9)
	m, err := ReadH8Map(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, m.NGrid(), "reading stops at the empty block")

	// inside both: the first grid wins
	b := m.GetB([3]float64{50, 20, 100}, nil)
	assert.InDelta(t, 1e-4, b[2], 1e-12)
	// only in the second
	b = m.GetB([3]float64{500, 500, 500}, nil)
	assert.InDelta(t, 5.5e-3, b[2], 1e-12)
}

func TestH8Errors(t *testing.T) {
	good := h8Block([3]float64{0, 0, 0}, [3]float64{0.1, 0.1, 0.2}, 0)
	tests := []struct {
		name string
		in   string
		err  error
	}{
		{"no grids", "header\n", ErrFormat},
		{"empty first block", "header\n0 0 0\n", ErrFormat},
		{"bad size", "header\nxx 2 2\n", ErrFormat},
		{"single line axis", "header\n1 2 2\n", ErrMesh},
		{"size overflow", "header\n3 4611686018427387904 2\n", ErrMesh},
		{"size too large", "header\n4096 4096 4096\n", ErrMesh},
		{"truncated", "header\n" + good[:len(good)-20], ErrFormat},
		{"flat grid", "header\n" + h8Block([3]float64{0, 0, 0}, [3]float64{0.1, 0, 0.2}, 0), ErrMesh},
		{"bad number", "header\n2 2 2\n0 0 0 1 1 nope\n", ErrFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadH8Map(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

package bfieldmap

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// H8Grid is a regular Cartesian grid of field samples from a test-beam
// measurement. Samples are stored x-major, then y, then z.
type H8Grid struct {
	n        [3]int
	min, max [3]float64 // mm, including the offset
	d        [3]float64 // offset, mm
	b        [3][]float64
}

// Defined reports whether the grid holds any samples.
func (g *H8Grid) Defined() bool { return g.n[0] > 0 }

// Inside reports whether xyz (mm) lies within the grid.
func (g *H8Grid) Inside(xyz [3]float64) bool {
	for i := range 3 {
		if xyz[i] < g.min[i] || xyz[i] > g.max[i] {
			return false
		}
	}
	return true
}

// SetOffset moves the grid by dxyz (mm) relative to its file position.
func (g *H8Grid) SetOffset(dxyz [3]float64) {
	for i := range 3 {
		g.min[i] += dxyz[i] - g.d[i]
		g.max[i] += dxyz[i] - g.d[i]
	}
	g.d = dxyz
}

// Offset returns the current grid offset in mm.
func (g *H8Grid) Offset() [3]float64 { return g.d }

// Field returns the trilinearly interpolated field at xyz (mm) in kT, and
// the Jacobian deriv[3*i+j] = dB_i/dx_j when deriv is non-nil. The point
// must be inside the grid.
func (g *H8Grid) Field(xyz [3]float64, deriv *[9]float64) [3]float64 {
	var idx [3]int
	var f, h [3]float64
	for i := range 3 {
		h[i] = (g.max[i] - g.min[i]) / float64(g.n[i]-1)
		t := (xyz[i] - g.min[i]) / h[i]
		k := int(math.Floor(t))
		k = max(0, min(k, g.n[i]-2))
		idx[i] = k
		f[i] = t - float64(k)
	}
	s := [3]int{g.n[1] * g.n[2], g.n[2], 1}
	i0 := idx[0]*s[0] + idx[1]*s[1] + idx[2]*s[2]

	var b [3]float64
	var grad [3][3]float64 // grad[c][axis]
	for c := range 3 {
		v := g.b[c]
		for corner := range 8 {
			var w, dw [3]float64
			off := i0
			for a := range 3 {
				if corner>>(2-a)&1 == 1 {
					w[a], dw[a] = f[a], 1/h[a]
					off += s[a]
				} else {
					w[a], dw[a] = 1-f[a], -1/h[a]
				}
			}
			b[c] += w[0] * w[1] * w[2] * v[off]
			grad[c][0] += dw[0] * w[1] * w[2] * v[off]
			grad[c][1] += w[0] * dw[1] * w[2] * v[off]
			grad[c][2] += w[0] * w[1] * dw[2] * v[off]
		}
	}
	if deriv != nil {
		for c := range 3 {
			for a := range 3 {
				deriv[3*c+a] = grad[c][a]
			}
		}
	}
	return b
}

// readH8Grid reads one grid block. It returns an undefined grid at the end
// of the input.
func readH8Grid(t *tokenReader) (H8Grid, error) {
	var g H8Grid
	w, err := t.word()
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return g, nil
		}
		return g, err
	}
	var n [3]int
	if n[0], err = strconv.Atoi(w); err != nil {
		return g, fmt.Errorf("%w: line %d: grid size expected, got %q", ErrFormat, t.line, w)
	}
	if err := t.ints(&n[1], &n[2]); err != nil {
		return g, err
	}
	if n[0] <= 0 {
		return g, nil
	}
	total, ok := tableLen(n[0], n[1], n[2])
	if !ok || n[0] < 2 || n[1] < 2 || n[2] < 2 {
		return g, fmt.Errorf("%w: line %d: grid size %dx%dx%d", ErrMesh, t.line, n[0], n[1], n[2])
	}
	// grow with the input so a bogus size cannot allocate up front
	for c := range g.b {
		g.b[c] = make([]float64, 0, min(total, 1<<12))
	}
	for k := range total {
		var x, y, z, bx, by, bz float64
		if err := t.floats(&x, &y, &z, &bx, &by, &bz); err != nil {
			return g, err
		}
		p := [3]float64{x * Meter, y * Meter, z * Meter}
		switch k {
		case 0:
			g.min = p
		case total - 1:
			g.max = p
		}
		g.b[0] = append(g.b[0], bx*Tesla)
		g.b[1] = append(g.b[1], by*Tesla)
		g.b[2] = append(g.b[2], bz*Tesla)
	}
	for i := range 3 {
		if !(g.max[i] > g.min[i]) {
			return g, fmt.Errorf("%w: grid %v range [%g, %g]", ErrMesh, Axis(i), g.min[i], g.max[i])
		}
	}
	g.n = n
	return g, nil
}

// H8Map is a test-beam field map made of Cartesian grids.
type H8Map struct {
	grids []H8Grid
}

// ReadH8Map reads a test-beam map: one header line, then grid blocks of
// "nx ny nz" followed by nx*ny*nz lines "x y z Bx By Bz" in m and T, with
// z varying fastest. Reading stops at the end of input or at a block with
// nx <= 0.
func ReadH8Map(r io.Reader) (*H8Map, error) {
	t := newTokenReader(r)
	if err := t.skipLine(); err != nil {
		return nil, fmt.Errorf("read h8 header: %w", err)
	}
	m := &H8Map{}
	for {
		g, err := readH8Grid(t)
		if err != nil {
			return nil, fmt.Errorf("read h8 grid %d: %w", len(m.grids), err)
		}
		if !g.Defined() {
			break
		}
		m.grids = append(m.grids, g)
	}
	if len(m.grids) == 0 {
		return nil, fmt.Errorf("%w: h8 map has no grids", ErrFormat)
	}
	return m, nil
}

// NGrid returns the number of grids.
func (m *H8Map) NGrid() int { return len(m.grids) }

// Grid returns grid i; offsets set through it apply to the map.
func (m *H8Map) Grid(i int) *H8Grid { return &m.grids[i] }

// GetB returns the field at xyz (mm) in kT from the first grid containing
// the point. Outside all grids the field and Jacobian are zero.
func (m *H8Map) GetB(xyz [3]float64, deriv *[9]float64) [3]float64 {
	for i := range m.grids {
		if m.grids[i].Inside(xyz) {
			return m.grids[i].Field(xyz, deriv)
		}
	}
	if deriv != nil {
		*deriv = [9]float64{}
	}
	return [3]float64{}
}

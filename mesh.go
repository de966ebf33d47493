package bfieldmap

import (
	"fmt"
	"math"
)

// Axis names one of the three cylindrical coordinates.
type Axis int

const (
	AxisZ Axis = iota
	AxisR
	AxisPhi
)

func (a Axis) String() string {
	switch a {
	case AxisZ:
		return "z"
	case AxisR:
		return "r"
	case AxisPhi:
		return "phi"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Mesh is a non-uniform 3-d grid of field samples in (z, r, phi).
// Samples are stored z-major, then r, then phi.
//
// A Mesh is filled with AppendMesh/AppendField and sealed with BuildLUT;
// after that it is read-only.
type Mesh[T Sample] struct {
	min, max [3]float64
	mesh     [3][]float64
	field    []Vector3[T]
	scale    float64

	lut        [3]axisLUT
	roff, zoff int // index strides for r+1 and z+1
}

// NewMesh returns an empty mesh covering the given ranges.
func NewMesh[T Sample](zmin, zmax, rmin, rmax, phimin, phimax, scale float64) *Mesh[T] {
	m := &Mesh[T]{scale: scale}
	m.SetRange(zmin, zmax, rmin, rmax, phimin, phimax)
	return m
}

// SetRange sets the mesh bounds.
func (m *Mesh[T]) SetRange(zmin, zmax, rmin, rmax, phimin, phimax float64) {
	m.min = [3]float64{zmin, rmin, phimin}
	m.max = [3]float64{zmax, rmax, phimax}
}

// SetScale sets the factor converting stored samples to working units.
func (m *Mesh[T]) SetScale(scale float64) { m.scale = scale }

// Reserve preallocates room for the given number of grid lines.
func (m *Mesh[T]) Reserve(nz, nr, nphi int) {
	m.mesh[AxisZ] = make([]float64, 0, nz)
	m.mesh[AxisR] = make([]float64, 0, nr)
	m.mesh[AxisPhi] = make([]float64, 0, nphi)
	m.field = make([]Vector3[T], 0, nz*nr*nphi)
}

// AppendMesh appends a grid line on axis a.
func (m *Mesh[T]) AppendMesh(a Axis, x float64) { m.mesh[a] = append(m.mesh[a], x) }

// AppendField appends the next field sample.
func (m *Mesh[T]) AppendField(f Vector3[T]) { m.field = append(m.field, f) }

func (m *Mesh[T]) adjustMin(a Axis, x float64) {
	m.min[a] = x
	if len(m.mesh[a]) > 0 {
		m.mesh[a][0] = x
	}
}

func (m *Mesh[T]) adjustMax(a Axis, x float64) {
	m.max[a] = x
	if n := len(m.mesh[a]); n > 0 {
		m.mesh[a][n-1] = x
	}
}

// Inside reports whether (z, r, phi) lies within the mesh bounds. phi is
// expected in [-π, π]; phimin may be negative when the range crosses 0.
func (m *Mesh[T]) Inside(z, r, phi float64) bool {
	if phi < m.min[AxisPhi] {
		phi += 2 * math.Pi
	}
	return phi >= m.min[AxisPhi] && phi <= m.max[AxisPhi] &&
		z >= m.min[AxisZ] && z <= m.max[AxisZ] &&
		r >= m.min[AxisR] && r <= m.max[AxisR]
}

// BuildLUT seals the mesh: it snaps the outer grid lines to the bounds,
// validates the grid and builds the per-axis lookup tables.
func (m *Mesh[T]) BuildLUT() error {
	for a := AxisZ; a <= AxisPhi; a++ {
		if len(m.mesh[a]) < 2 {
			return fmt.Errorf("%w: %d grid lines on %v axis", ErrMesh, len(m.mesh[a]), a)
		}
		m.mesh[a][0] = m.min[a]
		m.mesh[a][len(m.mesh[a])-1] = m.max[a]
		lut, err := buildAxisLUT(m.mesh[a])
		if err != nil {
			return fmt.Errorf("%v axis: %w", a, err)
		}
		m.lut[a] = lut
	}
	m.roff = len(m.mesh[AxisPhi])
	m.zoff = m.roff * len(m.mesh[AxisR])
	if want := m.zoff * len(m.mesh[AxisZ]); len(m.field) != want {
		return fmt.Errorf("%w: %d field samples, expected %d (%dx%dx%d)", ErrMesh,
			len(m.field), want, len(m.mesh[AxisZ]), len(m.mesh[AxisR]), len(m.mesh[AxisPhi]))
	}
	return nil
}

// GetCache fills cache with the cell containing (z, r, phi). The point
// must be inside the mesh; GetCache does no bounds checking.
func (m *Mesh[T]) GetCache(z, r, phi float64, cache *Cache) {
	if phi < m.min[AxisPhi] {
		phi += 2 * math.Pi
	}
	mz, mr, mphi := m.mesh[AxisZ], m.mesh[AxisR], m.mesh[AxisPhi]
	iz := m.lut[AxisZ].locate(mz, z)
	ir := m.lut[AxisR].locate(mr, r)
	iphi := m.lut[AxisPhi].locate(mphi, phi)

	cache.SetRange(mz[iz], mz[iz+1], mr[ir], mr[ir+1], mphi[iphi], mphi[iphi+1])
	im0 := iz*m.zoff + ir*m.roff + iphi // lower corner
	cache.SetField(0, m.field[im0].Float())
	cache.SetField(1, m.field[im0+1].Float())
	cache.SetField(2, m.field[im0+m.roff].Float())
	cache.SetField(3, m.field[im0+m.roff+1].Float())
	cache.SetField(4, m.field[im0+m.zoff].Float())
	cache.SetField(5, m.field[im0+m.zoff+1].Float())
	cache.SetField(6, m.field[im0+m.zoff+m.roff].Float())
	cache.SetField(7, m.field[im0+m.zoff+m.roff+1].Float())
	cache.SetScale(m.scale)
}

// Field returns the interpolated Cartesian field at (z, r, phi), and the
// Jacobian when deriv is non-nil.
func (m *Mesh[T]) Field(z, r, phi float64, deriv *[9]float64) [3]float64 {
	cache := NewCache()
	m.GetCache(z, r, phi, &cache)
	return cache.Field(z, r, phi, deriv)
}

// Min returns the lower bound on axis a.
func (m *Mesh[T]) Min(a Axis) float64 { return m.min[a] }

// Max returns the upper bound on axis a.
func (m *Mesh[T]) Max(a Axis) float64 { return m.max[a] }

// NMesh returns the number of grid lines on axis a.
func (m *Mesh[T]) NMesh(a Axis) int { return len(m.mesh[a]) }

// MeshAt returns grid line i on axis a.
func (m *Mesh[T]) MeshAt(a Axis, i int) float64 { return m.mesh[a][i] }

// NField returns the number of field samples.
func (m *Mesh[T]) NField() int { return len(m.field) }

// FieldAt returns field sample i.
func (m *Mesh[T]) FieldAt(i int) Vector3[T] { return m.field[i] }

// Scale returns the sample scale factor.
func (m *Mesh[T]) Scale() float64 { return m.scale }

package bfieldmap

import (
	"fmt"
	"io"
	"math"
)

// QuantizeZone converts a float-sampled mesh into a zone with the given
// id whose int16 samples, multiplied by scale, reproduce m's field to
// within scale/2. Samples are rounded half away from zero. A sample that
// does not fit in int16 at this scale is an error.
func QuantizeZone(id int, m *Mesh[float64], scale float64) (*Zone, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("%w: zone %d scale %g", ErrMesh, id, scale)
	}
	z := NewZone(id, m.min[AxisZ], m.max[AxisZ], m.min[AxisR], m.max[AxisR],
		m.min[AxisPhi], m.max[AxisPhi], scale)
	z.Reserve(len(m.mesh[AxisZ]), len(m.mesh[AxisR]), len(m.mesh[AxisPhi]))
	for a := AxisZ; a <= AxisPhi; a++ {
		for _, x := range m.mesh[a] {
			z.AppendMesh(a, x)
		}
	}
	for i, f := range m.field {
		var q [3]int16
		for j := range q {
			v := math.Round(f.At(j) / scale)
			if v < math.MinInt16 || v > math.MaxInt16 || math.IsNaN(v) {
				return nil, fmt.Errorf("%w: zone %d sample %d %v component %g does not fit int16 at scale %g",
					ErrTableRange, id, i, Axis(j), f.At(j), scale)
			}
			q[j] = int16(v)
		}
		z.AppendField(Vector3[int16]{Z: q[0], R: q[1], Phi: q[2]})
	}
	return z, nil
}

// ReadFloatMesh reads a float-sampled mesh in plain text: the bounds
// (zmin zmax rmin rmax phimin phimax, mm and radians), the grid line
// counts (nz nr nphi), the z, r and phi grid lines, then nz*nr*nphi
// samples "Bz Br Bphi" in kT, z-major. The mesh is returned unsealed.
func ReadFloatMesh(r io.Reader) (*Mesh[float64], error) {
	t := newTokenReader(r)
	var zmin, zmax, rmin, rmax, phimin, phimax float64
	if err := t.floats(&zmin, &zmax, &rmin, &rmax, &phimin, &phimax); err != nil {
		return nil, fmt.Errorf("read mesh bounds: %w", err)
	}
	var n [3]int
	if err := t.ints(&n[0], &n[1], &n[2]); err != nil {
		return nil, fmt.Errorf("read mesh size: %w", err)
	}
	total, ok := tableLen(n[0], n[1], n[2])
	if !ok {
		return nil, fmt.Errorf("%w: mesh size %dx%dx%d", ErrFormat, n[0], n[1], n[2])
	}
	m := NewMesh[float64](zmin, zmax, rmin, rmax, phimin, phimax, 1)
	m.Reserve(n[0], n[1], n[2])
	for a := AxisZ; a <= AxisPhi; a++ {
		for range n[a] {
			x, err := t.float()
			if err != nil {
				return nil, fmt.Errorf("read %v grid: %w", a, err)
			}
			m.AppendMesh(a, x)
		}
	}
	for i := range total {
		var f Vector3[float64]
		if err := t.floats(&f.Z, &f.R, &f.Phi); err != nil {
			return nil, fmt.Errorf("read sample %d: %w", i, err)
		}
		m.AppendField(f)
	}
	return m, nil
}

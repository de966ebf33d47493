package bfieldmap

// Zone is one region of the field map: a compact int16 mesh plus the
// conductors whose analytic field is added on top of the interpolation.
type Zone struct {
	Mesh[int16]
	id   int
	cond []Conductor
}

// NewZone returns an empty zone covering the given ranges.
func NewZone(id int, zmin, zmax, rmin, rmax, phimin, phimax, scale float64) *Zone {
	z := &Zone{id: id}
	z.SetRange(zmin, zmax, rmin, rmax, phimin, phimax)
	z.SetScale(scale)
	return z
}

// AppendConductor adds a conductor to the zone.
func (z *Zone) AppendConductor(c Conductor) { z.cond = append(z.cond, c) }

// AddBiotSavart adds the field of every conductor in the zone at xyz.
func (z *Zone) AddBiotSavart(xyz [3]float64, b *[3]float64, deriv *[9]float64) {
	for i := range z.cond {
		z.cond[i].AddBiotSavart(xyz, b, deriv)
	}
}

// ID returns the zone id.
func (z *Zone) ID() int { return z.id }

// NConductor returns the number of conductors.
func (z *Zone) NConductor() int { return len(z.cond) }

// ConductorAt returns conductor i.
func (z *Zone) ConductorAt(i int) Conductor { return z.cond[i] }

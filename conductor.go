package bfieldmap

import "math"

const (
	mu04pi = 1.0e-7    // μ0/4π in working units (mm, kT, A)
	minVsq = 10. * 10. // (1 cm)² floor on the squared perpendicular distance
)

// Conductor is a straight current-carrying wire. A finite conductor runs
// from P1 to P2; an infinite one passes through P1 along direction P2.
type Conductor struct {
	finite bool
	p1, p2 [3]float64
	u      [3]float64 // unit vector along the conductor
	curr   float64    // amperes
}

// NewConductor returns a conductor. For an infinite conductor p2 is the
// direction and is stored as given; the unit vector is derived from it.
func NewConductor(finite bool, p1, p2 [3]float64, curr float64) Conductor {
	c := Conductor{finite: finite, p1: p1, p2: p2, curr: curr}
	if finite {
		for i := range 3 {
			c.u[i] = p2[i] - p1[i]
		}
	} else {
		c.u = p2
	}
	mag := math.Sqrt(dot(c.u, c.u))
	if mag > 0 {
		for i := range 3 {
			c.u[i] /= mag
		}
	}
	return c
}

// Finite reports whether the conductor is a finite segment.
func (c Conductor) Finite() bool { return c.finite }

// P1 returns the first end point (or the anchor point of an infinite line).
func (c Conductor) P1() [3]float64 { return c.p1 }

// P2 returns the second end point (or the direction of an infinite line).
func (c Conductor) P2() [3]float64 { return c.p2 }

// Current returns the current in amperes.
func (c Conductor) Current() float64 { return c.curr }

// Direction returns the unit vector along the conductor.
func (c Conductor) Direction() [3]float64 { return c.u }

// AddBiotSavart adds the field of this conductor at xyz to b and, when
// deriv is non-nil, adds dB_i/dx_j to deriv[3*i+j].
func (c Conductor) AddBiotSavart(xyz [3]float64, b *[3]float64, deriv *[9]float64) {
	var r1 [3]float64
	for i := range 3 {
		r1[i] = xyz[i] - c.p1[i]
	}
	u := c.u
	v := cross(u, r1)
	vsq := math.Max(dot(v, v), minVsq)
	r1dotu := dot(r1, u)

	var f1 float64
	var r2, w [3]float64
	var r1mag, r2mag, r1mag2, r2mag2, r2dotu float64
	if c.finite {
		for i := range 3 {
			r2[i] = xyz[i] - c.p2[i]
		}
		r1mag2 = dot(r1, r1)
		r2mag2 = dot(r2, r2)
		r1mag = math.Sqrt(r1mag2)
		r2mag = math.Sqrt(r2mag2)
		r2dotu = dot(r2, u)
		sinfac := r1dotu/r1mag - r2dotu/r2mag
		f1 = mu04pi * c.curr * sinfac / vsq
	} else {
		f1 = 2.0 * mu04pi * c.curr / vsq
	}
	for i := range 3 {
		b[i] += f1 * v[i]
	}
	if deriv == nil {
		return
	}

	// derivative of u × r1
	deriv[1] -= f1 * u[2]
	deriv[2] += f1 * u[1]
	deriv[3] += f1 * u[2]
	deriv[5] -= f1 * u[0]
	deriv[6] -= f1 * u[1]
	deriv[7] += f1 * u[0]

	// unbounded on the wire axis: skip while the floor is active
	if vsq <= minVsq {
		return
	}
	f2 := 2.0 * f1 / vsq
	if c.finite {
		f3 := mu04pi * c.curr / vsq
		for i := range 3 {
			w[i] = f2*(u[i]*r1dotu-r1[i]) +
				f3*((u[i]-r1[i]*r1dotu/r1mag2)/r1mag-(u[i]-r2[i]*r2dotu/r2mag2)/r2mag)
		}
	} else {
		for i := range 3 {
			w[i] = f2 * (u[i]*r1dotu - r1[i])
		}
	}
	for i := range 3 {
		for j := range 3 {
			deriv[3*i+j] += v[i] * w[j]
		}
	}
}

func dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

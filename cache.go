package bfieldmap

import "math"

// Cache is one interpolation cell: its (z, r, phi) bounds and the field
// at its 8 corners. Corner i has phi high when i&1, r high when i&2 and
// z high when i&4.
//
// A Cache is reused across lookups and is not safe for concurrent use.
type Cache struct {
	min, max [3]float64
	field    [8]Vector3[float64]
	scale    float64
}

// NewCache returns an empty cell whose bounds are inverted, so Inside
// reports false until the cell is populated.
func NewCache() Cache {
	return Cache{min: [3]float64{0, 0, 0}, max: [3]float64{-1, -1, -1}}
}

// SetRange sets the cell bounds.
func (c *Cache) SetRange(zmin, zmax, rmin, rmax, phimin, phimax float64) {
	c.min = [3]float64{zmin, rmin, phimin}
	c.max = [3]float64{zmax, rmax, phimax}
}

// SetField sets the field at corner i.
func (c *Cache) SetField(i int, f Vector3[float64]) { c.field[i] = f }

// SetScale sets the factor applied to every corner value.
func (c *Cache) SetScale(scale float64) { c.scale = scale }

// Inside reports whether (z, r, phi) is within the cell.
func (c *Cache) Inside(z, r, phi float64) bool {
	if phi < c.min[2] {
		phi += 2 * math.Pi
	}
	return phi >= c.min[2] && phi <= c.max[2] &&
		z >= c.min[0] && z <= c.max[0] &&
		r >= c.min[1] && r <= c.max[1]
}

// Field interpolates the cell at (z, r, phi) and returns Cartesian
// (Bx, By, Bz). When deriv is non-nil it is overwritten with the Cartesian
// Jacobian deriv[3*i+j] = dB_i/dx_j of the interpolated field.
func (c *Cache) Field(z, r, phi float64, deriv *[9]float64) [3]float64 {
	if phi < c.min[2] {
		phi += 2 * math.Pi
	}
	fz := (z - c.min[0]) / (c.max[0] - c.min[0])
	gz := 1.0 - fz
	fr := (r - c.min[1]) / (c.max[1] - c.min[1])
	gr := 1.0 - fr
	fphi := (phi - c.min[2]) / (c.max[2] - c.min[2])
	gphi := 1.0 - fphi

	f := &c.field
	var bzrphi [3]float64
	for i := range 3 {
		bzrphi[i] = c.scale * (gz*(gr*(gphi*f[0].At(i)+fphi*f[1].At(i))+
			fr*(gphi*f[2].At(i)+fphi*f[3].At(i))) +
			fz*(gr*(gphi*f[4].At(i)+fphi*f[5].At(i))+
				fr*(gphi*f[6].At(i)+fphi*f[7].At(i))))
	}
	cs, sn := math.Cos(phi), math.Sin(phi)
	b := [3]float64{
		bzrphi[1]*cs - bzrphi[2]*sn,
		bzrphi[1]*sn + bzrphi[2]*cs,
		bzrphi[0],
	}
	if deriv == nil {
		return b
	}

	sz := c.scale / (c.max[0] - c.min[0])
	sr := c.scale / (c.max[1] - c.min[1])
	sphi := c.scale / (c.max[2] - c.min[2])
	var dBdz, dBdr, dBdphi [3]float64
	for j := range 3 {
		dBdz[j] = sz * (gr*(gphi*(f[4].At(j)-f[0].At(j))+fphi*(f[5].At(j)-f[1].At(j))) +
			fr*(gphi*(f[6].At(j)-f[2].At(j))+fphi*(f[7].At(j)-f[3].At(j))))
		dBdr[j] = sr * (gz*(gphi*(f[2].At(j)-f[0].At(j))+fphi*(f[3].At(j)-f[1].At(j))) +
			fz*(gphi*(f[6].At(j)-f[4].At(j))+fphi*(f[7].At(j)-f[5].At(j))))
		dBdphi[j] = sphi * (gz*(gr*(f[1].At(j)-f[0].At(j))+fr*(f[3].At(j)-f[2].At(j))) +
			fz*(gr*(f[5].At(j)-f[4].At(j))+fr*(f[7].At(j)-f[6].At(j))))
	}

	// chain rule through r = hypot(x, y), phi = atan2(y, x)
	cc, csn, ss := cs*cs, cs*sn, sn*sn
	deriv[0] = cc*dBdr[1] - csn*dBdr[2] - csn*dBdphi[1]/r + ss*dBdphi[2]/r + sn*b[1]/r
	deriv[1] = csn*dBdr[1] - ss*dBdr[2] + cc*dBdphi[1]/r - csn*dBdphi[2]/r - cs*b[1]/r
	deriv[2] = cs*dBdz[1] - sn*dBdz[2]
	deriv[3] = csn*dBdr[1] + cc*dBdr[2] - ss*dBdphi[1]/r - csn*dBdphi[2]/r - sn*b[0]/r
	deriv[4] = ss*dBdr[1] + csn*dBdr[2] + csn*dBdphi[1]/r + cc*dBdphi[2]/r + cs*b[0]/r
	deriv[5] = sn*dBdz[1] + cs*dBdz[2]
	deriv[6] = cs*dBdr[0] - sn*dBdphi[0]/r
	deriv[7] = sn*dBdr[0] + cs*dBdphi[0]/r
	deriv[8] = dBdz[0]
	return b
}

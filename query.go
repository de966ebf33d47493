package bfieldmap

import "math"

// Query evaluates a Map while remembering the last cell it interpolated,
// so consecutive points in the same cell skip the cell search and corner
// fetch. The zone is looked up on every call, so the remembered cell never
// changes which zone answers.
//
// A Query is not safe for concurrent use; give each goroutine its own.
type Query struct {
	m     *Map
	cache Cache
	zone  *Zone
}

// NewQuery returns a Query with an empty cell cache.
func (m *Map) NewQuery() *Query {
	return &Query{m: m, cache: NewCache()}
}

// GetB returns the Cartesian field at xyz (mm) in kT. Points outside the
// map envelope, or outside every zone, yield the default field on all
// three components. deriv is not filled; see Map.GetB.
func (q *Query) GetB(xyz [3]float64, deriv *[9]float64) [3]float64 {
	env := &q.m.env
	z := xyz[2]
	r2 := xyz[0]*xyz[0] + xyz[1]*xyz[1]
	if env.outside(z, r2) {
		return env.defaultB()
	}
	r := math.Sqrt(r2)
	phi := math.Atan2(xyz[1], xyz[0])
	zone := q.m.FindZone(z, r, phi)
	if zone == nil {
		q.zone, q.cache = nil, NewCache()
		return env.defaultB()
	}
	// zones may overlap, so a cell of another zone can contain the point
	if zone != q.zone || !q.cache.Inside(z, r, phi) {
		q.zone = zone
		zone.GetCache(z, r, phi, &q.cache)
	}
	b := q.cache.Field(z, r, phi, nil)
	zone.AddBiotSavart(xyz, &b, nil)
	return b
}

// Zone returns the zone of the last interpolated cell, or nil.
func (q *Query) Zone() *Zone { return q.zone }

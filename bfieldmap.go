// Package bfieldmap computes the magnetic field of the ATLAS detector from
// a precomputed map: piecewise-trilinear interpolation over a non-uniform,
// multi-zone cylindrical mesh, plus the Biot–Savart field of explicitly
// modelled conductors. Maps are read from the packed text format or from
// the binary record format written by WriteTree.
//
// Working units are mm, radians and kT.
package bfieldmap

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// edgeTolerance merges zone boundaries computed independently by
// different zones that differ only by rounding.
const edgeTolerance = 1.0e-6

// Map is a complete field map made of zones.
//
// Zones are added while loading; BuildLUT then freezes the map. After
// BuildLUT a Map is read-only and safe for concurrent queries.
type Map struct {
	zones []*Zone

	edge    [3][]float64 // merged zone boundaries in z, r, phi
	edgeLUT [3]axisLUT
	zoneLUT []*Zone // zone for each (z, r, phi) edge cell, nil if none

	env Envelope
	log zerolog.Logger
}

// New returns an empty map.
func New(opts ...Option) *Map {
	o := buildOptions(opts)
	return &Map{env: o.env, log: o.log}
}

// AppendZone adds a zone. BuildLUT must be called afterwards. Zones added
// later take precedence where they overlap earlier ones.
func (m *Map) AppendZone(z *Zone) { m.zones = append(m.zones, z) }

// NZone returns the number of zones.
func (m *Map) NZone() int { return len(m.zones) }

// ZoneAt returns zone i.
func (m *Map) ZoneAt(i int) *Zone { return m.zones[i] }

// Zones returns the zones in load order.
func (m *Map) Zones() []*Zone { return m.zones }

// Envelope returns the validity envelope used by GetB.
func (m *Map) Envelope() Envelope { return m.env }

// BuildLUT merges the zone boundaries, builds the zone lookup table and
// seals every zone's mesh.
func (m *Map) BuildLUT() error {
	if len(m.zones) == 0 {
		return fmt.Errorf("%w: map has no zones", ErrMesh)
	}
	for j := AxisZ; j <= AxisPhi; j++ {
		edges := make([]float64, 0, 2*len(m.zones)+2)
		for _, z := range m.zones {
			for _, e := range [2]float64{z.Min(j), z.Max(j)} {
				// fit phi edges into [-π, π]
				if j == AxisPhi && e > math.Pi {
					e -= 2 * math.Pi
				}
				edges = append(edges, e)
			}
		}
		if j == AxisPhi {
			edges = append(edges, -math.Pi, math.Pi)
		}
		sort.Float64s(edges)
		k := 0
		for i := 1; i < len(edges); i++ {
			if math.Abs(edges[k]-edges[i]) < edgeTolerance {
				continue
			}
			k++
			edges[k] = edges[i]
		}
		edges = edges[:k+1]
		m.edge[j] = edges

		// snap the zone bounds onto the merged edges so no point falls
		// into a gap between adjacent zones
		for _, z := range m.zones {
			for _, e := range edges {
				if math.Abs(z.Min(j)-e) < edgeTolerance {
					z.adjustMin(j, e)
				}
				if math.Abs(z.Max(j)-e) < edgeTolerance {
					z.adjustMax(j, e)
				}
			}
		}

		lut, err := buildAxisLUT(edges)
		if err != nil {
			return fmt.Errorf("zone edges on %v axis: %w", j, err)
		}
		m.edgeLUT[j] = lut
	}

	nz := len(m.edge[AxisZ]) - 1
	nr := len(m.edge[AxisR]) - 1
	nphi := len(m.edge[AxisPhi]) - 1
	m.zoneLUT = make([]*Zone, 0, nz*nr*nphi)
	empty := 0
	for iz := range nz {
		z := 0.5 * (m.edge[AxisZ][iz] + m.edge[AxisZ][iz+1])
		for ir := range nr {
			r := 0.5 * (m.edge[AxisR][ir] + m.edge[AxisR][ir+1])
			for iphi := range nphi {
				phi := 0.5 * (m.edge[AxisPhi][iphi] + m.edge[AxisPhi][iphi+1])
				zone := m.findZoneSlow(z, r, phi)
				if zone == nil {
					empty++
				}
				m.zoneLUT = append(m.zoneLUT, zone)
			}
		}
	}
	m.log.Debug().
		Int("zones", len(m.zones)).
		Ints("edges", []int{nz + 1, nr + 1, nphi + 1}).
		Int("cells", len(m.zoneLUT)).
		Int("empty", empty).
		Msg("zone lookup table built")

	var g errgroup.Group
	for _, z := range m.zones {
		g.Go(func() error {
			if err := z.BuildLUT(); err != nil {
				return fmt.Errorf("zone %d: %w", z.ID(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// findZoneSlow scans the zones from last to first. Only used to fill the
// zone lookup table.
func (m *Map) findZoneSlow(z, r, phi float64) *Zone {
	for j := len(m.zones) - 1; j >= 0; j-- {
		if m.zones[j].Inside(z, r, phi) {
			return m.zones[j]
		}
	}
	return nil
}

// FindZone returns the zone containing (z, r, phi), or nil if the point
// is outside every zone. phi must be in [-π, π].
func (m *Map) FindZone(z, r, phi float64) *Zone {
	ez, er, ephi := m.edge[AxisZ], m.edge[AxisR], m.edge[AxisPhi]
	// written so that NaN coordinates miss
	if len(ez) == 0 ||
		!(z >= ez[0] && z <= ez[len(ez)-1]) ||
		!(r >= er[0] && r <= er[len(er)-1]) ||
		!(phi >= ephi[0] && phi <= ephi[len(ephi)-1]) {
		return nil
	}
	iz := m.edgeLUT[AxisZ].locate(ez, z)
	ir := m.edgeLUT[AxisR].locate(er, r)
	iphi := m.edgeLUT[AxisPhi].locate(ephi, phi)
	nr := len(er) - 1
	nphi := len(ephi) - 1
	return m.zoneLUT[(iz*nr+ir)*nphi+iphi]
}

// GetB returns the Cartesian field at xyz (mm) in kT.
//
// deriv is accepted for interface compatibility and is not filled on
// this path; use Mesh.Field or Cache.Field for interpolated derivatives.
//
// GetB keeps no state between calls and is safe for concurrent use. A
// Query is faster for sequences of nearby points.
func (m *Map) GetB(xyz [3]float64, deriv *[9]float64) [3]float64 {
	q := m.NewQuery()
	return q.GetB(xyz, deriv)
}

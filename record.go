package bfieldmap

import "fmt"

// ZoneRecord is the flat, fixed-schema form of one zone used by the
// record format and by persistent stores. Conductor and field arrays are
// stored column by column.
type ZoneRecord struct {
	ID     int32
	ZMin   float64
	ZMax   float64
	RMin   float64
	RMax   float64
	PhiMin float64
	PhiMax float64
	BScale float64

	Finite []bool
	P1X    []float64
	P1Y    []float64
	P1Z    []float64
	P2X    []float64
	P2Y    []float64
	P2Z    []float64
	Curr   []float64

	MeshZ   []float64
	MeshR   []float64
	MeshPhi []float64

	FieldZ   []int16
	FieldR   []int16
	FieldPhi []int16
}

// SizeRecord holds the largest array lengths over all zone records, used
// to size read buffers.
type SizeRecord struct {
	MaxCond    uint32
	MaxMeshZ   uint32
	MaxMeshR   uint32
	MaxMeshPhi uint32
	MaxField   uint32
}

// fit widens s to hold rec.
func (s *SizeRecord) fit(ncond, nmeshz, nmeshr, nmeshphi, nfield int) {
	s.MaxCond = max(s.MaxCond, uint32(ncond))
	s.MaxMeshZ = max(s.MaxMeshZ, uint32(nmeshz))
	s.MaxMeshR = max(s.MaxMeshR, uint32(nmeshr))
	s.MaxMeshPhi = max(s.MaxMeshPhi, uint32(nmeshphi))
	s.MaxField = max(s.MaxField, uint32(nfield))
}

// Sizes returns the size record covering recs.
func Sizes(recs []ZoneRecord) SizeRecord {
	var s SizeRecord
	for i := range recs {
		r := &recs[i]
		s.fit(len(r.Finite), len(r.MeshZ), len(r.MeshR), len(r.MeshPhi), len(r.FieldZ))
	}
	return s
}

// Records returns one record per zone, in zone order.
func (m *Map) Records() []ZoneRecord {
	recs := make([]ZoneRecord, len(m.zones))
	for i, z := range m.zones {
		r := &recs[i]
		r.ID = int32(z.ID())
		r.ZMin, r.ZMax = z.Min(AxisZ), z.Max(AxisZ)
		r.RMin, r.RMax = z.Min(AxisR), z.Max(AxisR)
		r.PhiMin, r.PhiMax = z.Min(AxisPhi), z.Max(AxisPhi)
		r.BScale = z.Scale()

		n := z.NConductor()
		r.Finite = make([]bool, n)
		r.P1X, r.P1Y, r.P1Z = make([]float64, n), make([]float64, n), make([]float64, n)
		r.P2X, r.P2Y, r.P2Z = make([]float64, n), make([]float64, n), make([]float64, n)
		r.Curr = make([]float64, n)
		for j := range n {
			c := z.ConductorAt(j)
			p1, p2 := c.P1(), c.P2()
			r.Finite[j] = c.Finite()
			r.P1X[j], r.P1Y[j], r.P1Z[j] = p1[0], p1[1], p1[2]
			r.P2X[j], r.P2Y[j], r.P2Z[j] = p2[0], p2[1], p2[2]
			r.Curr[j] = c.Current()
		}

		r.MeshZ = append([]float64(nil), z.mesh[AxisZ]...)
		r.MeshR = append([]float64(nil), z.mesh[AxisR]...)
		r.MeshPhi = append([]float64(nil), z.mesh[AxisPhi]...)

		nf := z.NField()
		r.FieldZ, r.FieldR, r.FieldPhi = make([]int16, nf), make([]int16, nf), make([]int16, nf)
		for j := range nf {
			f := z.FieldAt(j)
			r.FieldZ[j], r.FieldR[j], r.FieldPhi[j] = f.Z, f.R, f.Phi
		}
	}
	return recs
}

// FromRecords builds a map from zone records and builds its lookup tables.
func FromRecords(recs []ZoneRecord, opts ...Option) (*Map, error) {
	m := New(opts...)
	for i := range recs {
		z, err := recs[i].zone()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		m.AppendZone(z)
	}
	if err := m.BuildLUT(); err != nil {
		return nil, err
	}
	m.log.Debug().Int("zones", len(m.zones)).Msg("map built from records")
	return m, nil
}

func (r *ZoneRecord) zone() (*Zone, error) {
	n := len(r.Finite)
	for _, col := range [][]float64{r.P1X, r.P1Y, r.P1Z, r.P2X, r.P2Y, r.P2Z, r.Curr} {
		if len(col) != n {
			return nil, fmt.Errorf("%w: zone %d conductor columns disagree (%d vs %d)",
				ErrRecordSize, r.ID, len(col), n)
		}
	}
	nf := len(r.FieldZ)
	if len(r.FieldR) != nf || len(r.FieldPhi) != nf {
		return nil, fmt.Errorf("%w: zone %d field columns disagree", ErrRecordSize, r.ID)
	}

	z := NewZone(int(r.ID), r.ZMin, r.ZMax, r.RMin, r.RMax, r.PhiMin, r.PhiMax, r.BScale)
	z.Reserve(len(r.MeshZ), len(r.MeshR), len(r.MeshPhi))
	for j := range n {
		z.AppendConductor(NewConductor(r.Finite[j],
			[3]float64{r.P1X[j], r.P1Y[j], r.P1Z[j]},
			[3]float64{r.P2X[j], r.P2Y[j], r.P2Z[j]},
			r.Curr[j]))
	}
	for _, x := range r.MeshZ {
		z.AppendMesh(AxisZ, x)
	}
	for _, x := range r.MeshR {
		z.AppendMesh(AxisR, x)
	}
	for _, x := range r.MeshPhi {
		z.AppendMesh(AxisPhi, x)
	}
	for j := range nf {
		z.AppendField(Vector3[int16]{Z: r.FieldZ[j], R: r.FieldR[j], Phi: r.FieldPhi[j]})
	}
	return z, nil
}

// Check reports ErrRecordSize if any array of rec exceeds s.
func (s SizeRecord) Check(rec *ZoneRecord) error {
	for _, c := range []struct {
		name  string
		n     int
		limit uint32
	}{
		{"ncond", len(rec.Finite), s.MaxCond},
		{"nmeshz", len(rec.MeshZ), s.MaxMeshZ},
		{"nmeshr", len(rec.MeshR), s.MaxMeshR},
		{"nmeshphi", len(rec.MeshPhi), s.MaxMeshPhi},
		{"nfield", len(rec.FieldZ), s.MaxField},
	} {
		if uint64(c.n) > uint64(c.limit) {
			return fmt.Errorf("%w: zone %d %s=%d exceeds buffer size %d",
				ErrRecordSize, rec.ID, c.name, c.n, c.limit)
		}
	}
	return nil
}

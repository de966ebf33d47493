package bfieldmap

import (
	"fmt"
	"io"
	"math"
)

// Unit conversions applied while reading the text format.
const (
	Meter  = 1000.0          // m in mm
	Degree = math.Pi / 180.0 // degree in radians
	Tesla  = 0.001           // T in kT
	Gauss  = 1.0e-7          // G in kT
)

// maxTableLen caps section counts so a corrupt header cannot trigger a huge
// allocation. The full toroid map is well below 1M entries per table.
const maxTableLen = 1 << 26

// tableLen returns the product of the counts n, or false if any count is
// negative or the product exceeds maxTableLen.
func tableLen(n ...int) (int, bool) {
	total := 1
	for _, k := range n {
		if k < 0 || k > maxTableLen {
			return 0, false
		}
		if k > 0 && total > maxTableLen/k {
			return 0, false
		}
		total *= k
	}
	return total, true
}

// Header holds the descriptive part of a text map.
type Header struct {
	Version int
	Date    string
	Time    string
	Lines   []string
}

// zoneSlices holds a zone's 1-based [start, count) ranges into the shared
// conductor and mesh tables.
type zoneSlices struct {
	jbs, nbs int
	jz, nz   int
	jr, nr   int
	jphi     int
	nphi     int
}

// ReadText parses a map in the packed text format (FORMAT-VERSION 5 or 6)
// and builds its lookup tables. Lengths are converted from m to mm, zone
// phi ranges from degrees to radians and field scales from T to kT.
func ReadText(r io.Reader, opts ...Option) (*Map, error) {
	m, _, err := ReadTextHeader(r, opts...)
	return m, err
}

// ReadTextHeader is ReadText that also returns the map header.
func ReadTextHeader(r io.Reader, opts ...Option) (*Map, *Header, error) {
	m := New(opts...)
	p := &textParser{t: newTokenReader(r), m: m}
	if err := p.parse(); err != nil {
		return nil, nil, err
	}
	if err := m.BuildLUT(); err != nil {
		return nil, nil, err
	}
	return m, &p.hdr, nil
}

type textParser struct {
	t      *tokenReader
	m      *Map
	hdr    Header
	slices []zoneSlices // one per kept zone
}

func (p *textParser) parse() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"header", p.readHeader},
		{"zones", p.readZones},
		{"biot", p.readBiot},
		{"coil", p.readCoil},
		{"auxarr", p.readAux},
		{"mesh", p.readMesh},
		{"field", p.readField},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("read map %s: %w", s.name, err)
		}
	}
	return nil
}

func (p *textParser) count(keyword string) (int, error) {
	n, err := p.t.keyword(keyword)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > maxTableLen {
		return 0, fmt.Errorf("%w: line %d: %s count %d out of range", ErrFormat, p.t.line, keyword, n)
	}
	return n, nil
}

func (p *textParser) readHeader() error {
	v, err := p.t.keyword("FORMAT-VERSION")
	if err != nil {
		return err
	}
	if v < 5 || v > 6 {
		return fmt.Errorf("%w: FORMAT-VERSION %d, expected 5 or 6", ErrVersion, v)
	}
	p.hdr.Version = v
	for _, kw := range []struct {
		name string
		dst  *string
	}{{"DATE", &p.hdr.Date}, {"TIME", &p.hdr.Time}} {
		w, err := p.t.word()
		if err != nil {
			return err
		}
		if w != kw.name {
			return fmt.Errorf("%w: line %d: found %q instead of %q", ErrFormat, p.t.line, w, kw.name)
		}
		if *kw.dst, err = p.t.word(); err != nil {
			return err
		}
	}
	n, err := p.count("HEADERS")
	if err != nil {
		return err
	}
	if err := p.t.skipLine(); err != nil {
		return err
	}
	for i := range n {
		line, err := p.t.r.ReadString('\n')
		if err == io.EOF && (line == "" || i < n-1) {
			return fmt.Errorf("%w: line %d: %d of %d header lines: %w",
				ErrFormat, p.t.line, i, n, io.ErrUnexpectedEOF)
		}
		if err != nil && err != io.EOF {
			return err
		}
		p.t.line++
		p.hdr.Lines = append(p.hdr.Lines, trimEOL(line))
	}
	p.m.log.Debug().Int("version", v).Str("date", p.hdr.Date).Str("time", p.hdr.Time).
		Int("headers", n).Msg("map header")
	return nil
}

func (p *textParser) readZones() error {
	n, err := p.count("ZONES")
	if err != nil {
		return err
	}
	v6 := p.hdr.Version == 6
	dropped := 0
	for range n {
		var id, nrep, mapIdx int
		var z1, z2, r1, r2, phi1, phi2 float64
		var s zoneSlices
		var nzrphi0, jcoil, ncoil, jfield, nfield int
		var mzn, mxsym, mrefl, mback, jaux, naux int
		var tol, qz, qr, qphi, bscale float64
		if err := p.t.ints(&id, &nrep); err != nil {
			return err
		}
		if v6 {
			if err := p.t.ints(&mapIdx); err != nil {
				return err
			}
		}
		if err := p.t.floats(&z1, &z2); err != nil {
			return err
		}
		if err := p.t.ints(&s.nz); err != nil {
			return err
		}
		if err := p.t.floats(&r1, &r2); err != nil {
			return err
		}
		if err := p.t.ints(&s.nr); err != nil {
			return err
		}
		if err := p.t.floats(&phi1, &phi2); err != nil {
			return err
		}
		if err := p.t.ints(&s.nphi, &nzrphi0); err != nil {
			return err
		}
		if err := p.t.floats(&tol); err != nil {
			return err
		}
		if err := p.t.ints(&s.jbs, &s.nbs, &jcoil, &ncoil, &s.jz, &s.jr, &s.jphi,
			&jfield, &nfield, &mzn); err != nil {
			return err
		}
		if v6 {
			if err := p.t.ints(&mxsym); err != nil {
				return err
			}
		}
		if err := p.t.ints(&mrefl, &mback, &jaux, &naux); err != nil {
			return err
		}
		if err := p.t.floats(&qz, &qr, &qphi, &bscale); err != nil {
			return err
		}
		if id < 0 {
			dropped++
			continue
		}
		if _, ok := tableLen(s.nz, s.nr, s.nphi); !ok {
			return fmt.Errorf("%w: line %d: zone %d mesh size %dx%dx%d", ErrFormat, p.t.line,
				id, s.nz, s.nr, s.nphi)
		}
		p.m.AppendZone(NewZone(id,
			z1*Meter, z2*Meter,
			r1*Meter, r2*Meter,
			phi1*Degree, phi2*Degree,
			bscale*Tesla))
		p.slices = append(p.slices, s)
	}
	p.m.log.Debug().Int("zones", len(p.m.zones)).Int("placeholders", dropped).Msg("zone table")
	return nil
}

func (p *textParser) readBiot() error {
	n, err := p.count("BIOT")
	if err != nil {
		return err
	}
	conds := make([]Conductor, 0, n)
	for range n {
		if _, err := p.t.char(); err != nil { // unused flag
			return err
		}
		cfinite, err := p.t.char()
		if err != nil {
			return err
		}
		var p1, p2 [3]float64
		var phirot, curr float64
		if err := p.t.floats(&p1[0], &p1[1], &p1[2], &p2[0], &p2[1], &p2[2], &phirot, &curr); err != nil {
			return err
		}
		finite := cfinite == 'T'
		for j := range 3 {
			p1[j] *= Meter
			if finite {
				p2[j] *= Meter
			}
		}
		conds = append(conds, NewConductor(finite, p1, p2, curr))
	}
	for i, z := range p.m.zones {
		s := p.slices[i]
		cs, err := tableSlice(conds, s.jbs, s.nbs)
		if err != nil {
			return fmt.Errorf("zone %d conductors: %w", z.ID(), err)
		}
		for _, c := range cs {
			z.AppendConductor(c)
		}
	}
	p.m.log.Debug().Int("conductors", n).Msg("biot-savart table")
	return nil
}

func (p *textParser) readCoil() error {
	n, err := p.count("COIL")
	if err != nil {
		return err
	}
	for range n + 1 { // rest of the keyword line, then n coil lines
		if err := p.t.skipLine(); err != nil {
			return err
		}
	}
	return nil
}

func (p *textParser) readAux() error {
	n, err := p.count("AUXARR")
	if err != nil {
		return err
	}
	if p.hdr.Version == 6 {
		if _, err := p.t.word(); err != nil {
			return err
		}
	}
	for range n {
		if _, err := p.t.int(); err != nil {
			return err
		}
	}
	return nil
}

func (p *textParser) readMesh() error {
	n, err := p.count("MESH")
	if err != nil {
		return err
	}
	table := make([]float64, n)
	for i := range table {
		if table[i], err = p.t.float(); err != nil {
			return err
		}
	}
	for i, z := range p.m.zones {
		s := p.slices[i]
		z.Reserve(s.nz, s.nr, s.nphi)
		for _, ax := range []struct {
			a     Axis
			start int
			n     int
			unit  float64
		}{
			{AxisZ, s.jz, s.nz, Meter},
			{AxisR, s.jr, s.nr, Meter},
			{AxisPhi, s.jphi, s.nphi, 1}, // stored in radians
		} {
			lines, err := tableSlice(table, ax.start, ax.n)
			if err != nil {
				return fmt.Errorf("zone %d %v mesh: %w", z.ID(), ax.a, err)
			}
			for _, x := range lines {
				z.AppendMesh(ax.a, x*ax.unit)
			}
		}
	}
	return nil
}

func (p *textParser) readField() error {
	w, err := p.t.word()
	if err != nil {
		return err
	}
	if w != "FIELD" {
		return fmt.Errorf("%w: line %d: found %q instead of %q", ErrFormat, p.t.line, w, "FIELD")
	}
	var nf, nzlist int
	if err := p.t.ints(&nf, &nzlist); err != nil {
		return err
	}
	for _, want := range []string{"I2PACK", "FBYTE"} {
		w, err := p.t.word()
		if err != nil {
			return err
		}
		if w != want {
			return fmt.Errorf("%w: line %d: found %q instead of %q", ErrFormat, p.t.line, w, want)
		}
	}
	for range nzlist {
		var izone, idzone, nfzone int
		if err := p.t.ints(&izone, &idzone, &nfzone); err != nil {
			return err
		}
		izone-- // 1-based
		if izone < 0 || izone >= len(p.m.zones) {
			return fmt.Errorf("%w: line %d: field record for zone index %d of %d",
				ErrTableRange, p.t.line, izone+1, len(p.m.zones))
		}
		zone := p.m.zones[izone]
		if idzone != zone.ID() {
			return fmt.Errorf("%w: zone id %d != %d", ErrZoneMismatch, idzone, zone.ID())
		}
		if nfzone < 0 || nfzone > maxTableLen {
			return fmt.Errorf("%w: line %d: zone %d sample count %d", ErrFormat, p.t.line, idzone, nfzone)
		}
		var comp [3][]int16
		for j := range comp {
			raw, err := DecodePacked(p.t)
			if err != nil {
				return fmt.Errorf("zone %d %v component: %w", idzone, Axis(j), err)
			}
			if comp[j], err = Undelta(raw, nfzone); err != nil {
				return fmt.Errorf("zone %d %v component: %w", idzone, Axis(j), err)
			}
		}
		for k := range nfzone {
			zone.AppendField(Vector3[int16]{Z: comp[0][k], R: comp[1][k], Phi: comp[2][k]})
		}
		// fbyte record is not used
		if err := skipRecord(p.t); err != nil {
			return err
		}
	}
	p.m.log.Debug().Int("records", nzlist).Int("samples", nf).Msg("field table")
	return nil
}

// tableSlice returns the n entries of table starting at the 1-based index start.
func tableSlice[E any](table []E, start, n int) ([]E, error) {
	if n == 0 {
		return nil, nil
	}
	lo := start - 1
	if n < 0 || lo < 0 || lo+n > len(table) {
		return nil, fmt.Errorf("%w: [%d, %d) of %d entries", ErrTableRange, start, start+n, len(table))
	}
	return table[lo : lo+n], nil
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

package bfieldmap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// TreeMagic opens every binary record file.
const TreeMagic = "BFMP"

const (
	treeVersion  = 6
	flagSizes    = 1 << 0
	treeHdrLen   = 4 + 2 + 2
	sizesLen     = 5 * 4
	minZoneBytes = 4 + 7*8 + 4*4 // id, bounds, four empty counts
	condBytes    = 1 + 7*8       // finite flag, p1, p2, current
	fieldBytes   = 3 * 2
)

// EncodeTree serializes the map's zones in the binary record format,
// including the size record.
func (m *Map) EncodeTree() []byte {
	recs := m.Records()
	sizes := Sizes(recs)
	var buf bytes.Buffer
	buf.WriteString(TreeMagic)
	w := recordWriter{&buf}
	w.u16(treeVersion)
	w.u16(flagSizes)
	w.u32(sizes.MaxCond)
	w.u32(sizes.MaxMeshZ)
	w.u32(sizes.MaxMeshR)
	w.u32(sizes.MaxMeshPhi)
	w.u32(sizes.MaxField)
	w.u32(uint32(len(recs)))
	for i := range recs {
		w.zone(&recs[i])
	}
	return buf.Bytes()
}

// WriteTree writes EncodeTree to w.
func (m *Map) WriteTree(w io.Writer) error {
	_, err := w.Write(m.EncodeTree())
	return err
}

// ReadTree reads a whole binary record file from r and decodes it.
func ReadTree(r io.Reader, opts ...Option) (*Map, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	return DecodeTree(raw, opts...)
}

// DecodeTree decodes a binary record file and builds the map's lookup
// tables. When the file carries no size record, all records are scanned
// once to derive the buffer sizes.
func DecodeTree(raw []byte, opts ...Option) (*Map, error) {
	recs, err := DecodeRecords(raw)
	if err != nil {
		return nil, err
	}
	return FromRecords(recs, opts...)
}

// DecodeRecords decodes the zone records of a binary record file without
// building a map.
func DecodeRecords(raw []byte) ([]ZoneRecord, error) {
	if len(raw) < treeHdrLen {
		return nil, fmt.Errorf("%w: tree header: %d bytes", ErrFormat, len(raw))
	}
	if string(raw[:4]) != TreeMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrFormat, raw[:4])
	}
	r := newRecordReader(raw[4:])
	version, _ := r.u16()
	flags, _ := r.u16()
	if version != treeVersion {
		return nil, fmt.Errorf("%w: tree version %d, expected %d", ErrVersion, version, treeVersion)
	}

	var sizes SizeRecord
	hasSizes := flags&flagSizes != 0
	if hasSizes {
		for _, dst := range []*uint32{&sizes.MaxCond, &sizes.MaxMeshZ, &sizes.MaxMeshR,
			&sizes.MaxMeshPhi, &sizes.MaxField} {
			v, err := r.u32()
			if err != nil {
				return nil, fmt.Errorf("tree size record: %w", err)
			}
			*dst = v
		}
	}
	n, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("tree zone count: %w", err)
	}
	if int64(n)*minZoneBytes > int64(r.remaining()) {
		return nil, fmt.Errorf("%w: %d zones in %d bytes", ErrRecordSize, n, r.remaining())
	}
	body := r.pos

	if !hasSizes {
		if sizes, err = scanSizes(r, int(n)); err != nil {
			return nil, err
		}
		r.pos = body
	}

	recs := make([]ZoneRecord, n)
	for i := range recs {
		if err := r.zone(&recs[i], sizes); err != nil {
			return nil, fmt.Errorf("tree zone record %d: %w", i, err)
		}
	}
	return recs, nil
}

// scanSizes walks n zone records and returns the largest array lengths.
func scanSizes(r *recordReader, n int) (SizeRecord, error) {
	var s SizeRecord
	for i := range n {
		if err := r.skip(4 + 7*8); err != nil {
			return s, fmt.Errorf("tree size scan %d: %w", i, err)
		}
		ncond, err := r.array("ncond", math.MaxUint32, condBytes)
		if err != nil {
			return s, err
		}
		if err := r.skip(condBytes * ncond); err != nil {
			return s, err
		}
		var nmesh [3]int
		for a := range nmesh {
			if nmesh[a], err = r.array("nmesh"+Axis(a).String(), math.MaxUint32, 8); err != nil {
				return s, err
			}
			if err := r.skip(8 * nmesh[a]); err != nil {
				return s, err
			}
		}
		nfield, err := r.array("nfield", math.MaxUint32, fieldBytes)
		if err != nil {
			return s, err
		}
		if err := r.skip(fieldBytes * nfield); err != nil {
			return s, err
		}
		s.fit(ncond, nmesh[0], nmesh[1], nmesh[2], nfield)
	}
	return s, nil
}

// zone decodes one zone record, rejecting arrays larger than sizes.
func (r *recordReader) zone(rec *ZoneRecord, sizes SizeRecord) error {
	id, err := r.u32()
	if err != nil {
		return err
	}
	rec.ID = int32(id)
	for _, dst := range []*float64{&rec.ZMin, &rec.ZMax, &rec.RMin, &rec.RMax,
		&rec.PhiMin, &rec.PhiMax, &rec.BScale} {
		if *dst, err = r.f64(); err != nil {
			return err
		}
	}

	ncond, err := r.array("ncond", sizes.MaxCond, condBytes)
	if err != nil {
		return err
	}
	rec.Finite = make([]bool, ncond)
	if err := r.bools(rec.Finite); err != nil {
		return err
	}
	for _, dst := range []*[]float64{&rec.P1X, &rec.P1Y, &rec.P1Z, &rec.P2X, &rec.P2Y, &rec.P2Z, &rec.Curr} {
		*dst = make([]float64, ncond)
		if err := r.f64s(*dst); err != nil {
			return err
		}
	}

	for _, m := range []struct {
		name  string
		limit uint32
		dst   *[]float64
	}{
		{"nmeshz", sizes.MaxMeshZ, &rec.MeshZ},
		{"nmeshr", sizes.MaxMeshR, &rec.MeshR},
		{"nmeshphi", sizes.MaxMeshPhi, &rec.MeshPhi},
	} {
		nm, err := r.array(m.name, m.limit, 8)
		if err != nil {
			return err
		}
		*m.dst = make([]float64, nm)
		if err := r.f64s(*m.dst); err != nil {
			return err
		}
	}

	nfield, err := r.array("nfield", sizes.MaxField, fieldBytes)
	if err != nil {
		return err
	}
	for _, dst := range []*[]int16{&rec.FieldZ, &rec.FieldR, &rec.FieldPhi} {
		*dst = make([]int16, nfield)
		if err := r.i16s(*dst); err != nil {
			return err
		}
	}
	return nil
}

// recordWriter appends big-endian values to a buffer.
type recordWriter struct {
	buf *bytes.Buffer
}

func (w recordWriter) u16(v uint16) {
	w.buf.Write(binary.BigEndian.AppendUint16(nil, v))
}

func (w recordWriter) u32(v uint32) {
	w.buf.Write(binary.BigEndian.AppendUint32(nil, v))
}

func (w recordWriter) f64s(vs ...float64) {
	for _, v := range vs {
		w.buf.Write(binary.BigEndian.AppendUint64(nil, math.Float64bits(v)))
	}
}

func (w recordWriter) zone(rec *ZoneRecord) {
	w.u32(uint32(rec.ID))
	w.f64s(rec.ZMin, rec.ZMax, rec.RMin, rec.RMax, rec.PhiMin, rec.PhiMax, rec.BScale)
	w.u32(uint32(len(rec.Finite)))
	for _, f := range rec.Finite {
		if f {
			w.buf.WriteByte(1)
		} else {
			w.buf.WriteByte(0)
		}
	}
	for _, col := range [][]float64{rec.P1X, rec.P1Y, rec.P1Z, rec.P2X, rec.P2Y, rec.P2Z, rec.Curr} {
		w.f64s(col...)
	}
	for _, col := range [][]float64{rec.MeshZ, rec.MeshR, rec.MeshPhi} {
		w.u32(uint32(len(col)))
		w.f64s(col...)
	}
	w.u32(uint32(len(rec.FieldZ)))
	for _, col := range [][]int16{rec.FieldZ, rec.FieldR, rec.FieldPhi} {
		for _, v := range col {
			w.u16(uint16(v))
		}
	}
}

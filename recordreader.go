package bfieldmap

import (
	"encoding/binary"
	"fmt"
	"math"
)

// recordReader reads big-endian values from a byte slice. Every read is
// bounds-checked; a truncated record returns an error, never panics.
type recordReader struct {
	buf []byte
	pos int // current byte position
}

func newRecordReader(b []byte) *recordReader { return &recordReader{buf: b} }

// take returns the next n bytes.
func (r *recordReader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("%w: read %d bytes at offset %d overflows buffer (%d bytes)",
			ErrFormat, n, r.pos, len(r.buf))
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *recordReader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *recordReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *recordReader) f64() (float64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// count reads a uint32 element count and checks it against limit.
func (r *recordReader) count(name string, limit uint32) (int, error) {
	n, err := r.u32()
	if err != nil {
		return 0, err
	}
	if n > limit {
		return 0, fmt.Errorf("%w: %s=%d exceeds buffer size %d", ErrRecordSize, name, n, limit)
	}
	return int(n), nil
}

// array reads the element count of an array of elemSize-byte entries. The
// count must be within limit and the entries must fit in the bytes left,
// so the caller can allocate before reading them.
func (r *recordReader) array(name string, limit uint32, elemSize int) (int, error) {
	n, err := r.count(name, limit)
	if err != nil {
		return 0, err
	}
	if n > r.remaining()/elemSize {
		return 0, fmt.Errorf("%w: %s=%d needs %d bytes, %d left", ErrFormat, name, n,
			int64(n)*int64(elemSize), r.remaining())
	}
	return n, nil
}

// f64s fills dst with len(dst) values.
func (r *recordReader) f64s(dst []float64) error {
	b, err := r.take(8 * len(dst))
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float64frombits(binary.BigEndian.Uint64(b[8*i:]))
	}
	return nil
}

// i16s fills dst with len(dst) values.
func (r *recordReader) i16s(dst []int16) error {
	b, err := r.take(2 * len(dst))
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = int16(binary.BigEndian.Uint16(b[2*i:]))
	}
	return nil
}

// bools fills dst with len(dst) one-byte flags.
func (r *recordReader) bools(dst []bool) error {
	b, err := r.take(len(dst))
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = b[i] != 0
	}
	return nil
}

// skip advances n bytes.
func (r *recordReader) skip(n int) error {
	_, err := r.take(n)
	return err
}

func (r *recordReader) remaining() int { return len(r.buf) - r.pos }

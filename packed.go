package bfieldmap

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// Packed integer streams store one field component per record as
// printable symbols. The current mode decides how a symbol decodes:
//
//	u  variable width base 42: '!'..'J' continue, 'K'..'t' terminate
//	v  a symbol plus 4 more: four values c-'!' + 84*(3-ary digit of the first)
//	w  one value c-'!'
//	x  two base-9 digits of c-'!'
//	y  four base-3 digits of c-'!'
//
// 'u'..'y' switch mode, 'z' is followed by a u-encoded zero run length and
// '}' ends the record. Whitespace between symbols is ignored.

// DecodePacked reads one packed record from src and returns the raw
// (still sign-folded, second-order differenced) integers. It stops at '}'
// or at the end of the stream.
func DecodePacked(src io.ByteScanner) ([]int, error) {
	var data []int
	mode := byte('u')
	for {
		c, err := nextSymbol(src)
		if errors.Is(err, io.EOF) {
			return data, nil
		}
		if err != nil {
			return nil, err
		}
		switch {
		case c == '}':
			return data, nil
		case c == 'z':
			n, err := readPackedInt(src)
			if err != nil {
				return nil, err
			}
			for range n {
				data = append(data, 0)
			}
		case c >= 'u' && c <= 'y':
			mode = c
		case c <= ' ' || c > 'z':
			return nil, fmt.Errorf("%w: unexpected symbol %q", ErrPackedCodec, c)
		default: // '!'..'t'
			switch mode {
			case 'u':
				if err := src.UnreadByte(); err != nil {
					return nil, err
				}
				n, err := readPackedInt(src)
				if err != nil {
					return nil, err
				}
				data = append(data, n)
			case 'v':
				n := int(c - '!')
				for range 4 {
					c, err := nextSymbol(src)
					if err != nil {
						return nil, fmt.Errorf("%w: truncated v group: %w", ErrPackedCodec, err)
					}
					if c < '!' || c > 't' {
						return nil, fmt.Errorf("%w: unexpected symbol %q in v group", ErrPackedCodec, c)
					}
					data = append(data, int(c-'!')+84*(n%3))
					n /= 3
				}
			case 'w':
				data = append(data, int(c-'!'))
			case 'x':
				n := int(c - '!')
				data = append(data, n/9, n%9)
			case 'y':
				n := int(c - '!')
				data = append(data, n/27, (n/9)%3, (n/3)%3, n%3)
			}
		}
	}
}

// readPackedInt reads one u-encoded integer.
func readPackedInt(src io.ByteScanner) (int, error) {
	n := 0
	for {
		c, err := nextSymbol(src)
		if err != nil {
			return 0, fmt.Errorf("%w: truncated integer: %w", ErrPackedCodec, err)
		}
		switch {
		case c >= '!' && c <= 'J':
			n = 42*n + int(c-'!')
			if n > maxTableLen {
				return 0, fmt.Errorf("%w: integer too wide", ErrPackedCodec)
			}
		case c >= 'K' && c <= 't':
			return 42*n + int(c-'K'), nil
		default:
			return 0, fmt.Errorf("%w: unexpected symbol %q in integer", ErrPackedCodec, c)
		}
	}
}

// skipRecord consumes symbols up to and including '}' or the end of the stream.
func skipRecord(src io.ByteScanner) error {
	for {
		c, err := nextSymbol(src)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if c == '}' {
			return nil
		}
	}
}

// nextSymbol returns the next byte that is not white space.
func nextSymbol(src io.ByteScanner) (byte, error) {
	for {
		c, err := src.ReadByte()
		if err != nil {
			return 0, err
		}
		if !isSpace(c) {
			return c, nil
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// Undelta turns the first n decoded integers into samples: it recovers
// the sign (even v → v/2, odd v → -(v+1)/2) and then undoes second-order
// differencing, x[k] += 2*x[k-1] - x[k-2] for k >= 2.
func Undelta(data []int, n int) ([]int16, error) {
	if len(data) < n {
		return nil, fmt.Errorf("%w: %d packed values, expected %d", ErrTableRange, len(data), n)
	}
	x := make([]int, n)
	for k := range n {
		v := data[k]
		if v%2 == 0 {
			x[k] = v / 2
		} else {
			x[k] = -(v + 1) / 2
		}
		if k >= 2 {
			x[k] += 2*x[k-1] - x[k-2]
		}
	}
	out := make([]int16, n)
	for k, v := range x {
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, fmt.Errorf("%w: sample %d = %d overflows int16", ErrPackedCodec, k, v)
		}
		out[k] = int16(v)
	}
	return out, nil
}

package bfieldmap

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// tokenReader reads whitespace-separated tokens from a text map and keeps
// the line number for error messages. It is an io.ByteScanner so the
// packed codec can read symbols from the same stream.
type tokenReader struct {
	r    *bufio.Reader
	line int
	last byte
}

func newTokenReader(r io.Reader) *tokenReader {
	return &tokenReader{r: bufio.NewReaderSize(r, 1<<16), line: 1}
}

func (t *tokenReader) ReadByte() (byte, error) {
	c, err := t.r.ReadByte()
	if err != nil {
		return 0, err
	}
	if c == '\n' {
		t.line++
	}
	t.last = c
	return c, nil
}

func (t *tokenReader) UnreadByte() error {
	if err := t.r.UnreadByte(); err != nil {
		return err
	}
	if t.last == '\n' {
		t.line--
	}
	return nil
}

// word returns the next whitespace-delimited token.
func (t *tokenReader) word() (string, error) {
	c, err := nextSymbol(t)
	if err != nil {
		return "", t.wrap(err)
	}
	var sb strings.Builder
	sb.WriteByte(c)
	for {
		c, err := t.ReadByte()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return "", t.wrap(err)
		}
		if isSpace(c) {
			if err := t.UnreadByte(); err != nil {
				return "", err
			}
			return sb.String(), nil
		}
		sb.WriteByte(c)
	}
}

func (t *tokenReader) int() (int, error) {
	w, err := t.word()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(w)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: integer expected, got %q", ErrFormat, t.line, w)
	}
	return n, nil
}

func (t *tokenReader) float() (float64, error) {
	w, err := t.word()
	if err != nil {
		return 0, err
	}
	x, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: number expected, got %q", ErrFormat, t.line, w)
	}
	return x, nil
}

// char returns the next non-space byte.
func (t *tokenReader) char() (byte, error) {
	c, err := nextSymbol(t)
	if err != nil {
		return 0, t.wrap(err)
	}
	return c, nil
}

// ints reads len(dst) integers into the given pointers.
func (t *tokenReader) ints(dst ...*int) error {
	for _, p := range dst {
		n, err := t.int()
		if err != nil {
			return err
		}
		*p = n
	}
	return nil
}

// floats reads len(dst) numbers into the given pointers.
func (t *tokenReader) floats(dst ...*float64) error {
	for _, p := range dst {
		x, err := t.float()
		if err != nil {
			return err
		}
		*p = x
	}
	return nil
}

// keyword reads a section keyword and its count.
func (t *tokenReader) keyword(want string) (int, error) {
	w, err := t.word()
	if err != nil {
		return 0, err
	}
	if w != want {
		return 0, fmt.Errorf("%w: line %d: found %q instead of %q", ErrFormat, t.line, w, want)
	}
	return t.int()
}

// skipLine discards the rest of the current line.
func (t *tokenReader) skipLine() error {
	for {
		c, err := t.ReadByte()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if c == '\n' {
			return nil
		}
	}
}

func (t *tokenReader) wrap(err error) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: line %d: unexpected end of map: %w", ErrFormat, t.line, io.ErrUnexpectedEOF)
	}
	return err
}

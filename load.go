package bfieldmap

import (
	"bufio"
	"fmt"
	"os"
)

// ReadMapFile loads a map from path, in the binary record format when the
// file starts with TreeMagic and in the packed text format otherwise.
func ReadMapFile(path string, opts ...Option) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, _ := br.Peek(len(TreeMagic))
	var m *Map
	if string(magic) == TreeMagic {
		m, err = ReadTree(br, opts...)
	} else {
		m, err = ReadText(br, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	o := buildOptions(opts)
	o.log.Info().Str("path", path).Int("zones", m.NZone()).Msg("field map loaded")
	return m, nil
}

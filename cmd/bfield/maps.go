package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/geal-ai/bfieldmap"
	"github.com/geal-ai/bfieldmap/internal/store"
)

// mapOptions returns the library options from the loaded config.
func mapOptions() []bfieldmap.Option {
	return []bfieldmap.Option{
		bfieldmap.WithLogger(log),
		bfieldmap.WithEnvelope(cfg.MapEnvelope()),
	}
}

func isStore(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".db")
}

// openMap loads a map from a text, record or SQLite file.
func openMap(ctx context.Context, path string) (*bfieldmap.Map, error) {
	if !isStore(path) {
		return bfieldmap.ReadMapFile(path, mapOptions()...)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer store.Close(db)
	m, err := store.Load(ctx, db, mapOptions()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Info().Str("path", path).Int("zones", m.NZone()).Msg("field map loaded")
	return m, nil
}

// writeMap saves m as a SQLite store (.db) or a binary record file.
func writeMap(ctx context.Context, m *bfieldmap.Map, path string) error {
	if isStore(path) {
		db, err := store.Open(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		defer store.Close(db)
		return store.Save(ctx, db, m)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.WriteTree(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// toTesla converts a field in kT to T.
func toTesla(b [3]float64) [3]float64 {
	return [3]float64{b[0] / bfieldmap.Tesla, b[1] / bfieldmap.Tesla, b[2] / bfieldmap.Tesla}
}

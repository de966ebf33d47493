package bfieldmap

import (
	"math"

	"github.com/rs/zerolog"
)

// Envelope is the conservative volume outside of which GetB returns
// DefaultField without looking at the zones. Lengths in mm, field in kT.
type Envelope struct {
	ZMax         float64 // max |z|
	RMax         float64 // max r
	ZBeam        float64 // beyond this |z| ...
	RBeam        float64 // ... points closer to the beam than this are excluded
	DefaultField float64 // returned on every component for misses
}

// DefaultEnvelope returns the envelope of the ATLAS toroid maps.
func DefaultEnvelope() Envelope {
	return Envelope{
		ZMax:         23000,
		RMax:         14000,
		ZBeam:        12850,
		RBeam:        60,
		DefaultField: 1e-8, // 0.1 gauss
	}
}

func (e Envelope) outside(z, r2 float64) bool {
	az := math.Abs(z)
	return az > e.ZMax || r2 > e.RMax*e.RMax || (az > e.ZBeam && r2 < e.RBeam*e.RBeam)
}

// defaultB is the field returned for points outside every zone.
func (e *Envelope) defaultB() [3]float64 {
	return [3]float64{e.DefaultField, e.DefaultField, e.DefaultField}
}

type options struct {
	log zerolog.Logger
	env Envelope
}

// Option configures map loading.
type Option func(*options)

// WithLogger sets the logger used while loading and building a map.
// The query path never logs.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithEnvelope overrides DefaultEnvelope.
func WithEnvelope(e Envelope) Option {
	return func(o *options) { o.env = e }
}

func buildOptions(opts []Option) options {
	o := options{log: zerolog.Nop(), env: DefaultEnvelope()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

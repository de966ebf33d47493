package bfieldmap

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain checks that BuildLUT and the concurrent query tests leave no
// goroutines behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// packInt encodes n >= 0 as a u-mode integer: base 42, high digits first,
// continuation digits from '!' and the last digit from 'K'.
func packInt(n int) string {
	var digits []byte
	for {
		digits = append(digits, byte(n%42))
		n /= 42
		if n == 0 {
			break
		}
	}
	var sb strings.Builder
	for i := len(digits) - 1; i > 0; i-- {
		sb.WriteByte('!' + digits[i])
	}
	sb.WriteByte('K' + digits[0])
	return sb.String()
}

// packSamples encodes xs as one u-mode record: second-order differences,
// sign folded, terminated by '}'.
func packSamples(xs []int16) string {
	var sb strings.Builder
	for k, x := range xs {
		s := int(x)
		if k >= 2 {
			s -= 2*int(xs[k-1]) - int(xs[k-2])
		}
		if s >= 0 {
			s = 2 * s
		} else {
			s = -2*s - 1
		}
		sb.WriteString(packInt(s))
	}
	sb.WriteByte('}')
	return sb.String()
}

// uniformZone returns an unsealed zone over the given ranges whose samples
// are all f.
func uniformZone(id int, z, r, phi []float64, scale float64, f Vector3[int16]) *Zone {
	zone := NewZone(id, z[0], z[len(z)-1], r[0], r[len(r)-1], phi[0], phi[len(phi)-1], scale)
	zone.Reserve(len(z), len(r), len(phi))
	for _, x := range z {
		zone.AppendMesh(AxisZ, x)
	}
	for _, x := range r {
		zone.AppendMesh(AxisR, x)
	}
	for _, x := range phi {
		zone.AppendMesh(AxisPhi, x)
	}
	for range len(z) * len(r) * len(phi) {
		zone.AppendField(f)
	}
	return zone
}

// radialMap is the single-zone map z in [0, 10], r in [0, 5], phi in
// [-π, π] with a uniform unit radial field.
func radialMap(t *testing.T, opts ...Option) *Map {
	t.Helper()
	m := New(opts...)
	m.AppendZone(uniformZone(1, []float64{0, 10}, []float64{0, 5},
		[]float64{-math.Pi, math.Pi}, 1, Vector3[int16]{R: 1}))
	require.NoError(t, m.BuildLUT())
	return m
}

func assertVec(t *testing.T, want, got [3]float64, delta float64, msgAndArgs ...any) {
	t.Helper()
	for i := range 3 {
		if math.Abs(want[i]-got[i]) > delta {
			t.Errorf("component %d: got %v, want %v (±%g) %v", i, got, want, delta, msgAndArgs)
			return
		}
	}
}

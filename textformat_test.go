package bfieldmap

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// textZone renders one zone table entry. The zone covers z [0, 10] mm,
// r [0, 5] mm and the full phi range with a field scale of 1 kT; slices
// holds jbs nbs jcoil ncoil jz jr jphi jfield nfield.
func textZone(version, id int, slices string) string {
	v6 := func(s string) string {
		if version == 6 {
			return s
		}
		return ""
	}
	return fmt.Sprintf("%d 0%s 0.0 0.01 2 0.0 0.005 2 -180.0 180.0 2 0 0.0\n"+
		"%s 0%s 0 0 0 0\n"+
		" 0.0 0.0 0.0 1000.0\n", id, v6(" 0"), slices, v6(" 0"))
}

// textMap renders a complete map: a placeholder zone followed by zone 1,
// a 2x2x2 grid from MESH entries 1-6 with conductor 1, holding a uniform
// unit radial field.
func textMap(version int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "FORMAT-VERSION %d\n", version)
	sb.WriteString("DATE 2008-06-30\nTIME 12:34:56\n")
	sb.WriteString("HEADERS 2\nsolenoid 7730 A\ntoroids 20500 A\n")
	sb.WriteString("ZONES 2\n")
	sb.WriteString(textZone(version, -1, " 0 0 0 0 0 0 0 0 0"))
	sb.WriteString(textZone(version, 1, " 1 1 0 0 1 3 5 0 8"))
	sb.WriteString("BIOT 1\n B F 0.001 0.0 0.0 0.0 0.0 1.0 0.0 0.0\n")
	sb.WriteString("COIL 1\n coil record that is not used\n")
	if version == 6 {
		sb.WriteString("AUXARR 2 AUX\n 0 0\n")
	} else {
		sb.WriteString("AUXARR 2\n 0 0\n")
	}
	sb.WriteString("MESH 6\n 0.0 0.01 0.0 0.005 -3.141592653589793 3.141592653589793\n")
	sb.WriteString("FIELD 8 1 I2PACK FBYTE\n")
	sb.WriteString("1 1 8\n")
	sb.WriteString(packSamples(make([]int16, 8)) + "\n")
	sb.WriteString(packSamples([]int16{1, 1, 1, 1, 1, 1, 1, 1}) + "\n")
	sb.WriteString(packSamples(make([]int16, 8)) + "\n")
	sb.WriteString("KLMN}\n")
	return sb.String()
}

func TestReadText(t *testing.T) {
	for _, version := range []int{5, 6} {
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			m, hdr, err := ReadTextHeader(strings.NewReader(textMap(version)))
			require.NoError(t, err)

			assert.Equal(t, version, hdr.Version)
			assert.Equal(t, "2008-06-30", hdr.Date)
			assert.Equal(t, "12:34:56", hdr.Time)
			assert.Equal(t, []string{"solenoid 7730 A", "toroids 20500 A"}, hdr.Lines)

			require.Equal(t, 1, m.NZone(), "placeholder zone dropped")
			z := m.ZoneAt(0)
			assert.Equal(t, 1, z.ID())
			assert.InDelta(t, 10.0, z.Max(AxisZ), 1e-12)
			assert.InDelta(t, 5.0, z.Max(AxisR), 1e-12)
			assert.InDelta(t, -math.Pi, z.Min(AxisPhi), 1e-12)
			assert.InDelta(t, math.Pi, z.Max(AxisPhi), 1e-12)
			assert.InDelta(t, 1.0, z.Scale(), 1e-12)
			assert.Equal(t, 8, z.NField())

			require.Equal(t, 1, z.NConductor())
			c := z.ConductorAt(0)
			assert.False(t, c.Finite())
			assert.InDelta(t, 1.0, c.P1()[0], 1e-12, "p1 converted to mm")
			assert.Equal(t, [3]float64{0, 0, 1}, c.P2(), "direction not scaled")

			assertVec(t, [3]float64{1, 0, 0}, m.GetB([3]float64{2, 0, 5}, nil), 1e-12)
			assertVec(t, [3]float64{0, 1, 0}, m.GetB([3]float64{0, 2, 5}, nil), 1e-12)
			assert.Equal(t, [3]float64{1e-8, 1e-8, 1e-8}, m.GetB([3]float64{0, 0, 100000}, nil))
		})
	}
}

func TestReadTextFiniteConductorScaled(t *testing.T) {
	in := strings.Replace(textMap(6), " B F 0.001 0.0 0.0 0.0 0.0 1.0", " B T 0.001 0.0 0.0 0.0 0.0 1.0", 1)
	m, err := ReadText(strings.NewReader(in))
	require.NoError(t, err)
	c := m.ZoneAt(0).ConductorAt(0)
	assert.True(t, c.Finite())
	assert.InDelta(t, 1000.0, c.P2()[2], 1e-9)
}

func TestReadTextErrors(t *testing.T) {
	cases := []struct {
		name string
		old  string
		new  string
		want error
	}{
		{"version", "FORMAT-VERSION 6", "FORMAT-VERSION 7", ErrVersion},
		{"format keyword", "FORMAT-VERSION", "FORMAT", ErrFormat},
		{"date keyword", "DATE", "DAY", ErrFormat},
		{"zones keyword", "ZONES 2", "ZONE 2", ErrFormat},
		{"zone count", "ZONES 2", "ZONES -2", ErrFormat},
		{"mesh size overflow", "\n1 0 0 0.0 0.01 2 0.0 0.005 2 ", "\n1 0 0 0.0 0.01 3 0.0 0.005 4611686018427387904 ", ErrFormat},
		{"non-numeric", "0.0 0.01 2", "0.0 abc 2", ErrFormat},
		{"mesh slice", " 1 1 0 0 1 3 5 0 8", " 1 1 0 0 99 3 5 0 8", ErrTableRange},
		{"conductor slice", " 1 1 0 0 1 3 5 0 8", " 1 4 0 0 1 3 5 0 8", ErrTableRange},
		{"field keyword", "FIELD 8 1", "FIELDS 8 1", ErrFormat},
		{"packing keyword", "I2PACK", "I4PACK", ErrFormat},
		{"zone id", "\n1 1 8\n", "\n1 2 8\n", ErrZoneMismatch},
		{"zone index", "\n1 1 8\n", "\n2 1 8\n", ErrTableRange},
		{"sample count", "\n1 1 8\n", "\n1 1 9\n", ErrTableRange},
		{"packed symbol", "\n1 1 8\n", "\n1 1 8\n{", ErrPackedCodec},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := strings.Replace(textMap(6), tc.old, tc.new, 1)
			require.NotEqual(t, textMap(6), in, "fixture not modified")
			m, err := ReadText(strings.NewReader(in))
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, tc.want), "got %v, want %v", err, tc.want)
		})
	}
}

func TestReadTextMeshSizeMismatch(t *testing.T) {
	// 9 samples read but the mesh has 2x2x2 lines
	in := strings.Replace(textMap(6), "FIELD 8 1", "FIELD 9 1", 1)
	in = strings.Replace(in, "\n1 1 8\n", "\n1 1 9\n", 1)
	in = strings.Replace(in, packSamples(make([]int16, 8)), packSamples(make([]int16, 9)), 2)
	in = strings.Replace(in, packSamples([]int16{1, 1, 1, 1, 1, 1, 1, 1}),
		packSamples([]int16{1, 1, 1, 1, 1, 1, 1, 1, 1}), 1)
	_, err := ReadText(strings.NewReader(in))
	assert.ErrorIs(t, err, ErrMesh)
}

func TestReadTextTruncated(t *testing.T) {
	full := textMap(6)
	for _, at := range []string{"FORMAT-VERSION", "DATE", "ZONES", "BIOT", "COIL", "AUXARR", "MESH", "FIELD", "1 1 8"} {
		cut := strings.Index(full, at)
		require.GreaterOrEqual(t, cut, 0, at)
		t.Run(at, func(t *testing.T) {
			_, err := ReadText(strings.NewReader(full[:cut]))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFormat)
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		})
	}
}

func TestReadTextHeaderLinesPastEOF(t *testing.T) {
	start := time.Now()
	_, err := ReadText(strings.NewReader("FORMAT-VERSION 5 DATE 1 TIME 1 HEADERS 60000000"))
	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Less(t, time.Since(start), time.Second)

	// input ends partway through the header lines
	in := strings.Replace(textMap(6), "HEADERS 2\n", "HEADERS 3\n", 1)
	_, err = ReadText(strings.NewReader(in[:strings.Index(in, "toroids")+len("toroids")]))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadTextErrorMentionsSection(t *testing.T) {
	in := strings.Replace(textMap(6), "\n1 1 8\n", "\n1 2 8\n", 1)
	_, err := ReadText(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read map field")
}

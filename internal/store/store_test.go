package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/geal-ai/bfieldmap"
)

func testMap(t *testing.T) *bfieldmap.Map {
	t.Helper()
	m := bfieldmap.New()
	for i, zr := range [][2]float64{{0, 100}, {100, 300}} {
		z := bfieldmap.NewZone(10+i, zr[0], zr[1], 0, 50, -math.Pi, math.Pi, 1e-7)
		for _, x := range []float64{zr[0], (zr[0] + zr[1]) / 2, zr[1]} {
			z.AppendMesh(bfieldmap.AxisZ, x)
		}
		for _, x := range []float64{0, 50} {
			z.AppendMesh(bfieldmap.AxisR, x)
		}
		for _, x := range []float64{-math.Pi, 0, math.Pi} {
			z.AppendMesh(bfieldmap.AxisPhi, x)
		}
		for k := range 3 * 2 * 3 {
			z.AppendField(bfieldmap.Vector3[int16]{Z: int16(k), R: int16(-k), Phi: int16(i)})
		}
		if i == 1 {
			z.AppendConductor(bfieldmap.NewConductor(true,
				[3]float64{0, 0, 0}, [3]float64{0, 0, 1000}, 5))
		}
		m.AppendZone(z)
	}
	require.NoError(t, m.BuildLUT())
	return m
}

func openSaved(t *testing.T) (*gorm.DB, *bfieldmap.Map) {
	t.Helper()
	db, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	m := testMap(t)
	require.NoError(t, Save(context.Background(), db, m))
	return db, m
}

func TestSaveLoad(t *testing.T) {
	db, m := openSaved(t)

	got, err := Load(context.Background(), db)
	require.NoError(t, err)
	if diff := cmp.Diff(m.Records(), got.Records()); diff != "" {
		t.Errorf("records mismatch (-saved +loaded):\n%s", diff)
	}

	var n int64
	require.NoError(t, db.Model(&ZoneRow{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)

	var size SizeRow
	require.NoError(t, db.First(&size).Error)
	assert.EqualValues(t, 1, size.MaxCond)
	assert.EqualValues(t, 18, size.MaxField)

	p := [3]float64{10, 20, 150}
	assert.Equal(t, m.GetB(p, nil), got.GetB(p, nil))
}

func TestSaveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.db")
	db, err := Open(path)
	require.NoError(t, err)
	m := testMap(t)
	require.NoError(t, Save(context.Background(), db, m))
	require.NoError(t, Close(db))

	db, err = Open(path)
	require.NoError(t, err)
	defer Close(db)
	got, err := Load(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, m.Records(), got.Records())
}

func TestSaveReplaces(t *testing.T) {
	db, _ := openSaved(t)

	small := bfieldmap.New()
	z := bfieldmap.NewZone(99, 0, 10, 0, 10, -math.Pi, math.Pi, 1)
	for _, a := range []bfieldmap.Axis{bfieldmap.AxisZ, bfieldmap.AxisR} {
		z.AppendMesh(a, 0)
		z.AppendMesh(a, 10)
	}
	z.AppendMesh(bfieldmap.AxisPhi, -math.Pi)
	z.AppendMesh(bfieldmap.AxisPhi, math.Pi)
	for range 8 {
		z.AppendField(bfieldmap.Vector3[int16]{R: 1})
	}
	small.AppendZone(z)
	require.NoError(t, small.BuildLUT())
	require.NoError(t, Save(context.Background(), db, small))

	got, err := Load(context.Background(), db)
	require.NoError(t, err)
	require.Equal(t, 1, got.NZone())
	assert.Equal(t, 99, got.ZoneAt(0).ID())

	var n int64
	require.NoError(t, db.Model(&SizeRow{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestLoadWithoutSizeRow(t *testing.T) {
	db, m := openSaved(t)
	require.NoError(t, db.Where("id = ?", 1).Delete(&SizeRow{}).Error)

	got, err := Load(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, m.Records(), got.Records())
}

func TestLoadErrors(t *testing.T) {
	t.Run("size row too small", func(t *testing.T) {
		db, _ := openSaved(t)
		require.NoError(t, db.Model(&SizeRow{}).Where("id = ?", 1).Update("max_field", 4).Error)
		_, err := Load(context.Background(), db)
		assert.ErrorIs(t, err, bfieldmap.ErrRecordSize)
	})
	t.Run("count disagrees with array", func(t *testing.T) {
		db, _ := openSaved(t)
		require.NoError(t, db.Model(&ZoneRow{}).Where("seq = ?", 2).Update("ncond", 3).Error)
		_, err := Load(context.Background(), db)
		assert.ErrorIs(t, err, bfieldmap.ErrRecordSize)
	})
	t.Run("canceled", func(t *testing.T) {
		db, _ := openSaved(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Load(ctx, db)
		assert.Error(t, err)
	})
}

// Package store keeps field maps in SQLite through gorm: one row per zone
// in bfield_map and the buffer sizes in bfield_map_size.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/geal-ai/bfieldmap"
)

// ZoneRow is one zone of a stored map.
type ZoneRow struct {
	Seq    int   `gorm:"primaryKey;autoIncrement:false"` // 1-based zone order
	ZoneID int32 `gorm:"column:id"`
	ZMin   float64
	ZMax   float64
	RMin   float64
	RMax   float64
	PhiMin float64
	PhiMax float64
	BScale float64 `gorm:"column:bscale"`
	NCond  int     `gorm:"column:ncond"`

	Finite []bool    `gorm:"serializer:json"`
	P1X    []float64 `gorm:"column:p1x;serializer:json"`
	P1Y    []float64 `gorm:"column:p1y;serializer:json"`
	P1Z    []float64 `gorm:"column:p1z;serializer:json"`
	P2X    []float64 `gorm:"column:p2x;serializer:json"`
	P2Y    []float64 `gorm:"column:p2y;serializer:json"`
	P2Z    []float64 `gorm:"column:p2z;serializer:json"`
	Curr   []float64 `gorm:"serializer:json"`

	NMeshZ   int       `gorm:"column:nmeshz"`
	MeshZ    []float64 `gorm:"column:meshz;serializer:json"`
	NMeshR   int       `gorm:"column:nmeshr"`
	MeshR    []float64 `gorm:"column:meshr;serializer:json"`
	NMeshPhi int       `gorm:"column:nmeshphi"`
	MeshPhi  []float64 `gorm:"column:meshphi;serializer:json"`

	NField   int     `gorm:"column:nfield"`
	FieldZ   []int16 `gorm:"column:fieldz;serializer:json"`
	FieldR   []int16 `gorm:"column:fieldr;serializer:json"`
	FieldPhi []int16 `gorm:"column:fieldphi;serializer:json"`
}

// TableName sets the table name.
func (*ZoneRow) TableName() string { return "bfield_map" }

// SizeRow holds the buffer sizes of a stored map.
type SizeRow struct {
	ID         uint `gorm:"primaryKey"`
	MaxCond    uint32
	MaxMeshZ   uint32 `gorm:"column:maxmeshz"`
	MaxMeshR   uint32 `gorm:"column:maxmeshr"`
	MaxMeshPhi uint32 `gorm:"column:maxmeshphi"`
	MaxField   uint32
}

// TableName sets the table name.
func (*SizeRow) TableName() string { return "bfield_map_size" }

// Open returns a connection to the SQLite database at path, or to a
// private in-memory database when path is empty, with the tables created.
func Open(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if path == "" {
		// every pooled connection would otherwise open its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&ZoneRow{}, &SizeRow{}); err != nil {
		return nil, fmt.Errorf("error migrating field map tables: %w", err)
	}
	return db, nil
}

// Close releases the connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save replaces the stored map with m.
func Save(ctx context.Context, db *gorm.DB, m *bfieldmap.Map) error {
	recs := m.Records()
	rows := make([]ZoneRow, len(recs))
	for i := range recs {
		rows[i] = toRow(i+1, &recs[i])
	}
	sizes := bfieldmap.Sizes(recs)

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ZoneRow{}).Error; err != nil {
			return fmt.Errorf("clear bfield_map: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&SizeRow{}).Error; err != nil {
			return fmt.Errorf("clear bfield_map_size: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert zones: %w", err)
			}
		}
		size := SizeRow{
			ID:         1,
			MaxCond:    sizes.MaxCond,
			MaxMeshZ:   sizes.MaxMeshZ,
			MaxMeshR:   sizes.MaxMeshR,
			MaxMeshPhi: sizes.MaxMeshPhi,
			MaxField:   sizes.MaxField,
		}
		if err := tx.Create(&size).Error; err != nil {
			return fmt.Errorf("insert sizes: %w", err)
		}
		return nil
	})
}

// Load reads the stored map and builds its lookup tables. Without a size
// row the sizes are derived from the zone rows themselves.
func Load(ctx context.Context, db *gorm.DB, opts ...bfieldmap.Option) (*bfieldmap.Map, error) {
	db = db.WithContext(ctx)
	var rows []ZoneRow
	if err := db.Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read bfield_map: %w", err)
	}
	recs := make([]bfieldmap.ZoneRecord, len(rows))
	for i := range rows {
		rec, err := rows[i].record()
		if err != nil {
			return nil, err
		}
		recs[i] = rec
	}

	var size SizeRow
	var sizes bfieldmap.SizeRecord
	err := db.First(&size).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		sizes = bfieldmap.Sizes(recs)
	case err != nil:
		return nil, fmt.Errorf("read bfield_map_size: %w", err)
	default:
		sizes = bfieldmap.SizeRecord{
			MaxCond:    size.MaxCond,
			MaxMeshZ:   size.MaxMeshZ,
			MaxMeshR:   size.MaxMeshR,
			MaxMeshPhi: size.MaxMeshPhi,
			MaxField:   size.MaxField,
		}
	}
	for i := range recs {
		if err := sizes.Check(&recs[i]); err != nil {
			return nil, err
		}
	}
	return bfieldmap.FromRecords(recs, opts...)
}

func toRow(seq int, r *bfieldmap.ZoneRecord) ZoneRow {
	return ZoneRow{
		Seq:      seq,
		ZoneID:   r.ID,
		ZMin:     r.ZMin,
		ZMax:     r.ZMax,
		RMin:     r.RMin,
		RMax:     r.RMax,
		PhiMin:   r.PhiMin,
		PhiMax:   r.PhiMax,
		BScale:   r.BScale,
		NCond:    len(r.Finite),
		Finite:   r.Finite,
		P1X:      r.P1X,
		P1Y:      r.P1Y,
		P1Z:      r.P1Z,
		P2X:      r.P2X,
		P2Y:      r.P2Y,
		P2Z:      r.P2Z,
		Curr:     r.Curr,
		NMeshZ:   len(r.MeshZ),
		MeshZ:    r.MeshZ,
		NMeshR:   len(r.MeshR),
		MeshR:    r.MeshR,
		NMeshPhi: len(r.MeshPhi),
		MeshPhi:  r.MeshPhi,
		NField:   len(r.FieldZ),
		FieldZ:   r.FieldZ,
		FieldR:   r.FieldR,
		FieldPhi: r.FieldPhi,
	}
}

// record converts a row back, checking the stored counts against the arrays.
func (z *ZoneRow) record() (bfieldmap.ZoneRecord, error) {
	for _, c := range []struct {
		name     string
		count, n int
	}{
		{"ncond", z.NCond, len(z.Finite)},
		{"nmeshz", z.NMeshZ, len(z.MeshZ)},
		{"nmeshr", z.NMeshR, len(z.MeshR)},
		{"nmeshphi", z.NMeshPhi, len(z.MeshPhi)},
		{"nfield", z.NField, len(z.FieldZ)},
	} {
		if c.count != c.n {
			return bfieldmap.ZoneRecord{}, fmt.Errorf("%w: zone %d %s=%d but %d stored",
				bfieldmap.ErrRecordSize, z.ZoneID, c.name, c.count, c.n)
		}
	}
	return bfieldmap.ZoneRecord{
		ID:       z.ZoneID,
		ZMin:     z.ZMin,
		ZMax:     z.ZMax,
		RMin:     z.RMin,
		RMax:     z.RMax,
		PhiMin:   z.PhiMin,
		PhiMax:   z.PhiMax,
		BScale:   z.BScale,
		Finite:   z.Finite,
		P1X:      z.P1X,
		P1Y:      z.P1Y,
		P1Z:      z.P1Z,
		P2X:      z.P2X,
		P2Y:      z.P2Y,
		P2Z:      z.P2Z,
		Curr:     z.Curr,
		MeshZ:    z.MeshZ,
		MeshR:    z.MeshR,
		MeshPhi:  z.MeshPhi,
		FieldZ:   z.FieldZ,
		FieldR:   z.FieldR,
		FieldPhi: z.FieldPhi,
	}, nil
}

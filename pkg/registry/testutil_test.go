package registry

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"egressos/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var brt = time.FixedZone("BRT", -3*3600)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Set(year int, month time.Month, day, hour int) {
	c.t = time.Date(year, month, day, hour, 0, 0, 0, brt)
}

// newTestDB opens a private in-memory database for one test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Person{}, &models.Photo{}, &models.JudicialNote{}))
	return db
}

func newTestService(t *testing.T) (*Service, *testClock, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	clock := &testClock{}
	clock.Set(2026, time.March, 10, 14)
	return NewService(db, brt, WithClock(clock.Now)), clock, db
}

func mustCreate(t *testing.T, s *Service, in PersonInput) models.Person {
	t.Helper()
	p, _, err := s.CreatePerson(context.Background(), in, nil)
	require.NoError(t, err)
	return p
}

func pngUpload(t *testing.T, name string, shade uint8) *Upload {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.NRGBA{R: shade, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &Upload{Filename: name, Data: buf.Bytes()}
}

func countRows(t *testing.T, db *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

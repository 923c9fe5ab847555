package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"egressos/models"
	"egressos/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *registry.Service {
	t.Helper()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Person{}, &models.Photo{}, &models.JudicialNote{}))

	svc := registry.NewService(db, time.FixedZone("BRT", -3*3600))
	ctx := context.Background()
	for _, in := range []registry.PersonInput{
		{Infopen: "a1", FullName: "Ana", Municipality: "Capital"},
		{Infopen: "b2", FullName: "Bruno", Municipality: "Arapiraca"},
		{Infopen: "c3", FullName: "Carla", Municipality: "capital"},
	} {
		_, _, err := svc.CreatePerson(ctx, in, nil)
		require.NoError(t, err)
	}
	_, err = svc.CreateJudicial(ctx, registry.JudicialInput{Infopen: "a1", NotificationDate: "2026-02-01", SEEUNumber: "123"})
	require.NoError(t, err)
	return svc
}

func readCSV(t *testing.T, doc []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(doc, []byte("\xef\xbb\xbf")), "missing BOM")
	records, err := csv.NewReader(bytes.NewReader(doc[3:])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRunPersonsCSVToFile(t *testing.T) {
	svc := newTestService(t)
	path := filepath.Join(t.TempDir(), "out", "persons.csv")

	res, err := Run(context.Background(), svc, Options{
		Kind:   KindPersons,
		Person: registry.PersonFilterForm{Municipality: "CAPITAL"},
	}, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)

	doc, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, res.Bytes, len(doc))
	records := readCSV(t, doc)
	require.Len(t, records, 3)
	assert.Equal(t, registry.PersonCSVHeader, records[0])
	assert.Equal(t, "A1", records[1][1])
	assert.Equal(t, "C3", records[2][1])
}

func TestRunJudicialCSVToStdout(t *testing.T) {
	svc := newTestService(t)
	var out bytes.Buffer

	res, err := Run(context.Background(), svc, Options{Kind: KindJudicial}, "-", &out)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)
	records := readCSV(t, out.Bytes())
	require.Len(t, records, 2)
	assert.Equal(t, registry.JudicialCSVHeader, records[0])
}

func TestBuildXLSX(t *testing.T) {
	svc := newTestService(t)
	doc, res, err := Build(context.Background(), svc, Options{Kind: KindPersons, Format: FormatXLSX})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)

	f, err := excelize.OpenReader(bytes.NewReader(doc))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestBuildReportsFilterWarnings(t *testing.T) {
	svc := newTestService(t)
	_, res, err := Build(context.Background(), svc, Options{Person: registry.PersonFilterForm{ModifiedOn: "31/02/2026"}})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warnings)
	assert.Equal(t, 3, res.Rows)
}

func TestBuildRejectsUnknownOptions(t *testing.T) {
	svc := newTestService(t)
	_, _, err := Build(context.Background(), svc, Options{Kind: "staff"})
	assert.Error(t, err)
	_, _, err = Build(context.Background(), svc, Options{Kind: KindJudicial, Format: "pdf"})
	assert.Error(t, err)
}

func TestDefaultFilename(t *testing.T) {
	assert.Equal(t, "registros_exportados.csv", DefaultFilename(KindPersons, FormatCSV))
	assert.Equal(t, "registros_seeu_exportados.xlsx", DefaultFilename(KindJudicial, FormatXLSX))
}

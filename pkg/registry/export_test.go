package registry

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"testing"
	"time"

	"egressos/pkg/photo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func parseCSV(t *testing.T, doc []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(doc, []byte("\xEF\xBB\xBF")), "document must start with a UTF-8 BOM")
	records, err := csv.NewReader(bytes.NewReader(doc[3:])).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteCSV(t *testing.T) {
	doc, err := WriteCSV([]string{"A", "B"}, [][]string{{"1", "x,y"}, {"", "linha\nquebrada"}})
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBFA,B\r\n1,\"x,y\"\r\n,\"linha\nquebrada\"\r\n", string(doc))
}

func TestExportPersonsCSVRoundTrip(t *testing.T) {
	s, clock, _ := newTestService(t)
	ctx := context.Background()

	withPhoto := pngUpload(t, "c1.png", 80)
	_, _, err := s.CreatePerson(ctx, PersonInput{
		Infopen: "C1", FullName: "Carlos Alberto", CPF: "123.456.789-00", Phone: "82999991234",
		Street: "Rua do Sol", Neighborhood: "Centro", Number: "12", Municipality: "Capital",
		Unit: "1 BPM", Company: "2 CIA", JudicialRestrictions: "Não sair da comarca",
		Observations: "texto, com \"aspas\"", Latitude: "-9.66", Longitude: "-35.73",
	}, withPhoto)
	require.NoError(t, err)
	clock.Set(2026, time.January, 2, 7)
	mustCreate(t, s, PersonInput{Infopen: "C2", FullName: "Beatriz Costa", Municipality: "CAPITAL"})
	mustCreate(t, s, PersonInput{Infopen: "I1", FullName: "Davi Interior", Municipality: "Interior"})

	f := PersonFilter{Municipality: "CAPITAL"}
	doc, n, err := s.ExportPersonsCSV(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records := parseCSV(t, doc)
	require.NotEmpty(t, records)
	assert.Equal(t, PersonCSVHeader, records[0])

	listed, err := s.AllPersons(ctx, f)
	require.NoError(t, err)
	require.Len(t, records[1:], len(listed))
	for i, p := range listed {
		row := records[i+1]
		require.Len(t, row, len(PersonCSVHeader))
		assert.Equal(t, strconv.FormatUint(uint64(p.ID), 10), row[0])
		assert.Equal(t, []string{
			p.Infopen, p.FullName, p.CPF, p.Phone, p.Street, p.Neighborhood, p.Number,
			p.Municipality, p.Unit, p.Company, p.JudicialRestrictions, p.Observations,
			p.Latitude, p.Longitude,
		}, row[1:15])
		assert.Equal(t, p.ModifiedAt.In(brt).Format("02/01/2006 15:04:05"), row[15])
	}

	// ordered by name: BEATRIZ before CARLOS
	assert.Equal(t, "BEATRIZ COSTA", records[1][2])
	assert.Equal(t, "02/01/2026 07:00:00", records[1][15])
	assert.Equal(t, "", records[1][16])
	assert.Equal(t, "10/03/2026 14:00:00", records[2][15])
	assert.Equal(t, photo.Encode(withPhoto.Data).Base64, records[2][16])
	assert.Equal(t, `TEXTO, COM "ASPAS"`, records[2][12])
}

func TestExportPersonsCSVKeepsEmbeddedNewlines(t *testing.T) {
	s, _, _ := newTestService(t)
	mustCreate(t, s, PersonInput{Infopen: "N1", FullName: "Nadia", Observations: "linha\nquebrada"})

	doc, n, err := s.ExportPersonsCSV(context.Background(), PersonFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, string(doc), "\"LINHA\nQUEBRADA\"")
	assert.NotContains(t, string(doc), "LINHA\r\nQUEBRADA")
	assert.True(t, bytes.HasSuffix(doc, []byte("\r\n")))
}

func TestExportPersonsCSVEmpty(t *testing.T) {
	s, _, _ := newTestService(t)
	doc, n, err := s.ExportPersonsCSV(context.Background(), PersonFilter{Infopen: "nothing"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, [][]string{PersonCSVHeader}, parseCSV(t, doc))
}

func TestExportJudicialCSV(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, s, PersonInput{Infopen: "S1", FullName: "Sergio"})
	_, err := s.CreateJudicial(ctx, JudicialInput{Infopen: "S1", NotificationDate: "2026-02-05", SEEUNumber: "123", Protocol: "P9", Annotations: "obs"})
	require.NoError(t, err)
	_, err = s.CreateJudicial(ctx, JudicialInput{Infopen: "S1", SEEUNumber: "456"})
	require.NoError(t, err)

	doc, n, err := s.ExportJudicialCSV(ctx, JudicialFilter{SEEUNumber: "123"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	records := parseCSV(t, doc)
	require.Len(t, records, 2)
	assert.Equal(t, JudicialCSVHeader, records[0])
	assert.Equal(t, []string{"S1", "SERGIO", "05/02/2026", "123", "P9", "obs", "10/03/2026 14:00:00"}, records[1])

	doc, _, err = s.ExportJudicialCSV(ctx, JudicialFilter{SEEUNumber: "456"})
	require.NoError(t, err)
	records = parseCSV(t, doc)
	require.Len(t, records, 2)
	assert.Equal(t, "", records[1][2])
}

func TestExportXLSX(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	_, _, err := s.CreatePerson(ctx, PersonInput{Infopen: "X1", FullName: "Xavier", Municipality: "Capital"}, pngUpload(t, "x.png", 1))
	require.NoError(t, err)

	doc, n, err := s.ExportPersonsXLSX(ctx, PersonFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	wb, err := excelize.OpenReader(bytes.NewReader(doc))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"Egressos"}, wb.GetSheetList())
	rows, err := wb.GetRows("Egressos")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, PersonCSVHeader[:len(PersonCSVHeader)-1], rows[0])
	assert.Equal(t, "X1", rows[1][1])
	assert.Equal(t, "XAVIER", rows[1][2])

	doc, _, err = s.ExportJudicialXLSX(ctx, JudicialFilter{})
	require.NoError(t, err)
	wb2, err := excelize.OpenReader(bytes.NewReader(doc))
	require.NoError(t, err)
	defer wb2.Close()
	rows, err = wb2.GetRows("SEEU")
	require.NoError(t, err)
	assert.Equal(t, [][]string{JudicialCSVHeader}, rows)
}

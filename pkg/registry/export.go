package registry

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"time"

	"egressos/models"
	"egressos/pkg/metrics"
)

const (
	dateTimeLayout = "02/01/2006 15:04:05"
	dateLayout     = "02/01/2006"
)

// utf8BOM makes spreadsheet applications open the document as UTF-8.
const utf8BOM = "\ufeff"

const (
	PersonCSVFilename   = "registros_exportados.csv"
	JudicialCSVFilename = "registros_seeu_exportados.csv"
	CSVContentType      = "text/csv; charset=utf-8"
)

// PersonCSVHeader is the fixed column order of the Person export.
var PersonCSVHeader = []string{
	"ID",
	"Infopen",
	"Nome Completo",
	"CPF",
	"Telefone",
	"Rua",
	"Bairro",
	"Número",
	"Município",
	"UEOP",
	"CIA",
	"Restrições Judiciais",
	"Observações",
	"Latitude",
	"Longitude",
	"Data de Modificação",
	"Imagem Base64",
}

// JudicialCSVHeader is the fixed column order of the JudicialNote export.
var JudicialCSVHeader = []string{
	"Infopen",
	"Nome",
	"Data da Notificação",
	"Número do SEEU",
	"Protocolo",
	"Anotações",
	"Data do Registro",
}

// PersonExportRow is a Person with its Photo payload, empty when it has none.
type PersonExportRow struct {
	models.Person
	ImageB64 string `gorm:"column:image_b64"`
}

// PersonRecords loads every Person matching f joined to its Photo.
func (s *Service) PersonRecords(ctx context.Context, f PersonFilter) ([]PersonExportRow, error) {
	var rows []PersonExportRow
	err := s.personQuery(ctx, f).
		Select(personTable + ".*, " + photoTable + ".image_b64").
		Joins("LEFT JOIN " + photoTable + " ON " + photoTable + ".infopen = " + personTable + ".infopen").
		Order(personOrder).
		Scan(&rows).Error
	if err != nil {
		return nil, &StorageError{Op: "export persons", Err: err}
	}
	return rows, nil
}

// PersonRow renders one export row in PersonCSVHeader order.
func (s *Service) PersonRow(r PersonExportRow) []string {
	return []string{
		strconv.FormatUint(uint64(r.ID), 10),
		r.Infopen,
		r.FullName,
		r.CPF,
		r.Phone,
		r.Street,
		r.Neighborhood,
		r.Number,
		r.Municipality,
		r.Unit,
		r.Company,
		r.JudicialRestrictions,
		r.Observations,
		r.Latitude,
		r.Longitude,
		formatTime(r.ModifiedAt, s.loc, dateTimeLayout),
		r.ImageB64,
	}
}

// JudicialRow renders one JudicialNote in JudicialCSVHeader order.
func (s *Service) JudicialRow(n JudicialListItem) []string {
	notified := ""
	if n.NotificationDate != nil {
		// date-only column; the stored calendar day is kept as is
		notified = n.NotificationDate.Format(dateLayout)
	}
	return []string{
		n.Infopen,
		n.PersonName,
		notified,
		n.SEEUNumber,
		n.Protocol,
		n.Annotations,
		formatTime(n.RegisteredAt, s.loc, dateTimeLayout),
	}
}

func formatTime(t time.Time, loc *time.Location, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(layout)
}

// WriteCSV renders header and rows as a BOM-prefixed document whose records
// end in CRLF. Newlines inside quoted cells are written as stored.
func WriteCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	w := csv.NewWriter(&buf)
	// UseCRLF would also rewrite embedded newlines, so terminate each record by hand
	writeRecord := func(rec []string) error {
		if err := w.Write(rec); err != nil {
			return err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteString("\r\n")
		return nil
	}
	if err := writeRecord(header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := writeRecord(r); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ExportPersonsCSV builds the Person CSV for f. It also returns the number of
// data rows written.
func (s *Service) ExportPersonsCSV(ctx context.Context, f PersonFilter) ([]byte, int, error) {
	records, err := s.PersonRecords(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = s.PersonRow(r)
	}
	doc, err := WriteCSV(PersonCSVHeader, rows)
	if err != nil {
		return nil, 0, err
	}
	observeExport("person", "csv", len(rows))
	return doc, len(rows), nil
}

// ExportJudicialCSV builds the JudicialNote CSV for f.
func (s *Service) ExportJudicialCSV(ctx context.Context, f JudicialFilter) ([]byte, int, error) {
	notes, err := s.AllJudicial(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	rows := make([][]string, len(notes))
	for i, n := range notes {
		rows[i] = s.JudicialRow(n)
	}
	doc, err := WriteCSV(JudicialCSVHeader, rows)
	if err != nil {
		return nil, 0, err
	}
	observeExport("judicial", "csv", len(rows))
	return doc, len(rows), nil
}

func observeExport(kind, format string, rows int) {
	metrics.Exports.WithLabelValues(kind, format).Inc()
	metrics.ExportedRows.WithLabelValues(kind, format).Add(float64(rows))
}

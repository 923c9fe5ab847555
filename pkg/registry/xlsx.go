package registry

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	PersonXLSXFilename   = "registros_exportados.xlsx"
	JudicialXLSXFilename = "registros_seeu_exportados.xlsx"
	XLSXContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// BuildXLSX writes header and rows to a single sheet workbook with a frozen,
// styled header row.
func BuildXLSX(sheet string, header []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("delete default sheet: %w", err)
		}
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeXLSXRow(f, sheet, 1, header); err != nil {
		return nil, err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("set header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	for i, row := range rows {
		if err := writeXLSXRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeXLSXRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// ExportPersonsXLSX builds the Person workbook for f. The photo column is
// left out: base64 payloads exceed the spreadsheet cell limit.
func (s *Service) ExportPersonsXLSX(ctx context.Context, f PersonFilter) ([]byte, int, error) {
	persons, err := s.AllPersons(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	header := PersonCSVHeader[:len(PersonCSVHeader)-1]
	rows := make([][]string, len(persons))
	for i, p := range persons {
		row := s.PersonRow(PersonExportRow{Person: p})
		rows[i] = row[:len(row)-1]
	}
	doc, err := BuildXLSX("Egressos", header, rows)
	if err != nil {
		return nil, 0, err
	}
	observeExport("person", "xlsx", len(rows))
	return doc, len(rows), nil
}

// ExportJudicialXLSX builds the JudicialNote workbook for f.
func (s *Service) ExportJudicialXLSX(ctx context.Context, f JudicialFilter) ([]byte, int, error) {
	notes, err := s.AllJudicial(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	rows := make([][]string, len(notes))
	for i, n := range notes {
		rows[i] = s.JudicialRow(n)
	}
	doc, err := BuildXLSX("SEEU", JudicialCSVHeader, rows)
	if err != nil {
		return nil, 0, err
	}
	observeExport("judicial", "xlsx", len(rows))
	return doc, len(rows), nil
}

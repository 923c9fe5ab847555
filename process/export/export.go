// Package export writes registry exports from the command line.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"egressos/pkg/registry"
)

const (
	KindPersons  = "persons"
	KindJudicial = "judicial"

	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Options selects what to export. Person and Judicial carry the raw filter
// fields; only the one matching Kind is used.
type Options struct {
	Kind     string
	Format   string
	Person   registry.PersonFilterForm
	Judicial registry.JudicialFilterForm
}

// Result describes a finished export.
type Result struct {
	Rows     int
	Bytes    int
	Warnings []registry.Warning
}

// Build renders the export document selected by opts.
func Build(ctx context.Context, svc *registry.Service, opts Options) ([]byte, Result, error) {
	var (
		doc  []byte
		rows int
		err  error
		res  Result
	)
	switch opts.Kind {
	case KindPersons, "":
		f, warnings := registry.ParsePersonFilter(opts.Person, svc.Location())
		res.Warnings = warnings
		switch opts.Format {
		case FormatCSV, "":
			doc, rows, err = svc.ExportPersonsCSV(ctx, f)
		case FormatXLSX:
			doc, rows, err = svc.ExportPersonsXLSX(ctx, f)
		default:
			return nil, Result{}, fmt.Errorf("unknown format %q (use csv or xlsx)", opts.Format)
		}
	case KindJudicial:
		f := registry.ParseJudicialFilter(opts.Judicial)
		switch opts.Format {
		case FormatCSV, "":
			doc, rows, err = svc.ExportJudicialCSV(ctx, f)
		case FormatXLSX:
			doc, rows, err = svc.ExportJudicialXLSX(ctx, f)
		default:
			return nil, Result{}, fmt.Errorf("unknown format %q (use csv or xlsx)", opts.Format)
		}
	default:
		return nil, Result{}, fmt.Errorf("unknown kind %q (use persons or judicial)", opts.Kind)
	}
	if err != nil {
		return nil, Result{}, err
	}
	res.Rows = rows
	res.Bytes = len(doc)
	return doc, res, nil
}

// DefaultFilename is the name the web download uses for the same export.
func DefaultFilename(kind, format string) string {
	switch {
	case kind == KindJudicial && format == FormatXLSX:
		return registry.JudicialXLSXFilename
	case kind == KindJudicial:
		return registry.JudicialCSVFilename
	case format == FormatXLSX:
		return registry.PersonXLSXFilename
	}
	return registry.PersonCSVFilename
}

// Run builds the export and writes it to path, or to stdout when path is "-".
func Run(ctx context.Context, svc *registry.Service, opts Options, path string, stdout io.Writer) (Result, error) {
	doc, res, err := Build(ctx, svc, opts)
	if err != nil {
		return Result{}, err
	}
	if path == "-" {
		_, err = stdout.Write(doc)
		return res, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, err
		}
	}
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", path, err)
	}
	return res, nil
}

// Command export writes the Person or JudicialNote export for a filter to a
// file or stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"egressos/pkg/registry"
	"egressos/pkg/store"
	"egressos/process/export"

	_ "time/tzdata"
)

func main() {
	kind := flag.String("kind", export.KindPersons, "what to export: persons or judicial")
	format := flag.String("format", export.FormatCSV, "csv or xlsx")
	out := flag.String("out", "", "output file, - for stdout (default: the download file name)")

	var pf registry.PersonFilterForm
	flag.StringVar(&pf.Infopen, "infopen", "", "persons: infopen contains")
	flag.StringVar(&pf.FullName, "name", "", "persons: full name contains")
	flag.StringVar(&pf.CPF, "cpf", "", "persons: CPF contains")
	flag.StringVar(&pf.Municipality, "municipio", "", "persons: municipality contains")
	flag.StringVar(&pf.Unit, "ueop", "", "persons: UEOP contains")
	flag.StringVar(&pf.Company, "cia", "", "persons: CIA contains")
	flag.StringVar(&pf.ModifiedOn, "modified-on", "", "persons: modified on day (YYYY-MM-DD)")
	flag.StringVar(&pf.ModifiedYear, "year", "", "persons: modified in year")
	flag.StringVar(&pf.ModifiedMonth, "month", "", "persons: modified in month (1-12)")

	var jf registry.JudicialFilterForm
	flag.StringVar(&jf.Infopen, "judicial-infopen", "", "judicial: infopen contains")
	flag.StringVar(&jf.Name, "judicial-name", "", "judicial: person name contains")
	flag.StringVar(&jf.SEEUNumber, "seeu", "", "judicial: SEEU number contains")
	flag.Parse()

	store.LoadDotEnv(".env")
	loc, err := time.LoadLocation(envOr("TIMEZONE", "America/Sao_Paulo"))
	if err != nil {
		fatalf("invalid TIMEZONE: %v", err)
	}
	db, err := store.Open(store.OptionsFromEnv())
	if err != nil {
		fatalf("%v", err)
	}

	path := *out
	if path == "" {
		path = export.DefaultFilename(*kind, *format)
	}
	svc := registry.NewService(db, loc)
	res, err := export.Run(context.Background(), svc, export.Options{
		Kind:     *kind,
		Format:   *format,
		Person:   pf,
		Judicial: jf,
	}, path, os.Stdout)
	if err != nil {
		fatalf("export failed: %v", err)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.Field, w.Message)
	}
	if path != "-" {
		fmt.Fprintf(os.Stderr, "wrote %d rows (%d bytes) to %s\n", res.Rows, res.Bytes, path)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

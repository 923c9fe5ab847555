package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"egressos/pkg/store"
	"egressos/process/sanitize"
)

func main() {
	var (
		dryRun = flag.Bool("dry-run", true, "Don't perform destructive actions; show what would be done")
		yes    = flag.Bool("yes", false, "Confirm destructive action (required to actually truncate)")
		reseed = flag.Bool("reseed", false, "After truncation, reseed roles and the admin user")
		tables = flag.String("tables", "", "Comma-separated list of tables to truncate (default app tables)")
	)
	flag.Parse()

	store.LoadDotEnv(".env")
	db, err := store.Open(store.OptionsFromEnv())
	if err != nil {
		log.Fatal(err)
	}

	opts := sanitize.Options{DryRun: *dryRun, Yes: *yes, Reseed: *reseed, AdminPassword: os.Getenv("ADMIN_PASSWORD")}
	if opts.AdminPassword == "" {
		opts.AdminPassword = "admin123"
	}
	if *tables != "" {
		valid, invalid := sanitize.ParseTables(*tables)
		for _, t := range invalid {
			log.Printf("warning: skipping invalid table name '%s'", t)
		}
		opts.Tables = valid
		if len(valid) == 0 {
			log.Fatal("no valid table names given")
		}
	}

	if _, err := sanitize.Run(context.Background(), db, opts, os.Stdout); err != nil {
		if errors.Is(err, sanitize.ErrNotConfirmed) {
			fmt.Println("Destructive operation. Pass --yes to confirm execution. Aborting.")
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

// Package sanitize empties registry tables, for resetting development and
// staging databases.
package sanitize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"egressos/pkg/staff"
	"egressos/pkg/store"

	"gorm.io/gorm"
)

// DefaultTables lists the application tables, children first.
var DefaultTables = []string{"images", "judiciary", "user_registration", "refresh_tokens", "users", "roles"}

var nameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrNotConfirmed is returned when a destructive run lacks confirmation.
var ErrNotConfirmed = errors.New("destructive operation not confirmed; pass --yes")

type Options struct {
	Tables        []string
	DryRun        bool
	Yes           bool
	Reseed        bool
	AdminPassword string
	Timeout       time.Duration
}

// ParseTables splits a comma-separated list, dropping blanks and invalid
// identifiers. Invalid names are returned separately for reporting.
func ParseTables(list string) (valid, invalid []string) {
	for _, p := range strings.Split(list, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !nameRe.MatchString(p) {
			invalid = append(invalid, p)
			continue
		}
		valid = append(valid, p)
	}
	return valid, invalid
}

// Run empties the requested tables that exist and returns their names.
// Progress is written to out.
func Run(ctx context.Context, db *gorm.DB, opts Options, out io.Writer) ([]string, error) {
	tables := opts.Tables
	if len(tables) == 0 {
		tables = DefaultTables
	}
	var existing []string
	for _, t := range tables {
		if !nameRe.MatchString(t) {
			fmt.Fprintf(out, "warning: skipping invalid table name %q\n", t)
			continue
		}
		if db.Migrator().HasTable(t) {
			existing = append(existing, t)
		} else {
			fmt.Fprintf(out, "info: table %s not found, skipping\n", t)
		}
	}
	if len(existing) == 0 {
		fmt.Fprintln(out, "no requested tables present in the database; nothing to do")
		return nil, nil
	}

	fmt.Fprintln(out, "Tables considered for truncation:")
	for _, t := range existing {
		fmt.Fprintf(out, " - %s\n", t)
	}
	if opts.DryRun {
		fmt.Fprintln(out, "dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return existing, nil
	}
	if !opts.Yes {
		return nil, ErrNotConfirmed
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := truncate(db.WithContext(ctx), existing, out); err != nil {
		return nil, fmt.Errorf("truncate failed: %w", err)
	}
	fmt.Fprintln(out, "Truncate completed.")

	if opts.Reseed {
		if _, err := staff.Seed(db.WithContext(ctx), opts.AdminPassword); err != nil {
			return existing, fmt.Errorf("reseed failed: %w", err)
		}
		fmt.Fprintf(out, "Reseeded roles and %s user.\n", staff.AdminUsername)
	}
	return existing, nil
}

func truncate(db *gorm.DB, tables []string, out io.Writer) error {
	quoted := make([]string, 0, len(tables))
	for _, t := range tables {
		quoted = append(quoted, fmt.Sprintf("%q", t))
	}
	if db.Dialector.Name() == store.DriverPostgres {
		stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
		fmt.Fprintf(out, "Executing: %s\n", stmt)
		return db.Exec(stmt).Error
	}
	// sqlite has no TRUNCATE; delete in the given order inside one transaction
	return db.Transaction(func(tx *gorm.DB) error {
		for _, q := range quoted {
			stmt := "DELETE FROM " + q
			fmt.Fprintf(out, "Executing: %s\n", stmt)
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

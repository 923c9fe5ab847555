// Package store opens the record store for the server and the command-line
// tools.
package store

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options selects the database. DSN is used by postgres, Path by sqlite.
type Options struct {
	Driver   string
	DSN      string
	Path     string
	LogLevel logger.LogLevel
}

// OptionsFromEnv reads DB_DRIVER, DB_DSN and DB_PATH.
func OptionsFromEnv() Options {
	o := Options{
		Driver:   strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER"))),
		DSN:      strings.TrimSpace(os.Getenv("DB_DSN")),
		Path:     strings.TrimSpace(os.Getenv("DB_PATH")),
		LogLevel: logger.Warn,
	}
	if o.Driver == "" {
		o.Driver = DriverPostgres
	}
	if o.Path == "" {
		o.Path = "egressos.db"
	}
	return o
}

func Open(o Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch o.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(o.Path)
	case DriverPostgres, "":
		if o.DSN == "" {
			return nil, fmt.Errorf("DB_DSN is not set; it is required for postgres")
		}
		dialector = postgres.Open(o.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q (use postgres or sqlite)", o.Driver)
	}
	if o.LogLevel == 0 {
		o.LogLevel = logger.Warn
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(o.LogLevel)})
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", o.Driver, err)
	}
	return db, nil
}

// ForeignKey is one foreign key constraint as reported by postgres.
type ForeignKey struct {
	Name       string
	Table      string
	Columns    string
	RefTable   string
	RefColumns string
	Definition string
}

// ForeignKeys lists the foreign key constraints of a postgres database. Other
// dialects report none.
func ForeignKeys(ctx context.Context, db *gorm.DB) ([]ForeignKey, error) {
	if db.Dialector.Name() != DriverPostgres {
		return nil, nil
	}
	rows, err := db.WithContext(ctx).Raw(`
		SELECT
		  con.conname AS name,
		  rel.relname AS table_name,
		  array_to_string(array_agg(att.attname ORDER BY u.ord), ',') AS columns,
		  confrel.relname AS ref_table,
		  array_to_string(array_agg(att2.attname ORDER BY u.ord), ',') AS ref_columns,
		  pg_get_constraintdef(con.oid) AS definition
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_class confrel ON confrel.oid = con.confrelid
		JOIN unnest(con.conkey) WITH ORDINALITY AS u(attnum, ord) ON true
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = u.attnum
		LEFT JOIN unnest(con.confkey) WITH ORDINALITY AS v(confkey, ord2) ON v.ord2 = u.ord
		LEFT JOIN pg_attribute att2 ON att2.attrelid = con.confrelid AND att2.attnum = v.confkey
		WHERE con.contype = 'f'
		GROUP BY con.oid, con.conname, rel.relname, confrel.relname
		ORDER BY rel.relname, con.conname`).Rows()
	if err != nil {
		return nil, fmt.Errorf("query constraints: %w", err)
	}
	defer rows.Close()

	var out []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Name, &fk.Table, &fk.Columns, &fk.RefTable, &fk.RefColumns, &fk.Definition); err != nil {
			return nil, fmt.Errorf("scan constraint: %w", err)
		}
		out = append(out, fk)
	}
	return out, rows.Err()
}

// HasForeignKey reports whether table has a foreign key column referencing refTable.
func HasForeignKey(fks []ForeignKey, table, column, refTable string) bool {
	for _, fk := range fks {
		if fk.Table == table && fk.RefTable == refTable && fk.Columns == column {
			return true
		}
	}
	return false
}

package main

import (
	"context"
	"fmt"

	"egressos/models"
	"egressos/pkg/staff"
	"egressos/pkg/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openDB(cfg Config) (*gorm.DB, error) {
	return store.Open(store.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN, Path: cfg.DBPath})
}

// migrateDB brings the schema up to date. Failures on individual tables are
// logged and skipped so a read-only grant on one table does not block startup.
func migrateDB(db *gorm.DB, log *zap.Logger) {
	// roles first so users.role_id can reference it
	if err := db.AutoMigrate(&models.Role{}); err != nil {
		log.Warn("migration warning", zap.String("table", "roles"), zap.Error(err))
	}
	for _, m := range []struct {
		table string
		model any
	}{
		{"users", &models.User{}},
		{"refresh_tokens", &models.RefreshToken{}},
		{"user_registration", &models.Person{}},
		{"images", &models.Photo{}},
		{"judiciary", &models.JudicialNote{}},
	} {
		if err := db.AutoMigrate(m.model); err != nil {
			log.Warn("migration warning", zap.String("table", m.table), zap.Error(err))
		}
	}

	if err := migrateLegacyAddress(db); err != nil {
		log.Warn("legacy address migration failed", zap.Error(err))
	}
	if db.Dialector.Name() == store.DriverPostgres {
		fks, err := store.ForeignKeys(context.Background(), db)
		if err != nil {
			log.Warn("listing foreign keys failed", zap.Error(err))
			return
		}
		for _, table := range []string{"images", "judiciary"} {
			if store.HasForeignKey(fks, table, "infopen", "user_registration") {
				continue
			}
			if err := addInfopenFK(db, table); err != nil {
				log.Warn("adding infopen foreign key failed", zap.String("table", table), zap.Error(err))
			}
		}
	}
}

// migrateLegacyAddress copies the old logradouro column into bairro for rows
// created by the earlier schema.
func migrateLegacyAddress(db *gorm.DB) error {
	if !db.Migrator().HasColumn(&models.Person{}, "logradouro") {
		return nil
	}
	return db.Exec(`UPDATE user_registration SET bairro = logradouro
		WHERE (bairro IS NULL OR bairro = '') AND logradouro IS NOT NULL AND logradouro <> ''`).Error
}

// addInfopenFK ties table.infopen to user_registration.infopen so renames and
// deletes cascade on postgres.
func addInfopenFK(db *gorm.DB, table string) error {
	return db.Exec(fmt.Sprintf(`ALTER TABLE %s
		ADD CONSTRAINT fk_%s_user_registration
		FOREIGN KEY (infopen) REFERENCES user_registration(infopen)
		ON UPDATE CASCADE ON DELETE CASCADE`, table, table)).Error
}

// seedDB ensures the default roles and the admin account exist.
func seedDB(db *gorm.DB, adminPassword string, log *zap.Logger) error {
	created, err := staff.Seed(db, adminPassword)
	if err != nil {
		return err
	}
	if created {
		log.Info("seeded admin user", zap.String("username", staff.AdminUsername))
	}
	return nil
}

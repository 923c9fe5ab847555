package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewService(db, brt), mock
}

func TestCreatePersonRollsBackOnInsertFailure(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_registration" WHERE infopen = \$1`).
		WithArgs("R1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "user_registration"`).
		WillReturnError(errors.New("could not write block: no space left on device"))
	mock.ExpectRollback()

	_, _, err := s.CreatePerson(context.Background(), PersonInput{Infopen: "r1", FullName: "Rollback"}, nil)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "create person", se.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplacePhotoRollsBackWhenInsertFails(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_registration" WHERE infopen = \$1`).
		WithArgs("R2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM "images" WHERE infopen = \$1`).
		WithArgs("R2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "images"`).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	stored, err := s.ReplacePhoto(context.Background(), "R2", pngUpload(t, "r2.png", 7))
	assert.False(t, stored)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateFromConstraintIsTranslated(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_registration"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`INSERT INTO "user_registration"`).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_user_registration_infopen" (SQLSTATE 23505)`))
	mock.ExpectRollback()

	_, _, err := s.CreatePerson(context.Background(), PersonInput{Infopen: "R3", FullName: "Race"}, nil)
	assert.ErrorIs(t, err, ErrDuplicateInfopen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

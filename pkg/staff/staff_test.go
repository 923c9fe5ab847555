package staff

import (
	"fmt"
	"strings"
	"testing"

	"egressos/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Role{}, &models.User{}, &models.RefreshToken{}))
	return db
}

func TestSeedIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	created, err := Seed(db, "admin123")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = Seed(db, "other-password")
	require.NoError(t, err)
	assert.False(t, created)

	var roles int64
	require.NoError(t, db.Model(&models.Role{}).Count(&roles).Error)
	assert.EqualValues(t, 2, roles)

	admin, err := Authenticate(db, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdministrator, admin.Role.Name)
}

func TestRegister(t *testing.T) {
	db := newTestDB(t)
	_, err := Seed(db, "admin123")
	require.NoError(t, err)

	u, err := Register(db, "  ana ", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
	assert.Equal(t, models.RoleOperator, u.Role.Name)
	assert.True(t, u.Active)

	_, err = Register(db, "ana", "secret1", "")
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = Register(db, "", "secret1", "")
	assert.ErrorIs(t, err, ErrUsernameRequired)
	_, err = Register(db, "bia", "123", "")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	_, err = Register(db, "bia", "secret1", "auditor")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestAuthenticate(t *testing.T) {
	db := newTestDB(t)
	_, err := Seed(db, "admin123")
	require.NoError(t, err)
	u, err := Register(db, "caio", "secret1", models.RoleOperator)
	require.NoError(t, err)

	_, err = Authenticate(db, "caio", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = Authenticate(db, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, db.Model(&u).Update("active", false).Error)
	_, err = Authenticate(db, "caio", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResetPasswordRevokesRefreshTokens(t *testing.T) {
	db := newTestDB(t)
	_, err := Seed(db, "admin123")
	require.NoError(t, err)
	admin, err := Authenticate(db, "admin", "admin123")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.RefreshToken{UserID: admin.ID, TokenHash: "h1"}).Error)

	require.NoError(t, ResetPassword(db, "admin", "new-secret"))
	_, err = Authenticate(db, "admin", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = Authenticate(db, "admin", "new-secret")
	assert.NoError(t, err)

	var rt models.RefreshToken
	require.NoError(t, db.Where("token_hash = ?", "h1").First(&rt).Error)
	assert.True(t, rt.Revoked)

	assert.ErrorIs(t, ResetPassword(db, "ghost", "new-secret"), ErrUserNotFound)
	assert.ErrorIs(t, ResetPassword(db, "admin", "x"), ErrPasswordTooShort)
}

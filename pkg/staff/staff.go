// Package staff manages the accounts allowed to operate the registry.
package staff

import (
	"errors"
	"fmt"
	"strings"

	"egressos/models"
	"egressos/pkg/registry"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	AdminUsername     = "admin"
	MinPasswordLength = 6
)

var (
	ErrUsernameRequired   = errors.New("username required")
	ErrPasswordTooShort   = fmt.Errorf("password too short (min %d)", MinPasswordLength)
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownRole        = errors.New("unknown role")
	ErrUserNotFound       = errors.New("user not found")
)

// Register creates an active account. An empty roleName means operator.
func Register(db *gorm.DB, username, password, roleName string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, ErrUsernameRequired
	}
	if len(password) < MinPasswordLength {
		return models.User{}, ErrPasswordTooShort
	}
	if roleName == "" {
		roleName = models.RoleOperator
	}
	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUnknownRole
		}
		return models.User{}, err
	}
	// pre-check existing (optimistic)
	var n int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return models.User{}, err
	}
	if n > 0 {
		return models.User{}, ErrUserExists
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	rid := role.ID
	user := models.User{Username: username, HashedPassword: hashed, Active: true, RoleID: &rid, Role: role}
	if err := db.Omit("Role").Create(&user).Error; err != nil {
		if registry.IsUniqueViolation(err) { // race condition after initial check
			return models.User{}, ErrUserExists
		}
		return models.User{}, err
	}
	return user, nil
}

// Authenticate checks the credentials of an active account and returns it
// with its Role loaded.
func Authenticate(db *gorm.DB, username, password string) (models.User, error) {
	var user models.User
	err := db.Preload("Role").Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil || !user.Active {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// ResetPassword replaces the password of an existing account and revokes its
// refresh tokens.
func ResetPassword(db *gorm.DB, username, password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := tx.Model(&user).Update("hashed_password", hashed).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).Where("user_id = ? AND revoked = ?", user.ID, false).
			Update("revoked", true).Error
	})
}

// Seed ensures the default roles exist and creates the admin account when it
// is missing. It reports whether the admin was created.
func Seed(db *gorm.DB, adminPassword string) (bool, error) {
	for _, r := range models.DefaultRoles() {
		if err := db.Where("name = ?", r.Name).FirstOrCreate(&r).Error; err != nil {
			return false, fmt.Errorf("failed to ensure role %s: %w", r.Name, err)
		}
	}
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", AdminUsername).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if _, err := Register(db, AdminUsername, adminPassword, models.RoleAdministrator); err != nil {
		return false, fmt.Errorf("failed to create admin user: %w", err)
	}
	return true, nil
}

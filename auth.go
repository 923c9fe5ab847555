package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"egressos/models"
	"egressos/pkg/staff"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const (
	accessTokenTTL  = 15 * time.Minute
	loginTokenTTL   = 12 * time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
)

// Aliases of the staff errors the handlers map to status codes.
var (
	errUsernameRequired   = staff.ErrUsernameRequired
	errPasswordTooShort   = staff.ErrPasswordTooShort
	errUserExists         = staff.ErrUserExists
	errInvalidCredentials = staff.ErrInvalidCredentials
	errUnknownRole        = staff.ErrUnknownRole
)

func (a *app) registerStaff(username, password, roleName string) (models.User, error) {
	return staff.Register(a.db, username, password, roleName)
}

func (a *app) authenticate(username, password string) (models.User, error) {
	return staff.Authenticate(a.db, username, password)
}

func (a *app) signAccessToken(user models.User, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     user.Role.Name,
		"exp":      a.now().Add(ttl).Unix(),
	})
	return token.SignedString(a.cfg.JWTSecret)
}

func (a *app) parseAccessToken(raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return a.cfg.JWTSecret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

// createRefreshToken generates a random refresh token, stores its hash with
// expiry and returns the raw token string.
func (a *app) createRefreshToken(tx *gorm.DB, userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	rt := models.RefreshToken{UserID: userID, TokenHash: hashToken(token), ExpiresAt: a.now().Add(refreshTokenTTL)}
	if err := tx.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

func (a *app) findRefreshToken(raw string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := a.db.Where("token_hash = ?", hashToken(raw)).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// rotateRefreshToken revokes rt and issues its replacement in one transaction.
func (a *app) rotateRefreshToken(rt *models.RefreshToken) (string, error) {
	var next string
	err := a.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).Where("id = ? AND revoked = ?", rt.ID, false).Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errInvalidCredentials
		}
		var err error
		next, err = a.createRefreshToken(tx, rt.UserID)
		return err
	})
	return next, err
}

func hashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

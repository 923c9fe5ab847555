package registry

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Validation errors are recovered by the caller and shown to the user.
var (
	ErrInfopenRequired  = errors.New("infopen is required")
	ErrNameRequired     = errors.New("full name is required")
	ErrDuplicateInfopen = errors.New("person already registered with this infopen")
	ErrInvalidDate      = errors.New("invalid date format, use YYYY-MM-DD")
	ErrUnknownInfopen   = errors.New("no person registered with this infopen")
)

// ErrNotFound is returned for unknown record ids and missing photos.
var ErrNotFound = errors.New("not found")

var validationErrors = []error{
	ErrInfopenRequired,
	ErrNameRequired,
	ErrDuplicateInfopen,
	ErrInvalidDate,
	ErrUnknownInfopen,
}

// IsValidation reports whether err is one of the user-correctable errors.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// StorageError wraps a failed transaction. The transaction has been rolled
// back when it is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storageErr passes validation and not-found errors through untouched and
// wraps everything else.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || errors.Is(err, ErrNotFound) {
		return err
	}
	if IsUniqueViolation(err) {
		return ErrDuplicateInfopen
	}
	return &StorageError{Op: op, Err: err}
}

// IsUniqueViolation recognises unique constraint failures from postgres and sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint")
}

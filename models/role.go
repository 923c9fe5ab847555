package models

import "time"

// Role names the permission level of a staff account.
type Role struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string `gorm:"size:32;uniqueIndex;not null"`
	Description string `gorm:"size:255"`
}

const (
	RoleAdministrator = "administrator"
	RoleOperator      = "operator"
)

// DefaultRoles are seeded on every start.
func DefaultRoles() []Role {
	return []Role{
		{Name: RoleAdministrator, Description: "full access, may delete records and manage staff"},
		{Name: RoleOperator, Description: "registers, edits and exports records"},
	}
}

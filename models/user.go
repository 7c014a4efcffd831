package models

import (
	"time"
)

// User account statuses.
const (
	UserStatusActive   = "Activo"
	UserStatusInactive = "Inactivo"
)

// User represents a registered account (students, professors, admins).
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`

	// Institutional (SIGAA) identifier.
	InstitutionalID string `json:"institutional_id" gorm:"column:institutional_id;uniqueIndex;not null"`

	Name            string `json:"name" gorm:"not null"`
	Status          string `json:"status" gorm:"index;not null"`
	Type            string `json:"type" gorm:"not null"`
	AcademicProgram string `json:"academic_program"`

	TermsAccepted   bool      `json:"terms_accepted"`
	TermsAcceptedAt time.Time `json:"terms_accepted_at"`
	TermsVersion    string    `json:"terms_version"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

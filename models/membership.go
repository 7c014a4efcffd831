package models

import (
	"time"
)

// Membership role labels within a hotbed.
const (
	MembershipRoleStudent   = "Estudiante"
	MembershipRoleProfessor = "Docente"
	MembershipRoleAlumnus   = "Egresado"
)

// Membership statuses.
const (
	MembershipStatusActive   = "Activo"
	MembershipStatusInactive = "Inactivo"
)

// Membership links a user to a research hotbed. Authorship always resolves
// through the membership row, never the bare user.
type Membership struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID           uint `json:"user_id" gorm:"uniqueIndex:idx_memberships_user_hotbed;not null"`
	ResearchHotbedID uint `json:"research_hotbed_id" gorm:"uniqueIndex:idx_memberships_user_hotbed;index;not null"`

	Role        string     `json:"role" gorm:"not null"`
	Status      string     `json:"status" gorm:"index;not null"`
	Observation *string    `json:"observation,omitempty" gorm:"type:text"`
	DateEnter   time.Time  `json:"date_enter"`
	DateExit    *time.Time `json:"date_exit,omitempty"`
}

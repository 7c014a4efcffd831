package models

import (
	"time"
)

// Research hotbed statuses.
const (
	HotbedStatusActive   = "Activo"
	HotbedStatusInactive = "Inactivo"
)

// ResearchHotbed represents a university research group (semillero).
type ResearchHotbed struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name             string `json:"name" gorm:"not null"`
	Acronym          string `json:"acronym" gorm:"not null"`
	UniversityBranch string `json:"university_branch"`
	Faculty          string `json:"faculty"`
	Status           string `json:"status" gorm:"index;not null"`

	// Free-text reason recorded when a hotbed is deactivated.
	DeleteDescription *string `json:"delete_description,omitempty" gorm:"type:text"`
}

// TableName pins the explicit table name for GORM.
func (ResearchHotbed) TableName() string {
	return "research_hotbeds"
}

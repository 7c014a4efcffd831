package models

import (
	"time"
)

// Recognition holds the detail record of a "reconocimiento" activity.
type Recognition struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name              string `json:"name"`
	ProjectName       string `json:"project_name"`
	ParticipantsNames string `json:"participants_names" gorm:"type:text"` // comma-separated names
	OrganizationName  string `json:"organization_name"`
}

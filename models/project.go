package models

import (
	"time"
)

// Project holds the detail record of a "proyecto" activity.
type Project struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name                string     `json:"name" gorm:"not null"`
	ReferenceNumber     string     `json:"reference_number"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	PrincipalResearcher string     `json:"principal_researcher"`
	CoResearchers       string     `json:"co_researchers"` // comma-separated names
}

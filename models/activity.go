package models

import (
	"time"
)

// Activity type tags. Anything else counts as a generic activity and
// attaches no detail record.
const (
	ActivityTypeProject     = "proyecto"
	ActivityTypeProduct     = "producto"
	ActivityTypeRecognition = "reconocimiento"
	ActivityTypeGeneric     = "actividad"
)

// Activity is a reportable unit of work anchored to the membership that
// created it. Depending on its type it may own exactly one detail record
// (project, product or recognition).
type Activity struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title       string    `json:"title" gorm:"not null"`
	Responsible string    `json:"responsible"` // legacy free-text field, superseded by activity_authors
	Date        time.Time `json:"date" gorm:"index;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Type        string    `json:"type" gorm:"index;not null"`

	// Optional time window, "HH:MM".
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`

	DurationHours     float64 `json:"duration_hours"`
	ApprovedFreeHours bool    `json:"approved_free_hours"`

	Semester string `json:"semester" gorm:"index;not null"`

	// Anchor membership: responsible for the activity. Not a DB-level
	// foreign key in the legacy schema, so readers tolerate dangling ids.
	MembershipID uint `json:"membership_id" gorm:"index;not null"`

	ProjectID     *uint `json:"project_id,omitempty"`
	ProductID     *uint `json:"product_id,omitempty"`
	RecognitionID *uint `json:"recognition_id,omitempty"`
}

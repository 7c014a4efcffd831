package models

import (
	"time"
)

// Product holds the detail record of a "producto" activity.
type Product struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Category        string     `json:"category" gorm:"not null"`
	Type            string     `json:"type"`
	Description     string     `json:"description" gorm:"type:text"`
	PublicationDate *time.Time `json:"publication_date,omitempty"`
}

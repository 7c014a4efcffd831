package models

import (
	"time"
)

// ActivityAuthor credits a membership as main author or co-author of an
// activity. This is the authoritative authorship record, independent of
// which membership anchors the activity.
type ActivityAuthor struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ActivityID   uint `json:"activity_id" gorm:"index;not null"`
	MembershipID uint `json:"membership_id" gorm:"index;not null"`

	IsMainAuthor bool `json:"is_main_author" gorm:"not null;default:false"`
}

// TableName pins the explicit table name for GORM.
func (ActivityAuthor) TableName() string {
	return "activity_authors"
}

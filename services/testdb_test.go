package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"semillero-hub/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.ResearchHotbed{}, &models.Membership{},
		&models.Activity{}, &models.Project{}, &models.Product{},
		&models.Recognition{}, &models.ActivityAuthor{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		Name:            name,
		Email:           fmt.Sprintf("%s@example.edu", name),
		Password:        "hash",
		InstitutionalID: fmt.Sprintf("id-%s", name),
		Type:            "Estudiante",
		Status:          models.UserStatusActive,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedHotbed(t *testing.T, db *gorm.DB, name string) *models.ResearchHotbed {
	t.Helper()

	hotbed := &models.ResearchHotbed{
		Name:    name,
		Acronym: name[:1],
		Status:  models.HotbedStatusActive,
	}
	require.NoError(t, db.Create(hotbed).Error)
	return hotbed
}

func seedMembership(t *testing.T, db *gorm.DB, userID, hotbedID uint) *models.Membership {
	t.Helper()

	membership := &models.Membership{
		UserID:           userID,
		ResearchHotbedID: hotbedID,
		Role:             models.MembershipRoleStudent,
		Status:           models.MembershipStatusActive,
		DateEnter:        time.Now().AddDate(0, -6, 0),
	}
	require.NoError(t, db.Create(membership).Error)
	return membership
}

func seedActivity(t *testing.T, db *gorm.DB, membershipID uint, title, semester string, date time.Time) *models.Activity {
	t.Helper()

	activity := &models.Activity{
		Title:        title,
		Date:         date,
		Type:         models.ActivityTypeGeneric,
		Semester:     semester,
		MembershipID: membershipID,
	}
	require.NoError(t, db.Create(activity).Error)
	return activity
}

func seedAuthor(t *testing.T, db *gorm.DB, activityID, membershipID uint, isMain bool) {
	t.Helper()

	require.NoError(t, db.Create(&models.ActivityAuthor{
		ActivityID:   activityID,
		MembershipID: membershipID,
		IsMainAuthor: isMain,
	}).Error)
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"semillero-hub/models"
)

func newActivityService(t *testing.T) (*ActivityService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewActivityService(db, zap.NewNop()), db
}

func TestCreateDefaultsSemesterAndPromotesFirstAuthor(t *testing.T) {
	svc, db := newActivityService(t)

	user := seedUser(t, db, "ana")
	hotbed := seedHotbed(t, db, "Semillero Redes")
	membership := seedMembership(t, db, user.ID, hotbed.ID)

	id, err := svc.Create(context.Background(), CreateActivityInput{
		Title:        "Taller de soldadura",
		Date:         "2025-05-10",
		Type:         models.ActivityTypeGeneric,
		MembershipID: membership.ID,
		Authors: []AuthorInput{
			{MembershipID: membership.ID},
		},
	})
	require.NoError(t, err)

	var activity models.Activity
	require.NoError(t, db.First(&activity, id).Error)
	assert.Equal(t, CurrentSemester(), activity.Semester)

	var relations []models.ActivityAuthor
	require.NoError(t, db.Where("activity_id = ?", id).Find(&relations).Error)
	require.Len(t, relations, 1)
	assert.True(t, relations[0].IsMainAuthor, "sole unflagged author must be promoted to main")
}

func TestCreateKeepsExplicitMainAuthorFlags(t *testing.T) {
	svc, db := newActivityService(t)

	ana := seedUser(t, db, "ana")
	beto := seedUser(t, db, "beto")
	hotbed := seedHotbed(t, db, "Semillero Redes")
	anaMembership := seedMembership(t, db, ana.ID, hotbed.ID)
	betoMembership := seedMembership(t, db, beto.ID, hotbed.ID)

	id, err := svc.Create(context.Background(), CreateActivityInput{
		Title:        "Articulo",
		Date:         "2025-05-10",
		Type:         models.ActivityTypeGeneric,
		Semester:     "semestre-1-2025",
		MembershipID: anaMembership.ID,
		Authors: []AuthorInput{
			{MembershipID: anaMembership.ID, IsMainAuthor: false},
			{MembershipID: betoMembership.ID, IsMainAuthor: true},
		},
	})
	require.NoError(t, err)

	var relations []models.ActivityAuthor
	require.NoError(t, db.Where("activity_id = ?", id).Order("id ASC").Find(&relations).Error)
	require.Len(t, relations, 2)
	assert.False(t, relations[0].IsMainAuthor)
	assert.True(t, relations[1].IsMainAuthor)
}

func TestCreateRejectsInvalidSemester(t *testing.T) {
	svc, db := newActivityService(t)

	user := seedUser(t, db, "ana")
	hotbed := seedHotbed(t, db, "Semillero Redes")
	membership := seedMembership(t, db, user.ID, hotbed.ID)

	_, err := svc.Create(context.Background(), CreateActivityInput{
		Title:        "Taller",
		Date:         "2025-05-10",
		Type:         models.ActivityTypeGeneric,
		Semester:     "semestre-3-2025",
		MembershipID: membership.ID,
	})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCreateRollsBackOnUnknownAuthorMembership(t *testing.T) {
	svc, db := newActivityService(t)

	user := seedUser(t, db, "ana")
	hotbed := seedHotbed(t, db, "Semillero Redes")
	membership := seedMembership(t, db, user.ID, hotbed.ID)

	_, err := svc.Create(context.Background(), CreateActivityInput{
		Title:        "Taller",
		Date:         "2025-05-10",
		Type:         models.ActivityTypeProject,
		Semester:     "semestre-1-2025",
		MembershipID: membership.ID,
		Authors: []AuthorInput{
			{MembershipID: 9999, IsMainAuthor: true},
		},
		Project: &ProjectInput{Name: "Proyecto", StartDate: "2025-01-01"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "9999")

	// Nothing of the partial write may survive.
	var activityCount, projectCount, relationCount int64
	db.Model(&models.Activity{}).Count(&activityCount)
	db.Model(&models.Project{}).Count(&projectCount)
	db.Model(&models.ActivityAuthor{}).Count(&relationCount)
	assert.Zero(t, activityCount)
	assert.Zero(t, projectCount)
	assert.Zero(t, relationCount)
}

func TestUpdateReplacesAuthorSet(t *testing.T) {
	svc, db := newActivityService(t)

	ana := seedUser(t, db, "ana")
	beto := seedUser(t, db, "beto")
	hotbed := seedHotbed(t, db, "Semillero Redes")
	anaMembership := seedMembership(t, db, ana.ID, hotbed.ID)
	betoMembership := seedMembership(t, db, beto.ID, hotbed.ID)

	id, err := svc.Create(context.Background(), CreateActivityInput{
		Title:        "Articulo",
		Date:         "2025-05-10",
		Type:         models.ActivityTypeGeneric,
		Semester:     "semestre-1-2025",
		MembershipID: anaMembership.ID,
		Authors: []AuthorInput{
			{MembershipID: anaMembership.ID, IsMainAuthor: true},
			{MembershipID: betoMembership.ID},
		},
	})
	require.NoError(t, err)

	authors := []AuthorInput{{MembershipID: betoMembership.ID, IsMainAuthor: true}}
	require.NoError(t, svc.Update(context.Background(), id, UpdateActivityInput{Authors: &authors}))

	var relations []models.ActivityAuthor
	require.NoError(t, db.Where("activity_id = ?", id).Find(&relations).Error)
	require.Len(t, relations, 1)
	assert.Equal(t, betoMembership.ID, relations[0].MembershipID)
	assert.True(t, relations[0].IsMainAuthor)
}

func TestUpdatePatchesFieldsByPresence(t *testing.T) {
	svc, db := newActivityService(t)

	user := seedUser(t, db, "ana")
	hotbed := seedHotbed(t, db, "Semillero Redes")
	membership := seedMembership(t, db, user.ID, hotbed.ID)

	id, err := svc.Create(context.Background(), CreateActivityInput{
		Title:        "Titulo original",
		Description:  "Descripcion original",
		Date:         "2025-05-10",
		Type:         models.ActivityTypeGeneric,
		Semester:     "semestre-1-2025",
		MembershipID: membership.ID,
	})
	require.NoError(t, err)

	newTitle := "Titulo corregido"
	require.NoError(t, svc.Update(context.Background(), id, UpdateActivityInput{Title: &newTitle}))

	var activity models.Activity
	require.NoError(t, db.First(&activity, id).Error)
	assert.Equal(t, "Titulo corregido", activity.Title)
	assert.Equal(t, "Descripcion original", activity.Description)
	assert.Equal(t, "semestre-1-2025", activity.Semester)
}

func TestUpdateMissingActivityReturnsNotFound(t *testing.T) {
	svc, _ := newActivityService(t)

	title := "x"
	err := svc.Update(context.Background(), 777, UpdateActivityInput{Title: &title})
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestDeleteCascadesToDetailAndAuthors(t *testing.T) {
	svc, db := newActivityService(t)

	user := seedUser(t, db, "ana")
	hotbed := seedHotbed(t, db, "Semillero Redes")
	membership := seedMembership(t, db, user.ID, hotbed.ID)

	id, err := svc.Create(context.Background(), CreateActivityInput{
		Title:        "Proyecto IoT",
		Date:         "2025-05-10",
		Type:         models.ActivityTypeProject,
		Semester:     "semestre-1-2025",
		MembershipID: membership.ID,
		Authors: []AuthorInput{
			{MembershipID: membership.ID, IsMainAuthor: true},
		},
		Project: &ProjectInput{Name: "Plataforma IoT", StartDate: "2025-02-01"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), id))

	var activityCount, projectCount, relationCount int64
	db.Model(&models.Activity{}).Count(&activityCount)
	db.Model(&models.Project{}).Count(&projectCount)
	db.Model(&models.ActivityAuthor{}).Count(&relationCount)
	assert.Zero(t, activityCount)
	assert.Zero(t, projectCount)
	assert.Zero(t, relationCount)
}

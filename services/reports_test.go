package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"semillero-hub/config"
	"semillero-hub/models"
)

func newReportService(t *testing.T) (*ReportService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	aggregation := NewAggregationService(db, zap.NewNop())
	return NewReportService(&config.Config{}, db, aggregation, nil, zap.NewNop()), db
}

func TestHotbedReportScopedBySemester(t *testing.T) {
	svc, db := newReportService(t)

	user := seedUser(t, db, "ana")
	hotbed := seedHotbed(t, db, "Semillero Redes")
	membership := seedMembership(t, db, user.ID, hotbed.ID)
	seedActivity(t, db, membership.ID, "Dentro", "semestre-1-2025", time.Now())
	seedActivity(t, db, membership.ID, "Fuera", "semestre-2-2024", time.Now().AddDate(-1, 0, 0))

	report, err := svc.HotbedReport(context.Background(), hotbed.ID, "semestre-1-2025")
	require.NoError(t, err)
	assert.Equal(t, "Semillero Redes", report.ResearchHotbedName)
	assert.Equal(t, "Primer Semestre 2025", report.SemesterLabel)
	require.Len(t, report.Activities, 1)
	assert.Equal(t, "Dentro", report.Activities[0].Title)
}

func TestHotbedReportRejectsInvalidSemester(t *testing.T) {
	svc, db := newReportService(t)
	hotbed := seedHotbed(t, db, "Semillero Redes")

	_, err := svc.HotbedReport(context.Background(), hotbed.ID, "semestre-9-2025")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestHotbedReportMissingHotbed(t *testing.T) {
	svc, _ := newReportService(t)

	_, err := svc.HotbedReport(context.Background(), 321, "")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserReportCarriesRole(t *testing.T) {
	svc, db := newReportService(t)

	user := seedUser(t, db, "ana")
	hotbed := seedHotbed(t, db, "Semillero Redes")
	membership := seedMembership(t, db, user.ID, hotbed.ID)
	activity := seedActivity(t, db, membership.ID, "Articulo", "semestre-1-2025", time.Now())
	seedAuthor(t, db, activity.ID, membership.ID, true)

	report, err := svc.UserReport(context.Background(), user.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "ana", report.UserName)
	require.Len(t, report.Activities, 1)
	assert.Equal(t, RoleMainAuthor, report.Activities[0].ParticipationRole)
}

func TestRenderCSV(t *testing.T) {
	views := []ActivityView{
		{
			ActivityID:        7,
			Title:             "Ponencia, con coma",
			Type:              models.ActivityTypeGeneric,
			Date:              "2025-05-10",
			Semester:          "semestre-1-2025",
			Responsible:       "ana",
			GroupName:         "Semillero Redes",
			MainAuthors:       []string{"ana"},
			CoAuthors:         []string{"beto", "carla"},
			DurationHours:     2.5,
			ApprovedFreeHours: true,
			ParticipationRole: RoleMainAuthor,
		},
	}

	data, err := RenderCSV(views, true)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "participation_role")
	assert.Contains(t, lines[1], `"Ponencia, con coma"`)
	assert.Contains(t, lines[1], "beto; carla")
	assert.Contains(t, lines[1], "2.5")
	assert.Contains(t, lines[1], RoleMainAuthor)

	// The role column only exists on per-user exports.
	data, err = RenderCSV(views, false)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "participation_role")
}

func TestArchiveDisabledWithoutBucket(t *testing.T) {
	svc, _ := newReportService(t)

	link, err := svc.Archive(context.Background(), "users", "semestre-1-2025", "x.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Empty(t, link)
}

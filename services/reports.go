package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"semillero-hub/config"
	"semillero-hub/models"
	"semillero-hub/storage"
)

// HotbedReport is the exportable activity report of one research hotbed.
type HotbedReport struct {
	ResearchHotbedID   uint           `json:"research_hotbed_id"`
	ResearchHotbedName string         `json:"research_hotbed_name"`
	Semester           string         `json:"semester,omitempty"`
	SemesterLabel      string         `json:"semester_label,omitempty"`
	GeneratedAt        string         `json:"generated_at"`
	Activities         []ActivityView `json:"activities"`
}

// UserReport is the exportable activity report of one user.
type UserReport struct {
	UserID        uint           `json:"user_id"`
	UserName      string         `json:"user_name"`
	Semester      string         `json:"semester,omitempty"`
	SemesterLabel string         `json:"semester_label,omitempty"`
	GeneratedAt   string         `json:"generated_at"`
	Activities    []ActivityView `json:"activities"`
}

// ReportService assembles export reports from aggregated activity sets and
// optionally archives the rendered files to S3.
type ReportService struct {
	Config      *config.Config
	DB          *gorm.DB
	Aggregation *AggregationService
	S3          *s3.Client
	Logger      *zap.Logger
}

// NewReportService creates a new ReportService. s3Client may be nil when
// export archiving is disabled.
func NewReportService(cfg *config.Config, db *gorm.DB, aggregation *AggregationService, s3Client *s3.Client, logger *zap.Logger) *ReportService {
	return &ReportService{Config: cfg, DB: db, Aggregation: aggregation, S3: s3Client, Logger: logger}
}

// HotbedReport builds the report of one hotbed. An empty semester covers the
// hotbed's full history.
func (s *ReportService) HotbedReport(ctx context.Context, hotbedID uint, semester string) (*HotbedReport, error) {
	if semester != "" && !IsValidSemester(semester) {
		return nil, fmt.Errorf("%w: invalid semester %q", ErrValidation, semester)
	}

	var hotbed models.ResearchHotbed
	if err := s.DB.WithContext(ctx).First(&hotbed, hotbedID).Error; err != nil {
		return nil, err
	}

	views, err := s.Aggregation.ActivitiesForHotbed(ctx, hotbedID, semester)
	if err != nil {
		return nil, err
	}

	report := &HotbedReport{
		ResearchHotbedID:   hotbedID,
		ResearchHotbedName: hotbed.Name,
		Semester:           semester,
		GeneratedAt:        time.Now().Format(time.RFC3339),
		Activities:         views,
	}
	if semester != "" {
		report.SemesterLabel = DetailedSemesterLabel(semester)
	}
	return report, nil
}

// UserReport builds the report of one user across all their hotbeds.
func (s *ReportService) UserReport(ctx context.Context, userID uint, semester string) (*UserReport, error) {
	if semester != "" && !IsValidSemester(semester) {
		return nil, fmt.Errorf("%w: invalid semester %q", ErrValidation, semester)
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}

	views, err := s.Aggregation.ActivitiesForUser(ctx, userID, semester)
	if err != nil {
		return nil, err
	}

	report := &UserReport{
		UserID:      userID,
		UserName:    user.Name,
		Semester:    semester,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Activities:  views,
	}
	if semester != "" {
		report.SemesterLabel = DetailedSemesterLabel(semester)
	}
	return report, nil
}

// RenderCSV renders an activity set as a CSV document. includeRole adds the
// participation-role column used by per-user exports.
func RenderCSV(views []ActivityView, includeRole bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"id", "title", "type", "date", "semester", "responsible",
		"research_hotbed", "main_authors", "co_authors",
		"duration_hours", "approved_free_hours",
	}
	if includeRole {
		header = append(header, "participation_role")
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, v := range views {
		record := []string{
			strconv.FormatUint(uint64(v.ActivityID), 10),
			v.Title,
			v.Type,
			v.Date,
			v.Semester,
			v.Responsible,
			v.GroupName,
			strings.Join(v.MainAuthors, "; "),
			strings.Join(v.CoAuthors, "; "),
			strconv.FormatFloat(v.DurationHours, 'f', -1, 64),
			strconv.FormatBool(v.ApprovedFreeHours),
		}
		if includeRole {
			record = append(record, v.ParticipationRole)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Archive uploads a rendered export to the configured bucket under
// exports/{scope}/{semester}/ and returns the object link. Archiving is best
// effort from the caller's point of view: exports still download when the
// upload fails.
func (s *ReportService) Archive(ctx context.Context, scope, semester, filename string, data []byte) (string, error) {
	if s.S3 == nil || !s.Config.ExportArchiveEnabled() {
		return "", nil
	}
	if semester == "" {
		semester = "all"
	}
	key := fmt.Sprintf("exports/%s/%s/%s", scope, semester, filename)
	link, err := storage.UploadFile(ctx, s.S3, s.Config.ExportS3Bucket, key, data, s.Config)
	if err != nil {
		s.Logger.Error("Export archive upload failed", zap.String("key", key), zap.Error(err))
		return "", err
	}
	s.Logger.Info("Export archived", zap.String("key", key))
	return link, nil
}

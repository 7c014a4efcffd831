package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"semillero-hub/models"
)

// ErrValidation marks caller mistakes (malformed semester, unknown membership
// id, bad date). Handlers map it to a 400 with the wrapped message.
var ErrValidation = errors.New("validation error")

const dateLayout = "2006-01-02"

// ProjectInput carries the optional project detail of an activity write.
type ProjectInput struct {
	Name                string  `json:"name"`
	ReferenceNumber     string  `json:"reference_number"`
	StartDate           string  `json:"start_date"`
	EndDate             *string `json:"end_date"`
	PrincipalResearcher string  `json:"principal_researcher"`
	CoResearchers       string  `json:"co_researchers"`
}

// ProductInput carries the optional product detail of an activity write.
type ProductInput struct {
	Category        string  `json:"category"`
	Type            string  `json:"type"`
	Description     string  `json:"description"`
	PublicationDate *string `json:"publication_date"`
}

// RecognitionInput carries the optional recognition detail of an activity write.
type RecognitionInput struct {
	Name              string `json:"name"`
	ProjectName       string `json:"project_name"`
	ParticipantsNames string `json:"participants_names"`
	OrganizationName  string `json:"organization_name"`
}

// AuthorInput names one credited membership of an activity.
type AuthorInput struct {
	MembershipID uint `json:"membership_id"`
	IsMainAuthor bool `json:"is_main_author"`
}

// CreateActivityInput is the write payload for a new activity. The detail
// blocks are optional; semester defaults to the current one.
type CreateActivityInput struct {
	Title             string  `json:"title" binding:"required"`
	Responsible       string  `json:"responsible"`
	Date              string  `json:"date" binding:"required"`
	Description       string  `json:"description"`
	Type              string  `json:"type" binding:"required"`
	StartTime         *string `json:"start_time"`
	EndTime           *string `json:"end_time"`
	DurationHours     float64 `json:"duration_hours"`
	ApprovedFreeHours bool    `json:"approved_free_hours"`
	Semester          string  `json:"semester"`
	MembershipID      uint    `json:"membership_id" binding:"required"`

	Authors []AuthorInput `json:"authors"`

	Project     *ProjectInput     `json:"project"`
	Product     *ProductInput     `json:"product"`
	Recognition *RecognitionInput `json:"recognition"`
}

// UpdateActivityInput patches an activity by field presence. A non-nil
// Authors slice replaces the whole author set (delete-then-reinsert).
type UpdateActivityInput struct {
	Title             *string  `json:"title"`
	Responsible       *string  `json:"responsible"`
	Date              *string  `json:"date"`
	Description       *string  `json:"description"`
	Type              *string  `json:"type"`
	StartTime         *string  `json:"start_time"`
	EndTime           *string  `json:"end_time"`
	DurationHours     *float64 `json:"duration_hours"`
	ApprovedFreeHours *bool    `json:"approved_free_hours"`
	Semester          *string  `json:"semester"`

	Authors *[]AuthorInput `json:"authors"`

	Project     *ProjectInput     `json:"project"`
	Product     *ProductInput     `json:"product"`
	Recognition *RecognitionInput `json:"recognition"`
}

// ActivityService owns the activity write path. Every mutation runs inside
// one transaction: detail record, activity and author relations land together
// or not at all.
type ActivityService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewActivityService creates a new ActivityService.
func NewActivityService(db *gorm.DB, logger *zap.Logger) *ActivityService {
	return &ActivityService{DB: db, Logger: logger}
}

// Create registers an activity with its detail record and author relations.
// Anchor and author membership ids must reference existing memberships; the
// schema has no FK for them, so this is the only integrity gate.
func (s *ActivityService) Create(ctx context.Context, input CreateActivityInput) (uint, error) {
	date, err := time.Parse(dateLayout, input.Date)
	if err != nil {
		return 0, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}

	semester := input.Semester
	if semester == "" {
		semester = CurrentSemester()
	} else if !IsValidSemester(semester) {
		return 0, fmt.Errorf("%w: invalid semester %q", ErrValidation, semester)
	}

	var activityID uint
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireMemberships(tx, append(authorMembershipIDs(input.Authors), input.MembershipID)); err != nil {
			return err
		}

		activity := models.Activity{
			Title:             input.Title,
			Responsible:       input.Responsible,
			Date:              date,
			Description:       input.Description,
			Type:              input.Type,
			StartTime:         input.StartTime,
			EndTime:           input.EndTime,
			DurationHours:     input.DurationHours,
			ApprovedFreeHours: input.ApprovedFreeHours,
			Semester:          semester,
			MembershipID:      input.MembershipID,
		}

		if input.Project != nil {
			project, err := projectFromInput(*input.Project)
			if err != nil {
				return err
			}
			if err := tx.Create(project).Error; err != nil {
				return err
			}
			activity.ProjectID = &project.ID
		}
		if input.Product != nil {
			product, err := productFromInput(*input.Product)
			if err != nil {
				return err
			}
			if err := tx.Create(product).Error; err != nil {
				return err
			}
			activity.ProductID = &product.ID
		}
		if input.Recognition != nil {
			recognition := recognitionFromInput(*input.Recognition)
			if err := tx.Create(recognition).Error; err != nil {
				return err
			}
			activity.RecognitionID = &recognition.ID
		}

		if err := tx.Create(&activity).Error; err != nil {
			return err
		}
		activityID = activity.ID

		return insertAuthors(tx, activity.ID, input.Authors)
	})
	if err != nil {
		if !errors.Is(err, ErrValidation) {
			s.Logger.Error("Activity create failed", zap.Error(err))
		}
		return 0, err
	}
	return activityID, nil
}

// Update patches the activity fields present in the input, upserts detail
// records and, when an author list is supplied, replaces the full author set.
func (s *ActivityService) Update(ctx context.Context, activityID uint, input UpdateActivityInput) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var activity models.Activity
		if err := tx.First(&activity, activityID).Error; err != nil {
			return err
		}

		if input.Title != nil {
			activity.Title = *input.Title
		}
		if input.Responsible != nil {
			activity.Responsible = *input.Responsible
		}
		if input.Date != nil {
			date, err := time.Parse(dateLayout, *input.Date)
			if err != nil {
				return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
			}
			activity.Date = date
		}
		if input.Description != nil {
			activity.Description = *input.Description
		}
		if input.Type != nil {
			activity.Type = *input.Type
		}
		if input.StartTime != nil {
			activity.StartTime = input.StartTime
		}
		if input.EndTime != nil {
			activity.EndTime = input.EndTime
		}
		if input.DurationHours != nil {
			activity.DurationHours = *input.DurationHours
		}
		if input.ApprovedFreeHours != nil {
			activity.ApprovedFreeHours = *input.ApprovedFreeHours
		}
		if input.Semester != nil {
			if !IsValidSemester(*input.Semester) {
				return fmt.Errorf("%w: invalid semester %q", ErrValidation, *input.Semester)
			}
			activity.Semester = *input.Semester
		}

		if input.Project != nil {
			if err := s.upsertProject(tx, &activity, *input.Project); err != nil {
				return err
			}
		}
		if input.Product != nil {
			if err := s.upsertProduct(tx, &activity, *input.Product); err != nil {
				return err
			}
		}
		if input.Recognition != nil {
			if err := s.upsertRecognition(tx, &activity, *input.Recognition); err != nil {
				return err
			}
		}

		if err := tx.Save(&activity).Error; err != nil {
			return err
		}

		if input.Authors != nil {
			if err := s.requireMemberships(tx, authorMembershipIDs(*input.Authors)); err != nil {
				return err
			}
			if err := tx.Where("activity_id = ?", activityID).
				Delete(&models.ActivityAuthor{}).Error; err != nil {
				return err
			}
			return insertAuthors(tx, activityID, *input.Authors)
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrValidation) && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.Logger.Error("Activity update failed", zap.Uint("activity_id", activityID), zap.Error(err))
	}
	return err
}

// Delete removes the activity together with its author relations and its
// owned detail record.
func (s *ActivityService) Delete(ctx context.Context, activityID uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var activity models.Activity
		if err := tx.First(&activity, activityID).Error; err != nil {
			return err
		}

		if err := tx.Where("activity_id = ?", activityID).
			Delete(&models.ActivityAuthor{}).Error; err != nil {
			return err
		}
		if activity.ProjectID != nil {
			if err := tx.Delete(&models.Project{}, *activity.ProjectID).Error; err != nil {
				return err
			}
		}
		if activity.ProductID != nil {
			if err := tx.Delete(&models.Product{}, *activity.ProductID).Error; err != nil {
				return err
			}
		}
		if activity.RecognitionID != nil {
			if err := tx.Delete(&models.Recognition{}, *activity.RecognitionID).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&activity).Error
	})
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.Logger.Error("Activity delete failed", zap.Uint("activity_id", activityID), zap.Error(err))
	}
	return err
}

// requireMemberships rejects the write when any referenced membership id does
// not exist, naming the first offender.
func (s *ActivityService) requireMemberships(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var existing []uint
	if err := tx.Model(&models.Membership{}).
		Where("id IN ?", ids).
		Pluck("id", &existing).Error; err != nil {
		return err
	}
	known := make(map[uint]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}
	for _, id := range ids {
		if !known[id] {
			return fmt.Errorf("%w: membership %d not found", ErrValidation, id)
		}
	}
	return nil
}

// insertAuthors writes one relation per author in input order. An authored
// activity always keeps at least one main author: when none is flagged, the
// first author is promoted.
func insertAuthors(tx *gorm.DB, activityID uint, authors []AuthorInput) error {
	if len(authors) == 0 {
		return nil
	}
	hasMain := false
	for _, a := range authors {
		if a.IsMainAuthor {
			hasMain = true
			break
		}
	}
	for i, a := range authors {
		relation := models.ActivityAuthor{
			ActivityID:   activityID,
			MembershipID: a.MembershipID,
			IsMainAuthor: a.IsMainAuthor || (!hasMain && i == 0),
		}
		if err := tx.Create(&relation).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *ActivityService) upsertProject(tx *gorm.DB, activity *models.Activity, input ProjectInput) error {
	var project models.Project
	if activity.ProjectID != nil {
		if err := tx.First(&project, *activity.ProjectID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if input.Name != "" {
		project.Name = input.Name
	}
	if input.ReferenceNumber != "" {
		project.ReferenceNumber = input.ReferenceNumber
	}
	if input.StartDate != "" {
		start, err := time.Parse(dateLayout, input.StartDate)
		if err != nil {
			return fmt.Errorf("%w: project start_date must be YYYY-MM-DD", ErrValidation)
		}
		project.StartDate = start
	}
	if input.EndDate != nil {
		end, err := time.Parse(dateLayout, *input.EndDate)
		if err != nil {
			return fmt.Errorf("%w: project end_date must be YYYY-MM-DD", ErrValidation)
		}
		project.EndDate = &end
	}
	if input.PrincipalResearcher != "" {
		project.PrincipalResearcher = input.PrincipalResearcher
	}
	if input.CoResearchers != "" {
		project.CoResearchers = input.CoResearchers
	}
	if err := tx.Save(&project).Error; err != nil {
		return err
	}
	activity.ProjectID = &project.ID
	return nil
}

func (s *ActivityService) upsertProduct(tx *gorm.DB, activity *models.Activity, input ProductInput) error {
	var product models.Product
	if activity.ProductID != nil {
		if err := tx.First(&product, *activity.ProductID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if input.Category != "" {
		product.Category = input.Category
	}
	if input.Type != "" {
		product.Type = input.Type
	}
	if input.Description != "" {
		product.Description = input.Description
	}
	if input.PublicationDate != nil {
		pub, err := time.Parse(dateLayout, *input.PublicationDate)
		if err != nil {
			return fmt.Errorf("%w: product publication_date must be YYYY-MM-DD", ErrValidation)
		}
		product.PublicationDate = &pub
	}
	if err := tx.Save(&product).Error; err != nil {
		return err
	}
	activity.ProductID = &product.ID
	return nil
}

func (s *ActivityService) upsertRecognition(tx *gorm.DB, activity *models.Activity, input RecognitionInput) error {
	var recognition models.Recognition
	if activity.RecognitionID != nil {
		if err := tx.First(&recognition, *activity.RecognitionID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if input.Name != "" {
		recognition.Name = input.Name
	}
	if input.ProjectName != "" {
		recognition.ProjectName = input.ProjectName
	}
	if input.ParticipantsNames != "" {
		recognition.ParticipantsNames = input.ParticipantsNames
	}
	if input.OrganizationName != "" {
		recognition.OrganizationName = input.OrganizationName
	}
	if err := tx.Save(&recognition).Error; err != nil {
		return err
	}
	activity.RecognitionID = &recognition.ID
	return nil
}

func projectFromInput(input ProjectInput) (*models.Project, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrValidation)
	}
	start, err := time.Parse(dateLayout, input.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: project start_date must be YYYY-MM-DD", ErrValidation)
	}
	project := &models.Project{
		Name:                input.Name,
		ReferenceNumber:     input.ReferenceNumber,
		StartDate:           start,
		PrincipalResearcher: input.PrincipalResearcher,
		CoResearchers:       input.CoResearchers,
	}
	if input.EndDate != nil {
		end, err := time.Parse(dateLayout, *input.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: project end_date must be YYYY-MM-DD", ErrValidation)
		}
		project.EndDate = &end
	}
	return project, nil
}

func productFromInput(input ProductInput) (*models.Product, error) {
	if input.Category == "" {
		return nil, fmt.Errorf("%w: product category is required", ErrValidation)
	}
	product := &models.Product{
		Category:    input.Category,
		Type:        input.Type,
		Description: input.Description,
	}
	if input.PublicationDate != nil {
		pub, err := time.Parse(dateLayout, *input.PublicationDate)
		if err != nil {
			return nil, fmt.Errorf("%w: product publication_date must be YYYY-MM-DD", ErrValidation)
		}
		product.PublicationDate = &pub
	}
	return product, nil
}

func recognitionFromInput(input RecognitionInput) *models.Recognition {
	return &models.Recognition{
		Name:              input.Name,
		ProjectName:       input.ProjectName,
		ParticipantsNames: input.ParticipantsNames,
		OrganizationName:  input.OrganizationName,
	}
}

func authorMembershipIDs(authors []AuthorInput) []uint {
	ids := make([]uint, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.MembershipID)
	}
	return ids
}

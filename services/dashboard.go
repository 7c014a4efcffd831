package services

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"semillero-hub/models"
)

// UserDashboard is the per-user summary shown on the landing page.
type UserDashboard struct {
	TotalActivities     int          `json:"total_activities"`
	CurrentSemester     string       `json:"current_semester"`
	SemesterActivities  int          `json:"semester_activities"`
	PendingApprovals    int          `json:"pending_approvals"`
	ApprovedFreeHours   float64      `json:"approved_free_hours"`
	ResearchHotbedCards []HotbedCard `json:"research_hotbeds"`
}

// HotbedCard summarizes one hotbed the user actively belongs to.
type HotbedCard struct {
	ResearchHotbedID uint   `json:"research_hotbed_id"`
	Name             string `json:"name"`
	Acronym          string `json:"acronym,omitempty"`
	ActivityCount    int    `json:"activity_count"`
	LastActivityDate string `json:"last_activity_date,omitempty"`
}

// DashboardService derives summary figures from the same de-duplicated
// activity sets the aggregation engine serves, so dashboard counts and
// activity listings never disagree.
type DashboardService struct {
	DB          *gorm.DB
	Aggregation *AggregationService
	Logger      *zap.Logger
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(db *gorm.DB, aggregation *AggregationService, logger *zap.Logger) *DashboardService {
	return &DashboardService{DB: db, Aggregation: aggregation, Logger: logger}
}

// ForUser builds the dashboard of one user.
func (s *DashboardService) ForUser(ctx context.Context, userID uint) (*UserDashboard, error) {
	views, err := s.Aggregation.ActivitiesForUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	current := CurrentSemester()
	dashboard := &UserDashboard{
		CurrentSemester:     current,
		TotalActivities:     len(views),
		ResearchHotbedCards: []HotbedCard{},
	}
	for _, v := range views {
		if v.Semester == current {
			dashboard.SemesterActivities++
		}
		if v.ApprovedFreeHours {
			dashboard.ApprovedFreeHours += v.DurationHours
		} else {
			dashboard.PendingApprovals++
		}
	}

	cards, err := s.hotbedCards(ctx, userID)
	if err != nil {
		s.Logger.Error("Dashboard hotbed cards failed", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}
	dashboard.ResearchHotbedCards = cards
	return dashboard, nil
}

// hotbedCards lists the user's active hotbeds. Count and last-activity date
// cover only the user's own participation in each hotbed, not the whole
// hotbed's output.
func (s *DashboardService) hotbedCards(ctx context.Context, userID uint) ([]HotbedCard, error) {
	var memberships []models.Membership
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.MembershipStatusActive).
		Find(&memberships).Error; err != nil {
		return nil, err
	}

	cards := []HotbedCard{}
	for _, m := range memberships {
		var hotbed models.ResearchHotbed
		if err := s.DB.WithContext(ctx).First(&hotbed, m.ResearchHotbedID).Error; err != nil {
			continue
		}
		if hotbed.Status != models.HotbedStatusActive {
			continue
		}

		views, err := s.Aggregation.ActivitiesForUserInHotbed(ctx, userID, hotbed.ID, "")
		if err != nil {
			return nil, err
		}
		card := HotbedCard{
			ResearchHotbedID: hotbed.ID,
			Name:             hotbed.Name,
			Acronym:          hotbed.Acronym,
			ActivityCount:    len(views),
		}
		if len(views) > 0 {
			// Views are sorted newest first.
			card.LastActivityDate = views[0].Date
		}
		cards = append(cards, card)
	}
	return cards, nil
}

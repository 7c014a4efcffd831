package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"semillero-hub/models"
)

// SweepService flags accounts as inactive after a configurable number of
// days without a login. It runs on a timer outside the request path.
type SweepService struct {
	DB             *gorm.DB
	Logger         *zap.Logger
	InactivityDays int
}

// NewSweepService creates a new SweepService.
func NewSweepService(db *gorm.DB, logger *zap.Logger, inactivityDays int) *SweepService {
	return &SweepService{DB: db, Logger: logger, InactivityDays: inactivityDays}
}

// CountStaleUsers returns how many active users currently exceed the
// inactivity threshold, without modifying them.
func (s *SweepService) CountStaleUsers(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.InactivityDays)

	var count int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("status = ?", models.UserStatusActive).
		Where("(last_login_at IS NOT NULL AND last_login_at < ?) OR (last_login_at IS NULL AND created_at < ?)", cutoff, cutoff).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MarkInactiveUsers sets the status of every active user whose last login is
// older than the threshold to inactive. Users who never logged in are aged by
// their registration date. Returns the number of flagged accounts.
func (s *SweepService) MarkInactiveUsers(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.InactivityDays)

	result := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("status = ?", models.UserStatusActive).
		Where("(last_login_at IS NOT NULL AND last_login_at < ?) OR (last_login_at IS NULL AND created_at < ?)", cutoff, cutoff).
		Update("status", models.UserStatusInactive)
	if result.Error != nil {
		s.Logger.Error("Inactivity sweep failed", zap.Error(result.Error))
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		s.Logger.Info("Inactivity sweep flagged users",
			zap.Int64("count", result.RowsAffected),
			zap.Int("inactivity_days", s.InactivityDays))
	}
	return result.RowsAffected, nil
}

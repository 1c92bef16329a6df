package data

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

func (s *Store) GetSubmission(ctx context.Context, id uint64) (*types.Submission, error) {
	var sub types.Submission
	if err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) GetMilestone(ctx context.Context, id uint64) (*types.Milestone, error) {
	var m types.Milestone
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) UpdateSubmissionStatus(ctx context.Context, id uint64, status string, now time.Time) error {
	return s.db.WithContext(ctx).Model(&types.Submission{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": now}).Error
}

func (s *Store) CompleteMilestone(ctx context.Context, id uint64, now time.Time) error {
	return s.db.WithContext(ctx).Model(&types.Milestone{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      types.MilestoneCompleted,
			"reviewed_at": now,
			"updated_at":  now,
		}).Error
}

// RejectMilestone bumps the rejection counter in the same statement so
// concurrent rejections are not lost.
func (s *Store) RejectMilestone(ctx context.Context, id uint64, now time.Time) error {
	return s.db.WithContext(ctx).Model(&types.Milestone{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           types.MilestoneRejected,
			"reviewed_at":      now,
			"updated_at":       now,
			"last_rejected_at": now,
			"rejection_count":  gorm.Expr("rejection_count + 1"),
		}).Error
}

package data

import (
	"context"
	"fmt"

	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

// TargetKey identifies the vote scope: the milestone when one is given,
// otherwise the submission itself.
func TargetKey(submissionID uint64, milestoneID *uint64) string {
	if milestoneID != nil {
		return fmt.Sprintf("m:%d", *milestoneID)
	}
	return fmt.Sprintf("s:%d", submissionID)
}

// FindReview returns nil, nil when the reviewer has not voted on the target.
func (s *Store) FindReview(ctx context.Context, targetKey string, reviewerID uint64) (*types.Review, error) {
	var reviews []types.Review
	err := s.db.WithContext(ctx).
		Where("target_key = ? AND reviewer_id = ?", targetKey, reviewerID).
		Limit(1).Find(&reviews).Error
	if err != nil || len(reviews) == 0 {
		return nil, err
	}
	return &reviews[0], nil
}

// CreateReview inserts a vote. A second vote for the same reviewer and
// target fails with a duplicate key error (see IsDuplicateKey).
func (s *Store) CreateReview(ctx context.Context, r *types.Review) error {
	if r.TargetKey == "" {
		r.TargetKey = TargetKey(r.SubmissionID, r.MilestoneID)
	}
	return s.db.WithContext(ctx).Create(r).Error
}

// ListReviews returns every vote for a target in cast order: submission
// scope when milestoneID is nil, otherwise that milestone only.
func (s *Store) ListReviews(ctx context.Context, submissionID uint64, milestoneID *uint64) ([]types.Review, error) {
	var reviews []types.Review
	q := s.db.WithContext(ctx).Where("submission_id = ?", submissionID)
	if milestoneID == nil {
		q = q.Where("milestone_id IS NULL")
	} else {
		q = q.Where("milestone_id = ?", *milestoneID)
	}
	err := q.Order("created_at asc, id asc").Find(&reviews).Error
	return reviews, err
}

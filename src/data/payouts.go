package data

import (
	"context"

	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

func (s *Store) CreatePayout(ctx context.Context, p *types.Payout) error {
	return s.db.WithContext(ctx).Create(p).Error
}

// PayoutForMilestone returns nil, nil when the milestone was never paid.
func (s *Store) PayoutForMilestone(ctx context.Context, milestoneID uint64) (*types.Payout, error) {
	var payouts []types.Payout
	err := s.db.WithContext(ctx).Where("milestone_id = ?", milestoneID).
		Order("id asc").Limit(1).Find(&payouts).Error
	if err != nil || len(payouts) == 0 {
		return nil, err
	}
	return &payouts[0], nil
}

func (s *Store) ListPayouts(ctx context.Context, milestoneID uint64) ([]types.Payout, error) {
	var payouts []types.Payout
	err := s.db.WithContext(ctx).Where("milestone_id = ?", milestoneID).Order("id asc").Find(&payouts).Error
	return payouts, err
}

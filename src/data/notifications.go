package data

import (
	"context"

	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

func (s *Store) CreateNotification(ctx context.Context, n *types.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

// ListNotifications returns the newest notifications of a user first.
func (s *Store) ListNotifications(ctx context.Context, userID uint64, limit int) ([]types.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []types.Notification
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc, id desc").Limit(limit).Find(&out).Error
	return out, err
}

package data

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

// Store is the gorm-backed persistence for grants, reviews and multisig
// approvals. A Store obtained inside Transaction is bound to that tx.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB { return s.db }

// Transaction runs fn with a Store bound to one database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func (s *Store) GetUser(ctx context.Context, id uint64) (*types.User, error) {
	var u types.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetGroup always reads the row; committee voting policy must never be cached.
func (s *Store) GetGroup(ctx context.Context, id uint64) (*types.Group, error) {
	var g types.Group
	if err := s.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) CountActiveMembers(ctx context.Context, groupID uint64) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&types.GroupMembership{}).
		Where("group_id = ? AND is_active = ?", groupID, true).
		Count(&n).Error
	return int(n), err
}

// ActiveMembership returns the caller's active membership in a group, or
// gorm.ErrRecordNotFound.
func (s *Store) ActiveMembership(ctx context.Context, groupID, userID uint64) (*types.GroupMembership, error) {
	var m types.GroupMembership
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ? AND is_active = ?", groupID, userID, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// HasCommitteeMembership reports an active membership in any active committee.
func (s *Store) HasCommitteeMembership(ctx context.Context, userID uint64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&types.GroupMembership{}).
		Joins("JOIN `groups` ON `groups`.id = group_memberships.group_id").
		Where("group_memberships.user_id = ? AND group_memberships.is_active = ?", userID, true).
		Where("`groups`.type = ? AND `groups`.is_active = ?", types.GroupCommittee, true).
		Count(&n).Error
	return n > 0, err
}

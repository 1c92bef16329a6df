// Package authz answers who may act on committee votes and approvals.
package authz

import (
	"context"

	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

type Checker struct {
	store *data.Store
}

func NewChecker(store *data.Store) *Checker {
	return &Checker{store: store}
}

// IsUserReviewer reports whether the user may review at all: admins,
// committee users, and anyone with an active committee membership.
func (c *Checker) IsUserReviewer(ctx context.Context, userID uint64) (bool, error) {
	u, err := c.store.GetUser(ctx, userID)
	if err != nil {
		if data.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if u.PrimaryRole == types.UserRoleAdmin || u.PrimaryRole == types.UserRoleCommittee {
		return true, nil
	}
	return c.store.HasCommitteeMembership(ctx, userID)
}

// IsUserGroupMember reports an active membership. A nil groupID matches any
// committee; a non-empty role must match exactly (admins satisfy "member").
func (c *Checker) IsUserGroupMember(ctx context.Context, userID uint64, groupID *uint64, role string) (bool, error) {
	if groupID == nil {
		if role != "" {
			return false, nil
		}
		return c.store.HasCommitteeMembership(ctx, userID)
	}
	m, err := c.store.ActiveMembership(ctx, *groupID, userID)
	if err != nil {
		if data.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	switch role {
	case "", types.RoleMember:
		return true, nil
	default:
		return m.Role == role, nil
	}
}

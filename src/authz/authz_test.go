package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MbBrainz/grantflow-dev-sub000/src/authz"
	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/testutil"
	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

func TestChecker(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, 2, types.GroupSettings{})
	c := authz.NewChecker(data.NewStore(db))
	ctx := context.Background()
	committee := f.Committee.ID

	// a team user who also sits on a committee
	crossover := types.User{Name: "crossover", Email: "crossover@team.test", PrimaryRole: types.UserRoleTeam}
	require.NoError(t, db.Create(&crossover).Error)
	require.NoError(t, db.Create(&types.GroupMembership{GroupID: committee, UserID: crossover.ID, Role: types.RoleMember, IsActive: true}).Error)

	// an inactive membership counts for nothing
	former := types.User{Name: "former", Email: "former@team.test", PrimaryRole: types.UserRoleTeam}
	require.NoError(t, db.Create(&former).Error)
	require.NoError(t, db.Create(&types.GroupMembership{GroupID: committee, UserID: former.ID, Role: types.RoleAdmin, IsActive: false}).Error)

	t.Run("IsUserReviewer", func(t *testing.T) {
		cases := []struct {
			name string
			user uint64
			want bool
		}{
			{"committee role", f.Reviewers[1].ID, true},
			{"team with membership", crossover.ID, true},
			{"team without membership", f.Submitter.ID, false},
			{"inactive membership", former.ID, false},
			{"unknown user", 9999, false},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				ok, err := c.IsUserReviewer(ctx, tc.user)
				require.NoError(t, err)
				assert.Equal(t, tc.want, ok)
			})
		}
	})

	t.Run("IsUserGroupMember", func(t *testing.T) {
		cases := []struct {
			name  string
			user  uint64
			group *uint64
			role  string
			want  bool
		}{
			{"admin in group", f.Reviewers[0].ID, &committee, "", true},
			{"admin satisfies member", f.Reviewers[0].ID, &committee, types.RoleMember, true},
			{"admin role", f.Reviewers[0].ID, &committee, types.RoleAdmin, true},
			{"member is not admin", f.Reviewers[1].ID, &committee, types.RoleAdmin, false},
			{"any committee", crossover.ID, nil, "", true},
			{"not a member", f.Outsider.ID, &committee, "", false},
			{"inactive", former.ID, &committee, types.RoleAdmin, false},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				ok, err := c.IsUserGroupMember(ctx, tc.user, tc.group, tc.role)
				require.NoError(t, err)
				assert.Equal(t, tc.want, ok)
			})
		}
	})
}

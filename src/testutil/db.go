// Package testutil provides an in-memory database and seeded grant fixtures
// for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

// Well-known dev chain accounts (Alice, Bob, Charlie, Dave).
const (
	AddrAlice   = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	AddrBob     = "5FHneW46xGXgs5mUiveU4sbTyGBzmstUspZC92UhjJM694ty"
	AddrCharlie = "5FLSigC9HGRKVhB9FiEo4Y3koPsNmBmLJbpXg2mp1hXcS59Y"
	AddrDave    = "5DAAnrj7VHTznn2AWBemMuyBwZWs6FNFjdyVXUeYum3PTXFy"
)

// NewDB opens a fresh migrated SQLite database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), data.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := data.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Fixture is a committee with reviewers, a submitting team member, one
// submission and one milestone under review.
type Fixture struct {
	Committee  types.Group
	Reviewers  []types.User
	Submitter  types.User
	Outsider   types.User
	Submission types.Submission
	Milestone  types.Milestone
}

// Seed creates a committee with the given number of active reviewers.
func Seed(t testing.TB, db *gorm.DB, reviewers int, settings types.GroupSettings) Fixture {
	t.Helper()

	var f Fixture
	f.Committee = types.Group{Name: "Infrastructure Committee", Type: types.GroupCommittee, IsActive: true, Settings: settings}
	mustCreate(t, db, &f.Committee)

	for i := 0; i < reviewers; i++ {
		u := types.User{
			Name:        fmt.Sprintf("reviewer-%d", i+1),
			Email:       fmt.Sprintf("reviewer-%d@committee.test", i+1),
			PrimaryRole: types.UserRoleCommittee,
		}
		mustCreate(t, db, &u)
		role := types.RoleMember
		if i == 0 {
			role = types.RoleAdmin
		}
		mustCreate(t, db, &types.GroupMembership{GroupID: f.Committee.ID, UserID: u.ID, Role: role, IsActive: true})
		f.Reviewers = append(f.Reviewers, u)
	}

	f.Submitter = types.User{Name: "applicant", Email: "applicant@team.test", PrimaryRole: types.UserRoleTeam}
	mustCreate(t, db, &f.Submitter)
	f.Outsider = types.User{Name: "outsider", Email: "outsider@elsewhere.test", PrimaryRole: types.UserRoleTeam}
	mustCreate(t, db, &f.Outsider)

	f.Submission = types.Submission{
		Title:           "Light client tooling",
		SubmitterID:     f.Submitter.ID,
		ReviewerGroupID: f.Committee.ID,
		Status:          types.SubmissionInReview,
		WalletAddress:   AddrDave,
		TotalAmount:     decimal.NewFromInt(30000),
	}
	mustCreate(t, db, &f.Submission)

	submitted := time.Now().Add(-time.Hour)
	f.Milestone = types.Milestone{
		SubmissionID: f.Submission.ID,
		GroupID:      f.Committee.ID,
		Title:        "M1: prototype",
		Amount:       decimal.NewFromInt(10000),
		Status:       types.MilestoneInReview,
		SubmittedAt:  &submitted,
	}
	mustCreate(t, db, &f.Milestone)

	return f
}

// MultisigSettings registers the first len(addrs) reviewers as signatories.
func MultisigSettings(f Fixture, threshold int, workflow string, addrs ...string) types.GroupSettings {
	cfg := &types.MultisigConfig{
		MultisigAddress:  "5HmTC7Dy2aUqBQM63CwvxQTDNUbZvbyWEafn6Z8HmJ9YxXsN",
		Threshold:        threshold,
		Network:          "paseo",
		ApprovalWorkflow: workflow,
	}
	for i, addr := range addrs {
		s := types.Signatory{Address: addr}
		if i < len(f.Reviewers) {
			id := f.Reviewers[i].ID
			s.UserID = &id
		}
		cfg.Signatories = append(cfg.Signatories, s)
	}
	return types.GroupSettings{Multisig: cfg}
}

// SetSettings overwrites the committee settings of a seeded fixture.
func SetSettings(t testing.TB, db *gorm.DB, f *Fixture, settings types.GroupSettings) {
	t.Helper()
	f.Committee.Settings = settings
	if err := db.Save(&f.Committee).Error; err != nil {
		t.Fatalf("save committee: %v", err)
	}
}

func mustCreate(t testing.TB, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

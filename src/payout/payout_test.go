package payout_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MbBrainz/grantflow-dev-sub000/src/authz"
	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/payout"
	"github.com/MbBrainz/grantflow-dev-sub000/src/testutil"
	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

const txHash = "0x9d00000000000000000000000000000000000000000000000000000000000abc"

func TestExplorerURL(t *testing.T) {
	tests := []struct {
		name     string
		template string
		network  string
		hash     string
		want     string
	}{
		{"default", "", "Polkadot", "0xabc", "https://polkadot.subscan.io/extrinsic/0xabc"},
		{"custom", "https://explorer.example/%s/tx/%s", "paseo", "0xabc", "https://explorer.example/paseo/tx/0xabc"},
		{"broken template", "https://explorer.example/%s", "kusama", "0xabc", "https://kusama.subscan.io/extrinsic/0xabc"},
		{"no network", "", "", "0xabc", ""},
		{"no hash", "", "paseo", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, payout.Explorer{Template: tt.template}.URL(tt.network, tt.hash))
		})
	}
}

func completeMilestone(t *testing.T, f testutil.Fixture, store *data.Store) {
	t.Helper()
	require.NoError(t, store.DB().Model(&types.Milestone{}).Where("id = ?", f.Milestone.ID).
		Update("status", types.MilestoneCompleted).Error)
}

func TestRecordManual(t *testing.T) {
	ctx := context.Background()
	setup := func(t *testing.T) (*payout.Service, *data.Store, testutil.Fixture) {
		db := testutil.NewDB(t)
		f := testutil.Seed(t, db, 2, types.GroupSettings{})
		store := data.NewStore(db)
		svc := payout.NewService(store, authz.NewChecker(store), payout.NewWriter(payout.Explorer{}))
		return svc, store, f
	}

	t.Run("records once", func(t *testing.T) {
		svc, store, f := setup(t)
		completeMilestone(t, f, store)

		p, err := svc.RecordManual(ctx, payout.ManualInput{
			UserID: f.Reviewers[0].ID, MilestoneID: f.Milestone.ID, TransactionHash: txHash, Network: "paseo",
		})
		require.NoError(t, err)
		assert.Equal(t, "10000", p.Amount.String())
		assert.Equal(t, testutil.AddrDave, p.WalletTo)
		assert.Nil(t, p.ApprovalID)
		assert.Equal(t, "https://paseo.subscan.io/extrinsic/"+txHash, p.BlockExplorerURL)

		_, err = svc.RecordManual(ctx, payout.ManualInput{
			UserID: f.Reviewers[0].ID, MilestoneID: f.Milestone.ID, TransactionHash: txHash,
		})
		assert.ErrorIs(t, err, payout.ErrAlreadyPaid)

		payouts, err := store.ListPayouts(ctx, f.Milestone.ID)
		require.NoError(t, err)
		assert.Len(t, payouts, 1)
	})

	t.Run("admins only", func(t *testing.T) {
		svc, store, f := setup(t)
		completeMilestone(t, f, store)
		_, err := svc.RecordManual(ctx, payout.ManualInput{UserID: f.Reviewers[1].ID, MilestoneID: f.Milestone.ID})
		assert.ErrorIs(t, err, payout.ErrNotCommitteeAdmin)
	})

	t.Run("milestone must be completed", func(t *testing.T) {
		svc, _, f := setup(t)
		_, err := svc.RecordManual(ctx, payout.ManualInput{UserID: f.Reviewers[0].ID, MilestoneID: f.Milestone.ID})
		assert.ErrorIs(t, err, payout.ErrNotCompleted)
	})

	t.Run("multisig committees pay on chain", func(t *testing.T) {
		svc, store, f := setup(t)
		completeMilestone(t, f, store)
		testutil.SetSettings(t, store.DB(), &f, testutil.MultisigSettings(f, 2, types.WorkflowMerged, testutil.AddrAlice, testutil.AddrBob))
		_, err := svc.RecordManual(ctx, payout.ManualInput{UserID: f.Reviewers[0].ID, MilestoneID: f.Milestone.ID})
		assert.ErrorIs(t, err, payout.ErrMultisigCommittee)
	})

	t.Run("amount must be positive", func(t *testing.T) {
		svc, store, f := setup(t)
		completeMilestone(t, f, store)
		_, err := svc.RecordManual(ctx, payout.ManualInput{
			UserID: f.Reviewers[0].ID, MilestoneID: f.Milestone.ID, Amount: decimal.NewNullDecimal(decimal.Zero),
		})
		assert.ErrorIs(t, err, payout.ErrInvalidAmount)
	})

	t.Run("unknown milestone", func(t *testing.T) {
		svc, _, f := setup(t)
		_, err := svc.RecordManual(ctx, payout.ManualInput{UserID: f.Reviewers[0].ID, MilestoneID: 404})
		assert.ErrorIs(t, err, payout.ErrMilestoneNotFound)
	})

	t.Run("second manual write for a milestone is a duplicate", func(t *testing.T) {
		_, store, f := setup(t)
		w := payout.NewWriter(payout.Explorer{})
		in := payout.Input{
			SubmissionID: f.Submission.ID, MilestoneID: f.Milestone.ID, GroupID: f.Committee.ID,
			Amount: decimal.NewFromInt(10), TransactionHash: txHash, TriggeredBy: f.Reviewers[0].ID,
		}
		p, err := w.CreatePayout(ctx, store, in)
		require.NoError(t, err)
		require.NotNil(t, p.ManualMilestoneID)
		assert.Equal(t, f.Milestone.ID, *p.ManualMilestoneID)

		_, err = w.CreatePayout(ctx, store, in)
		require.Error(t, err)
		assert.True(t, data.IsDuplicateKey(err))

		// approval-backed payouts do not take the manual slot
		approvalID := uint64(77)
		in.ApprovalID = &approvalID
		p, err = w.CreatePayout(ctx, store, in)
		require.NoError(t, err)
		assert.Nil(t, p.ManualMilestoneID)
	})
}

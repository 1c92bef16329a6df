package multisig_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MbBrainz/grantflow-dev-sub000/src/authz"
	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/multisig"
	"github.com/MbBrainz/grantflow-dev-sub000/src/notify"
	"github.com/MbBrainz/grantflow-dev-sub000/src/payout"
	"github.com/MbBrainz/grantflow-dev-sub000/src/testutil"
	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

const (
	callHash  = "0x8f1a5b6c2d3e4f5061728394a5b6c7d8e9f00112233445566778899aabbccdd"
	callData  = "0x2d0100e8764817000000000000000000000000"
	initTx    = "0x01aa000000000000000000000000000000000000000000000000000000000001"
	voteTx    = "0x02bb000000000000000000000000000000000000000000000000000000000002"
	finalTx   = "0x03cc000000000000000000000000000000000000000000000000000000000003"
	execBlock = uint64(12345)
)

type env struct {
	c  *multisig.Coordinator
	db *gorm.DB
	f  testutil.Fixture
}

func setup(t *testing.T, threshold int, workflow string) env {
	t.Helper()
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, 3, types.GroupSettings{})
	testutil.SetSettings(t, db, &f, testutil.MultisigSettings(f, threshold, workflow,
		testutil.AddrAlice, testutil.AddrBob, testutil.AddrCharlie))

	store := data.NewStore(db)
	c := multisig.NewCoordinator(store, authz.NewChecker(store), notify.NewWriter(store, nil),
		payout.NewWriter(payout.Explorer{Template: payout.DefaultExplorerTemplate}))
	return env{c: c, db: db, f: f}
}

func (e env) initiate(t *testing.T) *multisig.Status {
	t.Helper()
	st, err := e.c.Initiate(context.Background(), multisig.InitiateInput{
		UserID:           e.f.Reviewers[0].ID,
		MilestoneID:      e.f.Milestone.ID,
		SignatoryAddress: testutil.AddrAlice,
		CallHash:         callHash,
		CallData:         callData,
		TimepointHeight:  4200,
		TimepointIndex:   2,
		TxHash:           initTx,
	})
	require.NoError(t, err)
	return st
}

func (e env) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func TestInitiate(t *testing.T) {
	e := setup(t, 2, types.WorkflowMerged)
	st := e.initiate(t)

	a := st.Approval
	assert.Equal(t, types.ApprovalPending, a.Status)
	assert.Equal(t, e.f.Reviewers[0].ID, a.InitiatorID)
	assert.Equal(t, testutil.AddrDave, a.BeneficiaryAddress)
	assert.True(t, a.PayoutAmount.Valid)
	assert.Equal(t, "10000", a.PayoutAmount.Decimal.String())
	assert.Equal(t, types.WorkflowMerged, a.ApprovalWorkflow)
	require.Len(t, a.Signatures, 1)
	assert.True(t, a.Signatures[0].IsInitiator)
	require.NotNil(t, a.Signatures[0].ReviewID)

	assert.Equal(t, 1, st.Votes.ApprovalCount)
	assert.Equal(t, 1, st.Votes.VotesNeeded)
	assert.False(t, st.Votes.ThresholdMet)

	// merged workflow records the signature as a milestone approve vote
	var r types.Review
	require.NoError(t, e.db.First(&r, *a.Signatures[0].ReviewID).Error)
	assert.Equal(t, types.VoteApprove, r.Vote)
	assert.Equal(t, e.f.Milestone.ID, *r.MilestoneID)
	// without changing the milestone
	var m types.Milestone
	require.NoError(t, e.db.First(&m, e.f.Milestone.ID).Error)
	assert.Equal(t, types.MilestoneInReview, m.Status)

	var n types.Notification
	require.NoError(t, e.db.Where("user_id = ?", e.f.Submitter.ID).First(&n).Error)
	assert.Equal(t, notify.TypeApprovalStarted, n.Type)
}

func TestInitiatePreconditions(t *testing.T) {
	ctx := context.Background()
	base := func(e env) multisig.InitiateInput {
		return multisig.InitiateInput{
			UserID: e.f.Reviewers[0].ID, MilestoneID: e.f.Milestone.ID, SignatoryAddress: testutil.AddrAlice,
			CallHash: callHash, CallData: callData, TimepointHeight: 4200, TxHash: initTx,
		}
	}

	t.Run("second pending approval", func(t *testing.T) {
		e := setup(t, 2, types.WorkflowMerged)
		e.initiate(t)
		in := base(e)
		in.UserID, in.SignatoryAddress = e.f.Reviewers[1].ID, testutil.AddrBob
		_, err := e.c.Initiate(ctx, in)
		assert.ErrorIs(t, err, multisig.ErrActiveApproval)
		assert.EqualValues(t, 1, e.count(t, &types.MilestoneApproval{}))
	})

	t.Run("committee without multisig", func(t *testing.T) {
		e := setup(t, 2, types.WorkflowMerged)
		testutil.SetSettings(t, e.db, &e.f, types.GroupSettings{})
		_, err := e.c.Initiate(ctx, base(e))
		assert.ErrorIs(t, err, multisig.ErrNoMultisig)
	})

	t.Run("submission without wallet", func(t *testing.T) {
		e := setup(t, 2, types.WorkflowMerged)
		require.NoError(t, e.db.Model(&types.Submission{}).Where("id = ?", e.f.Submission.ID).
			Update("wallet_address", "").Error)
		_, err := e.c.Initiate(ctx, base(e))
		assert.ErrorIs(t, err, multisig.ErrNoBeneficiary)
	})

	t.Run("address is not a signatory", func(t *testing.T) {
		e := setup(t, 2, types.WorkflowMerged)
		in := base(e)
		in.SignatoryAddress = testutil.AddrDave
		_, err := e.c.Initiate(ctx, in)
		assert.ErrorIs(t, err, multisig.ErrNotSignatory)
	})

	t.Run("signatory bound to another user", func(t *testing.T) {
		e := setup(t, 2, types.WorkflowMerged)
		in := base(e)
		in.UserID = e.f.Reviewers[1].ID
		_, err := e.c.Initiate(ctx, in)
		assert.ErrorIs(t, err, multisig.ErrNotSignatory)
	})

	t.Run("outsider", func(t *testing.T) {
		e := setup(t, 2, types.WorkflowMerged)
		in := base(e)
		in.UserID = e.f.Outsider.ID
		_, err := e.c.Initiate(ctx, in)
		assert.ErrorIs(t, err, multisig.ErrNotAuthorizedInitiate)
	})

	t.Run("missing call", func(t *testing.T) {
		e := setup(t, 2, types.WorkflowMerged)
		in := base(e)
		in.CallHash = ""
		_, err := e.c.Initiate(ctx, in)
		assert.ErrorIs(t, err, multisig.ErrMissingCall)
	})

	t.Run("unknown milestone", func(t *testing.T) {
		e := setup(t, 2, types.WorkflowMerged)
		in := base(e)
		in.MilestoneID = 777
		_, err := e.c.Initiate(ctx, in)
		assert.ErrorIs(t, err, multisig.ErrMilestoneNotFound)
	})
}

func TestCastVoteExecutesAndPaysOnce(t *testing.T) {
	e := setup(t, 2, types.WorkflowMerged)
	st := e.initiate(t)
	ctx := context.Background()
	block := execBlock

	res, err := e.c.CastVote(ctx, multisig.VoteInput{
		UserID:               e.f.Reviewers[1].ID,
		ApprovalID:           st.Approval.ID,
		SignatoryAddress:     testutil.AddrBob,
		TxHash:               voteTx,
		WasExecuted:          true,
		ExecutionBlockNumber: &block,
	})
	require.NoError(t, err)
	assert.True(t, res.ThresholdMet)
	assert.True(t, res.WasExecuted)
	assert.Equal(t, 2, res.ApprovalCount)
	assert.Equal(t, 0, res.VotesNeeded)

	var a types.MilestoneApproval
	require.NoError(t, e.db.First(&a, st.Approval.ID).Error)
	assert.Equal(t, types.ApprovalExecuted, a.Status)
	assert.Equal(t, voteTx, a.ExecutionTxHash)
	require.NotNil(t, a.ExecutionBlockNumber)
	assert.Equal(t, execBlock, *a.ExecutionBlockNumber)
	assert.NotNil(t, a.ExecutedAt)
	assert.Nil(t, a.ActiveMilestoneID)

	var m types.Milestone
	require.NoError(t, e.db.First(&m, e.f.Milestone.ID).Error)
	assert.Equal(t, types.MilestoneCompleted, m.Status)
	assert.NotNil(t, m.ReviewedAt)

	var payouts []types.Payout
	require.NoError(t, e.db.Find(&payouts).Error)
	require.Len(t, payouts, 1)
	p := payouts[0]
	assert.Equal(t, voteTx, p.TransactionHash)
	assert.Equal(t, "10000", p.Amount.String())
	assert.Equal(t, "5HmTC7Dy2aUqBQM63CwvxQTDNUbZvbyWEafn6Z8HmJ9YxXsN", p.WalletFrom)
	assert.Equal(t, testutil.AddrDave, p.WalletTo)
	assert.Equal(t, "https://paseo.subscan.io/extrinsic/"+voteTx, p.BlockExplorerURL)
	require.NotNil(t, p.ApprovalID)
	assert.Equal(t, st.Approval.ID, *p.ApprovalID)

	var final types.MultisigSignature
	require.NoError(t, e.db.Where("approval_id = ? AND signatory_address = ?", st.Approval.ID, testutil.AddrBob).
		First(&final).Error)
	assert.True(t, final.IsFinalApproval)

	var n types.Notification
	require.NoError(t, e.db.Where("user_id = ? AND type = ?", e.f.Submitter.ID, notify.TypePayoutCompleted).
		First(&n).Error)
	assert.Contains(t, n.Content, p.BlockExplorerURL)

	// a repeat vote on the executed approval changes nothing
	_, err = e.c.CastVote(ctx, multisig.VoteInput{
		UserID:               e.f.Reviewers[1].ID,
		ApprovalID:           st.Approval.ID,
		SignatoryAddress:     testutil.AddrBob,
		TxHash:               finalTx,
		WasExecuted:          true,
		ExecutionBlockNumber: &block,
	})
	require.ErrorIs(t, err, multisig.ErrNotActive)
	assert.Equal(t, "This approval is no longer active", err.Error())
	assert.EqualValues(t, 2, e.count(t, &types.MultisigSignature{}))
	assert.EqualValues(t, 1, e.count(t, &types.Payout{}))
}

func TestThresholdWithoutExecutionStaysPending(t *testing.T) {
	e := setup(t, 2, types.WorkflowSeparated)
	st := e.initiate(t)

	res, err := e.c.CastVote(context.Background(), multisig.VoteInput{
		UserID:           e.f.Reviewers[1].ID,
		ApprovalID:       st.Approval.ID,
		SignatoryAddress: testutil.AddrBob,
		TxHash:           voteTx,
	})
	require.NoError(t, err)
	assert.True(t, res.ThresholdMet)
	assert.False(t, res.WasExecuted)

	var a types.MilestoneApproval
	require.NoError(t, e.db.First(&a, st.Approval.ID).Error)
	assert.Equal(t, types.ApprovalPending, a.Status)
	assert.EqualValues(t, 0, e.count(t, &types.Payout{}))
	// separated workflow keeps reviews and signatures apart
	assert.EqualValues(t, 0, e.count(t, &types.Review{}))
}

func TestDuplicateVote(t *testing.T) {
	e := setup(t, 3, types.WorkflowMerged)
	st := e.initiate(t)
	ctx := context.Background()
	in := multisig.VoteInput{
		UserID:           e.f.Reviewers[1].ID,
		ApprovalID:       st.Approval.ID,
		SignatoryAddress: testutil.AddrBob,
		SignatureType:    types.SignatureRejected,
		TxHash:           voteTx,
	}

	res, err := e.c.CastVote(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ApprovalCount)
	assert.Equal(t, 1, res.RejectionCount)
	assert.Equal(t, 2, res.VotesNeeded)

	in.SignatureType = types.SignatureSigned
	_, err = e.c.CastVote(ctx, in)
	assert.ErrorIs(t, err, multisig.ErrAlreadyVoted)

	active, err := e.c.ActiveApproval(ctx, e.f.Reviewers[2].ID, e.f.Milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, active.Votes.ApprovalCount)
	assert.Equal(t, 1, active.Votes.RejectionCount)
	assert.Equal(t, 2, active.Votes.TotalSignatures)

	// the initiator cannot vote twice either
	_, err = e.c.CastVote(ctx, multisig.VoteInput{
		UserID: e.f.Reviewers[0].ID, ApprovalID: st.Approval.ID, SignatoryAddress: testutil.AddrAlice, TxHash: voteTx,
	})
	assert.ErrorIs(t, err, multisig.ErrAlreadyVoted)

	var r types.Review
	require.NoError(t, e.db.Where("reviewer_id = ?", e.f.Reviewers[1].ID).First(&r).Error)
	assert.Equal(t, types.VoteReject, r.Vote)
}

func TestLinkedReviewMustMatchSignature(t *testing.T) {
	e := setup(t, 3, types.WorkflowMerged)
	st := e.initiate(t)
	ctx := context.Background()
	store := data.NewStore(e.db)
	msID := e.f.Milestone.ID

	for i, vote := range []string{types.VoteReject, types.VoteApprove} {
		require.NoError(t, store.CreateReview(ctx, &types.Review{
			SubmissionID: e.f.Submission.ID, MilestoneID: &msID, GroupID: e.f.Committee.ID,
			ReviewerID: e.f.Reviewers[i+1].ID, Vote: vote, Weight: 1,
		}))
	}

	// Bob rejected the milestone as a reviewer and now tries to sign
	_, err := e.c.CastVote(ctx, multisig.VoteInput{
		UserID: e.f.Reviewers[1].ID, ApprovalID: st.Approval.ID, SignatoryAddress: testutil.AddrBob, TxHash: voteTx,
	})
	assert.ErrorIs(t, err, multisig.ErrReviewMismatch)
	assert.EqualValues(t, 1, e.count(t, &types.MultisigSignature{}))

	// Charlie approved, so the signature links to that review
	_, err = e.c.CastVote(ctx, multisig.VoteInput{
		UserID: e.f.Reviewers[2].ID, ApprovalID: st.Approval.ID, SignatoryAddress: testutil.AddrCharlie, TxHash: finalTx,
	})
	require.NoError(t, err)
	var sig types.MultisigSignature
	require.NoError(t, e.db.Where("user_id = ?", e.f.Reviewers[2].ID).First(&sig).Error)
	require.NotNil(t, sig.ReviewID)
	var r types.Review
	require.NoError(t, e.db.First(&r, *sig.ReviewID).Error)
	assert.Equal(t, e.f.Reviewers[2].ID, r.ReviewerID)
	assert.Equal(t, types.VoteApprove, r.Vote)
	assert.EqualValues(t, 3, e.count(t, &types.Review{}))
}

func TestFinalize(t *testing.T) {
	e := setup(t, 3, types.WorkflowMerged)
	st := e.initiate(t)
	ctx := context.Background()

	_, err := e.c.CastVote(ctx, multisig.VoteInput{
		UserID: e.f.Reviewers[1].ID, ApprovalID: st.Approval.ID, SignatoryAddress: testutil.AddrBob, TxHash: voteTx,
	})
	require.NoError(t, err)

	_, err = e.c.Finalize(ctx, multisig.FinalizeInput{
		UserID: e.f.Reviewers[2].ID, ApprovalID: st.Approval.ID, SignatoryAddress: testutil.AddrCharlie,
		ExecutionTxHash: finalTx,
	})
	assert.ErrorIs(t, err, multisig.ErrMissingExecution)

	child := uint64(31)
	done, err := e.c.Finalize(ctx, multisig.FinalizeInput{
		UserID:               e.f.Reviewers[2].ID,
		ApprovalID:           st.Approval.ID,
		SignatoryAddress:     testutil.AddrCharlie,
		ExecutionTxHash:      finalTx,
		ExecutionBlockNumber: execBlock,
		ChildBountyID:        &child,
	})
	require.NoError(t, err)
	assert.Equal(t, types.ApprovalExecuted, done.Approval.Status)
	assert.True(t, done.Votes.WasExecuted)
	assert.Equal(t, 3, done.Votes.ApprovalCount)
	require.NotNil(t, done.Approval.ChildBountyID)
	assert.Equal(t, child, *done.Approval.ChildBountyID)
	require.NotNil(t, done.Payout)
	assert.Equal(t, finalTx, done.Payout.TransactionHash)

	finals := 0
	for _, s := range done.Approval.Signatures {
		if s.IsFinalApproval {
			finals++
			assert.Equal(t, testutil.AddrCharlie, s.SignatoryAddress)
		}
	}
	assert.Equal(t, 1, finals)
	assert.EqualValues(t, 1, e.count(t, &types.Payout{}))

	_, err = e.c.ActiveApproval(ctx, e.f.Reviewers[0].ID, e.f.Milestone.ID)
	assert.ErrorIs(t, err, multisig.ErrNoActiveApproval)
}

func TestCancel(t *testing.T) {
	e := setup(t, 2, types.WorkflowMerged)
	st := e.initiate(t)
	ctx := context.Background()

	err := e.c.Cancel(ctx, multisig.CancelInput{UserID: e.f.Reviewers[1].ID, ApprovalID: st.Approval.ID})
	assert.ErrorIs(t, err, multisig.ErrNotInitiator)

	require.NoError(t, e.c.Cancel(ctx, multisig.CancelInput{
		UserID: e.f.Reviewers[0].ID, ApprovalID: st.Approval.ID, TxHash: finalTx,
	}))
	var a types.MilestoneApproval
	require.NoError(t, e.db.First(&a, st.Approval.ID).Error)
	assert.Equal(t, types.ApprovalCancelled, a.Status)
	assert.Equal(t, finalTx, a.CancelTxHash)
	assert.NotNil(t, a.CancelledAt)

	err = e.c.Cancel(ctx, multisig.CancelInput{UserID: e.f.Reviewers[0].ID, ApprovalID: st.Approval.ID})
	assert.ErrorIs(t, err, multisig.ErrNotActive)

	_, err = e.c.CastVote(ctx, multisig.VoteInput{
		UserID: e.f.Reviewers[1].ID, ApprovalID: st.Approval.ID, SignatoryAddress: testutil.AddrBob, TxHash: voteTx,
	})
	assert.ErrorIs(t, err, multisig.ErrNotActive)

	// a fresh attempt can start once the old one is cancelled
	again := e.initiate(t)
	assert.NotEqual(t, st.Approval.ID, again.Approval.ID)
	var m types.Milestone
	require.NoError(t, e.db.First(&m, e.f.Milestone.ID).Error)
	assert.Equal(t, types.MilestoneInReview, m.Status)
}

func TestActiveApprovalVisibility(t *testing.T) {
	e := setup(t, 2, types.WorkflowMerged)
	st := e.initiate(t)
	ctx := context.Background()

	got, err := e.c.ActiveApproval(ctx, e.f.Reviewers[1].ID, e.f.Milestone.ID)
	require.NoError(t, err)
	assert.Equal(t, st.Approval.ID, got.Approval.ID)
	assert.Equal(t, callData, got.Approval.MultisigCallData)
	assert.EqualValues(t, 4200, got.Approval.TimepointHeight)
	assert.Equal(t, 2, got.Votes.Threshold)

	_, err = e.c.ActiveApproval(ctx, e.f.Outsider.ID, e.f.Milestone.ID)
	assert.ErrorIs(t, err, multisig.ErrNotAuthorizedView)
}

func TestCount(t *testing.T) {
	sigs := []types.MultisigSignature{
		{SignatureType: types.SignatureSigned},
		{SignatureType: types.SignatureRejected},
		{SignatureType: types.SignatureSigned},
	}
	r := multisig.Count(sigs, 3)
	assert.Equal(t, 2, r.ApprovalCount)
	assert.Equal(t, 1, r.RejectionCount)
	assert.Equal(t, 1, r.VotesNeeded)
	assert.False(t, r.ThresholdMet)

	r = multisig.Count(sigs, 2)
	assert.True(t, r.ThresholdMet)
	assert.Equal(t, 0, r.VotesNeeded)
}

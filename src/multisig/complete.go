package multisig

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/notify"
	"github.com/MbBrainz/grantflow-dev-sub000/src/payout"
	"github.com/MbBrainz/grantflow-dev-sub000/src/polkadot"
	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

// signing is everything a signature on a pending approval is checked against.
type signing struct {
	approval   *types.MilestoneApproval
	milestone  *types.Milestone
	submission *types.Submission
	cfg        *types.MultisigConfig
	// address is the signatory address as configured on the committee.
	address string
}

func (c *Coordinator) loadForSigning(ctx context.Context, userID, approvalID uint64, address string, denied error) (*signing, error) {
	if err := c.requireReviewer(ctx, userID, denied); err != nil {
		return nil, err
	}
	a, err := c.store.GetApproval(ctx, approvalID)
	if err != nil {
		if data.IsNotFound(err) {
			return nil, ErrApprovalNotFound
		}
		return nil, fmt.Errorf("load approval: %w", err)
	}
	if a.Status != types.ApprovalPending {
		return nil, ErrNotActive
	}
	if err := c.requireMember(ctx, userID, a.GroupID, denied); err != nil {
		return nil, err
	}
	cfg, err := c.multisigConfig(ctx, a.GroupID)
	if err != nil {
		return nil, err
	}
	address, err = requireSignatory(cfg, address, userID)
	if err != nil {
		return nil, err
	}
	existing, err := c.store.FindSignature(ctx, a.ID, address)
	if err != nil {
		return nil, fmt.Errorf("check existing signature: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyVoted
	}

	m, err := c.store.GetMilestone(ctx, a.MilestoneID)
	if err != nil {
		if data.IsNotFound(err) {
			return nil, ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("load milestone: %w", err)
	}
	sub, err := c.store.GetSubmission(ctx, m.SubmissionID)
	if err != nil {
		if data.IsNotFound(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("load submission: %w", err)
	}
	return &signing{approval: a, milestone: m, submission: sub, cfg: cfg, address: address}, nil
}

// recordSignature inserts sig, and in the merged workflow the matching
// milestone review. The unique (approval, signatory) index turns a racing
// second vote into ErrAlreadyVoted.
func recordSignature(ctx context.Context, tx *data.Store, s *signing, sig *types.MultisigSignature) error {
	reviewID, err := linkReview(ctx, tx, s.approval, s.submission, sig.UserID, sig.SignatureType)
	if err != nil {
		return err
	}
	sig.ReviewID = reviewID
	if err := tx.CreateSignature(ctx, sig); err != nil {
		if data.IsDuplicateKey(err) {
			return ErrAlreadyVoted
		}
		return fmt.Errorf("create signature: %w", err)
	}
	return nil
}

// linkReview records the committee vote that a merged-workflow signature
// stands for. An existing milestone review by the same user is reused only
// when it votes the same way. These reviews never trigger quorum evaluation.
func linkReview(ctx context.Context, tx *data.Store, a *types.MilestoneApproval, sub *types.Submission, userID uint64, sigType string) (*uint64, error) {
	if a.ApprovalWorkflow != types.WorkflowMerged {
		return nil, nil
	}
	vote := types.VoteApprove
	if sigType == types.SignatureRejected {
		vote = types.VoteReject
	}

	milestoneID := a.MilestoneID
	key := data.TargetKey(sub.ID, &milestoneID)
	existing, err := tx.FindReview(ctx, key, userID)
	if err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if existing != nil {
		if existing.Vote != vote {
			return nil, ErrReviewMismatch
		}
		return &existing.ID, nil
	}

	r := &types.Review{
		SubmissionID: sub.ID,
		MilestoneID:  &milestoneID,
		GroupID:      a.GroupID,
		ReviewerID:   userID,
		TargetKey:    key,
		Vote:         vote,
		Weight:       1,
	}
	if err := tx.CreateReview(ctx, r); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	return &r.ID, nil
}

// complete is the single exit from pending to executed: it marks the
// approval executed, completes the milestone and writes the payout. It must
// run inside the caller's transaction.
func (c *Coordinator) complete(ctx context.Context, tx *data.Store, s *signing, exec data.Execution, userID uint64) (*types.Payout, error) {
	a := s.approval
	if err := tx.MarkApprovalExecuted(ctx, a.ID, exec); err != nil {
		if errors.Is(err, data.ErrApprovalNotPending) {
			return nil, ErrNotActive
		}
		return nil, fmt.Errorf("mark approval executed: %w", err)
	}
	if err := tx.CompleteMilestone(ctx, a.MilestoneID, exec.ExecutedAt); err != nil {
		return nil, fmt.Errorf("complete milestone: %w", err)
	}
	if !a.PayoutAmount.Valid {
		log.Printf("multisig: approval %d executed without a payout amount, no payout recorded", a.ID)
		return nil, nil
	}

	approvalID := a.ID
	p, err := c.payouts.CreatePayout(ctx, tx, payout.Input{
		SubmissionID:    s.submission.ID,
		MilestoneID:     a.MilestoneID,
		GroupID:         a.GroupID,
		ApprovalID:      &approvalID,
		Amount:          a.PayoutAmount.Decimal,
		TransactionHash: exec.TxHash,
		Network:         s.cfg.Network,
		TriggeredBy:     userID,
		ApprovedBy:      &userID,
		WalletFrom:      s.cfg.MultisigAddress,
		WalletTo:        a.BeneficiaryAddress,
	})
	if err != nil {
		if data.IsDuplicateKey(err) {
			return nil, ErrNotActive
		}
		return nil, err
	}
	log.Printf("multisig: approval %d executed in block %d, payout %d recorded", a.ID, exec.BlockNumber, p.ID)
	return p, nil
}

func (c *Coordinator) notifyCompleted(ctx context.Context, s *signing, p *types.Payout) {
	in := notify.Input{
		UserID:  s.submission.SubmitterID,
		Type:    notify.TypeMilestoneApproved,
		Content: fmt.Sprintf("Milestone %q was approved by the committee multisig.", s.milestone.Title),
	}
	if p != nil {
		in.Type = notify.TypePayoutCompleted
		in.Content = fmt.Sprintf("Milestone %q was approved and %s was paid out.", s.milestone.Title, p.Amount.String())
		if p.BlockExplorerURL != "" {
			in.Content += " Transaction: " + p.BlockExplorerURL
		}
	}
	c.notify(ctx, in, s.submission.ID, s.milestone)
}

// notify is best-effort; the approval state is already committed.
func (c *Coordinator) notify(ctx context.Context, in notify.Input, submissionID uint64, m *types.Milestone) {
	if c.notifier == nil {
		return
	}
	milestoneID, groupID := m.ID, m.GroupID
	in.SubmissionID = &submissionID
	in.MilestoneID = &milestoneID
	in.GroupID = &groupID
	if err := c.notifier.CreateNotification(ctx, in); err != nil {
		log.Printf("multisig: %s notification for milestone %d failed: %v", in.Type, m.ID, err)
	}
}

func (c *Coordinator) requireReviewer(ctx context.Context, userID uint64, denied error) error {
	ok, err := c.auth.IsUserReviewer(ctx, userID)
	if err != nil {
		return fmt.Errorf("check reviewer: %w", err)
	}
	if !ok {
		return denied
	}
	return nil
}

func (c *Coordinator) requireMember(ctx context.Context, userID, groupID uint64, denied error) error {
	ok, err := c.auth.IsUserGroupMember(ctx, userID, &groupID, "")
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return denied
	}
	return nil
}

// multisigConfig reads the committee fresh; thresholds may change between votes.
func (c *Coordinator) multisigConfig(ctx context.Context, groupID uint64) (*types.MultisigConfig, error) {
	g, err := c.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load committee: %w", err)
	}
	if g.Settings.Multisig == nil || g.Settings.Multisig.MultisigAddress == "" {
		return nil, ErrNoMultisig
	}
	return g.Settings.Multisig, nil
}

// requireSignatory checks that address is one of the configured signatories
// and, when the signatory is bound to a user, that it is the caller's. It
// returns the configured spelling of the address, so one account encoded for
// two networks still maps to one signature row.
func requireSignatory(cfg *types.MultisigConfig, address string, userID uint64) (string, error) {
	if address == "" {
		return "", ErrNotSignatory
	}
	for _, s := range cfg.Signatories {
		if !polkadot.SameAccount(s.Address, address) {
			continue
		}
		if s.UserID != nil && *s.UserID != userID {
			return "", ErrNotSignatory
		}
		return s.Address, nil
	}
	return "", ErrNotSignatory
}

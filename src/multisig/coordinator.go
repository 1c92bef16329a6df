// Package multisig coordinates on-chain multisig approvals of milestones.
// The blockchain client builds and submits the calls; this package records
// who signed what and completes the milestone once the call has executed.
package multisig

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/notify"
	"github.com/MbBrainz/grantflow-dev-sub000/src/payout"
	"github.com/MbBrainz/grantflow-dev-sub000/src/quorum"
	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

// Authorizer is the authorization collaborator.
type Authorizer interface {
	IsUserReviewer(ctx context.Context, userID uint64) (bool, error)
	IsUserGroupMember(ctx context.Context, userID uint64, groupID *uint64, role string) (bool, error)
}

type Coordinator struct {
	store    *data.Store
	auth     Authorizer
	notifier notify.Notifier
	payouts  *payout.Writer
	now      func() time.Time
}

func NewCoordinator(store *data.Store, auth Authorizer, notifier notify.Notifier, payouts *payout.Writer) *Coordinator {
	return &Coordinator{
		store:    store,
		auth:     auth,
		notifier: notifier,
		payouts:  payouts,
		now:      time.Now,
	}
}

// VoteResult is the signature tally of one approval.
type VoteResult struct {
	ApprovalCount   int  `json:"approvalCount"`
	RejectionCount  int  `json:"rejectionCount"`
	TotalSignatures int  `json:"totalSignatures"`
	Threshold       int  `json:"threshold"`
	VotesNeeded     int  `json:"votesNeeded"`
	ThresholdMet    bool `json:"thresholdMet"`
	WasExecuted     bool `json:"wasExecuted"`
}

// Count tallies signatures against the multisig threshold.
func Count(sigs []types.MultisigSignature, threshold int) VoteResult {
	r := VoteResult{Threshold: threshold, TotalSignatures: len(sigs)}
	for _, s := range sigs {
		if s.SignatureType == types.SignatureRejected {
			r.RejectionCount++
		} else {
			r.ApprovalCount++
		}
	}
	r.VotesNeeded = quorum.VotesNeeded(threshold, r.ApprovalCount)
	r.ThresholdMet = threshold > 0 && r.ApprovalCount >= threshold
	return r
}

// Status is an approval with its current tally.
type Status struct {
	Approval *types.MilestoneApproval `json:"approval"`
	Votes    VoteResult               `json:"votes"`
	Payout   *types.Payout            `json:"payout,omitempty"`
}

type InitiateInput struct {
	UserID           uint64
	MilestoneID      uint64
	SignatoryAddress string
	CallHash         string
	CallData         string
	TimepointHeight  uint64
	TimepointIndex   uint32
	TxHash           string
	// PayoutAmount defaults to the milestone amount.
	PayoutAmount   decimal.NullDecimal
	ParentBountyID *uint64
	PriceUSD       decimal.NullDecimal
	PriceDate      *time.Time
	PriceSource    string
	TokenAmount    decimal.NullDecimal
}

// Initiate opens a pending approval for a milestone and records the
// initiator's signature as the first vote.
func (c *Coordinator) Initiate(ctx context.Context, in InitiateInput) (*Status, error) {
	if in.CallHash == "" || in.CallData == "" || in.TimepointHeight == 0 {
		return nil, ErrMissingCall
	}
	if err := c.requireReviewer(ctx, in.UserID, ErrNotAuthorizedInitiate); err != nil {
		return nil, err
	}
	m, err := c.store.GetMilestone(ctx, in.MilestoneID)
	if err != nil {
		if data.IsNotFound(err) {
			return nil, ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("load milestone: %w", err)
	}
	if err := c.requireMember(ctx, in.UserID, m.GroupID, ErrNotAuthorizedInitiate); err != nil {
		return nil, err
	}
	if m.Status == types.MilestoneCompleted {
		return nil, ErrMilestoneDone
	}
	sub, err := c.store.GetSubmission(ctx, m.SubmissionID)
	if err != nil {
		if data.IsNotFound(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("load submission: %w", err)
	}
	cfg, err := c.multisigConfig(ctx, m.GroupID)
	if err != nil {
		return nil, err
	}
	address, err := requireSignatory(cfg, in.SignatoryAddress, in.UserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sub.WalletAddress) == "" {
		return nil, ErrNoBeneficiary
	}
	pending, err := c.store.PendingApproval(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("check pending approval: %w", err)
	}
	if pending != nil {
		return nil, ErrActiveApproval
	}

	amount := in.PayoutAmount
	if !amount.Valid && m.Amount.IsPositive() {
		amount = decimal.NewNullDecimal(m.Amount)
	}
	if amount.Valid && !amount.Decimal.IsPositive() {
		return nil, ErrInvalidPayout
	}
	parentBounty := in.ParentBountyID
	if parentBounty == nil {
		parentBounty = cfg.ParentBountyID
	}

	a := &types.MilestoneApproval{
		MilestoneID:        m.ID,
		GroupID:            m.GroupID,
		MultisigCallHash:   in.CallHash,
		MultisigCallData:   in.CallData,
		TimepointHeight:    in.TimepointHeight,
		TimepointIndex:     in.TimepointIndex,
		Status:             types.ApprovalPending,
		InitiatorID:        in.UserID,
		InitiatorAddress:   address,
		ApprovalWorkflow:   cfg.Workflow(),
		PayoutAmount:       amount,
		BeneficiaryAddress: sub.WalletAddress,
		ParentBountyID:     parentBounty,
		PriceUSD:           in.PriceUSD,
		PriceDate:          in.PriceDate,
		PriceSource:        in.PriceSource,
		TokenAmount:        in.TokenAmount,
	}
	err = c.store.Transaction(ctx, func(tx *data.Store) error {
		if err := tx.CreateApproval(ctx, a); err != nil {
			if data.IsDuplicateKey(err) {
				return ErrActiveApproval
			}
			return fmt.Errorf("create approval: %w", err)
		}
		reviewID, err := linkReview(ctx, tx, a, sub, in.UserID, types.SignatureSigned)
		if err != nil {
			return err
		}
		return tx.CreateSignature(ctx, &types.MultisigSignature{
			ApprovalID:       a.ID,
			ReviewID:         reviewID,
			UserID:           in.UserID,
			SignatoryAddress: address,
			SignatureType:    types.SignatureSigned,
			TxHash:           in.TxHash,
			IsInitiator:      true,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Printf("multisig: approval %d opened for milestone %d by user %d", a.ID, m.ID, in.UserID)

	c.notify(ctx, notify.Input{
		UserID:  sub.SubmitterID,
		Type:    notify.TypeApprovalStarted,
		Content: fmt.Sprintf("Committee signatories started the multisig payout approval for milestone %q.", m.Title),
	}, sub.ID, m)

	return c.status(ctx, a.ID, cfg.Threshold)
}

type VoteInput struct {
	UserID           uint64
	ApprovalID       uint64
	SignatoryAddress string
	// SignatureType is signed or rejected; empty means signed.
	SignatureType string
	TxHash        string
	// WasExecuted reports that this signature executed the call on-chain.
	WasExecuted          bool
	ExecutionBlockNumber *uint64
	ChildBountyID        *uint64
}

// CastVote records one signatory's signature. The approval completes only
// when the client reports that this signature executed the call.
func (c *Coordinator) CastVote(ctx context.Context, in VoteInput) (*VoteResult, error) {
	sigType := in.SignatureType
	if sigType == "" {
		sigType = types.SignatureSigned
	}
	if sigType != types.SignatureSigned && sigType != types.SignatureRejected {
		return nil, ErrInvalidSignature
	}
	executing := in.WasExecuted && in.ExecutionBlockNumber != nil
	if executing && sigType != types.SignatureSigned {
		return nil, ErrFinalMustApprove
	}

	s, err := c.loadForSigning(ctx, in.UserID, in.ApprovalID, in.SignatoryAddress, ErrNotAuthorizedVote)
	if err != nil {
		return nil, err
	}

	sig := &types.MultisigSignature{
		ApprovalID:       s.approval.ID,
		UserID:           in.UserID,
		SignatoryAddress: s.address,
		SignatureType:    sigType,
		TxHash:           in.TxHash,
		IsFinalApproval:  executing,
	}
	var p *types.Payout
	err = c.store.Transaction(ctx, func(tx *data.Store) error {
		if err := recordSignature(ctx, tx, s, sig); err != nil {
			return err
		}
		if !executing {
			return nil
		}
		p, err = c.complete(ctx, tx, s, data.Execution{
			TxHash:        in.TxHash,
			BlockNumber:   *in.ExecutionBlockNumber,
			ChildBountyID: in.ChildBountyID,
			ExecutedAt:    c.now(),
		}, in.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	sigs, err := c.store.ListSignatures(ctx, s.approval.ID)
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	res := Count(sigs, s.cfg.Threshold)
	if executing {
		res.ThresholdMet = true
		res.WasExecuted = true
		res.VotesNeeded = 0
		c.notifyCompleted(ctx, s, p)
	}
	return &res, nil
}

type FinalizeInput struct {
	UserID               uint64
	ApprovalID           uint64
	SignatoryAddress     string
	ExecutionTxHash      string
	ExecutionBlockNumber uint64
	ChildBountyID        *uint64
}

// Finalize records the signature that executed the call and completes the
// approval.
func (c *Coordinator) Finalize(ctx context.Context, in FinalizeInput) (*Status, error) {
	if in.ExecutionTxHash == "" || in.ExecutionBlockNumber == 0 {
		return nil, ErrMissingExecution
	}
	s, err := c.loadForSigning(ctx, in.UserID, in.ApprovalID, in.SignatoryAddress, ErrNotAuthorizedFinalize)
	if err != nil {
		return nil, err
	}

	sig := &types.MultisigSignature{
		ApprovalID:       s.approval.ID,
		UserID:           in.UserID,
		SignatoryAddress: s.address,
		SignatureType:    types.SignatureSigned,
		TxHash:           in.ExecutionTxHash,
		IsFinalApproval:  true,
	}
	var p *types.Payout
	err = c.store.Transaction(ctx, func(tx *data.Store) error {
		if err := recordSignature(ctx, tx, s, sig); err != nil {
			return err
		}
		p, err = c.complete(ctx, tx, s, data.Execution{
			TxHash:        in.ExecutionTxHash,
			BlockNumber:   in.ExecutionBlockNumber,
			ChildBountyID: in.ChildBountyID,
			ExecutedAt:    c.now(),
		}, in.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.notifyCompleted(ctx, s, p)

	st, err := c.status(ctx, s.approval.ID, s.cfg.Threshold)
	if err != nil {
		return nil, err
	}
	st.Votes.WasExecuted = true
	st.Payout = p
	return st, nil
}

type CancelInput struct {
	UserID     uint64
	ApprovalID uint64
	TxHash     string
}

// Cancel withdraws a pending approval. Only the initiator, who holds the
// on-chain deposit, can cancel; the milestone is left as it is.
func (c *Coordinator) Cancel(ctx context.Context, in CancelInput) error {
	a, err := c.store.GetApproval(ctx, in.ApprovalID)
	if err != nil {
		if data.IsNotFound(err) {
			return ErrApprovalNotFound
		}
		return fmt.Errorf("load approval: %w", err)
	}
	if a.Status != types.ApprovalPending {
		return ErrNotActive
	}
	if a.InitiatorID != in.UserID {
		return ErrNotInitiator
	}
	if err := c.store.CancelApproval(ctx, a.ID, in.TxHash, c.now()); err != nil {
		if errors.Is(err, data.ErrApprovalNotPending) {
			return ErrNotActive
		}
		return fmt.Errorf("cancel approval: %w", err)
	}
	log.Printf("multisig: approval %d for milestone %d cancelled by user %d", a.ID, a.MilestoneID, in.UserID)
	return nil
}

// ActiveApproval returns the pending approval of a milestone so later
// signatories can approve the same call.
func (c *Coordinator) ActiveApproval(ctx context.Context, viewerID, milestoneID uint64) (*Status, error) {
	m, err := c.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		if data.IsNotFound(err) {
			return nil, ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("load milestone: %w", err)
	}
	if err := c.requireMember(ctx, viewerID, m.GroupID, ErrNotAuthorizedView); err != nil {
		return nil, err
	}
	a, err := c.store.PendingApproval(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("load pending approval: %w", err)
	}
	if a == nil {
		return nil, ErrNoActiveApproval
	}
	g, err := c.store.GetGroup(ctx, m.GroupID)
	if err != nil {
		return nil, fmt.Errorf("load committee: %w", err)
	}
	threshold := 0
	if g.Settings.Multisig != nil {
		threshold = g.Settings.Multisig.Threshold
	}
	return &Status{Approval: a, Votes: Count(a.Signatures, threshold)}, nil
}

func (c *Coordinator) status(ctx context.Context, approvalID uint64, threshold int) (*Status, error) {
	a, err := c.store.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, fmt.Errorf("reload approval: %w", err)
	}
	return &Status{Approval: a, Votes: Count(a.Signatures, threshold)}, nil
}

// Package payout records milestone payouts. A payout row is written once,
// either by the multisig completion or by a committee admin for committees
// that pay out by hand.
package payout

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MbBrainz/grantflow-dev-sub000/src/apperr"
	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

const DefaultExplorerTemplate = "https://%s.subscan.io/extrinsic/%s"

var (
	ErrNotCommitteeAdmin = apperr.Unauthorized("Only committee admins can record payouts")
	ErrMilestoneNotFound = apperr.NotFound("Milestone not found")
	ErrNotCompleted      = apperr.Precondition("Milestone must be completed before it is paid out")
	ErrAlreadyPaid       = apperr.Precondition("A payout has already been recorded for this milestone")
	ErrMultisigCommittee = apperr.Precondition("This committee pays out through its multisig wallet")
	ErrInvalidAmount     = apperr.Precondition("Payout amount must be positive")
)

// Explorer builds block explorer links for transactions.
type Explorer struct {
	Template string
}

// URL fills network and hash into the template; it returns "" when either is missing.
func (e Explorer) URL(network, txHash string) string {
	network = strings.ToLower(strings.TrimSpace(network))
	if network == "" || txHash == "" {
		return ""
	}
	tmpl := e.Template
	if strings.Count(tmpl, "%s") != 2 {
		tmpl = DefaultExplorerTemplate
	}
	return fmt.Sprintf(tmpl, network, txHash)
}

type Input struct {
	SubmissionID    uint64
	MilestoneID     uint64
	GroupID         uint64
	ApprovalID      *uint64
	Amount          decimal.Decimal
	TransactionHash string
	Network         string
	TriggeredBy     uint64
	ApprovedBy      *uint64
	WalletFrom      string
	WalletTo        string
}

type Writer struct {
	explorer Explorer
}

func NewWriter(explorer Explorer) *Writer {
	return &Writer{explorer: explorer}
}

func (w *Writer) Explorer() Explorer { return w.explorer }

// CreatePayout writes the payout through store, which may be bound to a
// transaction.
func (w *Writer) CreatePayout(ctx context.Context, store *data.Store, in Input) (*types.Payout, error) {
	p := types.Payout{
		SubmissionID:     in.SubmissionID,
		MilestoneID:      in.MilestoneID,
		GroupID:          in.GroupID,
		ApprovalID:       in.ApprovalID,
		Amount:           in.Amount,
		TransactionHash:  in.TransactionHash,
		BlockExplorerURL: w.explorer.URL(in.Network, in.TransactionHash),
		Status:           "completed",
		TriggeredBy:      in.TriggeredBy,
		ApprovedBy:       in.ApprovedBy,
		WalletFrom:       in.WalletFrom,
		WalletTo:         in.WalletTo,
	}
	if in.ApprovalID == nil {
		milestoneID := in.MilestoneID
		p.ManualMilestoneID = &milestoneID
	}
	if err := store.CreatePayout(ctx, &p); err != nil {
		return nil, fmt.Errorf("create payout: %w", err)
	}
	return &p, nil
}

// Authorizer is the slice of authz.Checker the payout service needs.
type Authorizer interface {
	IsUserGroupMember(ctx context.Context, userID uint64, groupID *uint64, role string) (bool, error)
}

type Service struct {
	store  *data.Store
	auth   Authorizer
	writer *Writer
}

func NewService(store *data.Store, auth Authorizer, writer *Writer) *Service {
	return &Service{store: store, auth: auth, writer: writer}
}

type ManualInput struct {
	UserID          uint64
	MilestoneID     uint64
	Amount          decimal.NullDecimal
	TransactionHash string
	Network         string
	WalletFrom      string
}

// RecordManual records a payout made outside the multisig flow.
func (s *Service) RecordManual(ctx context.Context, in ManualInput) (*types.Payout, error) {
	m, err := s.store.GetMilestone(ctx, in.MilestoneID)
	if err != nil {
		if data.IsNotFound(err) {
			return nil, ErrMilestoneNotFound
		}
		return nil, err
	}
	ok, err := s.auth.IsUserGroupMember(ctx, in.UserID, &m.GroupID, types.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotCommitteeAdmin
	}
	group, err := s.store.GetGroup(ctx, m.GroupID)
	if err != nil {
		return nil, err
	}
	if group.Settings.Multisig != nil {
		return nil, ErrMultisigCommittee
	}
	if m.Status != types.MilestoneCompleted {
		return nil, ErrNotCompleted
	}
	existing, err := s.store.PayoutForMilestone(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyPaid
	}

	amount := m.Amount
	if in.Amount.Valid {
		amount = in.Amount.Decimal
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	sub, err := s.store.GetSubmission(ctx, m.SubmissionID)
	if err != nil {
		return nil, err
	}

	p, err := s.writer.CreatePayout(ctx, s.store, Input{
		SubmissionID:    m.SubmissionID,
		MilestoneID:     m.ID,
		GroupID:         m.GroupID,
		Amount:          amount,
		TransactionHash: in.TransactionHash,
		Network:         in.Network,
		TriggeredBy:     in.UserID,
		ApprovedBy:      &in.UserID,
		WalletFrom:      in.WalletFrom,
		WalletTo:        sub.WalletAddress,
	})
	if err != nil {
		if data.IsDuplicateKey(err) {
			return nil, ErrAlreadyPaid
		}
		return nil, err
	}
	return p, nil
}

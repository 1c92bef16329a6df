package data

import (
	"context"
	"errors"
	"time"

	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

// ErrApprovalNotPending is returned when a status change races with another
// one that already moved the approval out of pending.
var ErrApprovalNotPending = errors.New("approval is not pending")

// Execution describes the on-chain transaction that executed a multisig call.
type Execution struct {
	TxHash        string
	BlockNumber   uint64
	ChildBountyID *uint64
	ExecutedAt    time.Time
}

// PendingApproval returns nil, nil when the milestone has no pending approval.
func (s *Store) PendingApproval(ctx context.Context, milestoneID uint64) (*types.MilestoneApproval, error) {
	var approvals []types.MilestoneApproval
	err := s.db.WithContext(ctx).Preload("Signatures").
		Where("milestone_id = ? AND status = ?", milestoneID, types.ApprovalPending).
		Order("id desc").Limit(1).Find(&approvals).Error
	if err != nil || len(approvals) == 0 {
		return nil, err
	}
	return &approvals[0], nil
}

func (s *Store) GetApproval(ctx context.Context, id uint64) (*types.MilestoneApproval, error) {
	var a types.MilestoneApproval
	if err := s.db.WithContext(ctx).Preload("Signatures").First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateApproval inserts a pending approval. The active marker makes a
// second pending approval for the same milestone a duplicate key error.
func (s *Store) CreateApproval(ctx context.Context, a *types.MilestoneApproval) error {
	if a.Status == "" {
		a.Status = types.ApprovalPending
	}
	if a.Status == types.ApprovalPending {
		milestoneID := a.MilestoneID
		a.ActiveMilestoneID = &milestoneID
	}
	return s.db.WithContext(ctx).Create(a).Error
}

// FindSignature returns nil, nil when the address has not acted on the approval.
func (s *Store) FindSignature(ctx context.Context, approvalID uint64, address string) (*types.MultisigSignature, error) {
	var sigs []types.MultisigSignature
	err := s.db.WithContext(ctx).
		Where("approval_id = ? AND signatory_address = ?", approvalID, address).
		Limit(1).Find(&sigs).Error
	if err != nil || len(sigs) == 0 {
		return nil, err
	}
	return &sigs[0], nil
}

func (s *Store) CreateSignature(ctx context.Context, sig *types.MultisigSignature) error {
	return s.db.WithContext(ctx).Create(sig).Error
}

func (s *Store) ListSignatures(ctx context.Context, approvalID uint64) ([]types.MultisigSignature, error) {
	var sigs []types.MultisigSignature
	err := s.db.WithContext(ctx).Where("approval_id = ?", approvalID).
		Order("created_at asc, id asc").Find(&sigs).Error
	return sigs, err
}

// MarkApprovalExecuted moves a pending approval to executed. It fails with
// ErrApprovalNotPending if the approval already left pending.
func (s *Store) MarkApprovalExecuted(ctx context.Context, id uint64, exec Execution) error {
	updates := map[string]interface{}{
		"status":                 types.ApprovalExecuted,
		"active_milestone_id":    nil,
		"executed_at":            exec.ExecutedAt,
		"execution_tx_hash":      exec.TxHash,
		"execution_block_number": exec.BlockNumber,
		"updated_at":             exec.ExecutedAt,
	}
	if exec.ChildBountyID != nil {
		updates["child_bounty_id"] = *exec.ChildBountyID
	}
	res := s.db.WithContext(ctx).Model(&types.MilestoneApproval{}).
		Where("id = ? AND status = ?", id, types.ApprovalPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrApprovalNotPending
	}
	return nil
}

// CancelApproval moves a pending approval to cancelled.
func (s *Store) CancelApproval(ctx context.Context, id uint64, txHash string, now time.Time) error {
	res := s.db.WithContext(ctx).Model(&types.MilestoneApproval{}).
		Where("id = ? AND status = ?", id, types.ApprovalPending).
		Updates(map[string]interface{}{
			"status":              types.ApprovalCancelled,
			"active_milestone_id": nil,
			"cancelled_at":        now,
			"cancel_tx_hash":      txHash,
			"updated_at":          now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrApprovalNotPending
	}
	return nil
}

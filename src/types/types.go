package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vote values
const (
	VoteApprove = "approve"
	VoteReject  = "reject"
)

// Submission statuses
const (
	SubmissionDraft            = "draft"
	SubmissionPending          = "pending"
	SubmissionInReview         = "in-review"
	SubmissionApproved         = "approved"
	SubmissionRejected         = "rejected"
	SubmissionChangesRequested = "changes-requested"
)

// Milestone statuses
const (
	MilestonePending          = "pending"
	MilestoneInReview         = "in-review"
	MilestoneCompleted        = "completed"
	MilestoneRejected         = "rejected"
	MilestoneChangesRequested = "changes-requested"
)

// Multisig approval statuses
const (
	ApprovalPending   = "pending"
	ApprovalExecuted  = "executed"
	ApprovalCancelled = "cancelled"
)

// Approval workflows: merged means the committee vote and the multisig
// signature are one action, separated means two.
const (
	WorkflowMerged    = "merged"
	WorkflowSeparated = "separated"
)

// Signature types
const (
	SignatureSigned   = "signed"
	SignatureRejected = "rejected"
)

// Group types and membership roles
const (
	GroupCommittee = "committee"
	GroupTeam      = "team"

	RoleAdmin  = "admin"
	RoleMember = "member"

	UserRoleTeam      = "team"
	UserRoleCommittee = "committee"
	UserRoleAdmin     = "admin"
)

// Users
type User struct {
	ID            uint64 `gorm:"primaryKey"`
	Name          string `gorm:"size:128"`
	Email         string `gorm:"size:256;uniqueIndex"`
	PrimaryRole   string `gorm:"size:16;not null;default:team"`
	WalletAddress string `gorm:"size:128"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Groups are committees (reviewers) or teams (applicants)
type Group struct {
	ID        uint64        `gorm:"primaryKey"`
	Name      string        `gorm:"size:128;not null"`
	Type      string        `gorm:"size:16;not null;default:committee"`
	IsActive  bool          `gorm:"not null"`
	Settings  GroupSettings `gorm:"serializer:json;type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupSettings is stored as JSON on the group row. Nil ratios fall back
// to the evaluator defaults.
type GroupSettings struct {
	VotingThreshold            *float64        `json:"votingThreshold,omitempty"`
	RequiredApprovalPercentage *float64        `json:"requiredApprovalPercentage,omitempty"`
	Multisig                   *MultisigConfig `json:"multisig,omitempty"`
}

// MultisigConfig describes the committee's on-chain multisig wallet.
type MultisigConfig struct {
	MultisigAddress  string      `json:"multisigAddress"`
	Signatories      []Signatory `json:"signatories"`
	Threshold        int         `json:"threshold"`
	Network          string      `json:"network"`
	ApprovalWorkflow string      `json:"approvalWorkflow,omitempty"`
	ParentBountyID   *uint64     `json:"parentBountyId,omitempty"`
}

// Signatory is one registered signer of a committee multisig.
type Signatory struct {
	Address string  `json:"address"`
	UserID  *uint64 `json:"userId,omitempty"`
}

// Workflow returns the configured approval workflow, merged by default.
func (m *MultisigConfig) Workflow() string {
	if m.ApprovalWorkflow == WorkflowSeparated {
		return WorkflowSeparated
	}
	return WorkflowMerged
}

// Group memberships
type GroupMembership struct {
	ID        uint64 `gorm:"primaryKey"`
	GroupID   uint64 `gorm:"uniqueIndex:idx_membership_group_user;not null"`
	UserID    uint64 `gorm:"uniqueIndex:idx_membership_group_user;not null"`
	Role      string `gorm:"size:16;not null;default:member"`
	IsActive  bool   `gorm:"not null"`
	CreatedAt time.Time
}

// Funding proposals
type Submission struct {
	ID               uint64 `gorm:"primaryKey"`
	Title            string `gorm:"size:255;not null"`
	SubmitterID      uint64 `gorm:"index;not null"`
	SubmitterGroupID *uint64
	ReviewerGroupID  uint64          `gorm:"index;not null"`
	Status           string          `gorm:"size:32;not null;default:pending"`
	WalletAddress    string          `gorm:"size:128"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(24,4)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Milestones of an approved submission
type Milestone struct {
	ID             uint64          `gorm:"primaryKey"`
	SubmissionID   uint64          `gorm:"index;not null"`
	GroupID        uint64          `gorm:"index;not null"`
	Title          string          `gorm:"size:255;not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(24,4)"`
	Status         string          `gorm:"size:32;not null;default:pending"`
	RejectionCount int             `gorm:"not null;default:0"`
	LastRejectedAt *time.Time
	ReviewedAt     *time.Time
	SubmittedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Committee votes. TargetKey is "s:<submission>" or "m:<milestone>" so that
// one vote per reviewer and target is a unique index.
type Review struct {
	ID           uint64  `gorm:"primaryKey"`
	SubmissionID uint64  `gorm:"index;not null"`
	MilestoneID  *uint64 `gorm:"index"`
	GroupID      uint64  `gorm:"index;not null"`
	ReviewerID   uint64  `gorm:"uniqueIndex:idx_review_target_reviewer;not null"`
	TargetKey    string  `gorm:"size:32;uniqueIndex:idx_review_target_reviewer;not null"`
	Vote         string  `gorm:"size:16;not null"`
	Feedback     string  `gorm:"type:text"`
	Weight       int     `gorm:"not null;default:1"`
	IsBinding    bool    `gorm:"default:false"`
	CreatedAt    time.Time
}

// On-chain multisig approval attempts for a milestone payout.
// ActiveMilestoneID is set only while pending; its unique index keeps a
// single pending approval per milestone.
type MilestoneApproval struct {
	ID                   uint64              `gorm:"primaryKey"`
	MilestoneID          uint64              `gorm:"index;not null"`
	ActiveMilestoneID    *uint64             `gorm:"uniqueIndex"`
	GroupID              uint64              `gorm:"index;not null"`
	MultisigCallHash     string              `gorm:"size:66;not null"`
	MultisigCallData     string              `gorm:"type:text;not null"`
	TimepointHeight      uint64              `gorm:"not null"`
	TimepointIndex       uint32              `gorm:"not null"`
	Status               string              `gorm:"size:16;not null;default:pending"`
	InitiatorID          uint64              `gorm:"not null"`
	InitiatorAddress     string              `gorm:"size:128;not null"`
	ApprovalWorkflow     string              `gorm:"size:16;not null;default:merged"`
	PayoutAmount         decimal.NullDecimal `gorm:"type:decimal(24,4)"`
	BeneficiaryAddress   string              `gorm:"size:128;not null"`
	ParentBountyID       *uint64
	ChildBountyID        *uint64
	PriceUSD             decimal.NullDecimal `gorm:"type:decimal(24,8)"`
	PriceDate            *time.Time
	PriceSource          string              `gorm:"size:64"`
	TokenAmount          decimal.NullDecimal `gorm:"type:decimal(32,12)"`
	ExecutedAt           *time.Time
	ExecutionTxHash      string `gorm:"size:66"`
	ExecutionBlockNumber *uint64
	CancelledAt          *time.Time
	CancelTxHash         string `gorm:"size:66"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Signatures []MultisigSignature `gorm:"foreignKey:ApprovalID"`
}

// Signatory actions on an approval
type MultisigSignature struct {
	ID               uint64  `gorm:"primaryKey"`
	ApprovalID       uint64  `gorm:"uniqueIndex:idx_signature_approval_signatory;not null"`
	ReviewID         *uint64 `gorm:"index"`
	UserID           uint64  `gorm:"index;not null"`
	SignatoryAddress string  `gorm:"size:128;uniqueIndex:idx_signature_approval_signatory;not null"`
	SignatureType    string  `gorm:"size:16;not null"`
	TxHash           string  `gorm:"size:66;not null"`
	IsInitiator      bool    `gorm:"default:false"`
	IsFinalApproval  bool    `gorm:"default:false"`
	CreatedAt        time.Time
}

// Payouts are written once and never updated. ManualMilestoneID is set only
// when no approval backs the payout, so a milestone has one manual payout.
type Payout struct {
	ID                uint64          `gorm:"primaryKey"`
	SubmissionID      uint64          `gorm:"index;not null"`
	MilestoneID       uint64          `gorm:"index;not null"`
	GroupID           uint64          `gorm:"index;not null"`
	ApprovalID        *uint64         `gorm:"uniqueIndex"`
	ManualMilestoneID *uint64         `gorm:"uniqueIndex"`
	Amount            decimal.Decimal `gorm:"type:decimal(24,4);not null"`
	TransactionHash   string          `gorm:"size:66;not null"`
	BlockExplorerURL  string          `gorm:"size:256"`
	Status            string          `gorm:"size:16;not null;default:completed"`
	TriggeredBy       uint64          `gorm:"not null"`
	ApprovedBy        *uint64
	WalletFrom        string `gorm:"size:128"`
	WalletTo          string `gorm:"size:128"`
	CreatedAt         time.Time
}

// In-app notifications
type Notification struct {
	ID           uint64 `gorm:"primaryKey"`
	UserID       uint64 `gorm:"index;not null"`
	Type         string `gorm:"size:32;not null"`
	Content      string `gorm:"type:text;not null"`
	SubmissionID *uint64
	MilestoneID  *uint64
	GroupID      *uint64
	Read         bool `gorm:"default:false"`
	CreatedAt    time.Time
}

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;uniqueIndex;not null"`
	Value string `gorm:"type:text;not null"`
}

// AllModels lists every table in migration order.
var AllModels = []interface{}{
	&Setting{}, &User{}, &Group{}, &GroupMembership{},
	&Submission{}, &Milestone{}, &Review{},
	&MilestoneApproval{}, &MultisigSignature{}, &Payout{}, &Notification{},
}

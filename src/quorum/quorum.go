// Package quorum decides committee vote outcomes. Everything here is pure:
// callers load the votes and the committee configuration, and apply the
// returned Decision themselves.
package quorum

import (
	"math"

	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

const (
	DefaultVotingThreshold            = 0.5
	DefaultRequiredApprovalPercentage = 0.6

	// absorbs float noise such as 10*0.3 = 3.0000000000000004
	epsilon = 1e-9
)

// Scope selects the outcome set: submissions can end in changes-requested,
// milestones cannot.
type Scope uint8

const (
	ScopeSubmission Scope = iota
	ScopeMilestone
)

func (s Scope) String() string {
	if s == ScopeMilestone {
		return "milestone"
	}
	return "submission"
}

// Config is a committee's voting policy at evaluation time.
type Config struct {
	ActiveMembers              int
	VotingThreshold            float64
	RequiredApprovalPercentage float64
}

// ConfigFor fills in defaults for ratios the committee has not set.
func ConfigFor(settings types.GroupSettings, activeMembers int) Config {
	cfg := Config{
		ActiveMembers:              activeMembers,
		VotingThreshold:            DefaultVotingThreshold,
		RequiredApprovalPercentage: DefaultRequiredApprovalPercentage,
	}
	if settings.VotingThreshold != nil {
		cfg.VotingThreshold = *settings.VotingThreshold
	}
	if settings.RequiredApprovalPercentage != nil {
		cfg.RequiredApprovalPercentage = *settings.RequiredApprovalPercentage
	}
	return cfg
}

// Tally counts approve and reject votes. Weight is recorded on reviews but
// quorum and approval ratios count heads.
type Tally struct {
	Approve int `json:"approve"`
	Reject  int `json:"reject"`
}

func (t Tally) Total() int { return t.Approve + t.Reject }

// ApprovalPercentage is approve/total, zero for an empty tally.
func (t Tally) ApprovalPercentage() float64 {
	if t.Total() == 0 {
		return 0
	}
	return float64(t.Approve) / float64(t.Total())
}

func Count(votes []types.Review) Tally {
	var t Tally
	for _, v := range votes {
		switch v.Vote {
		case types.VoteApprove:
			t.Approve++
		case types.VoteReject:
			t.Reject++
		}
	}
	return t
}

// RequiredVotes is ceil(activeMembers * threshold).
func RequiredVotes(activeMembers int, threshold float64) int {
	if activeMembers <= 0 {
		return 0
	}
	return int(math.Ceil(float64(activeMembers)*threshold - epsilon))
}

type Decision struct {
	Scope              Scope   `json:"-"`
	Tally              Tally   `json:"tally"`
	RequiredVotes      int     `json:"requiredVotes"`
	ApprovalPercentage float64 `json:"approvalPercentage"`
	QuorumReached      bool    `json:"quorumReached"`
	// Unreachable is set for committees without active members; they never
	// reach quorum.
	Unreachable bool `json:"unreachable,omitempty"`
	// Outcome is a submission or milestone status, empty until quorum.
	Outcome string `json:"outcome,omitempty"`
}

// Evaluate decides the outcome for the full vote set of one target.
func Evaluate(scope Scope, votes []types.Review, cfg Config) Decision {
	tally := Count(votes)
	d := Decision{
		Scope:              scope,
		Tally:              tally,
		RequiredVotes:      RequiredVotes(cfg.ActiveMembers, cfg.VotingThreshold),
		ApprovalPercentage: tally.ApprovalPercentage(),
	}

	if cfg.ActiveMembers <= 0 {
		d.Unreachable = true
		return d
	}
	if tally.Total() == 0 || tally.Total() < d.RequiredVotes {
		return d
	}

	d.QuorumReached = true
	approved := d.ApprovalPercentage+epsilon >= cfg.RequiredApprovalPercentage

	switch scope {
	case ScopeMilestone:
		if approved {
			d.Outcome = types.MilestoneCompleted
		} else {
			d.Outcome = types.MilestoneRejected
		}
	default:
		switch {
		case approved:
			d.Outcome = types.SubmissionApproved
		case tally.Reject > tally.Approve:
			d.Outcome = types.SubmissionRejected
		default:
			d.Outcome = types.SubmissionChangesRequested
		}
	}
	return d
}

// VotesNeeded is how many more signatures a multisig threshold needs.
func VotesNeeded(threshold, approvals int) int {
	if n := threshold - approvals; n > 0 {
		return n
	}
	return 0
}

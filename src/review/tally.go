package review

import (
	"context"
	"fmt"

	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/quorum"
	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

// Summary is the current vote state of a target as shown to committee
// members and the submitting team.
type Summary struct {
	Status   string          `json:"status"`
	Decision quorum.Decision `json:"decision"`
	Votes    []types.Review  `json:"votes"`
}

// Tally evaluates the target without applying anything.
func (s *Service) Tally(ctx context.Context, viewerID, submissionID uint64, milestoneID *uint64) (*Summary, error) {
	t, err := s.ResolveTarget(ctx, submissionID, milestoneID)
	if err != nil {
		return nil, err
	}
	if viewerID != t.Submission.SubmitterID {
		groupID := t.GroupID()
		ok, err := s.auth.IsUserGroupMember(ctx, viewerID, &groupID, "")
		if err != nil {
			return nil, fmt.Errorf("check membership: %w", err)
		}
		if !ok {
			return nil, ErrNotAllowedToView
		}
	}

	d, votes, err := s.Evaluate(ctx, t)
	if err != nil {
		return nil, err
	}
	status := t.Submission.Status
	if t.Milestone != nil {
		status = t.Milestone.Status
	}
	return &Summary{Status: status, Decision: d, Votes: votes}, nil
}

// TallyMilestone is Tally for a milestone known only by its id.
func (s *Service) TallyMilestone(ctx context.Context, viewerID, milestoneID uint64) (*Summary, error) {
	m, err := s.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		if data.IsNotFound(err) {
			return nil, ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("load milestone: %w", err)
	}
	return s.Tally(ctx, viewerID, m.SubmissionID, &m.ID)
}

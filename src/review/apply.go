package review

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/MbBrainz/grantflow-dev-sub000/src/notify"
	"github.com/MbBrainz/grantflow-dev-sub000/src/quorum"
	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

// apply writes a reached outcome to the target. Re-running it with the
// status already in place changes nothing, so late votes after a decision
// neither bump rejection counters nor re-notify. A completed milestone is
// never moved again.
func (s *Service) apply(ctx context.Context, t Target, d quorum.Decision, votes []types.Review) error {
	now := s.now()

	if t.Milestone == nil {
		sub, err := s.store.GetSubmission(ctx, t.Submission.ID)
		if err != nil {
			return fmt.Errorf("reload submission: %w", err)
		}
		if sub.Status == d.Outcome {
			return nil
		}
		if err := s.store.UpdateSubmissionStatus(ctx, sub.ID, d.Outcome, now); err != nil {
			return fmt.Errorf("update submission status: %w", err)
		}
		log.Printf("review: submission %d is now %s (%d/%d approve)", sub.ID, d.Outcome, d.Tally.Approve, d.Tally.Total())
		return nil
	}

	m, err := s.store.GetMilestone(ctx, t.Milestone.ID)
	if err != nil {
		return fmt.Errorf("reload milestone: %w", err)
	}
	if m.Status == d.Outcome {
		return nil
	}
	// completed is final: it may already be paid out
	if m.Status == types.MilestoneCompleted {
		log.Printf("review: milestone %d is completed, ignoring %s outcome", m.ID, d.Outcome)
		return nil
	}

	switch d.Outcome {
	case types.MilestoneCompleted:
		if err := s.store.CompleteMilestone(ctx, m.ID, now); err != nil {
			return fmt.Errorf("complete milestone: %w", err)
		}
		log.Printf("review: milestone %d completed by committee vote", m.ID)
	case types.MilestoneRejected:
		if err := s.store.RejectMilestone(ctx, m.ID, now); err != nil {
			return fmt.Errorf("reject milestone: %w", err)
		}
		log.Printf("review: milestone %d rejected by committee vote", m.ID)
		s.notifyRejection(ctx, t, m, votes)
	default:
		return fmt.Errorf("unexpected milestone outcome %q", d.Outcome)
	}
	return nil
}

// notifyRejection is best-effort: the status change already happened.
func (s *Service) notifyRejection(ctx context.Context, t Target, m *types.Milestone, votes []types.Review) {
	if s.notifier == nil {
		return
	}
	submissionID, milestoneID, groupID := t.Submission.ID, m.ID, m.GroupID
	err := s.notifier.CreateNotification(ctx, notify.Input{
		UserID:       t.Submission.SubmitterID,
		Type:         notify.TypeMilestoneRejected,
		Content:      RejectionSummary(m.Title, votes),
		SubmissionID: &submissionID,
		MilestoneID:  &milestoneID,
		GroupID:      &groupID,
	})
	if err != nil {
		log.Printf("review: rejection notification for milestone %d failed: %v", m.ID, err)
	}
}

// RejectionSummary tells the submitter why a milestone was rejected, quoting
// at most three pieces of reviewer feedback.
func RejectionSummary(title string, votes []types.Review) string {
	var feedback []string
	for _, v := range votes {
		if v.Vote != types.VoteReject {
			continue
		}
		if f := strings.TrimSpace(v.Feedback); f != "" {
			feedback = append(feedback, f)
			if len(feedback) == maxRejectionFeedback {
				break
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Milestone %q was rejected by the committee.", title)
	if len(feedback) > 0 {
		b.WriteString(" Feedback:")
		for i, f := range feedback {
			fmt.Fprintf(&b, "\n%d. %s", i+1, f)
		}
	}
	b.WriteString("\nPlease address the feedback and resubmit the milestone.")
	return b.String()
}

// Package review records committee votes on submissions and milestones and
// applies the quorum outcome to the voted target.
package review

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/MbBrainz/grantflow-dev-sub000/src/apperr"
	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/notify"
	"github.com/MbBrainz/grantflow-dev-sub000/src/quorum"
	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

const (
	maxFeedbackLen       = 10000
	maxRejectionFeedback = 3
	finalReviewWeight    = 2
)

var (
	ErrNotReviewer        = apperr.Unauthorized("You are not authorized to review submissions")
	ErrNotCommitteeMember = apperr.Unauthorized("You are not a member of the reviewing committee")
	ErrNotAllowedToView   = apperr.Unauthorized("You are not authorized to view these votes")
	ErrSubmissionNotFound = apperr.NotFound("Submission not found")
	ErrMilestoneNotFound  = apperr.NotFound("Milestone not found")
	ErrMilestoneCompleted = apperr.Precondition("Milestone is already completed")
	ErrAlreadyReviewed    = apperr.Precondition("You have already submitted a review for this submission")
	ErrAlreadyReviewedMs  = apperr.Precondition("You have already submitted a review for this milestone")
	ErrInvalidVote        = apperr.Precondition("Vote must be either approve or reject")
	ErrFeedbackTooLong    = apperr.Precondition("Feedback must be at most 10000 characters")
)

// Authorizer is the authorization collaborator.
type Authorizer interface {
	IsUserReviewer(ctx context.Context, userID uint64) (bool, error)
	IsUserGroupMember(ctx context.Context, userID uint64, groupID *uint64, role string) (bool, error)
}

type Service struct {
	store     *data.Store
	auth      Authorizer
	notifier  notify.Notifier
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

func NewService(store *data.Store, auth Authorizer, notifier notify.Notifier) *Service {
	sanitizer := bluemonday.StrictPolicy()
	sanitizer.AllowElements("p", "br", "strong", "em", "code", "pre", "blockquote", "ul", "ol", "li")

	return &Service{
		store:     store,
		auth:      auth,
		notifier:  notifier,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Target is one voting scope: a submission, or one of its milestones.
type Target struct {
	Submission *types.Submission
	Milestone  *types.Milestone
}

func (t Target) Scope() quorum.Scope {
	if t.Milestone != nil {
		return quorum.ScopeMilestone
	}
	return quorum.ScopeSubmission
}

// GroupID is the committee whose members vote on the target.
func (t Target) GroupID() uint64 {
	if t.Milestone != nil {
		return t.Milestone.GroupID
	}
	return t.Submission.ReviewerGroupID
}

func (t Target) MilestoneID() *uint64 {
	if t.Milestone == nil {
		return nil
	}
	id := t.Milestone.ID
	return &id
}

func (t Target) Key() string {
	return data.TargetKey(t.Submission.ID, t.MilestoneID())
}

type SubmitInput struct {
	ReviewerID   uint64
	SubmissionID uint64
	MilestoneID  *uint64
	Vote         string
	Feedback     string
	// Final marks a binding review that counts double in recorded weight.
	Final bool
}

type Result struct {
	Review *types.Review
	// Decision is nil when evaluation failed; the vote is stored regardless.
	Decision *quorum.Decision
}

// SubmitReview stores one vote and then evaluates quorum for its target.
// Only the vote decides success: evaluation and its side effects are logged
// on failure and never fail the call.
func (s *Service) SubmitReview(ctx context.Context, in SubmitInput) (*Result, error) {
	if in.Vote != types.VoteApprove && in.Vote != types.VoteReject {
		return nil, ErrInvalidVote
	}
	feedback := strings.TrimSpace(s.sanitizer.Sanitize(in.Feedback))
	if len(feedback) > maxFeedbackLen {
		return nil, ErrFeedbackTooLong
	}

	ok, err := s.auth.IsUserReviewer(ctx, in.ReviewerID)
	if err != nil {
		return nil, fmt.Errorf("check reviewer: %w", err)
	}
	if !ok {
		return nil, ErrNotReviewer
	}

	target, err := s.ResolveTarget(ctx, in.SubmissionID, in.MilestoneID)
	if err != nil {
		return nil, err
	}
	groupID := target.GroupID()
	member, err := s.auth.IsUserGroupMember(ctx, in.ReviewerID, &groupID, "")
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, ErrNotCommitteeMember
	}

	dupErr := ErrAlreadyReviewed
	if target.Milestone != nil {
		if target.Milestone.Status == types.MilestoneCompleted {
			return nil, ErrMilestoneCompleted
		}
		dupErr = ErrAlreadyReviewedMs
	}
	existing, err := s.store.FindReview(ctx, target.Key(), in.ReviewerID)
	if err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if existing != nil {
		return nil, dupErr
	}

	r := &types.Review{
		SubmissionID: target.Submission.ID,
		MilestoneID:  target.MilestoneID(),
		GroupID:      groupID,
		ReviewerID:   in.ReviewerID,
		TargetKey:    target.Key(),
		Vote:         in.Vote,
		Feedback:     feedback,
		Weight:       1,
		IsBinding:    in.Final,
	}
	if in.Final {
		r.Weight = finalReviewWeight
	}
	if err := s.store.CreateReview(ctx, r); err != nil {
		if data.IsDuplicateKey(err) {
			return nil, dupErr
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	return &Result{Review: r, Decision: s.evaluateAndApply(ctx, target)}, nil
}

// ResolveTarget loads the submission and, when milestoneID is set, the
// milestone, which must belong to that submission.
func (s *Service) ResolveTarget(ctx context.Context, submissionID uint64, milestoneID *uint64) (Target, error) {
	var t Target
	sub, err := s.store.GetSubmission(ctx, submissionID)
	if err != nil {
		if data.IsNotFound(err) {
			return t, ErrSubmissionNotFound
		}
		return t, fmt.Errorf("load submission: %w", err)
	}
	t.Submission = sub

	if milestoneID != nil {
		m, err := s.store.GetMilestone(ctx, *milestoneID)
		if err != nil {
			if data.IsNotFound(err) {
				return t, ErrMilestoneNotFound
			}
			return t, fmt.Errorf("load milestone: %w", err)
		}
		if m.SubmissionID != sub.ID {
			return t, ErrMilestoneNotFound
		}
		t.Milestone = m
	}
	return t, nil
}

// Evaluate recomputes the decision for a target from every stored vote and
// the committee policy as it is right now.
func (s *Service) Evaluate(ctx context.Context, t Target) (quorum.Decision, []types.Review, error) {
	group, err := s.store.GetGroup(ctx, t.GroupID())
	if err != nil {
		return quorum.Decision{}, nil, fmt.Errorf("load committee %d: %w", t.GroupID(), err)
	}
	members, err := s.store.CountActiveMembers(ctx, group.ID)
	if err != nil {
		return quorum.Decision{}, nil, fmt.Errorf("count members: %w", err)
	}
	votes, err := s.store.ListReviews(ctx, t.Submission.ID, t.MilestoneID())
	if err != nil {
		return quorum.Decision{}, nil, fmt.Errorf("list reviews: %w", err)
	}
	return quorum.Evaluate(t.Scope(), votes, quorum.ConfigFor(group.Settings, members)), votes, nil
}

func (s *Service) evaluateAndApply(ctx context.Context, t Target) (decision *quorum.Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("review: quorum evaluation for %s panicked: %v", t.Key(), r)
			decision = nil
		}
	}()

	d, votes, err := s.Evaluate(ctx, t)
	if err != nil {
		log.Printf("review: quorum evaluation for %s failed: %v", t.Key(), err)
		return nil
	}
	if d.Unreachable {
		log.Printf("review: committee %d has no active members, %s cannot reach quorum", t.GroupID(), t.Key())
		return &d
	}
	if !d.QuorumReached {
		return &d
	}
	if t.Milestone != nil {
		// A pending multisig approval owns the milestone until it executes
		// or is cancelled.
		pending, err := s.store.PendingApproval(ctx, t.Milestone.ID)
		if err != nil {
			log.Printf("review: checking approvals for %s failed: %v", t.Key(), err)
			return &d
		}
		if pending != nil {
			log.Printf("review: %s has pending approval %d, leaving status to the multisig", t.Key(), pending.ID)
			return &d
		}
	}
	if err := s.apply(ctx, t, d, votes); err != nil {
		log.Printf("review: applying %s to %s failed: %v", d.Outcome, t.Key(), err)
	}
	return &d
}

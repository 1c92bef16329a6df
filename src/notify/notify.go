// Package notify writes in-app notifications and fans them out on a Redis
// stream for live clients. Delivery beyond the stream is someone else's job.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
	"github.com/MbBrainz/grantflow-dev-sub000/src/types"
)

// Notification types
const (
	TypeMilestoneRejected = "milestone_rejected"
	TypeMilestoneApproved = "milestone_approved"
	TypePayoutCompleted   = "payout_completed"
	TypeApprovalStarted   = "approval_started"
)

type Input struct {
	UserID       uint64
	Type         string
	Content      string
	SubmissionID *uint64
	MilestoneID  *uint64
	GroupID      *uint64
}

// Notifier is what the review engine needs from a notification writer.
type Notifier interface {
	CreateNotification(ctx context.Context, in Input) error
}

type Writer struct {
	store *data.Store
	rdb   *redis.Client
}

// NewWriter builds a writer; rdb may be nil to skip the stream.
func NewWriter(store *data.Store, rdb *redis.Client) *Writer {
	return &Writer{store: store, rdb: rdb}
}

func (w *Writer) CreateNotification(ctx context.Context, in Input) error {
	if in.UserID == 0 || in.Type == "" {
		return fmt.Errorf("notification needs a user and a type")
	}
	n := types.Notification{
		UserID:       in.UserID,
		Type:         in.Type,
		Content:      in.Content,
		SubmissionID: in.SubmissionID,
		MilestoneID:  in.MilestoneID,
		GroupID:      in.GroupID,
	}
	if err := w.store.CreateNotification(ctx, &n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if w.rdb != nil {
		payload := map[string]interface{}{
			"id":      n.ID,
			"user_id": n.UserID,
			"type":    n.Type,
			"content": n.Content,
			"time":    n.CreatedAt.Unix(),
		}
		if n.SubmissionID != nil {
			payload["submission_id"] = *n.SubmissionID
		}
		if n.MilestoneID != nil {
			payload["milestone_id"] = *n.MilestoneID
		}
		// the row is the record; the stream is best-effort
		if err := data.PublishNotification(ctx, w.rdb, payload); err != nil {
			log.Printf("notify: publish %d failed: %v", n.ID, err)
		}
	}
	return nil
}

package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MbBrainz/grantflow-dev-sub000/src/review"
)

type Reviews struct{ svc *review.Service }

func NewReviews(svc *review.Service) Reviews { return Reviews{svc: svc} }

func (r Reviews) Submit(c *gin.Context) {
	var req struct {
		SubmissionID uint64  `json:"submissionId" binding:"required"`
		MilestoneID  *uint64 `json:"milestoneId"`
		Vote         string  `json:"vote" binding:"required,oneof=approve reject"`
		Feedback     string  `json:"feedback" binding:"max=20000"`
		Final        bool    `json:"final"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := r.svc.SubmitReview(c.Request.Context(), review.SubmitInput{
		ReviewerID:   userID(c),
		SubmissionID: req.SubmissionID,
		MilestoneID:  req.MilestoneID,
		Vote:         req.Vote,
		Feedback:     req.Feedback,
		Final:        req.Final,
	})
	if err != nil {
		respond(c, err, "submit review")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": res.Review, "decision": res.Decision})
}

func (r Reviews) SubmissionVotes(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	sum, err := r.svc.Tally(c.Request.Context(), userID(c), id, nil)
	if err != nil {
		respond(c, err, "load votes")
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (r Reviews) MilestoneVotes(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	sum, err := r.svc.TallyMilestone(c.Request.Context(), userID(c), id)
	if err != nil {
		respond(c, err, "load votes")
		return
	}
	c.JSON(http.StatusOK, sum)
}

package webserver

import (
	"github.com/gin-gonic/gin"
)

func attachRoutes(r *gin.Engine, secret []byte, limiter *RateLimiter, deps Deps) {
	reviewH := NewReviews(deps.Reviews)
	approvalH := NewApprovals(deps.Multisig)
	payoutH := NewPayouts(deps.Payouts)
	notifH := NewNotifications(deps.Store)

	v1 := r.Group("/v1")
	secured := v1.Use(JWTMiddleware(secret), RateLimitMiddleware(limiter))
	{
		secured.POST("/reviews", reviewH.Submit)
		secured.GET("/submissions/:id/votes", reviewH.SubmissionVotes)
		secured.GET("/milestones/:id/votes", reviewH.MilestoneVotes)

		secured.POST("/milestones/:id/approvals", approvalH.Initiate)
		secured.GET("/milestones/:id/approvals/active", approvalH.Active)
		secured.POST("/approvals/:id/votes", approvalH.Vote)
		secured.POST("/approvals/:id/finalize", approvalH.Finalize)
		secured.POST("/approvals/:id/cancel", approvalH.Cancel)

		secured.POST("/milestones/:id/payouts", payoutH.Record)
		secured.GET("/notifications", notifH.List)
	}
}

package multisig

import "github.com/MbBrainz/grantflow-dev-sub000/src/apperr"

// User-facing failures; the action layer shows the message verbatim.
var (
	ErrNotAuthorizedInitiate = apperr.Unauthorized("You are not authorized to initiate multisig approvals")
	ErrNotAuthorizedVote     = apperr.Unauthorized("You are not authorized to vote on multisig approvals")
	ErrNotAuthorizedFinalize = apperr.Unauthorized("You are not authorized to finalize multisig approvals")
	ErrNotAuthorizedView     = apperr.Unauthorized("You are not authorized to view this approval")
	ErrNotInitiator          = apperr.Unauthorized("Only the initiator can cancel this approval")

	ErrMilestoneNotFound  = apperr.NotFound("Milestone not found")
	ErrSubmissionNotFound = apperr.NotFound("Submission not found")
	ErrApprovalNotFound   = apperr.NotFound("Approval not found")
	ErrNoActiveApproval   = apperr.NotFound("There is no active approval process for this milestone")

	ErrActiveApproval   = apperr.Precondition("There is already an active approval process for this milestone")
	ErrNoMultisig       = apperr.Precondition("This committee has no multisig configuration")
	ErrNoBeneficiary    = apperr.Precondition("The submission has no beneficiary wallet address")
	ErrNotSignatory     = apperr.Precondition("Your wallet address is not a signatory of the committee multisig")
	ErrAlreadyVoted     = apperr.Precondition("You have already voted on this approval")
	ErrNotActive        = apperr.Precondition("This approval is no longer active")
	ErrMilestoneDone    = apperr.Precondition("Milestone is already completed")
	ErrInvalidSignature = apperr.Precondition("Signature type must be either signed or rejected")
	ErrMissingExecution = apperr.Precondition("Execution transaction hash and block number are required")
	ErrMissingCall      = apperr.Precondition("Multisig call hash, call data and timepoint are required")
	ErrInvalidPayout    = apperr.Precondition("Payout amount must be positive")
	ErrFinalMustApprove = apperr.Precondition("A final approval cannot be a rejection")
	ErrReviewMismatch   = apperr.Precondition("Your milestone review does not match this signature")
)

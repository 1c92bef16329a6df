package webserver

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/MbBrainz/grantflow-dev-sub000/src/multisig"
	"github.com/MbBrainz/grantflow-dev-sub000/src/polkadot"
)

type Approvals struct{ coord *multisig.Coordinator }

func NewApprovals(coord *multisig.Coordinator) Approvals { return Approvals{coord: coord} }

type timepoint struct {
	Height uint64 `json:"height" binding:"required"`
	Index  uint32 `json:"index"`
}

func (a Approvals) Initiate(c *gin.Context) {
	milestoneID, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		SignatoryAddress string              `json:"signatoryAddress" binding:"required"`
		CallHash         string              `json:"callHash" binding:"required"`
		CallData         string              `json:"callData" binding:"required"`
		Timepoint        timepoint           `json:"timepoint"`
		TxHash           string              `json:"txHash" binding:"required"`
		PayoutAmount     decimal.NullDecimal `json:"payoutAmount"`
		ParentBountyID   *uint64             `json:"parentBountyId"`
		PriceUSD         decimal.NullDecimal `json:"priceUsd"`
		PriceDate        *time.Time          `json:"priceDate"`
		PriceSource      string              `json:"priceSource" binding:"max=64"`
		TokenAmount      decimal.NullDecimal `json:"tokenAmount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !validAddress(c, req.SignatoryAddress) || !validHash(c, "callHash", req.CallHash) || !validHash(c, "txHash", req.TxHash) {
		return
	}
	idx, err := polkadot.CallIndexOf(req.CallData)
	if err != nil {
		badRequest(c, "bad callData: "+err.Error())
		return
	}
	log.Printf("approvals: milestone %d call %d.%d at %d-%d", milestoneID, idx.SectionIndex, idx.MethodIndex,
		req.Timepoint.Height, req.Timepoint.Index)

	st, err := a.coord.Initiate(c.Request.Context(), multisig.InitiateInput{
		UserID:           userID(c),
		MilestoneID:      milestoneID,
		SignatoryAddress: req.SignatoryAddress,
		CallHash:         req.CallHash,
		CallData:         req.CallData,
		TimepointHeight:  req.Timepoint.Height,
		TimepointIndex:   req.Timepoint.Index,
		TxHash:           req.TxHash,
		PayoutAmount:     req.PayoutAmount,
		ParentBountyID:   req.ParentBountyID,
		PriceUSD:         req.PriceUSD,
		PriceDate:        req.PriceDate,
		PriceSource:      req.PriceSource,
		TokenAmount:      req.TokenAmount,
	})
	if err != nil {
		respond(c, err, "initiate approval")
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (a Approvals) Active(c *gin.Context) {
	milestoneID, ok := idParam(c)
	if !ok {
		return
	}
	st, err := a.coord.ActiveApproval(c.Request.Context(), userID(c), milestoneID)
	if err != nil {
		respond(c, err, "load approval")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (a Approvals) Vote(c *gin.Context) {
	approvalID, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		SignatoryAddress     string  `json:"signatoryAddress" binding:"required"`
		SignatureType        string  `json:"signatureType" binding:"omitempty,oneof=signed rejected"`
		TxHash               string  `json:"txHash" binding:"required"`
		WasExecuted          bool    `json:"wasExecuted"`
		ExecutionBlockNumber *uint64 `json:"executionBlockNumber" binding:"omitempty,min=1"`
		ChildBountyID        *uint64 `json:"childBountyId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !validAddress(c, req.SignatoryAddress) || !validHash(c, "txHash", req.TxHash) {
		return
	}

	res, err := a.coord.CastVote(c.Request.Context(), multisig.VoteInput{
		UserID:               userID(c),
		ApprovalID:           approvalID,
		SignatoryAddress:     req.SignatoryAddress,
		SignatureType:        req.SignatureType,
		TxHash:               req.TxHash,
		WasExecuted:          req.WasExecuted,
		ExecutionBlockNumber: req.ExecutionBlockNumber,
		ChildBountyID:        req.ChildBountyID,
	})
	if err != nil {
		respond(c, err, "record vote")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a Approvals) Finalize(c *gin.Context) {
	approvalID, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		SignatoryAddress     string  `json:"signatoryAddress" binding:"required"`
		ExecutionTxHash      string  `json:"executionTxHash" binding:"required"`
		ExecutionBlockNumber uint64  `json:"executionBlockNumber" binding:"required"`
		ChildBountyID        *uint64 `json:"childBountyId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !validAddress(c, req.SignatoryAddress) || !validHash(c, "executionTxHash", req.ExecutionTxHash) {
		return
	}

	st, err := a.coord.Finalize(c.Request.Context(), multisig.FinalizeInput{
		UserID:               userID(c),
		ApprovalID:           approvalID,
		SignatoryAddress:     req.SignatoryAddress,
		ExecutionTxHash:      req.ExecutionTxHash,
		ExecutionBlockNumber: req.ExecutionBlockNumber,
		ChildBountyID:        req.ChildBountyID,
	})
	if err != nil {
		respond(c, err, "finalize approval")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (a Approvals) Cancel(c *gin.Context) {
	approvalID, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		TxHash string `json:"txHash"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.TxHash != "" && !validHash(c, "txHash", req.TxHash) {
		return
	}
	if err := a.coord.Cancel(c.Request.Context(), multisig.CancelInput{
		UserID:     userID(c),
		ApprovalID: approvalID,
		TxHash:     req.TxHash,
	}); err != nil {
		respond(c, err, "cancel approval")
		return
	}
	c.Status(http.StatusNoContent)
}

func validAddress(c *gin.Context, addr string) bool {
	if err := polkadot.ValidateAddress(addr); err != nil {
		badRequest(c, "bad signatoryAddress: "+err.Error())
		return false
	}
	return true
}

func validHash(c *gin.Context, field, h string) bool {
	if _, err := polkadot.ParseHash(h); err != nil {
		badRequest(c, "bad "+field+": "+err.Error())
		return false
	}
	return true
}

package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/MbBrainz/grantflow-dev-sub000/src/payout"
	"github.com/MbBrainz/grantflow-dev-sub000/src/polkadot"
)

type Payouts struct{ svc *payout.Service }

func NewPayouts(svc *payout.Service) Payouts { return Payouts{svc: svc} }

func (p Payouts) Record(c *gin.Context) {
	milestoneID, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Amount          decimal.NullDecimal `json:"amount"`
		TransactionHash string              `json:"transactionHash" binding:"required"`
		Network         string              `json:"network" binding:"omitempty,alphanum,max=32"`
		WalletFrom      string              `json:"walletFrom"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !validHash(c, "transactionHash", req.TransactionHash) {
		return
	}
	if req.WalletFrom != "" {
		if err := polkadot.ValidateAddress(req.WalletFrom); err != nil {
			badRequest(c, "bad walletFrom: "+err.Error())
			return
		}
	}

	out, err := p.svc.RecordManual(c.Request.Context(), payout.ManualInput{
		UserID:          userID(c),
		MilestoneID:     milestoneID,
		Amount:          req.Amount,
		TransactionHash: req.TransactionHash,
		Network:         req.Network,
		WalletFrom:      req.WalletFrom,
	})
	if err != nil {
		respond(c, err, "record payout")
		return
	}
	c.JSON(http.StatusCreated, out)
}

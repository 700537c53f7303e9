package handler

import (
	"github.com/gin-gonic/gin"
	ledgerapp "github.com/tippool/backend/internal/application/ledger"
)

// TransferHandler handles worker-to-worker transfers and payouts
type TransferHandler struct {
	BaseHandler
	transferService *ledgerapp.TransferService
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(transferService *ledgerapp.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

// Transfer godoc
// @ID           transferTips
//
//	@Summary		Transfer tips between workers
//	@Description	Move an amount from one worker's balance to another as a paired debit and credit. Replays of the same reference return the original pair.
//	@Tags			transfers
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string						false	"Location ID (optional for dev)"
//	@Param			request			body		ledgerapp.TransferRequest	true	"Transfer request"
//	@Success		201				{object}	APIResponse[ledgerapp.TransferResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/transfers [post]
func (h *TransferHandler) Transfer(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	var req ledgerapp.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	transfer, err := h.transferService.Transfer(c.Request.Context(), locationID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	if transfer.Debit.Duplicate {
		h.Success(c, transfer)
		return
	}
	h.Created(c, transfer)
}

// Payout godoc
// @ID           payoutWorker
//
//	@Summary		Pay out a worker
//	@Description	Debit a worker's balance for a disbursement and mark the credits it covers as settled
//	@Tags			transfers
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string						false	"Location ID (optional for dev)"
//	@Param			request			body		ledgerapp.PayoutRequest		true	"Payout request"
//	@Success		201				{object}	APIResponse[ledgerapp.PayoutResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/payouts [post]
func (h *TransferHandler) Payout(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	var req ledgerapp.PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payout, err := h.transferService.Payout(c.Request.Context(), locationID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	if payout.Entry.Duplicate {
		h.Success(c, payout)
		return
	}
	h.Created(c, payout)
}

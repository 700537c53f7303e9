package handler

import (
	"github.com/gin-gonic/gin"
	groupingapp "github.com/tippool/backend/internal/application/grouping"
	tipoutapp "github.com/tippool/backend/internal/application/tipout"
	"go.uber.org/zap"
)

// POSHandler ingests point-of-sale events: captured payments, closed shifts
// and worker clock-outs. Each intake is idempotent against replayed
// deliveries, so the POS can retry safely.
type POSHandler struct {
	BaseHandler
	allocationService *groupingapp.AllocationService
	evaluationService *tipoutapp.EvaluationService
	groupService      *groupingapp.GroupService
	logger            *zap.Logger
}

// NewPOSHandler creates a new POSHandler
func NewPOSHandler(
	allocationService *groupingapp.AllocationService,
	evaluationService *tipoutapp.EvaluationService,
	groupService *groupingapp.GroupService,
	logger *zap.Logger,
) *POSHandler {
	return &POSHandler{
		allocationService: allocationService,
		evaluationService: evaluationService,
		groupService:      groupService,
		logger:            logger,
	}
}

// PaymentCaptured godoc
// @ID           posPaymentCaptured
//
//	@Summary		Ingest a captured payment
//	@Description	Allocate a captured payment's tip across the paying worker's active group. Workers outside any group keep the whole tip. Redelivery of the same payment reference returns the original allocation.
//	@Tags			pos
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string						false	"Location ID (optional for dev)"
//	@Param			request			body		groupingapp.AllocateRequest	true	"Captured payment"
//	@Success		201				{object}	APIResponse[groupingapp.AllocationResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/pos/payments/captured [post]
func (h *POSHandler) PaymentCaptured(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	var req groupingapp.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	allocation, err := h.allocationService.AllocateForPayment(c.Request.Context(), locationID, req)
	if err != nil {
		h.logger.Warn("payment allocation failed",
			zap.String("payment_reference", req.PaymentReference),
			zap.String("worker_id", req.WorkerID.String()),
			zap.Error(err))
		h.HandleDomainError(c, err)
		return
	}

	if allocation.Duplicate {
		h.Success(c, allocation)
		return
	}
	h.Created(c, allocation)
}

// ShiftClosed godoc
// @ID           posShiftClosed
//
//	@Summary		Ingest a closed shift
//	@Description	Evaluate the location's tip-out rules against the shift's sales figures and post the resulting debits and credits. Redelivery of the same shift reference is a no-op.
//	@Tags			pos
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string							false	"Location ID (optional for dev)"
//	@Param			request			body		tipoutapp.ShiftClosedRequest	true	"Closed shift"
//	@Success		201				{object}	APIResponse[tipoutapp.ShiftCloseResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/pos/shifts/closed [post]
func (h *POSHandler) ShiftClosed(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	var req tipoutapp.ShiftClosedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.evaluationService.ComputePayouts(c.Request.Context(), locationID, req)
	if err != nil {
		h.logger.Warn("shift close evaluation failed",
			zap.String("shift_reference", req.ShiftReference),
			zap.Error(err))
		h.HandleDomainError(c, err)
		return
	}

	if result.Duplicate {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// ClockedOut godoc
// @ID           posClockedOut
//
//	@Summary		Ingest a worker clock-out
//	@Description	Remove the worker from their active group, recording hours worked when provided. Workers outside any group are ignored.
//	@Tags			pos
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string						false	"Location ID (optional for dev)"
//	@Param			request			body		groupingapp.ClockOutRequest	true	"Clock-out event"
//	@Success		200				{object}	SuccessResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/pos/clock-outs [post]
func (h *POSHandler) ClockedOut(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	var req groupingapp.ClockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.groupService.HandleClockOut(c.Request.Context(), locationID, req); err != nil {
		h.logger.Warn("clock-out handling failed",
			zap.String("worker_id", req.WorkerID.String()),
			zap.Error(err))
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"processed": true})
}

package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/tippool/backend/internal/application/ledger"
	"github.com/tippool/backend/internal/domain/ledger"
	"github.com/tippool/backend/internal/domain/shared"
	"github.com/tippool/backend/internal/interfaces/http/dto"
)

// LedgerHandler handles worker ledger API endpoints
type LedgerHandler struct {
	BaseHandler
	ledgerService *ledgerapp.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *ledgerapp.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

// ListEntriesRequest represents query parameters for listing ledger entries
// @Description Query parameters for listing a worker's ledger entries
type ListEntriesRequest struct {
	dto.ListRequest
	SourceType string `form:"source_type" binding:"omitempty,oneof=PAYMENT_ALLOCATION MANUAL_TRANSFER PAYOUT ADJUSTMENT FEE_DEDUCTION TIP_OUT"`
	Direction  string `form:"direction" binding:"omitempty,oneof=CREDIT DEBIT"`
	From       string `form:"from" binding:"omitempty"`
	To         string `form:"to" binding:"omitempty"`
	Unsettled  bool   `form:"unsettled"`
}

// ReconcileRequest represents query parameters for a reconcile run
// @Description Query parameters for reconciling a worker's cached balance
type ReconcileRequest struct {
	Repair bool `form:"repair"`
}

// GetBalance godoc
// @ID           getWorkerBalance
//
//	@Summary		Get worker balance
//	@Description	Retrieve a worker's cached tip balance
//	@Tags			ledger
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			workerId		path		string	true	"Worker ID"	format(uuid)
//	@Success		200				{object}	APIResponse[ledgerapp.BalanceResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/ledger/workers/{workerId}/balance [get]
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	workerID, err := uuid.Parse(c.Param("workerId"))
	if err != nil {
		h.BadRequest(c, "Invalid worker ID format")
		return
	}

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), locationID, workerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, balance)
}

// ListBalances godoc
// @ID           listWorkerBalances
//
//	@Summary		List worker balances
//	@Description	List cached balances for all workers at the location, highest first
//	@Tags			ledger
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			page			query		int		false	"Page number"	default(1)
//	@Param			page_size		query		int		false	"Page size"		default(20)
//	@Success		200				{object}	APIResponse[[]ledgerapp.BalanceResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/ledger/balances [get]
func (h *LedgerHandler) ListBalances(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.ledgerService.ListBalances(c.Request.Context(), locationID, req.ToFilter())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// ListEntries godoc
// @ID           listWorkerEntries
//
//	@Summary		List worker ledger entries
//	@Description	List a worker's ledger entries, newest first, with optional source, direction, window and settlement filters
//	@Tags			ledger
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			workerId		path		string	true	"Worker ID"	format(uuid)
//	@Param			source_type		query		string	false	"Filter by source type"
//	@Param			direction		query		string	false	"Filter by direction"
//	@Param			from			query		string	false	"Inclusive window start (RFC 3339)"
//	@Param			to				query		string	false	"Exclusive window end (RFC 3339)"
//	@Param			unsettled		query		bool	false	"Only unsettled credits"
//	@Param			page			query		int		false	"Page number"	default(1)
//	@Param			page_size		query		int		false	"Page size"		default(20)
//	@Success		200				{object}	APIResponse[[]ledgerapp.EntryResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/ledger/workers/{workerId}/entries [get]
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	workerID, err := uuid.Parse(c.Param("workerId"))
	if err != nil {
		h.BadRequest(c, "Invalid worker ID format")
		return
	}

	req := ListEntriesRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	query, err := buildEntryQuery(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.ledgerService.ListEntries(c.Request.Context(), locationID, workerID, query)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// PostAdjustment godoc
// @ID           postLedgerAdjustment
//
//	@Summary		Post a manual ledger entry
//	@Description	Post an adjustment or fee deduction against a worker's ledger. Replays of an already-posted source return the original entry.
//	@Tags			ledger
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string						false	"Location ID (optional for dev)"
//	@Param			request			body		ledgerapp.PostEntryRequest	true	"Entry to post"
//	@Success		201				{object}	APIResponse[ledgerapp.EntryResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/ledger/entries [post]
func (h *LedgerHandler) PostAdjustment(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	var req ledgerapp.PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	entry, err := h.ledgerService.PostEntry(c.Request.Context(), locationID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	if entry.Duplicate {
		h.Success(c, entry)
		return
	}
	h.Created(c, entry)
}

// Reconcile godoc
// @ID           reconcileWorkerBalance
//
//	@Summary		Reconcile a worker's balance
//	@Description	Re-derive the worker's balance from ledger entries and compare against the cache. With repair=true a drifted cache is rewritten from the derivation.
//	@Tags			ledger
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			workerId		path		string	true	"Worker ID"	format(uuid)
//	@Param			repair			query		bool	false	"Repair a drifted cache"
//	@Success		200				{object}	APIResponse[ledger.ReconcileReport]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/ledger/workers/{workerId}/reconcile [post]
func (h *LedgerHandler) Reconcile(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	workerID, err := uuid.Parse(c.Param("workerId"))
	if err != nil {
		h.BadRequest(c, "Invalid worker ID format")
		return
	}

	var req ReconcileRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	report, err := h.ledgerService.Reconcile(c.Request.Context(), locationID, workerID, req.Repair)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// GetPolicy godoc
// @ID           getLedgerPolicy
//
//	@Summary		Get the location ledger policy
//	@Description	Retrieve the location's ledger policy; locations without an explicit policy get the defaults
//	@Tags			ledger
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Success		200				{object}	APIResponse[ledgerapp.PolicyResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/ledger/policy [get]
func (h *LedgerHandler) GetPolicy(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	policy, err := h.ledgerService.GetPolicy(c.Request.Context(), locationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, policy)
}

// UpdatePolicy godoc
// @ID           updateLedgerPolicy
//
//	@Summary		Update the location ledger policy
//	@Description	Set whether worker balances at this location may go negative
//	@Tags			ledger
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string							false	"Location ID (optional for dev)"
//	@Param			request			body		ledgerapp.UpdatePolicyRequest	true	"Policy update"
//	@Success		200				{object}	APIResponse[ledgerapp.PolicyResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/ledger/policy [put]
func (h *LedgerHandler) UpdatePolicy(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	var req ledgerapp.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	policy, err := h.ledgerService.UpdatePolicy(c.Request.Context(), locationID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, policy)
}

// buildEntryQuery converts bound query parameters into a domain entry query
func buildEntryQuery(req ListEntriesRequest) (ledger.EntryQuery, error) {
	query := ledger.EntryQuery{
		Unsettled: req.Unsettled,
		Filter:    req.ToFilter(),
	}
	if req.SourceType != "" {
		st := ledger.EntrySourceType(req.SourceType)
		query.SourceType = &st
	}
	if req.Direction != "" {
		d := ledger.EntryDirection(req.Direction)
		query.Direction = &d
	}
	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return ledger.EntryQuery{}, shared.NewDomainError("INVALID_WINDOW", "invalid 'from' timestamp, expected RFC 3339")
		}
		query.From = &from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return ledger.EntryQuery{}, shared.NewDomainError("INVALID_WINDOW", "invalid 'to' timestamp, expected RFC 3339")
		}
		query.To = &to
	}
	return query, nil
}

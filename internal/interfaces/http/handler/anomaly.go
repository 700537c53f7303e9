package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	groupingapp "github.com/tippool/backend/internal/application/grouping"
	"github.com/tippool/backend/internal/interfaces/http/dto"
)

// AnomalyHandler handles allocation anomaly API endpoints
type AnomalyHandler struct {
	BaseHandler
	allocationService *groupingapp.AllocationService
}

// NewAnomalyHandler creates a new AnomalyHandler
func NewAnomalyHandler(allocationService *groupingapp.AllocationService) *AnomalyHandler {
	return &AnomalyHandler{
		allocationService: allocationService,
	}
}

// ListAnomaliesRequest represents query parameters for listing anomalies
// @Description Query parameters for listing allocation anomalies
type ListAnomaliesRequest struct {
	dto.ListRequest
	Unresolved bool `form:"unresolved"`
}

// ResolveAnomalyRequest represents a request to resolve an anomaly
// @Description Request body for resolving an allocation anomaly
type ResolveAnomalyRequest struct {
	Note string `json:"note" binding:"required,min=1,max=500"`
}

// List godoc
// @ID           listAnomalies
//
//	@Summary		List allocation anomalies
//	@Description	List fallback allocations recorded when a payment could not be split normally, newest first
//	@Tags			anomalies
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			unresolved		query		bool	false	"Only unresolved anomalies"
//	@Param			page			query		int		false	"Page number"	default(1)
//	@Param			page_size		query		int		false	"Page size"		default(20)
//	@Success		200				{object}	APIResponse[[]groupingapp.AnomalyResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/anomalies [get]
func (h *AnomalyHandler) List(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	req := ListAnomaliesRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.allocationService.ListAnomalies(c.Request.Context(), locationID, req.Unresolved, req.ToFilter())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Resolve godoc
// @ID           resolveAnomaly
//
//	@Summary		Resolve an anomaly
//	@Description	Mark an allocation anomaly as reviewed with an operator note
//	@Tags			anomalies
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string					false	"Location ID (optional for dev)"
//	@Param			id				path		string					true	"Anomaly ID"	format(uuid)
//	@Param			request			body		ResolveAnomalyRequest	true	"Resolution note"
//	@Success		200				{object}	APIResponse[groupingapp.AnomalyResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/anomalies/{id}/resolve [post]
func (h *AnomalyHandler) Resolve(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	anomalyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid anomaly ID format")
		return
	}

	var req ResolveAnomalyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	anomaly, err := h.allocationService.ResolveAnomaly(c.Request.Context(), locationID, anomalyID, req.Note)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, anomaly)
}

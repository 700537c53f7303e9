package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	tipoutapp "github.com/tippool/backend/internal/application/tipout"
	"github.com/tippool/backend/internal/interfaces/http/dto"
)

// maxImportFileSize caps uploaded rule CSV files at 10MB
const maxImportFileSize = 10 * 1024 * 1024

// TipOutRuleHandler handles tip-out rule API endpoints
type TipOutRuleHandler struct {
	BaseHandler
	ruleService   *tipoutapp.RuleService
	importService *tipoutapp.RuleImportService
}

// NewTipOutRuleHandler creates a new TipOutRuleHandler
func NewTipOutRuleHandler(ruleService *tipoutapp.RuleService, importService *tipoutapp.RuleImportService) *TipOutRuleHandler {
	return &TipOutRuleHandler{
		ruleService:   ruleService,
		importService: importService,
	}
}

// ExpireRuleRequest represents a request to end a rule's effective window
// @Description Request body for expiring a tip-out rule
type ExpireRuleRequest struct {
	At time.Time `json:"at"`
}

// Create godoc
// @ID           createTipOutRule
//
//	@Summary		Create a tip-out rule
//	@Description	Create a role-to-role tip-out rule with a basis, percent and optional cap
//	@Tags			tip-out-rules
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string							false	"Location ID (optional for dev)"
//	@Param			request			body		tipoutapp.CreateRuleRequest		true	"Rule creation request"
//	@Success		201				{object}	APIResponse[tipoutapp.RuleResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/tip-out-rules [post]
func (h *TipOutRuleHandler) Create(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	var req tipoutapp.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), locationID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, rule)
}

// GetByID godoc
// @ID           getTipOutRuleById
//
//	@Summary		Get tip-out rule by ID
//	@Description	Retrieve a tip-out rule by its ID
//	@Tags			tip-out-rules
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			id				path		string	true	"Rule ID"	format(uuid)
//	@Success		200				{object}	APIResponse[tipoutapp.RuleResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/tip-out-rules/{id} [get]
func (h *TipOutRuleHandler) GetByID(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	rule, err := h.ruleService.GetRule(c.Request.Context(), locationID, ruleID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rule)
}

// List godoc
// @ID           listTipOutRules
//
//	@Summary		List tip-out rules
//	@Description	List the location's tip-out rules with pagination
//	@Tags			tip-out-rules
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			page			query		int		false	"Page number"	default(1)
//	@Param			page_size		query		int		false	"Page size"		default(20)
//	@Success		200				{object}	APIResponse[[]tipoutapp.RuleResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/tip-out-rules [get]
func (h *TipOutRuleHandler) List(c *gin.Context) {
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

	result, err := h.ruleService.ListRules(c.Request.Context(), locationID, req.ToFilter())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Update godoc
// @ID           updateTipOutRule
//
//	@Summary		Update a tip-out rule
//	@Description	Change a rule's name, percent, cap or enabled flag
//	@Tags			tip-out-rules
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string							false	"Location ID (optional for dev)"
//	@Param			id				path		string							true	"Rule ID"	format(uuid)
//	@Param			request			body		tipoutapp.UpdateRuleRequest		true	"Rule update request"
//	@Success		200				{object}	APIResponse[tipoutapp.RuleResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/tip-out-rules/{id} [put]
func (h *TipOutRuleHandler) Update(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	var req tipoutapp.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), locationID, ruleID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rule)
}

// Expire godoc
// @ID           expireTipOutRule
//
//	@Summary		Expire a tip-out rule
//	@Description	End a rule's effective window so it stops applying to future shifts
//	@Tags			tip-out-rules
//	@Accept			json
//	@Produce		json
//	@Param			X-Location-ID	header		string				false	"Location ID (optional for dev)"
//	@Param			id				path		string				true	"Rule ID"	format(uuid)
//	@Param			request			body		ExpireRuleRequest	false	"Expiry time"
//	@Success		200				{object}	APIResponse[tipoutapp.RuleResponse]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		422				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/tip-out-rules/{id}/expire [post]
func (h *TipOutRuleHandler) Expire(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	var req ExpireRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BadRequest(c, err.Error())
		return
	}
	if req.At.IsZero() {
		req.At = time.Now().UTC()
	}

	rule, err := h.ruleService.ExpireRule(c.Request.Context(), locationID, ruleID, req.At)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, rule)
}

// Import godoc
// @ID           importTipOutRules
//
//	@Summary		Import tip-out rules from CSV
//	@Description	Bulk create tip-out rules from a CSV file with columns name, source_role, recipient_role, basis, percent and optional cap_percent, effective_from, effective_to, enabled
//	@Tags			tip-out-rules
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			X-Location-ID	header		string	false	"Location ID (optional for dev)"
//	@Param			file			formData	file	true	"CSV file to import"
//	@Success		200				{object}	APIResponse[tipoutapp.RuleImportResult]
//	@Failure		400				{object}	ErrorResponse
//	@Failure		413				{object}	ErrorResponse
//	@Failure		415				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/tip-out-rules/import [post]
func (h *TipOutRuleHandler) Import(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImportFileSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "file exceeds maximum size of 10MB")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && contentType != "text/csv" && contentType != "application/octet-stream" &&
		contentType != "text/plain" && contentType != "application/vnd.ms-excel" {
		h.Error(c, http.StatusUnsupportedMediaType, dto.ErrCodeValidation, "file must be a CSV file")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImportFileSize+1))
	if err != nil {
		h.InternalError(c, "failed to read file: "+err.Error())
		return
	}

	result, err := h.importService.ImportRules(c.Request.Context(), locationID, data)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Delete godoc
// @ID           deleteTipOutRule
//
//	@Summary		Delete a tip-out rule
//	@Description	Delete a tip-out rule; already-posted tip-outs are untouched
//	@Tags			tip-out-rules
//	@Produce		json
//	@Param			X-Location-ID	header	string	false	"Location ID (optional for dev)"
//	@Param			id				path	string	true	"Rule ID"	format(uuid)
//	@Success		204
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		500				{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/tip-out-rules/{id} [delete]
func (h *TipOutRuleHandler) Delete(c *gin.Context) {
	locationID, err := getLocationID(c)
	if err != nil {
		h.BadRequest(c, "Invalid location ID")
		return
	}

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid rule ID format")
		return
	}

	if err := h.ruleService.DeleteRule(c.Request.Context(), locationID, ruleID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

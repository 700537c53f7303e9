package tipout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/tipout"
)

// CreateRuleRequest represents a request to create a tip-out rule
type CreateRuleRequest struct {
	Name          string           `json:"name" binding:"required,min=1,max=200"`
	SourceRole    string           `json:"source_role" binding:"required,max=100"`
	RecipientRole string           `json:"recipient_role" binding:"required,max=100"`
	Basis         string           `json:"basis" binding:"required,oneof=TOTAL_SALES FOOD_SALES BAR_SALES NET_SALES TIPS_EARNED"`
	Percent       decimal.Decimal  `json:"percent" binding:"required"`
	CapPercent    *decimal.Decimal `json:"cap_percent"`
	EffectiveFrom time.Time        `json:"effective_from"`
	EffectiveTo   *time.Time       `json:"effective_to"`
}

// UpdateRuleRequest represents a request to update a tip-out rule. Only the
// provided fields change.
type UpdateRuleRequest struct {
	Name      *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Percent   *decimal.Decimal `json:"percent"`
	CapPercent *decimal.Decimal `json:"cap_percent"`
	Enabled   *bool            `json:"enabled"`
}

// RuleResponse represents a tip-out rule in API responses
type RuleResponse struct {
	ID            uuid.UUID        `json:"id"`
	LocationID    uuid.UUID        `json:"location_id"`
	Name          string           `json:"name"`
	SourceRole    string           `json:"source_role"`
	RecipientRole string           `json:"recipient_role"`
	Basis         string           `json:"basis"`
	Percent       decimal.Decimal  `json:"percent"`
	CapPercent    *decimal.Decimal `json:"cap_percent,omitempty"`
	EffectiveFrom time.Time        `json:"effective_from"`
	EffectiveTo   *time.Time       `json:"effective_to,omitempty"`
	Enabled       bool             `json:"enabled"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ToRuleResponse converts a domain rule to a response DTO
func ToRuleResponse(r *tipout.TipOutRule) *RuleResponse {
	return &RuleResponse{
		ID:            r.ID,
		LocationID:    r.LocationID,
		Name:          r.Name,
		SourceRole:    r.SourceRole,
		RecipientRole: r.RecipientRole,
		Basis:         r.Basis.String(),
		Percent:       r.Percent,
		CapPercent:    r.CapPercent,
		EffectiveFrom: r.EffectiveFrom,
		EffectiveTo:   r.EffectiveTo,
		Enabled:       r.Enabled,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// ShiftWorker is one worker on the closed shift's roster
type ShiftWorker struct {
	WorkerID   uuid.UUID       `json:"worker_id" binding:"required"`
	Role       string          `json:"role" binding:"required,max=100"`
	TipsEarned decimal.Decimal `json:"tips_earned"`
}

// ShiftClosedRequest carries the sales figures and roster of a closed shift.
// Amounts are recomputed against the active rules server-side; the POS only
// reports the raw figures.
type ShiftClosedRequest struct {
	ShiftReference string          `json:"shift_reference" binding:"required,min=1,max=150"`
	ClosedAt       time.Time       `json:"closed_at" binding:"required"`
	TotalSales     decimal.Decimal `json:"total_sales"`
	FoodSales      decimal.Decimal `json:"food_sales"`
	BarSales       decimal.Decimal `json:"bar_sales"`
	NetSales       decimal.Decimal `json:"net_sales"`
	Workers        []ShiftWorker   `json:"workers" binding:"required,dive"`
}

// ContributionResponse is one worker's part of a posted tip-out, with the
// ledger entry it produced
type ContributionResponse struct {
	WorkerID uuid.UUID       `json:"worker_id"`
	Amount   decimal.Decimal `json:"amount"`
	EntryID  uuid.UUID       `json:"entry_id"`
}

// RulePostingResponse is the outcome of one rule's evaluation for a shift
type RulePostingResponse struct {
	RuleID      uuid.UUID              `json:"rule_id"`
	RuleName    string                 `json:"rule_name"`
	BasisAmount decimal.Decimal        `json:"basis_amount"`
	GrossAmount decimal.Decimal        `json:"gross_amount"`
	Amount      decimal.Decimal        `json:"amount"`
	WasCapped   bool                   `json:"was_capped"`
	Debits      []ContributionResponse `json:"debits"`
	Credits     []ContributionResponse `json:"credits"`
}

// ShiftCloseResponse is the outcome of evaluating all applicable rules for a
// closed shift
type ShiftCloseResponse struct {
	ShiftReference string                `json:"shift_reference"`
	Postings       []RulePostingResponse `json:"postings"`
	Duplicate      bool                  `json:"duplicate"`
}

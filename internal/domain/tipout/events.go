package tipout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
)

const (
	// EventTypeTipOutApplied is published when a rule's redistribution is
	// posted to the ledger at shift close
	EventTypeTipOutApplied = "tipout.applied"
)

// TipOutAppliedEvent is published after a rule's debits and credits have been
// committed for a closed shift
type TipOutAppliedEvent struct {
	shared.BaseDomainEvent
	ShiftReference string          `json:"shift_reference"`
	Amount         decimal.Decimal `json:"amount"`
	WasCapped      bool            `json:"was_capped"`
}

// NewTipOutAppliedEvent creates a new TipOutAppliedEvent
func NewTipOutAppliedEvent(locationID uuid.UUID, result *TipOutResult) *TipOutAppliedEvent {
	return &TipOutAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTipOutApplied, "TipOutRule", result.RuleID, locationID),
		ShiftReference:  result.ShiftReference,
		Amount:          result.Amount,
		WasCapped:       result.WasCapped,
	}
}

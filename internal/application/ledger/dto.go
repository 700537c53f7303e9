package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/ledger"
)

// PostEntryRequest represents a request to post a ledger entry
type PostEntryRequest struct {
	WorkerID        uuid.UUID       `json:"worker_id" binding:"required"`
	Direction       string          `json:"direction" binding:"required,oneof=CREDIT DEBIT"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	SourceType      string          `json:"source_type" binding:"required"`
	SourceReference string          `json:"source_reference" binding:"required,min=1,max=200"`
	OccurredAt      time.Time       `json:"occurred_at" binding:"required"`
	Memo            string          `json:"memo" binding:"max=500"`
}

// TransferRequest represents a worker-to-worker transfer
type TransferRequest struct {
	FromWorkerID uuid.UUID       `json:"from_worker_id" binding:"required"`
	ToWorkerID   uuid.UUID       `json:"to_worker_id" binding:"required"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Reference    string          `json:"reference" binding:"required,min=1,max=180"`
	Memo         string          `json:"memo" binding:"max=500"`
}

// PayoutRequest represents a disbursement to a worker
type PayoutRequest struct {
	WorkerID  uuid.UUID       `json:"worker_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reference string          `json:"reference" binding:"required,min=1,max=200"`
	Memo      string          `json:"memo" binding:"max=500"`
}

// UpdatePolicyRequest represents a change to a location's ledger policy
type UpdatePolicyRequest struct {
	AllowNegativeBalance bool `json:"allow_negative_balance"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID              uuid.UUID       `json:"id"`
	LocationID      uuid.UUID       `json:"location_id"`
	WorkerID        uuid.UUID       `json:"worker_id"`
	Direction       string          `json:"direction"`
	Amount          decimal.Decimal `json:"amount"`
	SourceType      string          `json:"source_type"`
	SourceReference string          `json:"source_reference"`
	GroupID         *uuid.UUID      `json:"group_id,omitempty"`
	SegmentID       *uuid.UUID      `json:"segment_id,omitempty"`
	WasCapped       bool            `json:"was_capped"`
	Settled         bool            `json:"settled"`
	SettledAt       *time.Time      `json:"settled_at,omitempty"`
	Memo            string          `json:"memo,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
	PostedAt        time.Time       `json:"posted_at"`
	// Duplicate is true when the post was an idempotent replay of an entry
	// already on the ledger
	Duplicate bool `json:"duplicate,omitempty"`
}

// ToEntryResponse converts a domain entry to a response DTO
func ToEntryResponse(e *ledger.LedgerEntry) EntryResponse {
	return EntryResponse{
		ID:              e.ID,
		LocationID:      e.LocationID,
		WorkerID:        e.WorkerID,
		Direction:       e.Direction.String(),
		Amount:          e.Amount,
		SourceType:      e.SourceType.String(),
		SourceReference: e.SourceReference,
		GroupID:         e.GroupID,
		SegmentID:       e.SegmentID,
		WasCapped:       e.WasCapped,
		Settled:         e.Settled,
		SettledAt:       e.SettledAt,
		Memo:            e.Memo,
		OccurredAt:      e.OccurredAt,
		PostedAt:        e.PostedAt,
	}
}

// BalanceResponse represents a worker balance in API responses
type BalanceResponse struct {
	LocationID   uuid.UUID       `json:"location_id"`
	WorkerID     uuid.UUID       `json:"worker_id"`
	Balance      decimal.Decimal `json:"balance"`
	WritesHalted bool            `json:"writes_halted"`
	HaltReason   string          `json:"halt_reason,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ToBalanceResponse converts a domain balance to a response DTO
func ToBalanceResponse(b *ledger.WorkerBalance) BalanceResponse {
	return BalanceResponse{
		LocationID:   b.LocationID,
		WorkerID:     b.WorkerID,
		Balance:      b.Balance,
		WritesHalted: b.WritesHalted,
		HaltReason:   b.HaltReason,
		UpdatedAt:    b.UpdatedAt,
	}
}

// TransferResponse carries both sides of a completed transfer
type TransferResponse struct {
	Debit  EntryResponse `json:"debit"`
	Credit EntryResponse `json:"credit"`
}

// PayoutResponse carries the payout debit and how many credits it settled
type PayoutResponse struct {
	Entry        EntryResponse `json:"entry"`
	SettledCount int64         `json:"settled_count"`
}

// PolicyResponse represents a location ledger policy
type PolicyResponse struct {
	LocationID           uuid.UUID `json:"location_id"`
	AllowNegativeBalance bool      `json:"allow_negative_balance"`
}

package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
)

// Event type constants for the ledger context
const (
	EventTypeEntryPosted  = "ledger.entry_posted"
	EventTypeWritesHalted = "ledger.writes_halted"
	EventTypePayoutIssued = "ledger.payout_issued"
)

// EntryPostedEvent is published after a ledger entry is committed
type EntryPostedEvent struct {
	shared.BaseDomainEvent
	WorkerID   uuid.UUID       `json:"worker_id"`
	Direction  EntryDirection  `json:"direction"`
	Amount     decimal.Decimal `json:"amount"`
	SourceType EntrySourceType `json:"source_type"`
}

// NewEntryPostedEvent creates an entry posted event
func NewEntryPostedEvent(entry *LedgerEntry) *EntryPostedEvent {
	return &EntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeEntryPosted, "LedgerEntry", entry.ID, entry.LocationID),
		WorkerID:        entry.WorkerID,
		Direction:       entry.Direction,
		Amount:          entry.Amount,
		SourceType:      entry.SourceType,
	}
}

// WritesHaltedEvent is published when reconciliation finds a cache mismatch
// and blocks further writes for a worker
type WritesHaltedEvent struct {
	shared.BaseDomainEvent
	WorkerID       uuid.UUID       `json:"worker_id"`
	CachedBalance  decimal.Decimal `json:"cached_balance"`
	DerivedBalance decimal.Decimal `json:"derived_balance"`
}

// NewWritesHaltedEvent creates a writes halted event
func NewWritesHaltedEvent(report *ReconcileReport) *WritesHaltedEvent {
	return &WritesHaltedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWritesHalted, "WorkerBalance", report.WorkerID, report.LocationID),
		WorkerID:        report.WorkerID,
		CachedBalance:   report.CachedBalance,
		DerivedBalance:  report.DerivedBalance,
	}
}

// PayoutIssuedEvent is published after a payout debit settles earlier credits
type PayoutIssuedEvent struct {
	shared.BaseDomainEvent
	WorkerID     uuid.UUID       `json:"worker_id"`
	Amount       decimal.Decimal `json:"amount"`
	SettledCount int64           `json:"settled_count"`
}

// NewPayoutIssuedEvent creates a payout issued event
func NewPayoutIssuedEvent(entry *LedgerEntry, settledCount int64) *PayoutIssuedEvent {
	return &PayoutIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutIssued, "LedgerEntry", entry.ID, entry.LocationID),
		WorkerID:        entry.WorkerID,
		Amount:          entry.Amount,
		SettledCount:    settledCount,
	}
}

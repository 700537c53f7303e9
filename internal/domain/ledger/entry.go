package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
)

// EntryDirection represents the sign of a ledger entry
type EntryDirection string

const (
	// DirectionCredit increases a worker's balance
	DirectionCredit EntryDirection = "CREDIT"
	// DirectionDebit decreases a worker's balance
	DirectionDebit EntryDirection = "DEBIT"
)

// String returns the string representation of EntryDirection
func (d EntryDirection) String() string {
	return string(d)
}

// IsValid returns true if the direction is valid
func (d EntryDirection) IsValid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// EntrySourceType represents the kind of event that produced a ledger entry
type EntrySourceType string

const (
	// SourceTypePaymentAllocation represents a captured payment credited to workers
	SourceTypePaymentAllocation EntrySourceType = "PAYMENT_ALLOCATION"
	// SourceTypeManualTransfer represents a worker-to-worker transfer
	SourceTypeManualTransfer EntrySourceType = "MANUAL_TRANSFER"
	// SourceTypePayout represents a cash/payroll disbursement debit
	SourceTypePayout EntrySourceType = "PAYOUT"
	// SourceTypeAdjustment represents a manual correction entry
	SourceTypeAdjustment EntrySourceType = "ADJUSTMENT"
	// SourceTypeFeeDeduction represents an upstream-computed card fee debit
	SourceTypeFeeDeduction EntrySourceType = "FEE_DEDUCTION"
	// SourceTypeTipOut represents a rule-driven redistribution at shift close
	SourceTypeTipOut EntrySourceType = "TIP_OUT"
)

// String returns the string representation of EntrySourceType
func (s EntrySourceType) String() string {
	return string(s)
}

// IsValid returns true if the source type is valid
func (s EntrySourceType) IsValid() bool {
	switch s {
	case SourceTypePaymentAllocation,
		SourceTypeManualTransfer,
		SourceTypePayout,
		SourceTypeAdjustment,
		SourceTypeFeeDeduction,
		SourceTypeTipOut:
		return true
	}
	return false
}

// LedgerEntry represents an immutable signed currency fact attributed to one
// worker. Entries are never mutated or deleted; corrections are posted as new
// offsetting entries. The combination (location, source type, source
// reference, worker) is unique and carries the idempotency guarantee.
type LedgerEntry struct {
	shared.BaseEntity
	LocationID      uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_entry_source,priority:1"`
	WorkerID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Direction       EntryDirection  `gorm:"type:varchar(10);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SourceType      EntrySourceType `gorm:"type:varchar(30);not null;uniqueIndex:idx_entry_source,priority:2"`
	SourceReference string          `gorm:"type:varchar(200);not null;uniqueIndex:idx_entry_source,priority:3"`
	GroupID         *uuid.UUID      `gorm:"type:uuid;index"`
	SegmentID       *uuid.UUID      `gorm:"type:uuid;index"`
	WasCapped       bool            `gorm:"not null;default:false"`
	Settled         bool            `gorm:"not null;default:false;index"`
	SettledAt       *time.Time
	Memo            string    `gorm:"type:varchar(500)"`
	OccurredAt      time.Time `gorm:"not null;index"`
	PostedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// NewLedgerEntry creates a new ledger entry candidate
func NewLedgerEntry(
	locationID uuid.UUID,
	workerID uuid.UUID,
	direction EntryDirection,
	amount decimal.Decimal,
	sourceType EntrySourceType,
	sourceReference string,
	occurredAt time.Time,
) (*LedgerEntry, error) {
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if workerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WORKER", "Worker ID cannot be empty")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Entry direction must be CREDIT or DEBIT")
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive")
	}
	if !sourceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SOURCE_TYPE", "Invalid entry source type")
	}
	if sourceReference == "" {
		return nil, shared.NewDomainError("INVALID_SOURCE_REFERENCE", "Source reference cannot be empty")
	}
	if occurredAt.IsZero() {
		return nil, shared.NewDomainError("INVALID_OCCURRED_AT", "Occurred-at timestamp is required")
	}

	return &LedgerEntry{
		BaseEntity:      shared.NewBaseEntity(),
		LocationID:      locationID,
		WorkerID:        workerID,
		Direction:       direction,
		Amount:          amount,
		SourceType:      sourceType,
		SourceReference: sourceReference,
		OccurredAt:      occurredAt,
		PostedAt:        time.Now(),
	}, nil
}

// WithGroup tags the entry with the group and segment it was allocated under
func (e *LedgerEntry) WithGroup(groupID, segmentID uuid.UUID) *LedgerEntry {
	e.GroupID = &groupID
	e.SegmentID = &segmentID
	return e
}

// WithMemo sets the free-form memo
func (e *LedgerEntry) WithMemo(memo string) *LedgerEntry {
	e.Memo = memo
	return e
}

// WithCapped flags the entry as produced by a clamped tip-out rule
func (e *LedgerEntry) WithCapped() *LedgerEntry {
	e.WasCapped = true
	return e
}

// SignedAmount returns the amount with sign applied: positive for credits,
// negative for debits.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Direction == DirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// IsCredit returns true if the entry increases the worker balance
func (e *LedgerEntry) IsCredit() bool {
	return e.Direction == DirectionCredit
}

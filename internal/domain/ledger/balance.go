package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
)

// WorkerBalance is the materialized running balance for one worker at one
// location. It is a cache over the entry log: every entry write updates it in
// the same transaction, and Reconcile can rebuild it from scratch.
type WorkerBalance struct {
	shared.BaseEntity
	LocationID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_worker_balance,priority:1"`
	WorkerID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_worker_balance,priority:2"`
	Balance      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	WritesHalted bool            `gorm:"not null;default:false"`
	HaltReason   string          `gorm:"type:varchar(500)"`
	HaltedAt     *time.Time
}

// TableName returns the table name for GORM
func (WorkerBalance) TableName() string {
	return "worker_balances"
}

// NewWorkerBalance creates a zero balance record for a worker
func NewWorkerBalance(locationID, workerID uuid.UUID) *WorkerBalance {
	return &WorkerBalance{
		BaseEntity: shared.NewBaseEntity(),
		LocationID: locationID,
		WorkerID:   workerID,
		Balance:    decimal.Zero,
	}
}

// Halt blocks further ledger writes for this worker until an operator repairs
// the discrepancy and resumes.
func (b *WorkerBalance) Halt(reason string) {
	now := time.Now()
	b.WritesHalted = true
	b.HaltReason = reason
	b.HaltedAt = &now
	b.UpdateTimestamp()
}

// Resume clears the halt flag after a repair
func (b *WorkerBalance) Resume() {
	b.WritesHalted = false
	b.HaltReason = ""
	b.HaltedAt = nil
	b.UpdateTimestamp()
}

// ReconcileReport is the outcome of recomputing one worker's balance from the
// full entry log and comparing it with the cached value.
type ReconcileReport struct {
	LocationID     uuid.UUID       `json:"location_id"`
	WorkerID       uuid.UUID       `json:"worker_id"`
	CachedBalance  decimal.Decimal `json:"cached_balance"`
	DerivedBalance decimal.Decimal `json:"derived_balance"`
	EntryCount     int64           `json:"entry_count"`
	Matches        bool            `json:"matches"`
	Repaired       bool            `json:"repaired"`
	WritesHalted   bool            `json:"writes_halted"`
}

// Discrepancy returns the signed difference between cache and derivation
func (r *ReconcileReport) Discrepancy() decimal.Decimal {
	return r.CachedBalance.Sub(r.DerivedBalance)
}

package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
)

// EntryQuery narrows a worker history listing
type EntryQuery struct {
	SourceType *EntrySourceType
	Direction  *EntryDirection
	From       *time.Time
	To         *time.Time
	Unsettled  bool
	Filter     shared.Filter
}

// SegmentEarning is an aggregated credit total for one worker within one
// timeline segment
type SegmentEarning struct {
	SegmentID uuid.UUID
	WorkerID  uuid.UUID
	Total     decimal.Decimal
	Entries   int64
}

// LedgerEntryRepository persists immutable ledger entries
type LedgerEntryRepository interface {
	Create(ctx context.Context, entry *LedgerEntry) error
	CreateBatch(ctx context.Context, entries []*LedgerEntry) error
	FindByID(ctx context.Context, locationID, id uuid.UUID) (*LedgerEntry, error)
	// FindBySource looks up an entry by its idempotency identity
	FindBySource(ctx context.Context, locationID uuid.UUID, sourceType EntrySourceType, sourceReference string) (*LedgerEntry, error)
	FindByWorker(ctx context.Context, locationID, workerID uuid.UUID, query EntryQuery) ([]LedgerEntry, int64, error)
	// SumByWorker derives the balance from the full entry log
	SumByWorker(ctx context.Context, locationID, workerID uuid.UUID) (decimal.Decimal, int64, error)
	// FindByAllocation returns the entries a payment allocation produced. Each
	// entry carries the payment reference plus a worker suffix, so this is the
	// replay check for AllocateForPayment whether the payment fanned out to a
	// group or credited a lone worker.
	FindByAllocation(ctx context.Context, locationID uuid.UUID, paymentRef string) ([]LedgerEntry, error)
	// SumByGroupSegments aggregates allocation credits per segment and worker
	SumByGroupSegments(ctx context.Context, locationID, groupID uuid.UUID) ([]SegmentEarning, error)
	// MarkSettled flags a worker's unsettled credits up to a cutoff as paid out.
	// Returns the number of entries settled.
	MarkSettled(ctx context.Context, locationID, workerID uuid.UUID, upTo time.Time) (int64, error)
}

// WorkerBalanceRepository maintains the materialized balance cache
type WorkerBalanceRepository interface {
	Get(ctx context.Context, locationID, workerID uuid.UUID) (*WorkerBalance, error)
	// GetOrCreate returns the balance row, inserting a zero row if absent
	GetOrCreate(ctx context.Context, locationID, workerID uuid.UUID) (*WorkerBalance, error)
	ListForLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]WorkerBalance, int64, error)
	// ApplyDelta atomically increments the cached balance. When allowNegative
	// is false the update is guarded so the resulting balance stays
	// non-negative; a guarded update that matches no row returns
	// shared.ErrInsufficientBalance.
	ApplyDelta(ctx context.Context, locationID, workerID uuid.UUID, delta decimal.Decimal, allowNegative bool) error
	// SetBalance overwrites the cached value during reconciliation repair
	SetBalance(ctx context.Context, locationID, workerID uuid.UUID, balance decimal.Decimal) error
	Save(ctx context.Context, balance *WorkerBalance) error
}

// LedgerPolicyRepository stores per-location ledger overrides
type LedgerPolicyRepository interface {
	// FindByLocation returns nil, nil when no policy row exists
	FindByLocation(ctx context.Context, locationID uuid.UUID) (*LedgerPolicy, error)
	Save(ctx context.Context, policy *LedgerPolicy) error
}

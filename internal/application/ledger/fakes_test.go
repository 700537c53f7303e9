package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/ledger"
	"github.com/tippool/backend/internal/domain/shared"
)

// In-memory repository fakes backing the NoOp transaction scope. They apply
// the same uniqueness and guard semantics the SQL repositories enforce.

type fakeEntryRepo struct {
	mu      sync.Mutex
	entries []*ledger.LedgerEntry
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{}
}

func (r *fakeEntryRepo) Create(_ context.Context, entry *ledger.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.LocationID == entry.LocationID && e.SourceType == entry.SourceType && e.SourceReference == entry.SourceReference {
			return shared.ErrDuplicateSource
		}
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeEntryRepo) CreateBatch(ctx context.Context, entries []*ledger.LedgerEntry) error {
	for _, e := range entries {
		if err := r.Create(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeEntryRepo) FindByID(_ context.Context, locationID, id uuid.UUID) (*ledger.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.LocationID == locationID && e.ID == id {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeEntryRepo) FindBySource(_ context.Context, locationID uuid.UUID, sourceType ledger.EntrySourceType, sourceReference string) (*ledger.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.LocationID == locationID && e.SourceType == sourceType && e.SourceReference == sourceReference {
			return e, nil
		}
	}
	return nil, nil
}

func (r *fakeEntryRepo) FindByWorker(_ context.Context, locationID, workerID uuid.UUID, _ ledger.EntryQuery) ([]ledger.LedgerEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.LedgerEntry
	for _, e := range r.entries {
		if e.LocationID == locationID && e.WorkerID == workerID {
			out = append(out, *e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeEntryRepo) SumByWorker(_ context.Context, locationID, workerID uuid.UUID) (decimal.Decimal, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	var count int64
	for _, e := range r.entries {
		if e.LocationID == locationID && e.WorkerID == workerID {
			sum = sum.Add(e.SignedAmount())
			count++
		}
	}
	return sum, count, nil
}

func (r *fakeEntryRepo) FindByAllocation(_ context.Context, locationID uuid.UUID, paymentRef string) ([]ledger.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.LedgerEntry
	prefix := paymentRef + ":"
	for _, e := range r.entries {
		if e.LocationID == locationID &&
			e.SourceType == ledger.SourceTypePaymentAllocation && strings.HasPrefix(e.SourceReference, prefix) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *fakeEntryRepo) SumByGroupSegments(_ context.Context, locationID, groupID uuid.UUID) ([]ledger.SegmentEarning, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type key struct{ segment, worker uuid.UUID }
	totals := make(map[key]*ledger.SegmentEarning)
	var order []key
	for _, e := range r.entries {
		if e.LocationID != locationID || e.GroupID == nil || *e.GroupID != groupID || e.SegmentID == nil {
			continue
		}
		k := key{segment: *e.SegmentID, worker: e.WorkerID}
		earning, ok := totals[k]
		if !ok {
			earning = &ledger.SegmentEarning{SegmentID: k.segment, WorkerID: k.worker, Total: decimal.Zero}
			totals[k] = earning
			order = append(order, k)
		}
		earning.Total = earning.Total.Add(e.SignedAmount())
		earning.Entries++
	}
	out := make([]ledger.SegmentEarning, 0, len(order))
	for _, k := range order {
		out = append(out, *totals[k])
	}
	return out, nil
}

func (r *fakeEntryRepo) MarkSettled(_ context.Context, locationID, workerID uuid.UUID, upTo time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var count int64
	for _, e := range r.entries {
		if e.LocationID == locationID && e.WorkerID == workerID && e.IsCredit() && !e.Settled && !e.OccurredAt.After(upTo) {
			e.Settled = true
			e.SettledAt = &now
			count++
		}
	}
	return count, nil
}

type fakeBalanceRepo struct {
	mu       sync.Mutex
	balances map[string]*ledger.WorkerBalance
}

func newFakeBalanceRepo() *fakeBalanceRepo {
	return &fakeBalanceRepo{balances: make(map[string]*ledger.WorkerBalance)}
}

func balanceKey(locationID, workerID uuid.UUID) string {
	return locationID.String() + "/" + workerID.String()
}

func (r *fakeBalanceRepo) Get(_ context.Context, locationID, workerID uuid.UUID) (*ledger.WorkerBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[balanceKey(locationID, workerID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return b, nil
}

func (r *fakeBalanceRepo) GetOrCreate(_ context.Context, locationID, workerID uuid.UUID) (*ledger.WorkerBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := balanceKey(locationID, workerID)
	if b, ok := r.balances[key]; ok {
		return b, nil
	}
	b := ledger.NewWorkerBalance(locationID, workerID)
	r.balances[key] = b
	return b, nil
}

func (r *fakeBalanceRepo) ListForLocation(_ context.Context, locationID uuid.UUID, _ shared.Filter) ([]ledger.WorkerBalance, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.WorkerBalance
	for _, b := range r.balances {
		if b.LocationID == locationID {
			out = append(out, *b)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeBalanceRepo) ApplyDelta(_ context.Context, locationID, workerID uuid.UUID, delta decimal.Decimal, allowNegative bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := balanceKey(locationID, workerID)
	b, ok := r.balances[key]
	if !ok {
		b = ledger.NewWorkerBalance(locationID, workerID)
		r.balances[key] = b
	}
	next := b.Balance.Add(delta)
	if !allowNegative && next.IsNegative() {
		return shared.ErrInsufficientBalance
	}
	b.Balance = next
	return nil
}

func (r *fakeBalanceRepo) SetBalance(_ context.Context, locationID, workerID uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := balanceKey(locationID, workerID)
	b, ok := r.balances[key]
	if !ok {
		b = ledger.NewWorkerBalance(locationID, workerID)
		r.balances[key] = b
	}
	b.Balance = balance
	return nil
}

func (r *fakeBalanceRepo) Save(_ context.Context, balance *ledger.WorkerBalance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[balanceKey(balance.LocationID, balance.WorkerID)] = balance
	return nil
}

type fakePolicyRepo struct {
	mu       sync.Mutex
	policies map[uuid.UUID]*ledger.LedgerPolicy
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{policies: make(map[uuid.UUID]*ledger.LedgerPolicy)}
}

func (r *fakePolicyRepo) FindByLocation(_ context.Context, locationID uuid.UUID) (*ledger.LedgerPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.policies[locationID], nil
}

func (r *fakePolicyRepo) Save(_ context.Context, policy *ledger.LedgerPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[policy.LocationID] = policy
	return nil
}

type ledgerFixture struct {
	entryRepo   *fakeEntryRepo
	balanceRepo *fakeBalanceRepo
	policyRepo  *fakePolicyRepo
	scope       *NoOpTransactionScope
}

func newLedgerFixture() *ledgerFixture {
	entryRepo := newFakeEntryRepo()
	balanceRepo := newFakeBalanceRepo()
	policyRepo := newFakePolicyRepo()
	return &ledgerFixture{
		entryRepo:   entryRepo,
		balanceRepo: balanceRepo,
		policyRepo:  policyRepo,
		scope:       NewNoOpTransactionScope(entryRepo, balanceRepo, policyRepo),
	}
}

package tipout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/ledger"
	"github.com/tippool/backend/internal/domain/shared"
	"github.com/tippool/backend/internal/domain/tipout"
)

// In-memory fakes backing the NoOp transaction scope, mirroring the
// uniqueness and guard semantics of the SQL repositories.

type fakeRuleRepo struct {
	mu    sync.Mutex
	rules map[uuid.UUID]*tipout.TipOutRule
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[uuid.UUID]*tipout.TipOutRule)}
}

func (r *fakeRuleRepo) FindByID(_ context.Context, id uuid.UUID) (*tipout.TipOutRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rule, nil
}

func (r *fakeRuleRepo) FindAll(_ context.Context, _ shared.Filter) ([]tipout.TipOutRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]tipout.TipOutRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, *rule)
	}
	return out, nil
}

func (r *fakeRuleRepo) Save(_ context.Context, rule *tipout.TipOutRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ID] = rule
	return nil
}

func (r *fakeRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rules, id)
	return nil
}

func (r *fakeRuleRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rules)), nil
}

func (r *fakeRuleRepo) FindByIDForLocation(_ context.Context, locationID, id uuid.UUID) (*tipout.TipOutRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok || rule.LocationID != locationID {
		return nil, shared.ErrNotFound
	}
	return rule, nil
}

func (r *fakeRuleRepo) FindAllForLocation(_ context.Context, locationID uuid.UUID, _ shared.Filter) ([]tipout.TipOutRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tipout.TipOutRule
	for _, rule := range r.rules {
		if rule.LocationID == locationID {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) FindApplicable(_ context.Context, locationID uuid.UUID, at time.Time) ([]tipout.TipOutRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tipout.TipOutRule
	for _, rule := range r.rules {
		if rule.LocationID == locationID && rule.AppliesAt(at) {
			out = append(out, *rule)
		}
	}
	return out, nil
}

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

func (r *fakeEntryRepo) SumByGroupSegments(_ context.Context, _, _ uuid.UUID) ([]ledger.SegmentEarning, error) {
	return nil, nil
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

type fakeIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *fakeIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

type tipoutFixture struct {
	ruleRepo    *fakeRuleRepo
	entryRepo   *fakeEntryRepo
	balanceRepo *fakeBalanceRepo
	idempotency *fakeIdempotencyStore
	scope       *NoOpTransactionScope
}

func newTipoutFixture() *tipoutFixture {
	ruleRepo := newFakeRuleRepo()
	entryRepo := newFakeEntryRepo()
	balanceRepo := newFakeBalanceRepo()
	return &tipoutFixture{
		ruleRepo:    ruleRepo,
		entryRepo:   entryRepo,
		balanceRepo: balanceRepo,
		idempotency: newFakeIdempotencyStore(),
		scope:       NewNoOpTransactionScope(ruleRepo, entryRepo, balanceRepo),
	}
}

func (f *tipoutFixture) ruleService() *RuleService {
	return NewRuleService(f.ruleRepo)
}

func (f *tipoutFixture) evaluationService() *EvaluationService {
	return NewEvaluationService(f.scope, f.idempotency, nil, time.Hour)
}

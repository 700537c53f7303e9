package grouping

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/grouping"
	"github.com/tippool/backend/internal/domain/ledger"
	"github.com/tippool/backend/internal/domain/shared"
)

// In-memory repository fakes mirroring the SQL repositories' semantics,
// including the unique active-membership index and the balance guard.

type fakeGroupRepo struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*grouping.TipGroup
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[uuid.UUID]*grouping.TipGroup)}
}

func (r *fakeGroupRepo) FindByID(_ context.Context, id uuid.UUID) (*grouping.TipGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return g, nil
}

func (r *fakeGroupRepo) FindByIDForLocation(ctx context.Context, locationID, id uuid.UUID) (*grouping.TipGroup, error) {
	g, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.LocationID != locationID {
		return nil, shared.ErrNotFound
	}
	return g, nil
}

func (r *fakeGroupRepo) FindByIDForUpdate(ctx context.Context, locationID, id uuid.UUID) (*grouping.TipGroup, error) {
	return r.FindByIDForLocation(ctx, locationID, id)
}

func (r *fakeGroupRepo) FindAll(_ context.Context, _ shared.Filter) ([]grouping.TipGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []grouping.TipGroup
	for _, g := range r.groups {
		out = append(out, *g)
	}
	return out, nil
}

func (r *fakeGroupRepo) FindAllForLocation(_ context.Context, locationID uuid.UUID, _ shared.Filter) ([]grouping.TipGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []grouping.TipGroup
	for _, g := range r.groups {
		if g.LocationID == locationID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) FindOpenForLocation(_ context.Context, locationID uuid.UUID) ([]grouping.TipGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []grouping.TipGroup
	for _, g := range r.groups {
		if g.LocationID == locationID && g.IsOpen() {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r *fakeGroupRepo) Save(_ context.Context, g *grouping.TipGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[g.ID] = g
	return nil
}

func (r *fakeGroupRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, id)
	return nil
}

func (r *fakeGroupRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.groups)), nil
}

type fakeMembershipRepo struct {
	mu          sync.Mutex
	memberships map[uuid.UUID]*grouping.Membership
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{memberships: make(map[uuid.UUID]*grouping.Membership)}
}

func (r *fakeMembershipRepo) Save(_ context.Context, m *grouping.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memberships[m.ID] = m
	return nil
}

func (r *fakeMembershipRepo) FindByID(_ context.Context, locationID, id uuid.UUID) (*grouping.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[id]
	if !ok || m.LocationID != locationID {
		return nil, shared.ErrNotFound
	}
	return m, nil
}

func (r *fakeMembershipRepo) FindByGroup(_ context.Context, locationID, groupID uuid.UUID) ([]grouping.Membership, error) {
	return r.filter(func(m *grouping.Membership) bool {
		return m.LocationID == locationID && m.GroupID == groupID
	}), nil
}

func (r *fakeMembershipRepo) FindActiveByGroup(_ context.Context, locationID, groupID uuid.UUID) ([]grouping.Membership, error) {
	return r.filter(func(m *grouping.Membership) bool {
		return m.LocationID == locationID && m.GroupID == groupID && m.IsActive()
	}), nil
}

func (r *fakeMembershipRepo) FindActiveByWorker(_ context.Context, locationID, workerID uuid.UUID) (*grouping.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.LocationID == locationID && m.WorkerID == workerID && m.IsActive() {
			return m, nil
		}
	}
	return nil, nil
}

func (r *fakeMembershipRepo) FindPending(_ context.Context, locationID, groupID uuid.UUID) ([]grouping.Membership, error) {
	return r.filter(func(m *grouping.Membership) bool {
		return m.LocationID == locationID && m.GroupID == groupID && m.Status == grouping.MembershipStatusPending
	}), nil
}

func (r *fakeMembershipRepo) filter(keep func(*grouping.Membership) bool) []grouping.Membership {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []grouping.Membership
	for _, m := range r.memberships {
		if keep(m) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out
}

type fakeActiveMembershipRepo struct {
	mu   sync.Mutex
	rows map[string]*grouping.ActiveMembership
}

func newFakeActiveMembershipRepo() *fakeActiveMembershipRepo {
	return &fakeActiveMembershipRepo{rows: make(map[string]*grouping.ActiveMembership)}
}

func activeKey(locationID, workerID uuid.UUID) string {
	return locationID.String() + "/" + workerID.String()
}

func (r *fakeActiveMembershipRepo) Insert(_ context.Context, am *grouping.ActiveMembership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := activeKey(am.LocationID, am.WorkerID)
	if _, exists := r.rows[key]; exists {
		return shared.ErrAlreadyInGroup
	}
	r.rows[key] = am
	return nil
}

func (r *fakeActiveMembershipRepo) Remove(_ context.Context, locationID, workerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, activeKey(locationID, workerID))
	return nil
}

func (r *fakeActiveMembershipRepo) RemoveByGroup(_ context.Context, locationID, groupID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, am := range r.rows {
		if am.LocationID == locationID && am.GroupID == groupID {
			delete(r.rows, key)
		}
	}
	return nil
}

func (r *fakeActiveMembershipRepo) FindByWorker(_ context.Context, locationID, workerID uuid.UUID) (*grouping.ActiveMembership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[activeKey(locationID, workerID)], nil
}

type fakeSegmentRepo struct {
	mu       sync.Mutex
	segments map[uuid.UUID]*grouping.Segment
}

func newFakeSegmentRepo() *fakeSegmentRepo {
	return &fakeSegmentRepo{segments: make(map[uuid.UUID]*grouping.Segment)}
}

func (r *fakeSegmentRepo) Create(_ context.Context, s *grouping.Segment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments[s.ID] = s
	return nil
}

func (r *fakeSegmentRepo) Save(_ context.Context, s *grouping.Segment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments[s.ID] = s
	return nil
}

func (r *fakeSegmentRepo) FindByID(_ context.Context, locationID, id uuid.UUID) (*grouping.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.segments[id]
	if !ok || s.LocationID != locationID {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (r *fakeSegmentRepo) FindByGroup(_ context.Context, locationID, groupID uuid.UUID) ([]grouping.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []grouping.Segment
	for _, s := range r.segments {
		if s.LocationID == locationID && s.GroupID == groupID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r *fakeSegmentRepo) FindOpen(_ context.Context, locationID, groupID uuid.UUID) (*grouping.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.segments {
		if s.LocationID == locationID && s.GroupID == groupID && s.IsOpen() {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeSegmentRepo) FindAt(_ context.Context, locationID, groupID uuid.UUID, at time.Time) (*grouping.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// prefer the latest-starting covering segment so zero-length predecessors
	// at the same instant lose to their replacement
	var found *grouping.Segment
	for _, s := range r.segments {
		if s.LocationID == locationID && s.GroupID == groupID && s.Covers(at) {
			if found == nil || s.StartsAt.After(found.StartsAt) {
				found = s
			}
		}
	}
	return found, nil
}

type fakeAnomalyRepo struct {
	mu        sync.Mutex
	anomalies map[uuid.UUID]*grouping.AllocationAnomaly
}

func newFakeAnomalyRepo() *fakeAnomalyRepo {
	return &fakeAnomalyRepo{anomalies: make(map[uuid.UUID]*grouping.AllocationAnomaly)}
}

func (r *fakeAnomalyRepo) Create(_ context.Context, a *grouping.AllocationAnomaly) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies[a.ID] = a
	return nil
}

func (r *fakeAnomalyRepo) Save(_ context.Context, a *grouping.AllocationAnomaly) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies[a.ID] = a
	return nil
}

func (r *fakeAnomalyRepo) FindByID(_ context.Context, locationID, id uuid.UUID) (*grouping.AllocationAnomaly, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.anomalies[id]
	if !ok || a.LocationID != locationID {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

func (r *fakeAnomalyRepo) FindForLocation(_ context.Context, locationID uuid.UUID, unresolvedOnly bool, _ shared.Filter) ([]grouping.AllocationAnomaly, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []grouping.AllocationAnomaly
	for _, a := range r.anomalies {
		if a.LocationID != locationID {
			continue
		}
		if unresolvedOnly && a.Resolved {
			continue
		}
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

type fakeLedgerEntryRepo struct {
	mu      sync.Mutex
	entries []*ledger.LedgerEntry
}

func newFakeLedgerEntryRepo() *fakeLedgerEntryRepo {
	return &fakeLedgerEntryRepo{}
}

func (r *fakeLedgerEntryRepo) Create(_ context.Context, entry *ledger.LedgerEntry) error {
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

func (r *fakeLedgerEntryRepo) CreateBatch(ctx context.Context, entries []*ledger.LedgerEntry) error {
	for _, e := range entries {
		if err := r.Create(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeLedgerEntryRepo) FindByID(_ context.Context, locationID, id uuid.UUID) (*ledger.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.LocationID == locationID && e.ID == id {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeLedgerEntryRepo) FindBySource(_ context.Context, locationID uuid.UUID, sourceType ledger.EntrySourceType, sourceReference string) (*ledger.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.LocationID == locationID && e.SourceType == sourceType && e.SourceReference == sourceReference {
			return e, nil
		}
	}
	return nil, nil
}

func (r *fakeLedgerEntryRepo) FindByWorker(_ context.Context, locationID, workerID uuid.UUID, _ ledger.EntryQuery) ([]ledger.LedgerEntry, int64, error) {
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

func (r *fakeLedgerEntryRepo) SumByWorker(_ context.Context, locationID, workerID uuid.UUID) (decimal.Decimal, int64, error) {
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

func (r *fakeLedgerEntryRepo) FindByAllocation(_ context.Context, locationID uuid.UUID, paymentRef string) ([]ledger.LedgerEntry, error) {
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

func (r *fakeLedgerEntryRepo) SumByGroupSegments(_ context.Context, locationID, groupID uuid.UUID) ([]ledger.SegmentEarning, error) {
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

func (r *fakeLedgerEntryRepo) MarkSettled(_ context.Context, locationID, workerID uuid.UUID, upTo time.Time) (int64, error) {
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

type fakeWorkerBalanceRepo struct {
	mu       sync.Mutex
	balances map[string]*ledger.WorkerBalance
}

func newFakeWorkerBalanceRepo() *fakeWorkerBalanceRepo {
	return &fakeWorkerBalanceRepo{balances: make(map[string]*ledger.WorkerBalance)}
}

func (r *fakeWorkerBalanceRepo) Get(_ context.Context, locationID, workerID uuid.UUID) (*ledger.WorkerBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.balances[activeKey(locationID, workerID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return b, nil
}

func (r *fakeWorkerBalanceRepo) GetOrCreate(_ context.Context, locationID, workerID uuid.UUID) (*ledger.WorkerBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := activeKey(locationID, workerID)
	if b, ok := r.balances[key]; ok {
		return b, nil
	}
	b := ledger.NewWorkerBalance(locationID, workerID)
	r.balances[key] = b
	return b, nil
}

func (r *fakeWorkerBalanceRepo) ListForLocation(_ context.Context, locationID uuid.UUID, _ shared.Filter) ([]ledger.WorkerBalance, int64, error) {
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

func (r *fakeWorkerBalanceRepo) ApplyDelta(_ context.Context, locationID, workerID uuid.UUID, delta decimal.Decimal, allowNegative bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := activeKey(locationID, workerID)
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

func (r *fakeWorkerBalanceRepo) SetBalance(_ context.Context, locationID, workerID uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := activeKey(locationID, workerID)
	b, ok := r.balances[key]
	if !ok {
		b = ledger.NewWorkerBalance(locationID, workerID)
		r.balances[key] = b
	}
	b.Balance = balance
	return nil
}

func (r *fakeWorkerBalanceRepo) Save(_ context.Context, balance *ledger.WorkerBalance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[activeKey(balance.LocationID, balance.WorkerID)] = balance
	return nil
}

type groupingFixture struct {
	groupRepo      *fakeGroupRepo
	membershipRepo *fakeMembershipRepo
	activeRepo     *fakeActiveMembershipRepo
	segmentRepo    *fakeSegmentRepo
	anomalyRepo    *fakeAnomalyRepo
	entryRepo      *fakeLedgerEntryRepo
	balanceRepo    *fakeWorkerBalanceRepo
	scope          *NoOpTransactionScope
}

func newGroupingFixture() *groupingFixture {
	f := &groupingFixture{
		groupRepo:      newFakeGroupRepo(),
		membershipRepo: newFakeMembershipRepo(),
		activeRepo:     newFakeActiveMembershipRepo(),
		segmentRepo:    newFakeSegmentRepo(),
		anomalyRepo:    newFakeAnomalyRepo(),
		entryRepo:      newFakeLedgerEntryRepo(),
		balanceRepo:    newFakeWorkerBalanceRepo(),
	}
	f.scope = NewNoOpTransactionScope(
		f.groupRepo, f.membershipRepo, f.activeRepo, f.segmentRepo, f.anomalyRepo,
		f.entryRepo, f.balanceRepo,
	)
	return f
}

func (f *groupingFixture) groupService() *GroupService {
	return NewGroupService(f.scope, f.groupRepo, f.membershipRepo, f.segmentRepo, nil, decimal.NewFromFloat(0.01))
}

func (f *groupingFixture) allocationService() *AllocationService {
	return NewAllocationService(f.scope, f.anomalyRepo, nil, decimal.NewFromFloat(0.01))
}

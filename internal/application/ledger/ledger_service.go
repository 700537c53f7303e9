package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/ledger"
	"github.com/tippool/backend/internal/domain/shared"
)

// LedgerService handles entry posting, balance reads and reconciliation
type LedgerService struct {
	scope TransactionScope
	// entryRepo and balanceRepo serve read paths outside a transaction
	entryRepo   ledger.LedgerEntryRepository
	balanceRepo ledger.WorkerBalanceRepository
	policyRepo  ledger.LedgerPolicyRepository
	publisher   shared.EventPublisher
	// defaultAllowNegative is the server-wide fallback when a location has no
	// policy row
	defaultAllowNegative bool
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	entryRepo ledger.LedgerEntryRepository,
	balanceRepo ledger.WorkerBalanceRepository,
	policyRepo ledger.LedgerPolicyRepository,
	publisher shared.EventPublisher,
	defaultAllowNegative bool,
) *LedgerService {
	return &LedgerService{
		scope:                scope,
		entryRepo:            entryRepo,
		balanceRepo:          balanceRepo,
		policyRepo:           policyRepo,
		publisher:            publisher,
		defaultAllowNegative: defaultAllowNegative,
	}
}

// allowNegativeFor resolves the negative-balance override for a location
func allowNegativeFor(ctx context.Context, policyRepo ledger.LedgerPolicyRepository, locationID uuid.UUID, fallback bool) (bool, error) {
	policy, err := policyRepo.FindByLocation(ctx, locationID)
	if err != nil {
		return false, err
	}
	if policy == nil {
		return fallback, nil
	}
	return policy.AllowNegativeBalance, nil
}

// postWithinTx posts one entry and its balance-cache update inside an open
// transaction. A duplicate source identity returns the already-posted entry
// with duplicate=true instead of an error: replays are successes.
func postWithinTx(ctx context.Context, repos TransactionalRepositories, entry *ledger.LedgerEntry, allowNegative bool) (*ledger.LedgerEntry, bool, error) {
	balance, err := repos.BalanceRepo().GetOrCreate(ctx, entry.LocationID, entry.WorkerID)
	if err != nil {
		return nil, false, err
	}
	if balance.WritesHalted {
		return nil, false, shared.ErrLedgerCorruption
	}

	existing, err := repos.EntryRepo().FindBySource(ctx, entry.LocationID, entry.SourceType, entry.SourceReference)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	if err := repos.EntryRepo().Create(ctx, entry); err != nil {
		return nil, false, err
	}
	if err := repos.BalanceRepo().ApplyDelta(ctx, entry.LocationID, entry.WorkerID, entry.SignedAmount(), allowNegative); err != nil {
		return nil, false, err
	}
	return entry, false, nil
}

// PostEntry posts a single ledger entry. The entry write and the balance
// cache update commit atomically; posting the same source identity twice
// returns the original entry.
func (s *LedgerService) PostEntry(ctx context.Context, locationID uuid.UUID, req PostEntryRequest) (*EntryResponse, error) {
	entry, err := ledger.NewLedgerEntry(
		locationID,
		req.WorkerID,
		ledger.EntryDirection(req.Direction),
		req.Amount,
		ledger.EntrySourceType(req.SourceType),
		req.SourceReference,
		req.OccurredAt,
	)
	if err != nil {
		return nil, err
	}
	if req.Memo != "" {
		entry.WithMemo(req.Memo)
	}

	var (
		posted    *ledger.LedgerEntry
		duplicate bool
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		allowNegative, err := allowNegativeFor(ctx, repos.PolicyRepo(), locationID, s.defaultAllowNegative)
		if err != nil {
			return err
		}
		posted, duplicate, err = postWithinTx(ctx, repos, entry, allowNegative)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !duplicate && s.publisher != nil {
		_ = s.publisher.Publish(ctx, ledger.NewEntryPostedEvent(posted))
	}

	response := ToEntryResponse(posted)
	response.Duplicate = duplicate
	return &response, nil
}

// GetBalance reads the cached balance for a worker, creating a zero row on
// first touch
func (s *LedgerService) GetBalance(ctx context.Context, locationID, workerID uuid.UUID) (*BalanceResponse, error) {
	balance, err := s.balanceRepo.GetOrCreate(ctx, locationID, workerID)
	if err != nil {
		return nil, err
	}
	response := ToBalanceResponse(balance)
	return &response, nil
}

// ListBalances pages through cached balances at a location
func (s *LedgerService) ListBalances(ctx context.Context, locationID uuid.UUID, filter shared.Filter) (*shared.Paginated[BalanceResponse], error) {
	balances, total, err := s.balanceRepo.ListForLocation(ctx, locationID, filter)
	if err != nil {
		return nil, err
	}
	items := make([]BalanceResponse, len(balances))
	for i := range balances {
		items[i] = ToBalanceResponse(&balances[i])
	}
	result := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &result, nil
}

// ListEntries pages through a worker's entry history
func (s *LedgerService) ListEntries(ctx context.Context, locationID, workerID uuid.UUID, query ledger.EntryQuery) (*shared.Paginated[EntryResponse], error) {
	entries, total, err := s.entryRepo.FindByWorker(ctx, locationID, workerID, query)
	if err != nil {
		return nil, err
	}
	items := make([]EntryResponse, len(entries))
	for i := range entries {
		items[i] = ToEntryResponse(&entries[i])
	}
	result := shared.NewPaginated(items, total, query.Filter.Page, query.Filter.PageSize)
	return &result, nil
}

// Reconcile recomputes a worker's balance from the full entry log and
// compares it with the cache. A mismatch halts further writes for the worker;
// with repair set, the cache is overwritten with the derived value and writes
// resume.
func (s *LedgerService) Reconcile(ctx context.Context, locationID, workerID uuid.UUID, repair bool) (*ledger.ReconcileReport, error) {
	var report *ledger.ReconcileReport

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		balance, err := repos.BalanceRepo().GetOrCreate(ctx, locationID, workerID)
		if err != nil {
			return err
		}
		derived, count, err := repos.EntryRepo().SumByWorker(ctx, locationID, workerID)
		if err != nil {
			return err
		}

		report = &ledger.ReconcileReport{
			LocationID:     locationID,
			WorkerID:       workerID,
			CachedBalance:  balance.Balance,
			DerivedBalance: derived,
			EntryCount:     count,
			Matches:        balance.Balance.Equal(derived),
		}

		switch {
		case report.Matches:
			if balance.WritesHalted {
				balance.Resume()
				return repos.BalanceRepo().Save(ctx, balance)
			}
			return nil
		case repair:
			if err := repos.BalanceRepo().SetBalance(ctx, locationID, workerID, derived); err != nil {
				return err
			}
			balance.Resume()
			report.Repaired = true
			return repos.BalanceRepo().Save(ctx, balance)
		default:
			balance.Halt(fmt.Sprintf("cache %s disagrees with derived %s at %s",
				balance.Balance.String(), derived.String(), time.Now().UTC().Format(time.RFC3339)))
			report.WritesHalted = true
			return repos.BalanceRepo().Save(ctx, balance)
		}
	})
	if err != nil {
		return nil, err
	}

	if report.WritesHalted && s.publisher != nil {
		_ = s.publisher.Publish(ctx, ledger.NewWritesHaltedEvent(report))
	}
	return report, nil
}

// GetPolicy returns the effective ledger policy for a location
func (s *LedgerService) GetPolicy(ctx context.Context, locationID uuid.UUID) (*PolicyResponse, error) {
	policy, err := s.policyRepo.FindByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	response := &PolicyResponse{LocationID: locationID, AllowNegativeBalance: s.defaultAllowNegative}
	if policy != nil {
		response.AllowNegativeBalance = policy.AllowNegativeBalance
	}
	return response, nil
}

// UpdatePolicy sets the per-location negative-balance override
func (s *LedgerService) UpdatePolicy(ctx context.Context, locationID uuid.UUID, req UpdatePolicyRequest) (*PolicyResponse, error) {
	policy, err := s.policyRepo.FindByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		policy, err = ledger.NewLedgerPolicy(locationID, req.AllowNegativeBalance)
		if err != nil {
			return nil, err
		}
	} else {
		policy.SetAllowNegativeBalance(req.AllowNegativeBalance)
	}
	if err := s.policyRepo.Save(ctx, policy); err != nil {
		return nil, err
	}
	return &PolicyResponse{LocationID: locationID, AllowNegativeBalance: policy.AllowNegativeBalance}, nil
}

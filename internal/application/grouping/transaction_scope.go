package grouping

import (
	"context"

	"github.com/tippool/backend/internal/domain/grouping"
	"github.com/tippool/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to grouping repositories.
// Allocation spans two contexts: the split is read from grouping state and
// the resulting entries land on the ledger, all inside one transaction, so
// the scope exposes the ledger repositories as well.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to grouping and ledger
// repositories sharing one database transaction.
type TransactionalRepositories interface {
	// GroupRepo returns the tip group repository scoped to the current transaction
	GroupRepo() grouping.TipGroupRepository
	// MembershipRepo returns the membership repository scoped to the current transaction
	MembershipRepo() grouping.MembershipRepository
	// ActiveMembershipRepo returns the one-group-per-worker index repository
	ActiveMembershipRepo() grouping.ActiveMembershipRepository
	// SegmentRepo returns the segment timeline repository
	SegmentRepo() grouping.SegmentRepository
	// AnomalyRepo returns the allocation anomaly repository
	AnomalyRepo() grouping.AnomalyRepository
	// EntryRepo returns the ledger entry repository
	EntryRepo() ledger.LedgerEntryRepository
	// BalanceRepo returns the worker balance repository
	BalanceRepo() ledger.WorkerBalanceRepository
}

// NoOpTransactionScope runs scope functions without a real transaction
type NoOpTransactionScope struct {
	groupRepo      grouping.TipGroupRepository
	membershipRepo grouping.MembershipRepository
	activeRepo     grouping.ActiveMembershipRepository
	segmentRepo    grouping.SegmentRepository
	anomalyRepo    grouping.AnomalyRepository
	entryRepo      ledger.LedgerEntryRepository
	balanceRepo    ledger.WorkerBalanceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	groupRepo grouping.TipGroupRepository,
	membershipRepo grouping.MembershipRepository,
	activeRepo grouping.ActiveMembershipRepository,
	segmentRepo grouping.SegmentRepository,
	anomalyRepo grouping.AnomalyRepository,
	entryRepo ledger.LedgerEntryRepository,
	balanceRepo ledger.WorkerBalanceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		groupRepo:      groupRepo,
		membershipRepo: membershipRepo,
		activeRepo:     activeRepo,
		segmentRepo:    segmentRepo,
		anomalyRepo:    anomalyRepo,
		entryRepo:      entryRepo,
		balanceRepo:    balanceRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// GroupRepo returns the tip group repository
func (s *NoOpTransactionScope) GroupRepo() grouping.TipGroupRepository { return s.groupRepo }

// MembershipRepo returns the membership repository
func (s *NoOpTransactionScope) MembershipRepo() grouping.MembershipRepository {
	return s.membershipRepo
}

// ActiveMembershipRepo returns the active membership index repository
func (s *NoOpTransactionScope) ActiveMembershipRepo() grouping.ActiveMembershipRepository {
	return s.activeRepo
}

// SegmentRepo returns the segment repository
func (s *NoOpTransactionScope) SegmentRepo() grouping.SegmentRepository { return s.segmentRepo }

// AnomalyRepo returns the anomaly repository
func (s *NoOpTransactionScope) AnomalyRepo() grouping.AnomalyRepository { return s.anomalyRepo }

// EntryRepo returns the ledger entry repository
func (s *NoOpTransactionScope) EntryRepo() ledger.LedgerEntryRepository { return s.entryRepo }

// BalanceRepo returns the worker balance repository
func (s *NoOpTransactionScope) BalanceRepo() ledger.WorkerBalanceRepository { return s.balanceRepo }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)

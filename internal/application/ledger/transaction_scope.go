package ledger

import (
	"context"

	"github.com/tippool/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. Every entry write and its balance-cache update go through
// a scope so the two can never diverge on a crash.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to ledger repositories within a
// transaction. All repositories returned share the same underlying database
// transaction.
type TransactionalRepositories interface {
	// EntryRepo returns the ledger entry repository scoped to the current transaction
	EntryRepo() ledger.LedgerEntryRepository
	// BalanceRepo returns the worker balance repository scoped to the current transaction
	BalanceRepo() ledger.WorkerBalanceRepository
	// PolicyRepo returns the ledger policy repository scoped to the current transaction
	PolicyRepo() ledger.LedgerPolicyRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for tests.
type NoOpTransactionScope struct {
	entryRepo   ledger.LedgerEntryRepository
	balanceRepo ledger.WorkerBalanceRepository
	policyRepo  ledger.LedgerPolicyRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	entryRepo ledger.LedgerEntryRepository,
	balanceRepo ledger.WorkerBalanceRepository,
	policyRepo ledger.LedgerPolicyRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		entryRepo:   entryRepo,
		balanceRepo: balanceRepo,
		policyRepo:  policyRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// EntryRepo returns the ledger entry repository
func (s *NoOpTransactionScope) EntryRepo() ledger.LedgerEntryRepository {
	return s.entryRepo
}

// BalanceRepo returns the worker balance repository
func (s *NoOpTransactionScope) BalanceRepo() ledger.WorkerBalanceRepository {
	return s.balanceRepo
}

// PolicyRepo returns the ledger policy repository
func (s *NoOpTransactionScope) PolicyRepo() ledger.LedgerPolicyRepository {
	return s.policyRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)

package tipout

import (
	"context"

	"github.com/tippool/backend/internal/domain/ledger"
	"github.com/tippool/backend/internal/domain/tipout"
)

// TransactionScope provides transactional access to tip-out repositories.
// Shift-close evaluation reads rules and writes ledger entries, so the scope
// spans both contexts inside one transaction.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to tip-out and ledger
// repositories sharing one database transaction.
type TransactionalRepositories interface {
	// RuleRepo returns the tip-out rule repository scoped to the current transaction
	RuleRepo() tipout.TipOutRuleRepository
	// EntryRepo returns the ledger entry repository
	EntryRepo() ledger.LedgerEntryRepository
	// BalanceRepo returns the worker balance repository
	BalanceRepo() ledger.WorkerBalanceRepository
}

// NoOpTransactionScope runs scope functions without a real transaction
type NoOpTransactionScope struct {
	ruleRepo    tipout.TipOutRuleRepository
	entryRepo   ledger.LedgerEntryRepository
	balanceRepo ledger.WorkerBalanceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	ruleRepo tipout.TipOutRuleRepository,
	entryRepo ledger.LedgerEntryRepository,
	balanceRepo ledger.WorkerBalanceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		ruleRepo:    ruleRepo,
		entryRepo:   entryRepo,
		balanceRepo: balanceRepo,
	}
}

// Execute runs the function directly without transaction wrapping
func (s *NoOpTransactionScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// RuleRepo returns the tip-out rule repository
func (s *NoOpTransactionScope) RuleRepo() tipout.TipOutRuleRepository { return s.ruleRepo }

// EntryRepo returns the ledger entry repository
func (s *NoOpTransactionScope) EntryRepo() ledger.LedgerEntryRepository { return s.entryRepo }

// BalanceRepo returns the worker balance repository
func (s *NoOpTransactionScope) BalanceRepo() ledger.WorkerBalanceRepository { return s.balanceRepo }

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)

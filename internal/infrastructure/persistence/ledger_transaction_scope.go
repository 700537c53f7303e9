package persistence

import (
	"context"

	appledger "github.com/tippool/backend/internal/application/ledger"
	"github.com/tippool/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormLedgerTransactionScope implements the ledger TransactionScope using
// GORM transactions. Entry writes and balance-cache updates run atomically.
type GormLedgerTransactionScope struct {
	db *gorm.DB
}

// NewGormLedgerTransactionScope creates a new GormLedgerTransactionScope
func NewGormLedgerTransactionScope(db *gorm.DB) *GormLedgerTransactionScope {
	return &GormLedgerTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormLedgerTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormLedgerRepositories{tx: tx}
		return fn(repos)
	})
}

// gormLedgerRepositories provides transaction-scoped ledger repositories
type gormLedgerRepositories struct {
	tx *gorm.DB
}

// EntryRepo returns the ledger entry repository scoped to the current transaction
func (r *gormLedgerRepositories) EntryRepo() ledger.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.tx)
}

// BalanceRepo returns the worker balance repository scoped to the current transaction
func (r *gormLedgerRepositories) BalanceRepo() ledger.WorkerBalanceRepository {
	return NewGormWorkerBalanceRepository(r.tx)
}

// PolicyRepo returns the ledger policy repository scoped to the current transaction
func (r *gormLedgerRepositories) PolicyRepo() ledger.LedgerPolicyRepository {
	return NewGormLedgerPolicyRepository(r.tx)
}

// Ensure GormLedgerTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormLedgerTransactionScope)(nil)

// Ensure gormLedgerRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormLedgerRepositories)(nil)

package persistence

import (
	"context"

	apptipout "github.com/tippool/backend/internal/application/tipout"
	"github.com/tippool/backend/internal/domain/ledger"
	"github.com/tippool/backend/internal/domain/tipout"
	"gorm.io/gorm"
)

// GormTipOutTransactionScope implements the tip-out TransactionScope using
// GORM transactions. All postings of a shift close commit atomically.
type GormTipOutTransactionScope struct {
	db *gorm.DB
}

// NewGormTipOutTransactionScope creates a new GormTipOutTransactionScope
func NewGormTipOutTransactionScope(db *gorm.DB) *GormTipOutTransactionScope {
	return &GormTipOutTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTipOutTransactionScope) Execute(ctx context.Context, fn func(repos apptipout.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTipOutRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTipOutRepositories provides transaction-scoped tip-out repositories
type gormTipOutRepositories struct {
	tx *gorm.DB
}

// RuleRepo returns the tip-out rule repository scoped to the current transaction
func (r *gormTipOutRepositories) RuleRepo() tipout.TipOutRuleRepository {
	return NewGormTipOutRuleRepository(r.tx)
}

// EntryRepo returns the ledger entry repository scoped to the current transaction
func (r *gormTipOutRepositories) EntryRepo() ledger.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.tx)
}

// BalanceRepo returns the worker balance repository scoped to the current transaction
func (r *gormTipOutRepositories) BalanceRepo() ledger.WorkerBalanceRepository {
	return NewGormWorkerBalanceRepository(r.tx)
}

// Ensure GormTipOutTransactionScope implements TransactionScope
var _ apptipout.TransactionScope = (*GormTipOutTransactionScope)(nil)

// Ensure gormTipOutRepositories implements TransactionalRepositories
var _ apptipout.TransactionalRepositories = (*gormTipOutRepositories)(nil)

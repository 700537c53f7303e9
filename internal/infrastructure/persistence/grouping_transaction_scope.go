package persistence

import (
	"context"

	appgrouping "github.com/tippool/backend/internal/application/grouping"
	"github.com/tippool/backend/internal/domain/grouping"
	"github.com/tippool/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormGroupingTransactionScope implements the grouping TransactionScope using
// GORM transactions. Group lifecycle changes, timeline segment cuts and the
// ledger writes an allocation produces all commit together.
type GormGroupingTransactionScope struct {
	db *gorm.DB
}

// NewGormGroupingTransactionScope creates a new GormGroupingTransactionScope
func NewGormGroupingTransactionScope(db *gorm.DB) *GormGroupingTransactionScope {
	return &GormGroupingTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormGroupingTransactionScope) Execute(ctx context.Context, fn func(repos appgrouping.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormGroupingRepositories{tx: tx}
		return fn(repos)
	})
}

// gormGroupingRepositories provides transaction-scoped grouping repositories
type gormGroupingRepositories struct {
	tx *gorm.DB
}

// GroupRepo returns the tip group repository scoped to the current transaction
func (r *gormGroupingRepositories) GroupRepo() grouping.TipGroupRepository {
	return NewGormTipGroupRepository(r.tx)
}

// MembershipRepo returns the membership repository scoped to the current transaction
func (r *gormGroupingRepositories) MembershipRepo() grouping.MembershipRepository {
	return NewGormMembershipRepository(r.tx)
}

// ActiveMembershipRepo returns the active-membership index repository scoped to the current transaction
func (r *gormGroupingRepositories) ActiveMembershipRepo() grouping.ActiveMembershipRepository {
	return NewGormActiveMembershipRepository(r.tx)
}

// SegmentRepo returns the segment repository scoped to the current transaction
func (r *gormGroupingRepositories) SegmentRepo() grouping.SegmentRepository {
	return NewGormSegmentRepository(r.tx)
}

// AnomalyRepo returns the anomaly repository scoped to the current transaction
func (r *gormGroupingRepositories) AnomalyRepo() grouping.AnomalyRepository {
	return NewGormAnomalyRepository(r.tx)
}

// EntryRepo returns the ledger entry repository scoped to the current transaction
func (r *gormGroupingRepositories) EntryRepo() ledger.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.tx)
}

// BalanceRepo returns the worker balance repository scoped to the current transaction
func (r *gormGroupingRepositories) BalanceRepo() ledger.WorkerBalanceRepository {
	return NewGormWorkerBalanceRepository(r.tx)
}

// Ensure GormGroupingTransactionScope implements TransactionScope
var _ appgrouping.TransactionScope = (*GormGroupingTransactionScope)(nil)

// Ensure gormGroupingRepositories implements TransactionalRepositories
var _ appgrouping.TransactionalRepositories = (*gormGroupingRepositories)(nil)

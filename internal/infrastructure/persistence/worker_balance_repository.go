package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/ledger"
	"github.com/tippool/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormWorkerBalanceRepository implements WorkerBalanceRepository using GORM
type GormWorkerBalanceRepository struct {
	db *gorm.DB
}

// NewGormWorkerBalanceRepository creates a new GormWorkerBalanceRepository
func NewGormWorkerBalanceRepository(db *gorm.DB) *GormWorkerBalanceRepository {
	return &GormWorkerBalanceRepository{db: db}
}

// Get returns a worker's balance row
func (r *GormWorkerBalanceRepository) Get(ctx context.Context, locationID, workerID uuid.UUID) (*ledger.WorkerBalance, error) {
	var balance ledger.WorkerBalance
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND worker_id = ?", locationID, workerID).
		First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// GetOrCreate returns the balance row, inserting a zero row if absent. A
// concurrent insert losing the race falls back to reading the winner's row.
func (r *GormWorkerBalanceRepository) GetOrCreate(ctx context.Context, locationID, workerID uuid.UUID) (*ledger.WorkerBalance, error) {
	balance, err := r.Get(ctx, locationID, workerID)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	fresh := ledger.NewWorkerBalance(locationID, workerID)
	if err := r.db.WithContext(ctx).Create(fresh).Error; err != nil {
		if isUniqueViolation(err) {
			return r.Get(ctx, locationID, workerID)
		}
		return nil, err
	}
	return fresh, nil
}

// ListForLocation lists all balance rows at a location
func (r *GormWorkerBalanceRepository) ListForLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]ledger.WorkerBalance, int64, error) {
	base := r.db.WithContext(ctx).Model(&ledger.WorkerBalance{}).
		Where("location_id = ?", locationID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var balances []ledger.WorkerBalance
	orderBy := ValidateSortField(filter.OrderBy, WorkerBalanceSortFields, "balance")
	query := base.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if err := query.Find(&balances).Error; err != nil {
		return nil, 0, err
	}
	return balances, total, nil
}

// ApplyDelta atomically increments the cached balance in place, inserting a
// zero row for workers seen for the first time. The guarded form adds a
// predicate so the update only lands when the resulting balance stays
// non-negative; zero rows affected on an existing row then means the guard
// rejected it.
func (r *GormWorkerBalanceRepository) ApplyDelta(ctx context.Context, locationID, workerID uuid.UUID, delta decimal.Decimal, allowNegative bool) error {
	return r.applyDelta(ctx, locationID, workerID, delta, allowNegative, true)
}

func (r *GormWorkerBalanceRepository) applyDelta(ctx context.Context, locationID, workerID uuid.UUID, delta decimal.Decimal, allowNegative, insertMissing bool) error {
	query := r.db.WithContext(ctx).Model(&ledger.WorkerBalance{}).
		Where("location_id = ? AND worker_id = ?", locationID, workerID)
	if !allowNegative && delta.IsNegative() {
		query = query.Where("balance + ? >= 0", delta)
	}
	result := query.Updates(map[string]interface{}{
		"balance":    gorm.Expr("balance + ?", delta),
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&ledger.WorkerBalance{}).
			Where("location_id = ? AND worker_id = ?", locationID, workerID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if !insertMissing {
				return shared.ErrInsufficientBalance
			}
			if _, err := r.GetOrCreate(ctx, locationID, workerID); err != nil {
				return err
			}
			return r.applyDelta(ctx, locationID, workerID, delta, allowNegative, false)
		}
		return shared.ErrInsufficientBalance
	}
	return nil
}

// SetBalance overwrites the cached value during reconciliation repair
func (r *GormWorkerBalanceRepository) SetBalance(ctx context.Context, locationID, workerID uuid.UUID, balance decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&ledger.WorkerBalance{}).
		Where("location_id = ? AND worker_id = ?", locationID, workerID).
		Updates(map[string]interface{}{
			"balance":    balance,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Save persists the full balance row, including the halt flag
func (r *GormWorkerBalanceRepository) Save(ctx context.Context, balance *ledger.WorkerBalance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}

var _ ledger.WorkerBalanceRepository = (*GormWorkerBalanceRepository)(nil)

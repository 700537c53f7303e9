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

// GormLedgerEntryRepository implements LedgerEntryRepository using GORM.
// Entries are append-only: the repository exposes no update or delete path
// besides the settlement flag.
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// Create appends a single ledger entry
func (r *GormLedgerEntryRepository) Create(ctx context.Context, entry *ledger.LedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrDuplicateSource
		}
		return err
	}
	return nil
}

// CreateBatch appends a set of entries in one statement. Any unique-index
// collision fails the whole batch.
func (r *GormLedgerEntryRepository) CreateBatch(ctx context.Context, entries []*ledger.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(entries).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrDuplicateSource
		}
		return err
	}
	return nil
}

// FindByID finds an entry by ID within a location
func (r *GormLedgerEntryRepository) FindByID(ctx context.Context, locationID, id uuid.UUID) (*ledger.LedgerEntry, error) {
	var entry ledger.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND id = ?", locationID, id).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindBySource looks up an entry by its idempotency identity. Returns nil,
// nil when no entry with that identity exists.
func (r *GormLedgerEntryRepository) FindBySource(ctx context.Context, locationID uuid.UUID, sourceType ledger.EntrySourceType, sourceReference string) (*ledger.LedgerEntry, error) {
	var entry ledger.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND source_type = ? AND source_reference = ?", locationID, sourceType, sourceReference).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// FindByWorker lists a worker's entry history, newest first
func (r *GormLedgerEntryRepository) FindByWorker(ctx context.Context, locationID, workerID uuid.UUID, query ledger.EntryQuery) ([]ledger.LedgerEntry, int64, error) {
	base := r.db.WithContext(ctx).Model(&ledger.LedgerEntry{}).
		Where("location_id = ? AND worker_id = ?", locationID, workerID)
	base = applyEntryQuery(base, query)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []ledger.LedgerEntry
	listQuery := base.Order("occurred_at DESC, created_at DESC")
	if query.Filter.OrderBy != "" {
		orderBy := ValidateSortField(query.Filter.OrderBy, LedgerEntrySortFields, "occurred_at")
		listQuery = base.Order(orderBy + " " + ValidateSortOrder(query.Filter.OrderDir))
	}
	if query.Filter.Page > 0 && query.Filter.PageSize > 0 {
		offset := (query.Filter.Page - 1) * query.Filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(query.Filter.PageSize)
	}
	if err := listQuery.Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func applyEntryQuery(db *gorm.DB, query ledger.EntryQuery) *gorm.DB {
	if query.SourceType != nil {
		db = db.Where("source_type = ?", *query.SourceType)
	}
	if query.Direction != nil {
		db = db.Where("direction = ?", *query.Direction)
	}
	if query.From != nil {
		db = db.Where("occurred_at >= ?", *query.From)
	}
	if query.To != nil {
		db = db.Where("occurred_at < ?", *query.To)
	}
	if query.Unsettled {
		db = db.Where("settled = ?", false)
	}
	return db
}

// SumByWorker derives the worker's balance from the full entry log
func (r *GormLedgerEntryRepository) SumByWorker(ctx context.Context, locationID, workerID uuid.UUID) (decimal.Decimal, int64, error) {
	var row struct {
		Total   decimal.Decimal
		Entries int64
	}
	err := r.db.WithContext(ctx).Model(&ledger.LedgerEntry{}).
		Select("COALESCE(SUM(CASE WHEN direction = ? THEN amount ELSE -amount END), 0) AS total, COUNT(*) AS entries", ledger.DirectionCredit).
		Where("location_id = ? AND worker_id = ?", locationID, workerID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return row.Total, row.Entries, nil
}

// FindByAllocation returns the entries a payment allocation produced. Member
// entries carry the payment reference plus a ":<worker>" suffix, so a prefix
// match finds the whole fan-out.
func (r *GormLedgerEntryRepository) FindByAllocation(ctx context.Context, locationID uuid.UUID, paymentRef string) ([]ledger.LedgerEntry, error) {
	var entries []ledger.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND source_type = ? AND source_reference LIKE ?",
			locationID, ledger.SourceTypePaymentAllocation, paymentRef+":%").
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// SumByGroupSegments aggregates allocation credits per segment and worker
func (r *GormLedgerEntryRepository) SumByGroupSegments(ctx context.Context, locationID, groupID uuid.UUID) ([]ledger.SegmentEarning, error) {
	var rows []ledger.SegmentEarning
	err := r.db.WithContext(ctx).Model(&ledger.LedgerEntry{}).
		Select("segment_id, worker_id, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS entries").
		Where("location_id = ? AND group_id = ? AND segment_id IS NOT NULL AND direction = ?",
			locationID, groupID, ledger.DirectionCredit).
		Group("segment_id, worker_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSettled flags a worker's unsettled credits up to a cutoff as paid out
func (r *GormLedgerEntryRepository) MarkSettled(ctx context.Context, locationID, workerID uuid.UUID, upTo time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&ledger.LedgerEntry{}).
		Where("location_id = ? AND worker_id = ? AND direction = ? AND settled = ? AND occurred_at <= ?",
			locationID, workerID, ledger.DirectionCredit, false, upTo).
		Updates(map[string]interface{}{
			"settled":    true,
			"settled_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

var _ ledger.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)

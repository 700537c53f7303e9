package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/grouping"
	"github.com/tippool/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTipGroupRepository implements TipGroupRepository using GORM
type GormTipGroupRepository struct {
	db *gorm.DB
}

// NewGormTipGroupRepository creates a new GormTipGroupRepository
func NewGormTipGroupRepository(db *gorm.DB) *GormTipGroupRepository {
	return &GormTipGroupRepository{db: db}
}

// FindByID finds a tip group by ID
func (r *GormTipGroupRepository) FindByID(ctx context.Context, id uuid.UUID) (*grouping.TipGroup, error) {
	var group grouping.TipGroup
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

// FindByIDForLocation finds a tip group by ID within a location
func (r *GormTipGroupRepository) FindByIDForLocation(ctx context.Context, locationID, id uuid.UUID) (*grouping.TipGroup, error) {
	var group grouping.TipGroup
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND id = ?", locationID, id).
		First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

// FindByIDForUpdate loads the group row under FOR UPDATE so concurrent
// membership changes and allocations against it serialize. Only meaningful
// inside a transaction.
func (r *GormTipGroupRepository) FindByIDForUpdate(ctx context.Context, locationID, id uuid.UUID) (*grouping.TipGroup, error) {
	var group grouping.TipGroup
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("location_id = ? AND id = ?", locationID, id).
		First(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

// FindAll finds all tip groups matching the filter
func (r *GormTipGroupRepository) FindAll(ctx context.Context, filter shared.Filter) ([]grouping.TipGroup, error) {
	var groups []grouping.TipGroup
	query := applyGroupFilter(r.db.WithContext(ctx).Model(&grouping.TipGroup{}), filter)
	query = query.Order("opened_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if err := query.Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// FindAllForLocation finds all tip groups at a location
func (r *GormTipGroupRepository) FindAllForLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]grouping.TipGroup, error) {
	var groups []grouping.TipGroup
	query := applyGroupFilter(
		r.db.WithContext(ctx).Model(&grouping.TipGroup{}).Where("location_id = ?", locationID),
		filter,
	)
	query = query.Order("opened_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if err := query.Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// FindOpenForLocation returns the open groups at a location
func (r *GormTipGroupRepository) FindOpenForLocation(ctx context.Context, locationID uuid.UUID) ([]grouping.TipGroup, error) {
	var groups []grouping.TipGroup
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND status = ?", locationID, grouping.GroupStatusOpen).
		Order("opened_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// Save persists a tip group
func (r *GormTipGroupRepository) Save(ctx context.Context, group *grouping.TipGroup) error {
	return r.db.WithContext(ctx).Save(group).Error
}

// Delete removes a tip group
func (r *GormTipGroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&grouping.TipGroup{}, "id = ?", id).Error
}

// Count counts tip groups matching the filter
func (r *GormTipGroupRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := applyGroupFilter(r.db.WithContext(ctx).Model(&grouping.TipGroup{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func applyGroupFilter(db *gorm.DB, filter shared.Filter) *gorm.DB {
	if status, ok := filter.Filters["status"]; ok {
		db = db.Where("status = ?", status)
	}
	if owner, ok := filter.Filters["owner_worker_id"]; ok {
		db = db.Where("owner_worker_id = ?", owner)
	}
	return db
}

var _ grouping.TipGroupRepository = (*GormTipGroupRepository)(nil)

package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/shared"
	"github.com/tippool/backend/internal/domain/tipout"
	"gorm.io/gorm"
)

// GormTipOutRuleRepository implements TipOutRuleRepository using GORM
type GormTipOutRuleRepository struct {
	db *gorm.DB
}

// NewGormTipOutRuleRepository creates a new GormTipOutRuleRepository
func NewGormTipOutRuleRepository(db *gorm.DB) *GormTipOutRuleRepository {
	return &GormTipOutRuleRepository{db: db}
}

// FindByID finds a rule by ID
func (r *GormTipOutRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*tipout.TipOutRule, error) {
	var rule tipout.TipOutRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// FindByIDForLocation finds a rule by ID within a location
func (r *GormTipOutRuleRepository) FindByIDForLocation(ctx context.Context, locationID, id uuid.UUID) (*tipout.TipOutRule, error) {
	var rule tipout.TipOutRule
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND id = ?", locationID, id).
		First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// FindAll finds all rules matching the filter
func (r *GormTipOutRuleRepository) FindAll(ctx context.Context, filter shared.Filter) ([]tipout.TipOutRule, error) {
	var rules []tipout.TipOutRule
	orderBy := ValidateSortField(filter.OrderBy, TipOutRuleSortFields, "created_at")
	query := r.db.WithContext(ctx).Model(&tipout.TipOutRule{}).
		Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if err := query.Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// FindAllForLocation finds all rules at a location
func (r *GormTipOutRuleRepository) FindAllForLocation(ctx context.Context, locationID uuid.UUID, filter shared.Filter) ([]tipout.TipOutRule, error) {
	var rules []tipout.TipOutRule
	orderBy := ValidateSortField(filter.OrderBy, TipOutRuleSortFields, "created_at")
	query := r.db.WithContext(ctx).Model(&tipout.TipOutRule{}).
		Where("location_id = ?", locationID).
		Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if err := query.Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

// FindApplicable returns enabled rules whose effective window covers the
// instant, in creation order so evaluation runs deterministically
func (r *GormTipOutRuleRepository) FindApplicable(ctx context.Context, locationID uuid.UUID, at time.Time) ([]tipout.TipOutRule, error) {
	var rules []tipout.TipOutRule
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND enabled = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)",
			locationID, true, at, at).
		Order("created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// Save persists a rule
func (r *GormTipOutRuleRepository) Save(ctx context.Context, rule *tipout.TipOutRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// Delete removes a rule
func (r *GormTipOutRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&tipout.TipOutRule{}, "id = ?", id).Error
}

// Count counts rules matching the filter
func (r *GormTipOutRuleRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&tipout.TipOutRule{})
	if locationID, ok := filter.Filters["location_id"]; ok {
		query = query.Where("location_id = ?", locationID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ tipout.TipOutRuleRepository = (*GormTipOutRuleRepository)(nil)

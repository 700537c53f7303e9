package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/grouping"
	"github.com/tippool/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAnomalyRepository implements AnomalyRepository using GORM
type GormAnomalyRepository struct {
	db *gorm.DB
}

// NewGormAnomalyRepository creates a new GormAnomalyRepository
func NewGormAnomalyRepository(db *gorm.DB) *GormAnomalyRepository {
	return &GormAnomalyRepository{db: db}
}

// Create records an allocation anomaly
func (r *GormAnomalyRepository) Create(ctx context.Context, anomaly *grouping.AllocationAnomaly) error {
	return r.db.WithContext(ctx).Create(anomaly).Error
}

// Save persists anomaly state, typically the resolution flag and note
func (r *GormAnomalyRepository) Save(ctx context.Context, anomaly *grouping.AllocationAnomaly) error {
	return r.db.WithContext(ctx).Save(anomaly).Error
}

// FindByID finds an anomaly by ID within a location
func (r *GormAnomalyRepository) FindByID(ctx context.Context, locationID, id uuid.UUID) (*grouping.AllocationAnomaly, error) {
	var anomaly grouping.AllocationAnomaly
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND id = ?", locationID, id).
		First(&anomaly).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &anomaly, nil
}

// FindForLocation lists anomalies at a location, newest first
func (r *GormAnomalyRepository) FindForLocation(ctx context.Context, locationID uuid.UUID, unresolvedOnly bool, filter shared.Filter) ([]grouping.AllocationAnomaly, int64, error) {
	base := r.db.WithContext(ctx).Model(&grouping.AllocationAnomaly{}).
		Where("location_id = ?", locationID)
	if unresolvedOnly {
		base = base.Where("resolved = ?", false)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var anomalies []grouping.AllocationAnomaly
	orderBy := ValidateSortField(filter.OrderBy, AnomalySortFields, "created_at")
	query := base.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if err := query.Find(&anomalies).Error; err != nil {
		return nil, 0, err
	}
	return anomalies, total, nil
}

var _ grouping.AnomalyRepository = (*GormAnomalyRepository)(nil)

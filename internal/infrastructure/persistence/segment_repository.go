package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/grouping"
	"github.com/tippool/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormSegmentRepository implements SegmentRepository using GORM
type GormSegmentRepository struct {
	db *gorm.DB
}

// NewGormSegmentRepository creates a new GormSegmentRepository
func NewGormSegmentRepository(db *gorm.DB) *GormSegmentRepository {
	return &GormSegmentRepository{db: db}
}

// Create appends a segment to the group's timeline
func (r *GormSegmentRepository) Create(ctx context.Context, segment *grouping.Segment) error {
	return r.db.WithContext(ctx).Create(segment).Error
}

// Save persists a segment, typically to seal its end instant
func (r *GormSegmentRepository) Save(ctx context.Context, segment *grouping.Segment) error {
	return r.db.WithContext(ctx).Save(segment).Error
}

// FindByID finds a segment by ID within a location
func (r *GormSegmentRepository) FindByID(ctx context.Context, locationID, id uuid.UUID) (*grouping.Segment, error) {
	var segment grouping.Segment
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND id = ?", locationID, id).
		First(&segment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &segment, nil
}

// FindByGroup returns a group's full timeline in chronological order
func (r *GormSegmentRepository) FindByGroup(ctx context.Context, locationID, groupID uuid.UUID) ([]grouping.Segment, error) {
	var segments []grouping.Segment
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND group_id = ?", locationID, groupID).
		Order("starts_at ASC").
		Find(&segments).Error
	if err != nil {
		return nil, err
	}
	return segments, nil
}

// FindOpen returns the single open segment of a group, or nil when the group
// is closed
func (r *GormSegmentRepository) FindOpen(ctx context.Context, locationID, groupID uuid.UUID) (*grouping.Segment, error) {
	var segment grouping.Segment
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND group_id = ? AND ends_at IS NULL", locationID, groupID).
		First(&segment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &segment, nil
}

// FindAt returns the segment whose half-open interval covers the instant, or
// nil when the instant falls outside the timeline
func (r *GormSegmentRepository) FindAt(ctx context.Context, locationID, groupID uuid.UUID, at time.Time) (*grouping.Segment, error) {
	var segment grouping.Segment
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND group_id = ? AND starts_at <= ? AND (ends_at IS NULL OR ends_at > ?)",
			locationID, groupID, at, at).
		Order("starts_at DESC").
		First(&segment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &segment, nil
}

var _ grouping.SegmentRepository = (*GormSegmentRepository)(nil)

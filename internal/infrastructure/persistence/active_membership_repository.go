package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/grouping"
	"github.com/tippool/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormActiveMembershipRepository implements ActiveMembershipRepository using
// GORM. The (location, worker) unique index is the enforcement point for the
// one-group-per-worker rule.
type GormActiveMembershipRepository struct {
	db *gorm.DB
}

// NewGormActiveMembershipRepository creates a new GormActiveMembershipRepository
func NewGormActiveMembershipRepository(db *gorm.DB) *GormActiveMembershipRepository {
	return &GormActiveMembershipRepository{db: db}
}

// Insert adds an index row. A unique violation on (location, worker) surfaces
// as shared.ErrAlreadyInGroup.
func (r *GormActiveMembershipRepository) Insert(ctx context.Context, am *grouping.ActiveMembership) error {
	if err := r.db.WithContext(ctx).Create(am).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyInGroup
		}
		return err
	}
	return nil
}

// Remove deletes a worker's index row
func (r *GormActiveMembershipRepository) Remove(ctx context.Context, locationID, workerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("location_id = ? AND worker_id = ?", locationID, workerID).
		Delete(&grouping.ActiveMembership{}).Error
}

// RemoveByGroup deletes every index row of a group, used at group close
func (r *GormActiveMembershipRepository) RemoveByGroup(ctx context.Context, locationID, groupID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("location_id = ? AND group_id = ?", locationID, groupID).
		Delete(&grouping.ActiveMembership{}).Error
}

// FindByWorker returns the worker's index row, or nil when the worker is not
// in any group
func (r *GormActiveMembershipRepository) FindByWorker(ctx context.Context, locationID, workerID uuid.UUID) (*grouping.ActiveMembership, error) {
	var am grouping.ActiveMembership
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND worker_id = ?", locationID, workerID).
		First(&am).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &am, nil
}

var _ grouping.ActiveMembershipRepository = (*GormActiveMembershipRepository)(nil)

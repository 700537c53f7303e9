package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/grouping"
	"github.com/tippool/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormMembershipRepository implements MembershipRepository using GORM
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository creates a new GormMembershipRepository
func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

// Save persists a membership
func (r *GormMembershipRepository) Save(ctx context.Context, m *grouping.Membership) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// FindByID finds a membership by ID within a location
func (r *GormMembershipRepository) FindByID(ctx context.Context, locationID, id uuid.UUID) (*grouping.Membership, error) {
	var m grouping.Membership
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND id = ?", locationID, id).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindByGroup returns every membership ever attached to a group
func (r *GormMembershipRepository) FindByGroup(ctx context.Context, locationID, groupID uuid.UUID) ([]grouping.Membership, error) {
	return r.findByGroup(ctx, locationID, groupID, nil)
}

// FindActiveByGroup returns the current active members of a group
func (r *GormMembershipRepository) FindActiveByGroup(ctx context.Context, locationID, groupID uuid.UUID) ([]grouping.Membership, error) {
	status := grouping.MembershipStatusActive
	return r.findByGroup(ctx, locationID, groupID, &status)
}

// FindPending returns the join requests awaiting approval for a group
func (r *GormMembershipRepository) FindPending(ctx context.Context, locationID, groupID uuid.UUID) ([]grouping.Membership, error) {
	status := grouping.MembershipStatusPending
	return r.findByGroup(ctx, locationID, groupID, &status)
}

func (r *GormMembershipRepository) findByGroup(ctx context.Context, locationID, groupID uuid.UUID, status *grouping.MembershipStatus) ([]grouping.Membership, error) {
	query := r.db.WithContext(ctx).
		Where("location_id = ? AND group_id = ?", locationID, groupID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var memberships []grouping.Membership
	if err := query.Order("requested_at ASC").Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// FindActiveByWorker returns the worker's current active membership, or nil
func (r *GormMembershipRepository) FindActiveByWorker(ctx context.Context, locationID, workerID uuid.UUID) (*grouping.Membership, error) {
	var m grouping.Membership
	if err := r.db.WithContext(ctx).
		Where("location_id = ? AND worker_id = ? AND status = ?", locationID, workerID, grouping.MembershipStatusActive).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

var _ grouping.MembershipRepository = (*GormMembershipRepository)(nil)

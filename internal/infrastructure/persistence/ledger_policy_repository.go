package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormLedgerPolicyRepository implements LedgerPolicyRepository using GORM
type GormLedgerPolicyRepository struct {
	db *gorm.DB
}

// NewGormLedgerPolicyRepository creates a new GormLedgerPolicyRepository
func NewGormLedgerPolicyRepository(db *gorm.DB) *GormLedgerPolicyRepository {
	return &GormLedgerPolicyRepository{db: db}
}

// FindByLocation returns nil, nil when no policy row exists; the caller falls
// back to the server-wide default.
func (r *GormLedgerPolicyRepository) FindByLocation(ctx context.Context, locationID uuid.UUID) (*ledger.LedgerPolicy, error) {
	var policy ledger.LedgerPolicy
	if err := r.db.WithContext(ctx).
		Where("location_id = ?", locationID).
		First(&policy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &policy, nil
}

// Save upserts the location's policy row
func (r *GormLedgerPolicyRepository) Save(ctx context.Context, policy *ledger.LedgerPolicy) error {
	return r.db.WithContext(ctx).Save(policy).Error
}

var _ ledger.LedgerPolicyRepository = (*GormLedgerPolicyRepository)(nil)

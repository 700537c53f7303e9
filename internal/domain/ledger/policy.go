package ledger

import (
	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/shared"
)

// LedgerPolicy holds per-location ledger behavior overrides. Locations
// without a policy row fall back to the server-wide defaults.
type LedgerPolicy struct {
	shared.BaseEntity
	LocationID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	AllowNegativeBalance bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (LedgerPolicy) TableName() string {
	return "ledger_policies"
}

// NewLedgerPolicy creates a policy record for a location
func NewLedgerPolicy(locationID uuid.UUID, allowNegative bool) (*LedgerPolicy, error) {
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	return &LedgerPolicy{
		BaseEntity:           shared.NewBaseEntity(),
		LocationID:           locationID,
		AllowNegativeBalance: allowNegative,
	}, nil
}

// SetAllowNegativeBalance updates the negative balance override
func (p *LedgerPolicy) SetAllowNegativeBalance(allow bool) {
	p.AllowNegativeBalance = allow
	p.UpdateTimestamp()
}

package tipout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
)

// BasisType is the sales figure a tip-out percentage applies to. The enum is
// closed: evaluation dispatches over it exhaustively and rejects anything
// else at rule creation.
type BasisType string

const (
	// BasisTotalSales applies the percentage to gross shift sales
	BasisTotalSales BasisType = "TOTAL_SALES"
	// BasisFoodSales applies the percentage to food sales only
	BasisFoodSales BasisType = "FOOD_SALES"
	// BasisBarSales applies the percentage to bar sales only
	BasisBarSales BasisType = "BAR_SALES"
	// BasisNetSales applies the percentage to sales net of comps and voids
	BasisNetSales BasisType = "NET_SALES"
	// BasisTipsEarned applies the percentage to tips the source role earned
	BasisTipsEarned BasisType = "TIPS_EARNED"
)

// String returns the string representation of BasisType
func (b BasisType) String() string {
	return string(b)
}

// IsValid returns true if the basis type is valid
func (b BasisType) IsValid() bool {
	switch b {
	case BasisTotalSales, BasisFoodSales, BasisBarSales, BasisNetSales, BasisTipsEarned:
		return true
	}
	return false
}

// TipOutRule describes a recurring redistribution applied at shift close:
// workers in the source role pay a percentage of a sales basis to workers in
// the recipient role, optionally clamped at a percentage of the tips those
// workers earned, and bounded by an effective window.
type TipOutRule struct {
	shared.LocationAggregateRoot
	Name          string           `gorm:"type:varchar(200);not null"`
	SourceRole    string           `gorm:"type:varchar(100);not null"`
	RecipientRole string           `gorm:"type:varchar(100);not null"`
	Basis         BasisType        `gorm:"type:varchar(20);not null"`
	Percent       decimal.Decimal  `gorm:"type:decimal(7,4);not null"`
	CapPercent    *decimal.Decimal `gorm:"type:decimal(7,4)"`
	EffectiveFrom time.Time        `gorm:"not null"`
	EffectiveTo   *time.Time
	// No column default: gorm would drop a zero-valued Enabled from the
	// INSERT and a rule disabled before its first save would come back
	// enabled.
	Enabled bool `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TipOutRule) TableName() string {
	return "tip_out_rules"
}

// NewTipOutRule creates a tip-out rule
func NewTipOutRule(
	locationID uuid.UUID,
	name, sourceRole, recipientRole string,
	basis BasisType,
	percent decimal.Decimal,
	effectiveFrom time.Time,
) (*TipOutRule, error) {
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Rule name cannot be empty")
	}
	if sourceRole == "" || recipientRole == "" {
		return nil, shared.NewDomainError("INVALID_ROLE", "Source and recipient roles are required")
	}
	if sourceRole == recipientRole {
		return nil, shared.NewDomainError("INVALID_ROLE", "Source and recipient roles must differ")
	}
	if !basis.IsValid() {
		return nil, shared.NewDomainError("INVALID_BASIS", "Unknown basis type")
	}
	if !percent.IsPositive() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_PERCENT", "Percent must be between 0 exclusive and 100 inclusive")
	}
	if effectiveFrom.IsZero() {
		effectiveFrom = time.Now()
	}

	return &TipOutRule{
		LocationAggregateRoot: shared.NewLocationAggregateRoot(locationID),
		Name:                  name,
		SourceRole:            sourceRole,
		RecipientRole:         recipientRole,
		Basis:                 basis,
		Percent:               percent,
		EffectiveFrom:         effectiveFrom,
		Enabled:               true,
	}, nil
}

// WithCap bounds the payout at the given percentage of the tips the source
// workers earned this shift, whatever the rule's basis.
func (r *TipOutRule) WithCap(capPercent decimal.Decimal) (*TipOutRule, error) {
	if !capPercent.IsPositive() || capPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_CAP", "Cap percent must be between 0 exclusive and 100 inclusive")
	}
	r.CapPercent = &capPercent
	return r, nil
}

// WithEffectiveTo bounds the rule's effective window on the right
func (r *TipOutRule) WithEffectiveTo(to time.Time) (*TipOutRule, error) {
	if !to.After(r.EffectiveFrom) {
		return nil, shared.NewDomainError("INVALID_WINDOW", "Effective-to must follow effective-from")
	}
	r.EffectiveTo = &to
	return r, nil
}

// Disable turns the rule off without deleting its history
func (r *TipOutRule) Disable() {
	r.Enabled = false
	r.UpdateTimestamp()
}

// Enable turns the rule back on
func (r *TipOutRule) Enable() {
	r.Enabled = true
	r.UpdateTimestamp()
}

// AppliesAt returns true if the rule is enabled and the instant falls inside
// its effective window
func (r *TipOutRule) AppliesAt(at time.Time) bool {
	if !r.Enabled {
		return false
	}
	if at.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !at.Before(*r.EffectiveTo) {
		return false
	}
	return true
}

// BasisAmount selects the sales figure this rule's percentage applies to
func (r *TipOutRule) BasisAmount(snapshot *ShiftSalesSnapshot) (decimal.Decimal, error) {
	switch r.Basis {
	case BasisTotalSales:
		return snapshot.TotalSales, nil
	case BasisFoodSales:
		return snapshot.FoodSales, nil
	case BasisBarSales:
		return snapshot.BarSales, nil
	case BasisNetSales:
		return snapshot.NetSales, nil
	case BasisTipsEarned:
		return snapshot.SourceTipsTotal(), nil
	}
	return decimal.Zero, shared.NewDomainError("INVALID_BASIS", "Unknown basis type")
}

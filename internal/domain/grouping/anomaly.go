package grouping

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
)

// AnomalyReason classifies why a payment could not be split normally
type AnomalyReason string

const (
	// AnomalyNoSegment means no timeline segment covered the payment instant
	AnomalyNoSegment AnomalyReason = "NO_SEGMENT"
	// AnomalyEmptySegment means the covering segment had no participants
	AnomalyEmptySegment AnomalyReason = "EMPTY_SEGMENT"
	// AnomalyGroupClosed means the payment arrived after the group closed
	AnomalyGroupClosed AnomalyReason = "GROUP_CLOSED"
)

// String returns the string representation of AnomalyReason
func (r AnomalyReason) String() string {
	return string(r)
}

// AllocationAnomaly records a payment that fell outside the normal allocation
// path. The amount is still credited to the fallback worker so money is never
// dropped; the anomaly row gives operators a queue to review.
type AllocationAnomaly struct {
	shared.BaseEntity
	LocationID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	GroupID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentReference string          `gorm:"type:varchar(200);not null"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reason           AnomalyReason   `gorm:"type:varchar(20);not null"`
	FallbackWorkerID uuid.UUID       `gorm:"type:uuid;not null"`
	Resolved         bool            `gorm:"not null;default:false;index"`
	Note             string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (AllocationAnomaly) TableName() string {
	return "allocation_anomalies"
}

// NewAllocationAnomaly records an off-path allocation
func NewAllocationAnomaly(locationID, groupID uuid.UUID, paymentRef string, amount decimal.Decimal, reason AnomalyReason, fallbackWorkerID uuid.UUID) *AllocationAnomaly {
	return &AllocationAnomaly{
		BaseEntity:       shared.NewBaseEntity(),
		LocationID:       locationID,
		GroupID:          groupID,
		PaymentReference: paymentRef,
		Amount:           amount,
		Reason:           reason,
		FallbackWorkerID: fallbackWorkerID,
	}
}

// Resolve marks the anomaly as reviewed
func (a *AllocationAnomaly) Resolve(note string) {
	a.Resolved = true
	a.Note = note
	a.UpdateTimestamp()
}

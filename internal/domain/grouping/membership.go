package grouping

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
)

// MembershipStatus represents the state of a worker's relationship to a group
type MembershipStatus string

const (
	// MembershipStatusPending means the join request awaits owner approval
	MembershipStatusPending MembershipStatus = "PENDING"
	// MembershipStatusActive means the worker participates in allocations
	MembershipStatusActive MembershipStatus = "ACTIVE"
	// MembershipStatusRemoved means the worker left or was removed
	MembershipStatusRemoved MembershipStatus = "REMOVED"
)

// String returns the string representation of MembershipStatus
func (s MembershipStatus) String() string {
	return string(s)
}

// Membership records one worker's stretch inside a tip group, including the
// share parameters used when snapshotting segments.
type Membership struct {
	shared.BaseEntity
	LocationID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	GroupID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	WorkerID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	Role          string           `gorm:"type:varchar(100)"`
	Weight        decimal.Decimal  `gorm:"type:decimal(10,4);not null;default:1"`
	CustomPercent decimal.Decimal  `gorm:"type:decimal(7,4);not null;default:0"`
	HoursWorked   decimal.Decimal  `gorm:"type:decimal(8,2);not null;default:0"`
	Status        MembershipStatus `gorm:"type:varchar(10);not null;index"`
	RequestedAt   time.Time        `gorm:"not null"`
	JoinedAt      *time.Time
	LeftAt        *time.Time
}

// TableName returns the table name for GORM
func (Membership) TableName() string {
	return "group_memberships"
}

func newMembership(locationID, groupID, workerID uuid.UUID, role string, status MembershipStatus) (*Membership, error) {
	if locationID == uuid.Nil || groupID == uuid.Nil || workerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MEMBERSHIP", "Location, group and worker IDs are required")
	}
	return &Membership{
		BaseEntity:  shared.NewBaseEntity(),
		LocationID:  locationID,
		GroupID:     groupID,
		WorkerID:    workerID,
		Role:        role,
		Weight:      decimal.NewFromInt(1),
		Status:      status,
		RequestedAt: time.Now(),
	}, nil
}

// NewJoinRequest creates a pending membership awaiting owner approval
func NewJoinRequest(locationID, groupID, workerID uuid.UUID, role string) (*Membership, error) {
	return newMembership(locationID, groupID, workerID, role, MembershipStatusPending)
}

// NewActiveMember creates an already-approved membership, used when the owner
// adds a worker directly or when the group is first started.
func NewActiveMember(locationID, groupID, workerID uuid.UUID, role string, joinedAt time.Time) (*Membership, error) {
	m, err := newMembership(locationID, groupID, workerID, role, MembershipStatusActive)
	if err != nil {
		return nil, err
	}
	if joinedAt.IsZero() {
		joinedAt = time.Now()
	}
	m.JoinedAt = &joinedAt
	return m, nil
}

// IsActive returns true if the worker currently participates in allocations
func (m *Membership) IsActive() bool {
	return m.Status == MembershipStatusActive
}

// Approve activates a pending join request
func (m *Membership) Approve(at time.Time) error {
	if m.Status != MembershipStatusPending {
		return shared.ErrInvalidState
	}
	if at.IsZero() {
		at = time.Now()
	}
	m.Status = MembershipStatusActive
	m.JoinedAt = &at
	m.UpdateTimestamp()
	return nil
}

// Remove ends an active or pending membership
func (m *Membership) Remove(at time.Time) error {
	if m.Status == MembershipStatusRemoved {
		return shared.ErrInvalidState
	}
	if at.IsZero() {
		at = time.Now()
	}
	m.Status = MembershipStatusRemoved
	m.LeftAt = &at
	m.UpdateTimestamp()
	return nil
}

// SetCustomPercent sets the worker's explicit share for CUSTOM split groups
func (m *Membership) SetCustomPercent(percent decimal.Decimal) error {
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_PERCENT", "Custom percent must be between 0 and 100")
	}
	m.CustomPercent = percent
	m.UpdateTimestamp()
	return nil
}

// SetWeight sets the worker's role weight for ROLE_WEIGHTED split groups
func (m *Membership) SetWeight(weight decimal.Decimal) error {
	if !weight.IsPositive() {
		return shared.NewDomainError("INVALID_WEIGHT", "Weight must be positive")
	}
	m.Weight = weight
	m.UpdateTimestamp()
	return nil
}

// RecordHours updates the hours-worked counter used by HOURS_WEIGHTED splits
func (m *Membership) RecordHours(hours decimal.Decimal) error {
	if hours.IsNegative() {
		return shared.NewDomainError("INVALID_HOURS", "Hours worked cannot be negative")
	}
	m.HoursWorked = hours
	m.UpdateTimestamp()
	return nil
}

// ActiveMembership is a materialized index row enforcing that a worker holds
// at most one active group membership per location. The unique index on
// (location_id, worker_id) turns a racing double-join into a constraint
// violation instead of a lost update.
type ActiveMembership struct {
	shared.BaseEntity
	LocationID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_active_member,priority:1"`
	WorkerID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_active_member,priority:2"`
	GroupID      uuid.UUID `gorm:"type:uuid;not null;index"`
	MembershipID uuid.UUID `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (ActiveMembership) TableName() string {
	return "active_memberships"
}

// NewActiveMembershipIndex creates the index row for an activated membership
func NewActiveMembershipIndex(m *Membership) *ActiveMembership {
	return &ActiveMembership{
		BaseEntity:   shared.NewBaseEntity(),
		LocationID:   m.LocationID,
		WorkerID:     m.WorkerID,
		GroupID:      m.GroupID,
		MembershipID: m.ID,
	}
}

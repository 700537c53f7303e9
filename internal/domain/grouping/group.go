package grouping

import (
	"time"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/shared"
)

// GroupStatus represents the lifecycle state of a tip group
type GroupStatus string

const (
	// GroupStatusOpen means the group accepts members and receives allocations
	GroupStatusOpen GroupStatus = "OPEN"
	// GroupStatusClosed means the group is finished and immutable
	GroupStatusClosed GroupStatus = "CLOSED"
)

// String returns the string representation of GroupStatus
func (s GroupStatus) String() string {
	return string(s)
}

// SplitMode determines how allocated tips divide among segment participants
type SplitMode string

const (
	// SplitModeEqual divides evenly with remainder cents going to the owner
	SplitModeEqual SplitMode = "EQUAL"
	// SplitModeCustom uses explicit per-member percentages
	SplitModeCustom SplitMode = "CUSTOM"
	// SplitModeRoleWeighted weights shares by per-role weight factors
	SplitModeRoleWeighted SplitMode = "ROLE_WEIGHTED"
	// SplitModeHoursWeighted weights shares by hours worked
	SplitModeHoursWeighted SplitMode = "HOURS_WEIGHTED"
)

// String returns the string representation of SplitMode
func (m SplitMode) String() string {
	return string(m)
}

// IsValid returns true if the split mode is valid
func (m SplitMode) IsValid() bool {
	switch m {
	case SplitModeEqual, SplitModeCustom, SplitModeRoleWeighted, SplitModeHoursWeighted:
		return true
	}
	return false
}

// TipGroup is a set of workers pooling tips at one location. Membership over
// time is recorded as a contiguous sequence of segments; the group row itself
// only tracks identity, ownership and lifecycle.
type TipGroup struct {
	shared.LocationAggregateRoot
	Name          string      `gorm:"type:varchar(200);not null"`
	OwnerWorkerID uuid.UUID   `gorm:"type:uuid;not null;index"`
	SplitMode     SplitMode   `gorm:"type:varchar(20);not null"`
	Status        GroupStatus `gorm:"type:varchar(10);not null;index"`
	OpenedAt      time.Time   `gorm:"not null"`
	ClosedAt      *time.Time
}

// TableName returns the table name for GORM
func (TipGroup) TableName() string {
	return "tip_groups"
}

// NewTipGroup creates an open tip group owned by the starting worker
func NewTipGroup(locationID, ownerWorkerID uuid.UUID, name string, mode SplitMode, openedAt time.Time) (*TipGroup, error) {
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if ownerWorkerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WORKER", "Owner worker ID cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Group name cannot be empty")
	}
	if !mode.IsValid() {
		return nil, shared.NewDomainError("INVALID_SPLIT_MODE", "Unknown split mode")
	}
	if openedAt.IsZero() {
		openedAt = time.Now()
	}

	group := &TipGroup{
		LocationAggregateRoot: shared.NewLocationAggregateRoot(locationID),
		Name:                  name,
		OwnerWorkerID:         ownerWorkerID,
		SplitMode:             mode,
		Status:                GroupStatusOpen,
		OpenedAt:              openedAt,
	}
	group.AddDomainEvent(NewGroupStartedEvent(group))
	return group, nil
}

// IsOpen returns true if the group still accepts members and allocations
func (g *TipGroup) IsOpen() bool {
	return g.Status == GroupStatusOpen
}

// TransferOwnership hands the group to another active member
func (g *TipGroup) TransferOwnership(newOwnerWorkerID uuid.UUID) error {
	if !g.IsOpen() {
		return shared.ErrInvalidState
	}
	if newOwnerWorkerID == uuid.Nil {
		return shared.NewDomainError("INVALID_WORKER", "New owner worker ID cannot be empty")
	}
	if newOwnerWorkerID == g.OwnerWorkerID {
		return shared.NewDomainError("INVALID_OWNER", "Worker already owns this group")
	}
	previous := g.OwnerWorkerID
	g.OwnerWorkerID = newOwnerWorkerID
	g.UpdateTimestamp()
	g.AddDomainEvent(NewOwnershipTransferredEvent(g, previous))
	return nil
}

// ChangeSplitMode switches how future segments divide allocations. Segments
// already written keep the mode they were snapshotted with.
func (g *TipGroup) ChangeSplitMode(mode SplitMode) error {
	if !g.IsOpen() {
		return shared.ErrInvalidState
	}
	if !mode.IsValid() {
		return shared.NewDomainError("INVALID_SPLIT_MODE", "Unknown split mode")
	}
	g.SplitMode = mode
	g.UpdateTimestamp()
	return nil
}

// Close finishes the group. Closing is terminal.
func (g *TipGroup) Close(at time.Time) error {
	if !g.IsOpen() {
		return shared.ErrInvalidState
	}
	if at.Before(g.OpenedAt) {
		return shared.NewDomainError("INVALID_CLOSE_TIME", "Close time cannot precede the group opening")
	}
	g.Status = GroupStatusClosed
	g.ClosedAt = &at
	g.UpdateTimestamp()
	g.AddDomainEvent(NewGroupClosedEvent(g))
	return nil
}

package grouping

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
)

// Event type constants for the grouping context
const (
	EventTypeGroupStarted         = "grouping.group_started"
	EventTypeGroupClosed          = "grouping.group_closed"
	EventTypeOwnershipTransferred = "grouping.ownership_transferred"
	EventTypeMemberJoined         = "grouping.member_joined"
	EventTypeMemberLeft           = "grouping.member_left"
	EventTypePaymentAllocated     = "grouping.payment_allocated"
	EventTypeAnomalyRecorded      = "grouping.anomaly_recorded"
)

// GroupStartedEvent is published when a worker starts a new tip group
type GroupStartedEvent struct {
	shared.BaseDomainEvent
	OwnerWorkerID uuid.UUID `json:"owner_worker_id"`
	SplitMode     SplitMode `json:"split_mode"`
}

// NewGroupStartedEvent creates a group started event
func NewGroupStartedEvent(group *TipGroup) *GroupStartedEvent {
	return &GroupStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGroupStarted, "TipGroup", group.ID, group.LocationID),
		OwnerWorkerID:   group.OwnerWorkerID,
		SplitMode:       group.SplitMode,
	}
}

// GroupClosedEvent is published when a group closes
type GroupClosedEvent struct {
	shared.BaseDomainEvent
	ClosedAt time.Time `json:"closed_at"`
}

// NewGroupClosedEvent creates a group closed event
func NewGroupClosedEvent(group *TipGroup) *GroupClosedEvent {
	closedAt := time.Now()
	if group.ClosedAt != nil {
		closedAt = *group.ClosedAt
	}
	return &GroupClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGroupClosed, "TipGroup", group.ID, group.LocationID),
		ClosedAt:        closedAt,
	}
}

// OwnershipTransferredEvent is published when group ownership changes hands
type OwnershipTransferredEvent struct {
	shared.BaseDomainEvent
	PreviousOwnerID uuid.UUID `json:"previous_owner_id"`
	NewOwnerID      uuid.UUID `json:"new_owner_id"`
}

// NewOwnershipTransferredEvent creates an ownership transferred event
func NewOwnershipTransferredEvent(group *TipGroup, previousOwnerID uuid.UUID) *OwnershipTransferredEvent {
	return &OwnershipTransferredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOwnershipTransferred, "TipGroup", group.ID, group.LocationID),
		PreviousOwnerID: previousOwnerID,
		NewOwnerID:      group.OwnerWorkerID,
	}
}

// MemberJoinedEvent is published when a membership becomes active
type MemberJoinedEvent struct {
	shared.BaseDomainEvent
	WorkerID uuid.UUID `json:"worker_id"`
}

// NewMemberJoinedEvent creates a member joined event
func NewMemberJoinedEvent(m *Membership) *MemberJoinedEvent {
	return &MemberJoinedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMemberJoined, "TipGroup", m.GroupID, m.LocationID),
		WorkerID:        m.WorkerID,
	}
}

// MemberLeftEvent is published when a membership ends
type MemberLeftEvent struct {
	shared.BaseDomainEvent
	WorkerID uuid.UUID `json:"worker_id"`
}

// NewMemberLeftEvent creates a member left event
func NewMemberLeftEvent(m *Membership) *MemberLeftEvent {
	return &MemberLeftEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMemberLeft, "TipGroup", m.GroupID, m.LocationID),
		WorkerID:        m.WorkerID,
	}
}

// PaymentAllocatedEvent is published after a captured payment is split and
// credited to segment participants
type PaymentAllocatedEvent struct {
	shared.BaseDomainEvent
	PaymentReference string          `json:"payment_reference"`
	Amount           decimal.Decimal `json:"amount"`
	SegmentID        uuid.UUID       `json:"segment_id"`
	ShareCount       int             `json:"share_count"`
}

// NewPaymentAllocatedEvent creates a payment allocated event
func NewPaymentAllocatedEvent(locationID, groupID, segmentID uuid.UUID, paymentRef string, amount decimal.Decimal, shareCount int) *PaymentAllocatedEvent {
	return &PaymentAllocatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypePaymentAllocated, "TipGroup", groupID, locationID),
		PaymentReference: paymentRef,
		Amount:           amount,
		SegmentID:        segmentID,
		ShareCount:       shareCount,
	}
}

// AnomalyRecordedEvent is published when a payment falls outside the normal
// allocation path
type AnomalyRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentReference string        `json:"payment_reference"`
	Reason           AnomalyReason `json:"reason"`
}

// NewAnomalyRecordedEvent creates an anomaly recorded event
func NewAnomalyRecordedEvent(a *AllocationAnomaly) *AnomalyRecordedEvent {
	return &AnomalyRecordedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeAnomalyRecorded, "AllocationAnomaly", a.ID, a.LocationID),
		PaymentReference: a.PaymentReference,
		Reason:           a.Reason,
	}
}

package grouping

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/grouping"
)

// StartGroupRequest represents a request to start a tip group. The owner is
// always the first member; initial_members lets a whole crew open pooled from
// the first payment without a round of add-member calls.
type StartGroupRequest struct {
	OwnerWorkerID  uuid.UUID              `json:"owner_worker_id" binding:"required"`
	OwnerRole      string                 `json:"owner_role" binding:"max=100"`
	Name           string                 `json:"name" binding:"required,min=1,max=200"`
	SplitMode      string                 `json:"split_mode" binding:"required,oneof=EQUAL CUSTOM ROLE_WEIGHTED HOURS_WEIGHTED"`
	OpenedAt       time.Time              `json:"opened_at"`
	InitialMembers []InitialMemberRequest `json:"initial_members" binding:"omitempty,dive"`
}

// InitialMemberRequest is one non-owner worker included at group start
type InitialMemberRequest struct {
	WorkerID uuid.UUID `json:"worker_id" binding:"required"`
	Role     string    `json:"role" binding:"max=100"`
}

// JoinRequest represents a worker asking to join a group
type JoinRequest struct {
	WorkerID uuid.UUID `json:"worker_id" binding:"required"`
	Role     string    `json:"role" binding:"max=100"`
}

// AddMemberRequest represents the owner adding a worker directly
type AddMemberRequest struct {
	WorkerID uuid.UUID `json:"worker_id" binding:"required"`
	Role     string    `json:"role" binding:"max=100"`
	At       time.Time `json:"at"`
}

// RemoveMemberRequest represents a member leaving or being removed
type RemoveMemberRequest struct {
	At time.Time `json:"at"`
}

// TransferOwnershipRequest hands a group to another active member
type TransferOwnershipRequest struct {
	NewOwnerWorkerID uuid.UUID `json:"new_owner_worker_id" binding:"required"`
}

// CloseGroupRequest closes a group
type CloseGroupRequest struct {
	At time.Time `json:"at"`
}

// UpdateShareRequest changes a member's split parameters
type UpdateShareRequest struct {
	CustomPercent *decimal.Decimal `json:"custom_percent"`
	Weight        *decimal.Decimal `json:"weight"`
	Hours         *decimal.Decimal `json:"hours"`
}

// ChangeSplitModeRequest switches the group's split mode for future segments
type ChangeSplitModeRequest struct {
	SplitMode string `json:"split_mode" binding:"required,oneof=EQUAL CUSTOM ROLE_WEIGHTED HOURS_WEIGHTED"`
}

// AllocateRequest credits a captured payment's tip. The paying worker
// identifies the target: their active group when they have one, themselves
// otherwise.
type AllocateRequest struct {
	WorkerID         uuid.UUID       `json:"worker_id" binding:"required"`
	PaymentReference string          `json:"payment_reference" binding:"required,min=1,max=150"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	OccurredAt       time.Time       `json:"occurred_at" binding:"required"`
}

// ClockOutRequest records a worker clocking out
type ClockOutRequest struct {
	WorkerID    uuid.UUID        `json:"worker_id" binding:"required"`
	At          time.Time        `json:"at" binding:"required"`
	HoursWorked *decimal.Decimal `json:"hours_worked"`
}

// MembershipResponse represents a membership in API responses
type MembershipResponse struct {
	ID            uuid.UUID       `json:"id"`
	GroupID       uuid.UUID       `json:"group_id"`
	WorkerID      uuid.UUID       `json:"worker_id"`
	Role          string          `json:"role,omitempty"`
	Weight        decimal.Decimal `json:"weight"`
	CustomPercent decimal.Decimal `json:"custom_percent"`
	HoursWorked   decimal.Decimal `json:"hours_worked"`
	Status        string          `json:"status"`
	RequestedAt   time.Time       `json:"requested_at"`
	JoinedAt      *time.Time      `json:"joined_at,omitempty"`
	LeftAt        *time.Time      `json:"left_at,omitempty"`
}

// ToMembershipResponse converts a domain membership to a response DTO
func ToMembershipResponse(m *grouping.Membership) MembershipResponse {
	return MembershipResponse{
		ID:            m.ID,
		GroupID:       m.GroupID,
		WorkerID:      m.WorkerID,
		Role:          m.Role,
		Weight:        m.Weight,
		CustomPercent: m.CustomPercent,
		HoursWorked:   m.HoursWorked,
		Status:        m.Status.String(),
		RequestedAt:   m.RequestedAt,
		JoinedAt:      m.JoinedAt,
		LeftAt:        m.LeftAt,
	}
}

// GroupResponse represents a tip group in API responses
type GroupResponse struct {
	ID            uuid.UUID            `json:"id"`
	LocationID    uuid.UUID            `json:"location_id"`
	Name          string               `json:"name"`
	OwnerWorkerID uuid.UUID            `json:"owner_worker_id"`
	SplitMode     string               `json:"split_mode"`
	Status        string               `json:"status"`
	OpenedAt      time.Time            `json:"opened_at"`
	ClosedAt      *time.Time           `json:"closed_at,omitempty"`
	Members       []MembershipResponse `json:"members,omitempty"`
}

// ToGroupResponse converts a domain group to a response DTO
func ToGroupResponse(g *grouping.TipGroup) GroupResponse {
	return GroupResponse{
		ID:            g.ID,
		LocationID:    g.LocationID,
		Name:          g.Name,
		OwnerWorkerID: g.OwnerWorkerID,
		SplitMode:     g.SplitMode.String(),
		Status:        g.Status.String(),
		OpenedAt:      g.OpenedAt,
		ClosedAt:      g.ClosedAt,
	}
}

// SegmentResponse represents one timeline segment
type SegmentResponse struct {
	ID           uuid.UUID                    `json:"id"`
	GroupID      uuid.UUID                    `json:"group_id"`
	SplitMode    string                       `json:"split_mode"`
	Participants grouping.SegmentParticipants `json:"participants"`
	StartsAt     time.Time                    `json:"starts_at"`
	EndsAt       *time.Time                   `json:"ends_at,omitempty"`
}

// ToSegmentResponse converts a domain segment to a response DTO
func ToSegmentResponse(s *grouping.Segment) SegmentResponse {
	return SegmentResponse{
		ID:           s.ID,
		GroupID:      s.GroupID,
		SplitMode:    s.SplitMode.String(),
		Participants: s.Participants,
		StartsAt:     s.StartsAt,
		EndsAt:       s.EndsAt,
	}
}

// ShareResponse is one worker's credited portion of an allocation
type ShareResponse struct {
	WorkerID uuid.UUID       `json:"worker_id"`
	Amount   decimal.Decimal `json:"amount"`
	EntryID  uuid.UUID       `json:"entry_id"`
}

// AnomalyResponse represents an allocation anomaly
type AnomalyResponse struct {
	ID               uuid.UUID       `json:"id"`
	GroupID          uuid.UUID       `json:"group_id"`
	PaymentReference string          `json:"payment_reference"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason"`
	FallbackWorkerID uuid.UUID       `json:"fallback_worker_id"`
	Resolved         bool            `json:"resolved"`
	Note             string          `json:"note,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToAnomalyResponse converts a domain anomaly to a response DTO
func ToAnomalyResponse(a *grouping.AllocationAnomaly) AnomalyResponse {
	return AnomalyResponse{
		ID:               a.ID,
		GroupID:          a.GroupID,
		PaymentReference: a.PaymentReference,
		Amount:           a.Amount,
		Reason:           a.Reason.String(),
		FallbackWorkerID: a.FallbackWorkerID,
		Resolved:         a.Resolved,
		Note:             a.Note,
		CreatedAt:        a.CreatedAt,
	}
}

// AllocationResponse is the outcome of allocating one payment
type AllocationResponse struct {
	PaymentReference string    `json:"payment_reference"`
	WorkerID         uuid.UUID `json:"worker_id"`
	// GroupID is nil when the paying worker was outside any group
	GroupID   *uuid.UUID       `json:"group_id,omitempty"`
	Amount    decimal.Decimal  `json:"amount"`
	SegmentID *uuid.UUID       `json:"segment_id,omitempty"`
	Shares    []ShareResponse  `json:"shares"`
	Anomaly   *AnomalyResponse `json:"anomaly,omitempty"`
	// Duplicate is true when this payment reference was already allocated
	Duplicate bool `json:"duplicate,omitempty"`
}

// SegmentEarningsResponse is the per-worker credit breakdown for one segment
type SegmentEarningsResponse struct {
	Segment  SegmentResponse  `json:"segment"`
	Earnings []WorkerEarnings `json:"earnings"`
	Total    decimal.Decimal  `json:"total"`
}

// WorkerEarnings is one worker's total inside a segment
type WorkerEarnings struct {
	WorkerID uuid.UUID       `json:"worker_id"`
	Total    decimal.Decimal `json:"total"`
	Entries  int64           `json:"entries"`
}

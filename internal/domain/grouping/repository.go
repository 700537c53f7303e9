package grouping

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/shared"
)

// TipGroupRepository persists tip groups
type TipGroupRepository interface {
	shared.LocationRepository[TipGroup]
	// FindByIDForUpdate loads a group under a row lock so concurrent
	// membership changes and allocations against the same group serialize.
	// Only meaningful inside a transaction scope.
	FindByIDForUpdate(ctx context.Context, locationID, id uuid.UUID) (*TipGroup, error)
	FindOpenForLocation(ctx context.Context, locationID uuid.UUID) ([]TipGroup, error)
}

// MembershipRepository persists group memberships
type MembershipRepository interface {
	Save(ctx context.Context, m *Membership) error
	FindByID(ctx context.Context, locationID, id uuid.UUID) (*Membership, error)
	FindByGroup(ctx context.Context, locationID, groupID uuid.UUID) ([]Membership, error)
	FindActiveByGroup(ctx context.Context, locationID, groupID uuid.UUID) ([]Membership, error)
	FindActiveByWorker(ctx context.Context, locationID, workerID uuid.UUID) (*Membership, error)
	FindPending(ctx context.Context, locationID, groupID uuid.UUID) ([]Membership, error)
}

// ActiveMembershipRepository maintains the one-group-per-worker index
type ActiveMembershipRepository interface {
	// Insert adds an index row. A unique violation on (location, worker)
	// surfaces as shared.ErrAlreadyInGroup.
	Insert(ctx context.Context, am *ActiveMembership) error
	Remove(ctx context.Context, locationID, workerID uuid.UUID) error
	RemoveByGroup(ctx context.Context, locationID, groupID uuid.UUID) error
	FindByWorker(ctx context.Context, locationID, workerID uuid.UUID) (*ActiveMembership, error)
}

// SegmentRepository persists the membership timeline
type SegmentRepository interface {
	Create(ctx context.Context, segment *Segment) error
	Save(ctx context.Context, segment *Segment) error
	FindByID(ctx context.Context, locationID, id uuid.UUID) (*Segment, error)
	FindByGroup(ctx context.Context, locationID, groupID uuid.UUID) ([]Segment, error)
	// FindOpen returns the single open segment of a group, or nil when the
	// group is closed
	FindOpen(ctx context.Context, locationID, groupID uuid.UUID) (*Segment, error)
	// FindAt returns the segment whose interval covers the instant, or nil
	FindAt(ctx context.Context, locationID, groupID uuid.UUID, at time.Time) (*Segment, error)
}

// AnomalyRepository persists allocation anomalies
type AnomalyRepository interface {
	Create(ctx context.Context, anomaly *AllocationAnomaly) error
	Save(ctx context.Context, anomaly *AllocationAnomaly) error
	FindByID(ctx context.Context, locationID, id uuid.UUID) (*AllocationAnomaly, error)
	FindForLocation(ctx context.Context, locationID uuid.UUID, unresolvedOnly bool, filter shared.Filter) ([]AllocationAnomaly, int64, error)
}

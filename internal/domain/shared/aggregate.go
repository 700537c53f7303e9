package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is implemented by every aggregate. Domain events raised
// during a state change stay buffered on the aggregate until the
// application layer publishes them after commit.
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot carries the version counter and event buffer.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`
}

// GetVersion returns the version used for optimistic locking.
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion bumps the version. Repositories compare it against the
// stored row on save.
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent buffers an event for publication after the aggregate is
// persisted.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the buffered events.
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops the buffer, called once the events are published.
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot starts an aggregate at version 1 with no pending
// events.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// LocationAggregateRoot extends BaseAggregateRoot with restaurant-location
// scoping. Every aggregate in the engine belongs to exactly one location.
type LocationAggregateRoot struct {
	BaseAggregateRoot
	LocationID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// NewLocationAggregateRoot creates an aggregate root bound to one location.
func NewLocationAggregateRoot(locationID uuid.UUID) LocationAggregateRoot {
	return LocationAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		LocationID:        locationID,
	}
}

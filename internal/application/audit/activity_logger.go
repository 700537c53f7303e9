package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/tippool/backend/internal/domain/shared"
)

// ActivityLogger subscribes to every domain event and writes a structured
// activity trail. It is the default sink for the event bus so ledger and
// grouping activity stays observable even with no other subscribers.
type ActivityLogger struct {
	logger *zap.Logger
}

var _ shared.EventHandler = (*ActivityLogger)(nil)

func NewActivityLogger(logger *zap.Logger) *ActivityLogger {
	return &ActivityLogger{logger: logger}
}

// EventTypes returns nil, which registers the handler as a wildcard.
func (l *ActivityLogger) EventTypes() []string {
	return nil
}

// Handle records the event in the activity trail. It never fails.
func (l *ActivityLogger) Handle(ctx context.Context, event shared.DomainEvent) error {
	l.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("location_id", event.LocationID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

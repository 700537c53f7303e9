package tipout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/shared"
)

// TipOutRuleRepository persists tip-out rules
type TipOutRuleRepository interface {
	shared.LocationRepository[TipOutRule]
	// FindApplicable returns enabled rules whose effective window covers the
	// instant
	FindApplicable(ctx context.Context, locationID uuid.UUID, at time.Time) ([]TipOutRule, error)
}

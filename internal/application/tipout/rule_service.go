package tipout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
	"github.com/tippool/backend/internal/domain/tipout"
)

// RuleService manages the tip-out rule catalog of a location
type RuleService struct {
	ruleRepo tipout.TipOutRuleRepository
}

// NewRuleService creates a new RuleService
func NewRuleService(ruleRepo tipout.TipOutRuleRepository) *RuleService {
	return &RuleService{ruleRepo: ruleRepo}
}

// CreateRule creates a tip-out rule
func (s *RuleService) CreateRule(ctx context.Context, locationID uuid.UUID, req CreateRuleRequest) (*RuleResponse, error) {
	rule, err := tipout.NewTipOutRule(
		locationID,
		req.Name,
		req.SourceRole,
		req.RecipientRole,
		tipout.BasisType(req.Basis),
		req.Percent,
		req.EffectiveFrom,
	)
	if err != nil {
		return nil, err
	}
	if req.CapPercent != nil {
		if _, err := rule.WithCap(*req.CapPercent); err != nil {
			return nil, err
		}
	}
	if req.EffectiveTo != nil {
		if _, err := rule.WithEffectiveTo(*req.EffectiveTo); err != nil {
			return nil, err
		}
	}
	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}
	return ToRuleResponse(rule), nil
}

// GetRule returns a rule by ID
func (s *RuleService) GetRule(ctx context.Context, locationID, ruleID uuid.UUID) (*RuleResponse, error) {
	rule, err := s.ruleRepo.FindByIDForLocation(ctx, locationID, ruleID)
	if err != nil {
		return nil, err
	}
	return ToRuleResponse(rule), nil
}

// ListRules returns the location's rules, enabled and disabled alike
func (s *RuleService) ListRules(ctx context.Context, locationID uuid.UUID, filter shared.Filter) (*shared.Paginated[RuleResponse], error) {
	rules, err := s.ruleRepo.FindAllForLocation(ctx, locationID, filter)
	if err != nil {
		return nil, err
	}
	if filter.Filters == nil {
		filter.Filters = make(map[string]interface{})
	}
	filter.Filters["location_id"] = locationID
	total, err := s.ruleRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]RuleResponse, len(rules))
	for i := range rules {
		items[i] = *ToRuleResponse(&rules[i])
	}
	result := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &result, nil
}

// UpdateRule applies a partial update to a rule. Percent and cap changes take
// effect from the next shift close; entries already posted are untouched.
func (s *RuleService) UpdateRule(ctx context.Context, locationID, ruleID uuid.UUID, req UpdateRuleRequest) (*RuleResponse, error) {
	rule, err := s.ruleRepo.FindByIDForLocation(ctx, locationID, ruleID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Percent != nil {
		if !req.Percent.IsPositive() || req.Percent.GreaterThan(decimal.NewFromInt(100)) {
			return nil, shared.NewDomainError("INVALID_PERCENT", "Percent must be between 0 exclusive and 100 inclusive")
		}
		rule.Percent = *req.Percent
	}
	if req.CapPercent != nil {
		if _, err := rule.WithCap(*req.CapPercent); err != nil {
			return nil, err
		}
	}
	if req.Enabled != nil {
		if *req.Enabled {
			rule.Enable()
		} else {
			rule.Disable()
		}
	}
	rule.UpdateTimestamp()

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}
	return ToRuleResponse(rule), nil
}

// ExpireRule closes the rule's effective window at the given instant, or now
// when the instant is zero. Expired rules keep their posting history.
func (s *RuleService) ExpireRule(ctx context.Context, locationID, ruleID uuid.UUID, at time.Time) (*RuleResponse, error) {
	rule, err := s.ruleRepo.FindByIDForLocation(ctx, locationID, ruleID)
	if err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = time.Now()
	}
	if _, err := rule.WithEffectiveTo(at); err != nil {
		return nil, err
	}
	rule.UpdateTimestamp()
	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}
	return ToRuleResponse(rule), nil
}

// DeleteRule removes a rule. Entries it produced remain on the ledger.
func (s *RuleService) DeleteRule(ctx context.Context, locationID, ruleID uuid.UUID) error {
	if _, err := s.ruleRepo.FindByIDForLocation(ctx, locationID, ruleID); err != nil {
		return err
	}
	return s.ruleRepo.Delete(ctx, ruleID)
}

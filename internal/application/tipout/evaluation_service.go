package tipout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/ledger"
	"github.com/tippool/backend/internal/domain/shared"
	"github.com/tippool/backend/internal/domain/tipout"
)

// EvaluationService runs the location's tip-out rules against a closed shift
// and posts the resulting redistributions to the ledger. The POS reports raw
// sales figures only; amounts are always recomputed here against the rules in
// force at close time.
type EvaluationService struct {
	scope       TransactionScope
	idempotency shared.IdempotencyStore
	publisher   shared.EventPublisher
	guardTTL    time.Duration
}

// NewEvaluationService creates a new EvaluationService
func NewEvaluationService(
	scope TransactionScope,
	idempotency shared.IdempotencyStore,
	publisher shared.EventPublisher,
	guardTTL time.Duration,
) *EvaluationService {
	if guardTTL <= 0 {
		guardTTL = shared.DefaultIdempotencyConfig().TTL
	}
	return &EvaluationService{
		scope:       scope,
		idempotency: idempotency,
		publisher:   publisher,
		guardTTL:    guardTTL,
	}
}

func shiftGuardKey(locationID uuid.UUID, shiftReference string) string {
	return fmt.Sprintf("tipout:shift:%s:%s", locationID, shiftReference)
}

// ComputePayouts evaluates every applicable rule for a closed shift and posts
// the paired debits and credits in one transaction. A shift-level guard makes
// redelivered close events no-ops; a failed evaluation releases the guard so
// the shift can be retried. Per-entry source references keep replays harmless
// even if the guard expires.
func (s *EvaluationService) ComputePayouts(ctx context.Context, locationID uuid.UUID, req ShiftClosedRequest) (*ShiftCloseResponse, error) {
	response := &ShiftCloseResponse{ShiftReference: req.ShiftReference}

	fresh, err := s.idempotency.MarkProcessed(ctx, shiftGuardKey(locationID, req.ShiftReference), s.guardTTL)
	if err != nil {
		return nil, err
	}
	if !fresh {
		response.Duplicate = true
		return response, nil
	}

	var applied []*tipout.TipOutResult
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		rules, err := repos.RuleRepo().FindApplicable(ctx, locationID, req.ClosedAt)
		if err != nil {
			return err
		}

		for i := range rules {
			rule := &rules[i]
			snapshot := buildSnapshot(locationID, rule, req)
			result, err := tipout.EvaluateRule(rule, snapshot)
			if err != nil {
				return err
			}
			if result == nil {
				continue
			}

			posting, err := postResult(ctx, repos, locationID, rule, result, req.ClosedAt)
			if err != nil {
				return err
			}
			response.Postings = append(response.Postings, *posting)
			applied = append(applied, result)
		}
		return nil
	})
	if err != nil {
		if releaseErr := s.idempotency.Release(ctx, shiftGuardKey(locationID, req.ShiftReference)); releaseErr != nil {
			return nil, fmt.Errorf("evaluation failed and guard release failed: %w", err)
		}
		return nil, err
	}

	if s.publisher != nil {
		for _, result := range applied {
			_ = s.publisher.Publish(ctx, tipout.NewTipOutAppliedEvent(locationID, result))
		}
	}
	return response, nil
}

// buildSnapshot narrows the shift roster to one rule's source and recipient
// roles
func buildSnapshot(locationID uuid.UUID, rule *tipout.TipOutRule, req ShiftClosedRequest) *tipout.ShiftSalesSnapshot {
	snapshot := &tipout.ShiftSalesSnapshot{
		LocationID:     locationID,
		ShiftReference: req.ShiftReference,
		ClosedAt:       req.ClosedAt,
		TotalSales:     req.TotalSales,
		FoodSales:      req.FoodSales,
		BarSales:       req.BarSales,
		NetSales:       req.NetSales,
	}
	for _, w := range req.Workers {
		switch w.Role {
		case rule.SourceRole:
			snapshot.SourceWorkers = append(snapshot.SourceWorkers, tipout.WorkerTips{WorkerID: w.WorkerID, TipsEarned: w.TipsEarned})
		case rule.RecipientRole:
			snapshot.RecipientWorkers = append(snapshot.RecipientWorkers, w.WorkerID)
		}
	}
	return snapshot
}

// postResult writes one rule's debits and credits to the ledger. Tip-out
// debits bypass the negative-balance policy: the redistribution must conserve
// exactly, and a source worker whose cached balance cannot cover the charge
// simply goes negative until the next allocation.
func postResult(
	ctx context.Context,
	repos TransactionalRepositories,
	locationID uuid.UUID,
	rule *tipout.TipOutRule,
	result *tipout.TipOutResult,
	occurredAt time.Time,
) (*RulePostingResponse, error) {
	posting := &RulePostingResponse{
		RuleID:      result.RuleID,
		RuleName:    result.RuleName,
		BasisAmount: result.BasisAmount,
		GrossAmount: result.GrossAmount,
		Amount:      result.Amount,
		WasCapped:   result.WasCapped,
	}

	var entries []*ledger.LedgerEntry
	for _, c := range result.Debits {
		if c.Amount.IsZero() {
			continue
		}
		entry, err := ledger.NewLedgerEntry(
			locationID, c.WorkerID, ledger.DirectionDebit, c.Amount,
			ledger.SourceTypeTipOut, tipOutReference(result, c.WorkerID), occurredAt,
		)
		if err != nil {
			return nil, err
		}
		entry.WithMemo(rule.Name)
		if result.WasCapped {
			entry.WithCapped()
		}
		entries = append(entries, entry)
		posting.Debits = append(posting.Debits, ContributionResponse{WorkerID: c.WorkerID, Amount: c.Amount, EntryID: entry.ID})
	}
	for _, c := range result.Credits {
		if c.Amount.IsZero() {
			continue
		}
		entry, err := ledger.NewLedgerEntry(
			locationID, c.WorkerID, ledger.DirectionCredit, c.Amount,
			ledger.SourceTypeTipOut, tipOutReference(result, c.WorkerID), occurredAt,
		)
		if err != nil {
			return nil, err
		}
		entry.WithMemo(rule.Name)
		if result.WasCapped {
			entry.WithCapped()
		}
		entries = append(entries, entry)
		posting.Credits = append(posting.Credits, ContributionResponse{WorkerID: c.WorkerID, Amount: c.Amount, EntryID: entry.ID})
	}

	if err := repos.EntryRepo().CreateBatch(ctx, entries); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if err := repos.BalanceRepo().ApplyDelta(ctx, locationID, entry.WorkerID, entry.SignedAmount(), true); err != nil {
			return nil, err
		}
	}
	return posting, nil
}

func tipOutReference(result *tipout.TipOutResult, workerID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", result.ShiftReference, result.RuleID, workerID)
}

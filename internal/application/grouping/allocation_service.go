package grouping

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/grouping"
	"github.com/tippool/backend/internal/domain/ledger"
	"github.com/tippool/backend/internal/domain/shared"
)

// AllocationService resolves captured payments into per-worker ledger
// credits. The group row is locked for the duration of the allocation so a
// concurrent membership change either lands before the split (and is seen) or
// after it (and is not), never halfway.
type AllocationService struct {
	scope          TransactionScope
	anomalyRepo    grouping.AnomalyRepository
	publisher      shared.EventPublisher
	splitTolerance decimal.Decimal
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	scope TransactionScope,
	anomalyRepo grouping.AnomalyRepository,
	publisher shared.EventPublisher,
	splitTolerance decimal.Decimal,
) *AllocationService {
	return &AllocationService{
		scope:          scope,
		anomalyRepo:    anomalyRepo,
		publisher:      publisher,
		splitTolerance: splitTolerance,
	}
}

// AllocateForPayment splits one captured payment's tip among the workers of
// the segment covering the payment instant and posts a credit per worker. The
// payment is keyed on the worker who took it: their active group receives the
// split, and a worker outside any group keeps the whole tip as a direct
// credit. The whole allocation commits atomically; replaying a payment
// reference returns the original shares. Payments no segment can serve are
// credited back to the paying worker and recorded as anomalies so the money
// is never dropped.
func (s *AllocationService) AllocateForPayment(ctx context.Context, locationID uuid.UUID, req AllocateRequest) (*AllocationResponse, error) {
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}

	response := &AllocationResponse{
		PaymentReference: req.PaymentReference,
		WorkerID:         req.WorkerID,
		Amount:           req.Amount,
	}

	var (
		anomaly *grouping.AllocationAnomaly
		posted  []*ledger.LedgerEntry
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.EntryRepo().FindByAllocation(ctx, locationID, req.PaymentReference)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			response.Duplicate = true
			for i := range existing {
				e := &existing[i]
				response.Shares = append(response.Shares, ShareResponse{WorkerID: e.WorkerID, Amount: e.Amount, EntryID: e.ID})
				if response.GroupID == nil {
					response.GroupID = e.GroupID
				}
				if response.SegmentID == nil {
					response.SegmentID = e.SegmentID
				}
			}
			return nil
		}

		index, err := repos.ActiveMembershipRepo().FindByWorker(ctx, locationID, req.WorkerID)
		if err != nil {
			return err
		}
		if index == nil {
			entry, err := s.creditWorker(ctx, repos, locationID, req.WorkerID, req, nil, nil, "")
			if err != nil {
				return err
			}
			posted = append(posted, entry)
			response.Shares = append(response.Shares, ShareResponse{WorkerID: entry.WorkerID, Amount: entry.Amount, EntryID: entry.ID})
			return nil
		}

		group, err := repos.GroupRepo().FindByIDForUpdate(ctx, locationID, index.GroupID)
		if err != nil {
			return err
		}
		response.GroupID = &group.ID

		segment, err := repos.SegmentRepo().FindAt(ctx, locationID, group.ID, req.OccurredAt)
		if err != nil {
			return err
		}

		var reason grouping.AnomalyReason
		switch {
		case segment == nil && !group.IsOpen() && group.ClosedAt != nil && !req.OccurredAt.Before(*group.ClosedAt):
			reason = grouping.AnomalyGroupClosed
		case segment == nil:
			reason = grouping.AnomalyNoSegment
		case segment.IsEmpty():
			reason = grouping.AnomalyEmptySegment
		}

		if reason != "" {
			anomaly = grouping.NewAllocationAnomaly(locationID, group.ID, req.PaymentReference, req.Amount, reason, req.WorkerID)
			if err := repos.AnomalyRepo().Create(ctx, anomaly); err != nil {
				return err
			}

			var segmentID *uuid.UUID
			if segment != nil {
				segmentID = &segment.ID
			}
			entry, err := s.creditWorker(ctx, repos, locationID, req.WorkerID, req, &group.ID, segmentID, "fallback credit: "+reason.String())
			if err != nil {
				return err
			}
			posted = append(posted, entry)
			response.Shares = append(response.Shares, ShareResponse{WorkerID: entry.WorkerID, Amount: entry.Amount, EntryID: entry.ID})
			return nil
		}

		shares, err := grouping.ComputeSplit(segment.SplitMode, segment.Participants, req.Amount, s.splitTolerance)
		if err != nil {
			return err
		}

		response.SegmentID = &segment.ID
		for _, share := range shares {
			if share.Amount.IsZero() {
				continue
			}
			entry, err := ledger.NewLedgerEntry(
				locationID, share.WorkerID,
				ledger.DirectionCredit, share.Amount,
				ledger.SourceTypePaymentAllocation,
				req.PaymentReference+":"+share.WorkerID.String(),
				req.OccurredAt,
			)
			if err != nil {
				return err
			}
			entry.WithGroup(group.ID, segment.ID)
			posted = append(posted, entry)
		}
		if err := repos.EntryRepo().CreateBatch(ctx, posted); err != nil {
			return err
		}
		for _, entry := range posted {
			if err := repos.BalanceRepo().ApplyDelta(ctx, locationID, entry.WorkerID, entry.Amount, true); err != nil {
				return err
			}
			response.Shares = append(response.Shares, ShareResponse{WorkerID: entry.WorkerID, Amount: entry.Amount, EntryID: entry.ID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil && !response.Duplicate {
		if anomaly != nil {
			_ = s.publisher.Publish(ctx, grouping.NewAnomalyRecordedEvent(anomaly))
		} else if response.SegmentID != nil && response.GroupID != nil {
			_ = s.publisher.Publish(ctx, grouping.NewPaymentAllocatedEvent(locationID, *response.GroupID, *response.SegmentID, req.PaymentReference, req.Amount, len(response.Shares)))
		}
	}
	if anomaly != nil {
		a := ToAnomalyResponse(anomaly)
		response.Anomaly = &a
	}
	return response, nil
}

// creditWorker posts the full payment amount to one worker and applies the
// balance delta. Used for workers outside any group and for anomaly
// fallbacks.
func (s *AllocationService) creditWorker(
	ctx context.Context,
	repos TransactionalRepositories,
	locationID, workerID uuid.UUID,
	req AllocateRequest,
	groupID, segmentID *uuid.UUID,
	memo string,
) (*ledger.LedgerEntry, error) {
	entry, err := ledger.NewLedgerEntry(
		locationID, workerID,
		ledger.DirectionCredit, req.Amount,
		ledger.SourceTypePaymentAllocation,
		req.PaymentReference+":"+workerID.String(),
		req.OccurredAt,
	)
	if err != nil {
		return nil, err
	}
	entry.GroupID = groupID
	entry.SegmentID = segmentID
	if memo != "" {
		entry.WithMemo(memo)
	}
	if err := repos.EntryRepo().Create(ctx, entry); err != nil {
		return nil, err
	}
	if err := repos.BalanceRepo().ApplyDelta(ctx, locationID, workerID, entry.Amount, true); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListAnomalies pages through a location's allocation anomalies
func (s *AllocationService) ListAnomalies(ctx context.Context, locationID uuid.UUID, unresolvedOnly bool, filter shared.Filter) (*shared.Paginated[AnomalyResponse], error) {
	anomalies, total, err := s.anomalyRepo.FindForLocation(ctx, locationID, unresolvedOnly, filter)
	if err != nil {
		return nil, err
	}
	items := make([]AnomalyResponse, len(anomalies))
	for i := range anomalies {
		items[i] = ToAnomalyResponse(&anomalies[i])
	}
	result := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &result, nil
}

// ResolveAnomaly marks an anomaly as reviewed
func (s *AllocationService) ResolveAnomaly(ctx context.Context, locationID, anomalyID uuid.UUID, note string) (*AnomalyResponse, error) {
	anomaly, err := s.anomalyRepo.FindByID(ctx, locationID, anomalyID)
	if err != nil {
		return nil, err
	}
	anomaly.Resolve(note)
	if err := s.anomalyRepo.Save(ctx, anomaly); err != nil {
		return nil, err
	}
	response := ToAnomalyResponse(anomaly)
	return &response, nil
}

package grouping

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/grouping"
	"github.com/tippool/backend/internal/domain/ledger"
)

// EarningsService reports what each worker earned per timeline segment,
// derived entirely from the ledger entries the allocator tagged with segment
// IDs
type EarningsService struct {
	entryRepo   ledger.LedgerEntryRepository
	segmentRepo grouping.SegmentRepository
}

// NewEarningsService creates a new EarningsService
func NewEarningsService(entryRepo ledger.LedgerEntryRepository, segmentRepo grouping.SegmentRepository) *EarningsService {
	return &EarningsService{entryRepo: entryRepo, segmentRepo: segmentRepo}
}

// GroupEarnings returns the per-worker earnings breakdown for every segment
// of a group, in timeline order. Segments that received no allocations appear
// with an empty earnings list.
func (s *EarningsService) GroupEarnings(ctx context.Context, locationID, groupID uuid.UUID) ([]SegmentEarningsResponse, error) {
	segments, err := s.segmentRepo.FindByGroup(ctx, locationID, groupID)
	if err != nil {
		return nil, err
	}
	earnings, err := s.entryRepo.SumByGroupSegments(ctx, locationID, groupID)
	if err != nil {
		return nil, err
	}

	bySegment := make(map[uuid.UUID][]WorkerEarnings)
	for _, e := range earnings {
		bySegment[e.SegmentID] = append(bySegment[e.SegmentID], WorkerEarnings{
			WorkerID: e.WorkerID,
			Total:    e.Total,
			Entries:  e.Entries,
		})
	}

	out := make([]SegmentEarningsResponse, len(segments))
	for i := range segments {
		segment := &segments[i]
		workers := bySegment[segment.ID]
		total := decimal.Zero
		for _, w := range workers {
			total = total.Add(w.Total)
		}
		out[i] = SegmentEarningsResponse{
			Segment:  ToSegmentResponse(segment),
			Earnings: workers,
			Total:    total,
		}
	}
	return out, nil
}

package grouping

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
)

var oneHundred = decimal.NewFromInt(100)

// SplitShare is one worker's portion of an allocated amount
type SplitShare struct {
	WorkerID uuid.UUID
	Amount   decimal.Decimal
	IsOwner  bool
}

// ValidateCustomPercents verifies that explicit percentages sum to 100 within
// the configured tolerance
func ValidateCustomPercents(participants SegmentParticipants, tolerance decimal.Decimal) error {
	sum := decimal.Zero
	for _, p := range participants {
		if p.Percent.IsNegative() {
			return shared.ErrInvalidSplit
		}
		sum = sum.Add(p.Percent)
	}
	if sum.Sub(oneHundred).Abs().GreaterThan(tolerance) {
		return shared.ErrInvalidSplit
	}
	return nil
}

// ComputeSplit divides an amount among segment participants according to the
// segment's split mode. Shares are computed at cent resolution by flooring
// each raw share; leftover cents go to the owner so the shares always sum to
// the allocated amount exactly. When the owner is absent from the segment the
// first participant absorbs the remainder instead.
func ComputeSplit(mode SplitMode, participants SegmentParticipants, amount decimal.Decimal, customTolerance decimal.Decimal) ([]SplitShare, error) {
	if len(participants) == 0 {
		return nil, shared.NewDomainError("EMPTY_SEGMENT", "Segment has no participants to split among")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Cannot split a negative amount")
	}

	cents := amount.Shift(2).Round(0).IntPart()

	var weights []decimal.Decimal
	switch mode {
	case SplitModeEqual:
		weights = make([]decimal.Decimal, len(participants))
		for i := range weights {
			weights[i] = decimal.NewFromInt(1)
		}
	case SplitModeCustom:
		if err := ValidateCustomPercents(participants, customTolerance); err != nil {
			return nil, err
		}
		weights = make([]decimal.Decimal, len(participants))
		for i, p := range participants {
			weights[i] = p.Percent
		}
	case SplitModeRoleWeighted:
		weights = make([]decimal.Decimal, len(participants))
		for i, p := range participants {
			weights[i] = p.Weight
		}
	case SplitModeHoursWeighted:
		weights = make([]decimal.Decimal, len(participants))
		for i, p := range participants {
			weights[i] = p.Hours
		}
	default:
		return nil, shared.NewDomainError("INVALID_SPLIT_MODE", "Unknown split mode")
	}

	total := decimal.Zero
	for _, w := range weights {
		if w.IsNegative() {
			return nil, shared.ErrInvalidSplit
		}
		total = total.Add(w)
	}
	// A weighted segment where nobody has weight yet (all hours zero at the
	// start of a shift) falls back to an even split.
	if total.IsZero() {
		for i := range weights {
			weights[i] = decimal.NewFromInt(1)
		}
		total = decimal.NewFromInt(int64(len(participants)))
	}

	shares := make([]SplitShare, len(participants))
	allocated := int64(0)
	ownerIdx := 0
	for i, p := range participants {
		if p.IsOwner {
			ownerIdx = i
		}
		shareCents := decimal.NewFromInt(cents).Mul(weights[i]).Div(total).Floor().IntPart()
		allocated += shareCents
		shares[i] = SplitShare{
			WorkerID: p.WorkerID,
			Amount:   decimal.New(shareCents, -2),
			IsOwner:  p.IsOwner,
		}
	}

	remainder := cents - allocated
	if remainder > 0 {
		shares[ownerIdx].Amount = shares[ownerIdx].Amount.Add(decimal.New(remainder, -2))
	}

	return shares, nil
}

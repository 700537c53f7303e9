package tipout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tippool/backend/internal/domain/shared"
)

// Contribution is one worker's signed part of a tip-out result
type Contribution struct {
	WorkerID uuid.UUID       `json:"worker_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// TipOutResult is the computed redistribution for one rule over one shift.
// Debits and credits each sum to Amount exactly.
type TipOutResult struct {
	RuleID         uuid.UUID       `json:"rule_id"`
	RuleName       string          `json:"rule_name"`
	ShiftReference string          `json:"shift_reference"`
	BasisAmount    decimal.Decimal `json:"basis_amount"`
	GrossAmount    decimal.Decimal `json:"gross_amount"`
	Amount         decimal.Decimal `json:"amount"`
	WasCapped      bool            `json:"was_capped"`
	Debits         []Contribution  `json:"debits"`
	Credits        []Contribution  `json:"credits"`
}

// EvaluateRule computes one rule's redistribution for a closed shift. The
// amount is the rule's percentage of its basis; when the rule carries a cap
// it is clamped at CapPercent of the tips the source workers earned.
// Source workers owe shares proportional to the tips they earned, with the
// rounding remainder charged to the largest earner; when nobody earned tips
// the charge splits evenly. Recipients split the amount evenly with the
// remainder going to the first recipient.
//
// A shift where either roster is empty, or where the computed amount rounds
// to zero, produces a nil result and no error: there is nothing to post.
func EvaluateRule(rule *TipOutRule, snapshot *ShiftSalesSnapshot) (*TipOutResult, error) {
	if !rule.AppliesAt(snapshot.ClosedAt) {
		return nil, nil
	}
	if len(snapshot.SourceWorkers) == 0 || len(snapshot.RecipientWorkers) == 0 {
		return nil, nil
	}

	basis, err := rule.BasisAmount(snapshot)
	if err != nil {
		return nil, err
	}
	if basis.IsNegative() {
		return nil, shared.NewDomainError("INVALID_BASIS", "Basis amount cannot be negative")
	}

	gross := basis.Mul(rule.Percent).Div(decimal.NewFromInt(100)).Round(2)
	amount := gross
	capped := false
	if rule.CapPercent != nil {
		cap := snapshot.SourceTipsTotal().Mul(*rule.CapPercent).Div(decimal.NewFromInt(100)).Round(2)
		if amount.GreaterThan(cap) {
			amount = cap
			capped = true
		}
	}
	if !amount.IsPositive() {
		return nil, nil
	}

	debits := apportionDebits(snapshot.SourceWorkers, amount)
	credits := apportionCredits(snapshot.RecipientWorkers, amount)

	return &TipOutResult{
		RuleID:         rule.ID,
		RuleName:       rule.Name,
		ShiftReference: snapshot.ShiftReference,
		BasisAmount:    basis,
		GrossAmount:    gross,
		Amount:         amount,
		WasCapped:      capped,
		Debits:         debits,
		Credits:        credits,
	}, nil
}

func apportionDebits(sources []WorkerTips, amount decimal.Decimal) []Contribution {
	cents := amount.Shift(2).Round(0).IntPart()

	totalTips := decimal.Zero
	for _, w := range sources {
		totalTips = totalTips.Add(w.TipsEarned)
	}

	debits := make([]Contribution, len(sources))
	allocated := int64(0)
	largestIdx := 0
	for i, w := range sources {
		var shareCents int64
		if totalTips.IsPositive() {
			shareCents = decimal.NewFromInt(cents).Mul(w.TipsEarned).Div(totalTips).Floor().IntPart()
		} else {
			shareCents = cents / int64(len(sources))
		}
		if w.TipsEarned.GreaterThan(sources[largestIdx].TipsEarned) {
			largestIdx = i
		}
		allocated += shareCents
		debits[i] = Contribution{WorkerID: w.WorkerID, Amount: decimal.New(shareCents, -2)}
	}

	if remainder := cents - allocated; remainder > 0 {
		debits[largestIdx].Amount = debits[largestIdx].Amount.Add(decimal.New(remainder, -2))
	}
	return debits
}

func apportionCredits(recipients []uuid.UUID, amount decimal.Decimal) []Contribution {
	cents := amount.Shift(2).Round(0).IntPart()
	per := cents / int64(len(recipients))
	remainder := cents - per*int64(len(recipients))

	credits := make([]Contribution, len(recipients))
	for i, workerID := range recipients {
		share := per
		if i == 0 {
			share += remainder
		}
		credits[i] = Contribution{WorkerID: workerID, Amount: decimal.New(share, -2)}
	}
	return credits
}

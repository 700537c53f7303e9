package tipout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkerTips is one source-role worker's tip earnings for the shift
type WorkerTips struct {
	WorkerID   uuid.UUID       `json:"worker_id"`
	TipsEarned decimal.Decimal `json:"tips_earned"`
}

// ShiftSalesSnapshot carries the sales figures and participant rosters a
// shift-close event brings in. Evaluation reads it, never stores it; the
// ledger entries it produces are the durable record.
type ShiftSalesSnapshot struct {
	LocationID     uuid.UUID
	ShiftReference string
	ClosedAt       time.Time
	TotalSales     decimal.Decimal
	FoodSales      decimal.Decimal
	BarSales       decimal.Decimal
	NetSales       decimal.Decimal
	// SourceWorkers are the workers in the rule's source role with the tips
	// they earned this shift
	SourceWorkers []WorkerTips
	// RecipientWorkers are the workers in the rule's recipient role
	RecipientWorkers []uuid.UUID
}

// SourceTipsTotal sums the tips earned across source-role workers
func (s *ShiftSalesSnapshot) SourceTipsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, w := range s.SourceWorkers {
		total = total.Add(w.TipsEarned)
	}
	return total
}

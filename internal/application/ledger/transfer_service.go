package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tippool/backend/internal/domain/ledger"
	"github.com/tippool/backend/internal/domain/shared"
)

// TransferService handles worker-to-worker transfers and payouts
type TransferService struct {
	scope                TransactionScope
	publisher            shared.EventPublisher
	defaultAllowNegative bool
}

// NewTransferService creates a new TransferService
func NewTransferService(scope TransactionScope, publisher shared.EventPublisher, defaultAllowNegative bool) *TransferService {
	return &TransferService{
		scope:                scope,
		publisher:            publisher,
		defaultAllowNegative: defaultAllowNegative,
	}
}

// Transfer moves an amount from one worker to another. The debit and credit
// entries share the caller's reference and commit atomically; replaying the
// same reference returns the original pair.
func (s *TransferService) Transfer(ctx context.Context, locationID uuid.UUID, req TransferRequest) (*TransferResponse, error) {
	if req.FromWorkerID == req.ToWorkerID {
		return nil, shared.NewDomainError("INVALID_TRANSFER", "Cannot transfer to the same worker")
	}

	occurredAt := time.Now()
	debit, err := ledger.NewLedgerEntry(
		locationID, req.FromWorkerID,
		ledger.DirectionDebit, req.Amount,
		ledger.SourceTypeManualTransfer, req.Reference+":out",
		occurredAt,
	)
	if err != nil {
		return nil, err
	}
	credit, err := ledger.NewLedgerEntry(
		locationID, req.ToWorkerID,
		ledger.DirectionCredit, req.Amount,
		ledger.SourceTypeManualTransfer, req.Reference+":in",
		occurredAt,
	)
	if err != nil {
		return nil, err
	}
	if req.Memo != "" {
		debit.WithMemo(req.Memo)
		credit.WithMemo(req.Memo)
	}

	var (
		postedDebit, postedCredit *ledger.LedgerEntry
		duplicate                 bool
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		allowNegative, err := allowNegativeFor(ctx, repos.PolicyRepo(), locationID, s.defaultAllowNegative)
		if err != nil {
			return err
		}
		// The sender's debit goes first so an insufficient balance rolls the
		// whole transfer back before anything is credited.
		postedDebit, duplicate, err = postWithinTx(ctx, repos, debit, allowNegative)
		if err != nil {
			return err
		}
		if duplicate {
			postedCredit, err = repos.EntryRepo().FindBySource(ctx, locationID, ledger.SourceTypeManualTransfer, req.Reference+":in")
			if err != nil {
				return err
			}
			if postedCredit == nil {
				return shared.ErrLedgerCorruption
			}
			return nil
		}
		postedCredit, _, err = postWithinTx(ctx, repos, credit, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !duplicate && s.publisher != nil {
		_ = s.publisher.Publish(ctx, ledger.NewEntryPostedEvent(postedDebit))
		_ = s.publisher.Publish(ctx, ledger.NewEntryPostedEvent(postedCredit))
	}

	response := &TransferResponse{
		Debit:  ToEntryResponse(postedDebit),
		Credit: ToEntryResponse(postedCredit),
	}
	response.Debit.Duplicate = duplicate
	response.Credit.Duplicate = duplicate
	return response, nil
}

// Payout debits a worker's balance for a disbursement and marks the credits
// it covers as settled
func (s *TransferService) Payout(ctx context.Context, locationID uuid.UUID, req PayoutRequest) (*PayoutResponse, error) {
	occurredAt := time.Now()
	entry, err := ledger.NewLedgerEntry(
		locationID, req.WorkerID,
		ledger.DirectionDebit, req.Amount,
		ledger.SourceTypePayout, req.Reference,
		occurredAt,
	)
	if err != nil {
		return nil, err
	}
	if req.Memo != "" {
		entry.WithMemo(req.Memo)
	}

	var (
		posted       *ledger.LedgerEntry
		duplicate    bool
		settledCount int64
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		allowNegative, err := allowNegativeFor(ctx, repos.PolicyRepo(), locationID, s.defaultAllowNegative)
		if err != nil {
			return err
		}
		posted, duplicate, err = postWithinTx(ctx, repos, entry, allowNegative)
		if err != nil || duplicate {
			return err
		}
		settledCount, err = repos.EntryRepo().MarkSettled(ctx, locationID, req.WorkerID, occurredAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !duplicate && s.publisher != nil {
		_ = s.publisher.Publish(ctx, ledger.NewPayoutIssuedEvent(posted, settledCount))
	}

	response := &PayoutResponse{
		Entry:        ToEntryResponse(posted),
		SettledCount: settledCount,
	}
	response.Entry.Duplicate = duplicate
	return response, nil
}

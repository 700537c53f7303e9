package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tippool/backend/internal/domain/shared"
)

func TestTransferServiceTransfer(t *testing.T) {
	ctx := context.Background()
	locationID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	seed := func(f *ledgerFixture, workerID uuid.UUID, amount int64) {
		svc := newLedgerService(f, false)
		_, err := svc.PostEntry(ctx, locationID, creditRequest(workerID, float64(amount), "seed:"+workerID.String()))
		require.NoError(t, err)
	}

	t.Run("moves amount between workers atomically", func(t *testing.T) {
		f := newLedgerFixture()
		seed(f, alice, 100)
		svc := NewTransferService(f.scope, nil, false)

		resp, err := svc.Transfer(ctx, locationID, TransferRequest{
			FromWorkerID: alice, ToWorkerID: bob,
			Amount:    decimal.NewFromInt(30),
			Reference: "xfer_1",
		})
		require.NoError(t, err)
		assert.Equal(t, "DEBIT", resp.Debit.Direction)
		assert.Equal(t, "CREDIT", resp.Credit.Direction)

		ledgerSvc := newLedgerService(f, false)
		from, err := ledgerSvc.GetBalance(ctx, locationID, alice)
		require.NoError(t, err)
		to, err := ledgerSvc.GetBalance(ctx, locationID, bob)
		require.NoError(t, err)
		assert.True(t, from.Balance.Equal(decimal.NewFromInt(70)))
		assert.True(t, to.Balance.Equal(decimal.NewFromInt(30)))
	})

	t.Run("replaying a reference returns the original pair", func(t *testing.T) {
		f := newLedgerFixture()
		seed(f, alice, 100)
		svc := NewTransferService(f.scope, nil, false)

		req := TransferRequest{
			FromWorkerID: alice, ToWorkerID: bob,
			Amount:    decimal.NewFromInt(30),
			Reference: "xfer_1",
		}
		first, err := svc.Transfer(ctx, locationID, req)
		require.NoError(t, err)
		second, err := svc.Transfer(ctx, locationID, req)
		require.NoError(t, err)

		assert.True(t, second.Debit.Duplicate)
		assert.Equal(t, first.Debit.ID, second.Debit.ID)
		assert.Equal(t, first.Credit.ID, second.Credit.ID)

		ledgerSvc := newLedgerService(f, false)
		from, err := ledgerSvc.GetBalance(ctx, locationID, alice)
		require.NoError(t, err)
		assert.True(t, from.Balance.Equal(decimal.NewFromInt(70)))
	})

	t.Run("insufficient sender balance fails the whole transfer", func(t *testing.T) {
		f := newLedgerFixture()
		seed(f, alice, 10)
		svc := NewTransferService(f.scope, nil, false)

		_, err := svc.Transfer(ctx, locationID, TransferRequest{
			FromWorkerID: alice, ToWorkerID: bob,
			Amount:    decimal.NewFromInt(30),
			Reference: "xfer_2",
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientBalance)

		ledgerSvc := newLedgerService(f, false)
		to, err := ledgerSvc.GetBalance(ctx, locationID, bob)
		require.NoError(t, err)
		assert.True(t, to.Balance.IsZero())
	})

	t.Run("rejects self transfer", func(t *testing.T) {
		f := newLedgerFixture()
		svc := NewTransferService(f.scope, nil, false)

		_, err := svc.Transfer(ctx, locationID, TransferRequest{
			FromWorkerID: alice, ToWorkerID: alice,
			Amount:    decimal.NewFromInt(5),
			Reference: "xfer_3",
		})
		require.Error(t, err)
	})
}

func TestTransferServicePayout(t *testing.T) {
	ctx := context.Background()
	locationID := uuid.New()
	workerID := uuid.New()

	t.Run("debits balance and settles covered credits", func(t *testing.T) {
		f := newLedgerFixture()
		ledgerSvc := newLedgerService(f, false)
		for _, ref := range []string{"pay_1:w", "pay_2:w"} {
			_, err := ledgerSvc.PostEntry(ctx, locationID, creditRequest(workerID, 50, ref))
			require.NoError(t, err)
		}
		svc := NewTransferService(f.scope, nil, false)

		resp, err := svc.Payout(ctx, locationID, PayoutRequest{
			WorkerID:  workerID,
			Amount:    decimal.NewFromInt(100),
			Reference: "payout_2026-03-14",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.SettledCount)

		balance, err := ledgerSvc.GetBalance(ctx, locationID, workerID)
		require.NoError(t, err)
		assert.True(t, balance.Balance.IsZero())
	})

	t.Run("replaying a payout settles nothing twice", func(t *testing.T) {
		f := newLedgerFixture()
		ledgerSvc := newLedgerService(f, false)
		_, err := ledgerSvc.PostEntry(ctx, locationID, creditRequest(workerID, 50, "pay_1:w"))
		require.NoError(t, err)
		svc := NewTransferService(f.scope, nil, false)

		req := PayoutRequest{WorkerID: workerID, Amount: decimal.NewFromInt(50), Reference: "payout_1"}
		first, err := svc.Payout(ctx, locationID, req)
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.SettledCount)

		second, err := svc.Payout(ctx, locationID, req)
		require.NoError(t, err)
		assert.True(t, second.Entry.Duplicate)
		assert.Equal(t, int64(0), second.SettledCount)

		balance, err := ledgerSvc.GetBalance(ctx, locationID, workerID)
		require.NoError(t, err)
		assert.True(t, balance.Balance.IsZero())
	})

	t.Run("payout beyond balance is rejected", func(t *testing.T) {
		f := newLedgerFixture()
		svc := NewTransferService(f.scope, nil, false)

		_, err := svc.Payout(ctx, locationID, PayoutRequest{
			WorkerID:  workerID,
			Amount:    decimal.NewFromInt(10),
			Reference: "payout_3",
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientBalance)
	})
}

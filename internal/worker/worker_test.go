package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/posnet-gateway/internal/application/mocks"
	"github.com/DanielPopoola/posnet-gateway/internal/config"
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sweeperFunc func(ctx context.Context, olderThan time.Time) (int, error)

func (f sweeperFunc) DeleteAbandoned(ctx context.Context, olderThan time.Time) (int, error) {
	return f(ctx, olderThan)
}

func TestSessionSweeper_UsesTTLCutoff(t *testing.T) {
	var cutoff time.Time
	store := sweeperFunc(func(_ context.Context, olderThan time.Time) (int, error) {
		cutoff = olderThan
		return 3, nil
	})
	w := NewSessionSweeper(store, 15*time.Minute, time.Minute, discardLogger())
	w.now = func() time.Time { return testNow }

	deleted, err := w.sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.Equal(t, testNow.Add(-15*time.Minute), cutoff)
}

func TestSessionSweeper_StopsOnCancel(t *testing.T) {
	store := sweeperFunc(func(context.Context, time.Time) (int, error) {
		return 0, errors.New("connection reset")
	})
	w := NewSessionSweeper(store, time.Minute, time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

type agreementFunc func(ctx context.Context, orderID string) (*posnet.AgreementStatusResponse, error)

func (f agreementFunc) AgreementStatus(ctx context.Context, orderID string) (*posnet.AgreementStatusResponse, error) {
	return f(ctx, orderID)
}

func pendingTx(t *testing.T, orderID string, kind domain.TransactionKind, createdAt time.Time) *domain.Transaction {
	t.Helper()
	money, err := domain.NewMoney(15050, domain.CurrencyTL)
	require.NoError(t, err)
	tx, err := domain.NewTransaction(uuid.New().String(), orderID, kind, money, createdAt)
	require.NoError(t, err)
	return tx
}

func newReconciler(journal *mocks.Journal, agreements AgreementQuerier) *Reconciler {
	r := NewReconciler(journal, agreements, config.WorkerConfig{
		Interval:    time.Minute,
		BatchSize:   10,
		PendingAge:  2 * time.Minute,
		GiveUpAfter: time.Hour,
	}, discardLogger())
	r.now = func() time.Time { return testNow }
	return r
}

func TestReconciler(t *testing.T) {
	t.Run("approved at gateway", func(t *testing.T) {
		journal := mocks.NewJournal()
		tx := pendingTx(t, "ORD001", domain.KindSale, testNow.Add(-5*time.Minute))
		journal.Put(tx)

		r := newReconciler(journal, agreementFunc(func(_ context.Context, orderID string) (*posnet.AgreementStatusResponse, error) {
			return &posnet.AgreementStatusResponse{Transactions: []posnet.AgreementTransaction{
				{OrderID: orderID, HostLogKey: "021000000112", AuthCode: "123456", State: "Sale"},
			}}, nil
		}))

		require.NoError(t, r.reconcilePending(context.Background()))

		got := journal.Get(tx.ID)
		assert.Equal(t, domain.TxStatusCaptured, got.Status)
		require.NotNil(t, got.HostLogKey)
		assert.Equal(t, domain.HostLogKey("021000000112"), *got.HostLogKey)
		assert.Equal(t, int64(15050), got.CapturedAmount)
	})

	t.Run("authorization becomes authorized", func(t *testing.T) {
		journal := mocks.NewJournal()
		tx := pendingTx(t, "ORD002", domain.KindAuth, testNow.Add(-5*time.Minute))
		journal.Put(tx)

		r := newReconciler(journal, agreementFunc(func(context.Context, string) (*posnet.AgreementStatusResponse, error) {
			return &posnet.AgreementStatusResponse{Transactions: []posnet.AgreementTransaction{
				{HostLogKey: "021000000113", AuthCode: "654321", State: "Auth"},
			}}, nil
		}))

		require.NoError(t, r.reconcilePending(context.Background()))
		assert.Equal(t, domain.TxStatusAuthorized, journal.Get(tx.ID).Status)
	})

	t.Run("only the approved original settles the entry", func(t *testing.T) {
		tests := []struct {
			name    string
			entries []posnet.AgreementTransaction
		}{
			{"return only", []posnet.AgreementTransaction{
				{HostLogKey: "021000000114", State: "RETURN"},
			}},
			{"reversed sale", []posnet.AgreementTransaction{
				{HostLogKey: "021000000115", State: "SALE"},
				{HostLogKey: "021000000116", State: "REVERSE"},
			}},
			{"declined without host log key", []posnet.AgreementTransaction{
				{State: "SALE"},
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				journal := mocks.NewJournal()
				tx := pendingTx(t, "ORD007", domain.KindSale, testNow.Add(-5*time.Minute))
				journal.Put(tx)

				r := newReconciler(journal, agreementFunc(func(context.Context, string) (*posnet.AgreementStatusResponse, error) {
					return &posnet.AgreementStatusResponse{Transactions: tt.entries}, nil
				}))

				require.NoError(t, r.reconcilePending(context.Background()))
				assert.Equal(t, domain.TxStatusPending, journal.Get(tx.ID).Status)
			})
		}
	})

	t.Run("too young is not checked", func(t *testing.T) {
		journal := mocks.NewJournal()
		tx := pendingTx(t, "ORD003", domain.KindSale, testNow.Add(-30*time.Second))
		journal.Put(tx)

		r := newReconciler(journal, agreementFunc(func(context.Context, string) (*posnet.AgreementStatusResponse, error) {
			t.Fatal("agreement status must not be queried")
			return nil, nil
		}))

		require.NoError(t, r.reconcilePending(context.Background()))
		assert.Equal(t, domain.TxStatusPending, journal.Get(tx.ID).Status)
	})

	t.Run("unknown at gateway stays pending until give up", func(t *testing.T) {
		journal := mocks.NewJournal()
		recent := pendingTx(t, "ORD004", domain.KindSale, testNow.Add(-10*time.Minute))
		stale := pendingTx(t, "ORD005", domain.KindSale, testNow.Add(-2*time.Hour))
		journal.Put(recent)
		journal.Put(stale)

		r := newReconciler(journal, agreementFunc(func(context.Context, string) (*posnet.AgreementStatusResponse, error) {
			return &posnet.AgreementStatusResponse{}, domain.NewGatewayError("agreement", domain.CodeHostLogKeyNotFound, "0224", "KAYIT YOK")
		}))

		require.NoError(t, r.reconcilePending(context.Background()))

		assert.Equal(t, domain.TxStatusPending, journal.Get(recent.ID).Status)
		got := journal.Get(stale.ID)
		assert.Equal(t, domain.TxStatusFailed, got.Status)
		require.NotNil(t, got.LastCode)
		assert.Equal(t, domain.CodeTimeout.String(), *got.LastCode)
	})

	t.Run("technical failure leaves entry for next run", func(t *testing.T) {
		journal := mocks.NewJournal()
		tx := pendingTx(t, "ORD006", domain.KindSale, testNow.Add(-2*time.Hour))
		journal.Put(tx)

		r := newReconciler(journal, agreementFunc(func(context.Context, string) (*posnet.AgreementStatusResponse, error) {
			return nil, domain.NewTechnicalError("agreement", domain.CodeTimeout, context.DeadlineExceeded)
		}))

		require.NoError(t, r.reconcilePending(context.Background()))
		assert.Equal(t, domain.TxStatusPending, journal.Get(tx.ID).Status)
	})
}

package worker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/DanielPopoola/posnet-gateway/internal/application"
	"github.com/DanielPopoola/posnet-gateway/internal/config"
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

// AgreementQuerier asks the gateway what it holds for an order.
type AgreementQuerier interface {
	AgreementStatus(ctx context.Context, orderID string) (*posnet.AgreementStatusResponse, error)
}

type PendingJournal interface {
	application.PendingLister
	Update(ctx context.Context, tx *domain.Transaction) error
}

// Reconciler settles sales and authorizations whose outcome was lost to a
// technical failure. The gateway's agreement record is the source of truth: an
// original sale or authorization there with a host log key means the bank
// approved. Entries the gateway never heard
// of are failed once they are older than giveUpAfter.
type Reconciler struct {
	journal     PendingJournal
	agreements  AgreementQuerier
	interval    time.Duration
	batchSize   int
	pendingAge  time.Duration
	giveUpAfter time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewReconciler(
	journal PendingJournal,
	agreements AgreementQuerier,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		journal:     journal,
		agreements:  agreements,
		interval:    cfg.Interval,
		batchSize:   cfg.BatchSize,
		pendingAge:  cfg.PendingAge,
		giveUpAfter: cfg.GiveUpAfter,
		logger:      logger,
		now:         time.Now,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("reconciler started", "interval", r.interval, "batch_size", r.batchSize)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopping")
			return
		case <-ticker.C:
			if err := r.reconcilePending(ctx); err != nil {
				r.logger.Error("reconciliation failed", "error", err)
			}
		}
	}
}

func (r *Reconciler) reconcilePending(ctx context.Context) error {
	pending, err := r.journal.FindPending(ctx, r.now().Add(-r.pendingAge), r.batchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	var approved, failed, unresolved int
	for _, tx := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		status, err := r.reconcileOne(ctx, tx)
		if err != nil {
			r.logger.Error("failed to reconcile transaction",
				"transaction_id", tx.ID,
				"order_id", tx.OrderID,
				"error", err,
			)
			unresolved++
			continue
		}

		switch status {
		case domain.TxStatusFailed:
			failed++
		case domain.TxStatusPending:
			unresolved++
		default:
			approved++
		}
	}

	r.logger.Info("reconciled pending transactions",
		"checked", len(pending),
		"approved", approved,
		"failed", failed,
		"unresolved", unresolved,
	)
	return nil
}

// reconcileOne returns the status tx ended in. A technical failure on the
// inquiry leaves it PENDING for the next run.
func (r *Reconciler) reconcileOne(ctx context.Context, tx *domain.Transaction) (domain.TransactionStatus, error) {
	resp, err := r.agreements.AgreementStatus(ctx, tx.OrderID)
	if err != nil {
		if application.IsRetryable(err) {
			return domain.TxStatusPending, err
		}
		// The gateway answered but holds nothing usable for the order.
		resp = nil
	}

	if match, ok := approvedEntry(resp, tx); ok {
		if err := tx.Approve(match.HostLogKey, match.AuthCode, r.now()); err != nil {
			return tx.Status, err
		}
		if err := r.journal.Update(ctx, tx); err != nil {
			return domain.TxStatusPending, err
		}
		r.logger.Info("pending transaction approved at gateway",
			"transaction_id", tx.ID,
			"order_id", tx.OrderID,
			"host_log_key", match.HostLogKey,
		)
		return tx.Status, nil
	}

	if r.now().Sub(tx.CreatedAt) < r.giveUpAfter {
		return domain.TxStatusPending, nil
	}

	if err := tx.Fail(domain.CodeTimeout, r.now()); err != nil {
		return tx.Status, err
	}
	if err := r.journal.Update(ctx, tx); err != nil {
		return domain.TxStatusPending, err
	}
	r.logger.Warn("pending transaction unknown to gateway, marked failed",
		"transaction_id", tx.ID,
		"order_id", tx.OrderID,
		"age", r.now().Sub(tx.CreatedAt),
	)
	return tx.Status, nil
}

// originalState is the agreement state the gateway reports for an approved
// original of each journal kind.
var originalState = map[domain.TransactionKind]string{
	domain.KindSale: "SALE",
	domain.KindAuth: "AUTH",
}

// approvedEntry finds the approved original of tx among the agreement entries.
// Entries of another operation (returns, captures) or without a host log key
// never match, and an order with a reversal on record is not approved.
func approvedEntry(resp *posnet.AgreementStatusResponse, tx *domain.Transaction) (posnet.AgreementTransaction, bool) {
	if resp == nil {
		return posnet.AgreementTransaction{}, false
	}
	want := originalState[tx.Kind]

	var match posnet.AgreementTransaction
	var found bool
	for _, entry := range resp.Transactions {
		if entry.OrderID != "" && entry.OrderID != tx.OrderID {
			continue
		}
		state := strings.ToUpper(strings.TrimSpace(entry.State))
		if strings.HasPrefix(state, "REVERS") {
			return posnet.AgreementTransaction{}, false
		}
		if !found && entry.HostLogKey != "" && state == want {
			match, found = entry, true
		}
	}
	return match, found
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DanielPopoola/posnet-gateway/internal/application"
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
	"github.com/DanielPopoola/posnet-gateway/internal/validation"
)

// PaymentService is the call surface for card-not-present payments: sale,
// pre-authorization and the follow-ups keyed by host log key.
type PaymentService struct {
	exchange
	header  posnet.Header
	journal application.TransactionJournal
}

// NewPaymentService wires the service. journal may be nil, in which case no
// pre-flight money checks are made and the gateway's own codes apply.
func NewPaymentService(
	gateway application.Gateway,
	validator *validation.Validator,
	header posnet.Header,
	journal application.TransactionJournal,
	recorder application.Recorder,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		exchange: newExchange(gateway, validator, recorder, logger),
		header:   header,
		journal:  journal,
	}
}

// Sale charges a card in one step.
func (s *PaymentService) Sale(ctx context.Context, cmd PaymentCommand) (*posnet.SaleResponse, error) {
	req, err := posnet.NewSale(s.header, s.paymentInput(cmd))
	if err := s.validator.ValidateConverted(req, err); err != nil {
		return nil, err
	}

	tx, err := s.openTransaction(ctx, req.OrderID, domain.KindSale, req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}

	resp, err := send[*posnet.SaleResponse](ctx, &s.exchange, req)
	s.settle(ctx, tx, resp != nil, err, func() (domain.HostLogKey, string) {
		return resp.HostLogKey, resp.AuthCode
	})
	if err != nil {
		return resp, err
	}

	s.logger.Info("sale approved", "order_id", req.OrderID, "host_log_key", resp.HostLogKey, "card", req.Card)
	return resp, nil
}

// Authorize reserves funds for a later Capture.
func (s *PaymentService) Authorize(ctx context.Context, cmd PaymentCommand) (*posnet.AuthorizeResponse, error) {
	req, err := posnet.NewAuthorize(s.header, s.paymentInput(cmd))
	if err := s.validator.ValidateConverted(req, err); err != nil {
		return nil, err
	}

	tx, err := s.openTransaction(ctx, req.OrderID, domain.KindAuth, req.Amount, req.Currency)
	if err != nil {
		return nil, err
	}

	resp, err := send[*posnet.AuthorizeResponse](ctx, &s.exchange, req)
	s.settle(ctx, tx, resp != nil, err, func() (domain.HostLogKey, string) {
		return resp.HostLogKey, resp.AuthCode
	})
	if err != nil {
		return resp, err
	}

	s.logger.Info("authorization approved", "order_id", req.OrderID, "host_log_key", resp.HostLogKey, "card", req.Card)
	return resp, nil
}

// Capture finalizes an authorization for at most the authorized amount.
func (s *PaymentService) Capture(ctx context.Context, cmd CaptureCommand) (*posnet.CaptureResponse, error) {
	tx, err := s.lookup(ctx, cmd.HostLogKey)
	if err != nil {
		return nil, err
	}
	if cmd.Currency == "" && tx != nil {
		cmd.Currency = string(tx.Currency)
	}

	req, err := posnet.NewCapture(s.header, cmd.HostLogKey, cmd.Amount, cmd.Currency, cmd.Installments)
	if err := s.validator.ValidateConverted(req, err); err != nil {
		return nil, err
	}
	if tx != nil {
		err := s.hold(ctx, tx, func(now time.Time) error { return tx.MarkCapturing(req.Amount, now) })
		if err != nil {
			s.logger.Warn("capture rejected before sending",
				"order_id", cmd.OrderID,
				"host_log_key", cmd.HostLogKey,
				"amount", req.Amount,
				"authorized", tx.Amount,
				"error", err,
			)
			return nil, err
		}
	}

	resp, err := send[*posnet.CaptureResponse](ctx, &s.exchange, req)
	if err != nil {
		s.release(ctx, tx)
		return resp, err
	}

	if tx != nil {
		s.record(ctx, tx, tx.Capture(req.Amount, s.now()))
	}
	s.logger.Info("capture approved", "order_id", cmd.OrderID, "host_log_key", cmd.HostLogKey, "amount", req.Amount)
	return resp, nil
}

// Reverse cancels a same-day transaction.
func (s *PaymentService) Reverse(ctx context.Context, cmd ReverseCommand) (*posnet.ReverseResponse, error) {
	tx, err := s.lookup(ctx, cmd.HostLogKey)
	if err != nil {
		return nil, err
	}
	if tx != nil && (tx.IsTerminal() || tx.OnHold()) {
		return nil, application.NewInvalidStateError(
			domain.NewInvalidTransitionError(string(tx.Status), string(domain.TxStatusReversed)))
	}

	original := cmd.Transaction
	if original == "" {
		original = reversalTarget(tx)
	}

	req := posnet.NewReverse(s.header, cmd.HostLogKey, original)
	resp, err := send[*posnet.ReverseResponse](ctx, &s.exchange, req)
	if err != nil {
		return resp, err
	}

	if tx != nil {
		s.record(ctx, tx, tx.Reverse(s.now()))
	}
	s.logger.Info("reversal approved", "order_id", cmd.OrderID, "host_log_key", cmd.HostLogKey, "transaction", original)
	return resp, nil
}

// Refund returns all or part of a captured amount.
func (s *PaymentService) Refund(ctx context.Context, cmd RefundCommand) (*posnet.ReturnResponse, error) {
	tx, err := s.lookup(ctx, cmd.HostLogKey)
	if err != nil {
		return nil, err
	}
	if cmd.Currency == "" && tx != nil {
		cmd.Currency = string(tx.Currency)
	}

	req, err := posnet.NewReturn(s.header, cmd.HostLogKey, cmd.Amount, cmd.Currency)
	if err := s.validator.ValidateConverted(req, err); err != nil {
		return nil, err
	}
	if tx != nil {
		err := s.hold(ctx, tx, func(now time.Time) error { return tx.MarkRefunding(req.Amount, now) })
		if err != nil {
			s.logger.Warn("refund rejected before sending",
				"order_id", cmd.OrderID,
				"host_log_key", cmd.HostLogKey,
				"amount", req.Amount,
				"error", err,
			)
			return nil, err
		}
	}

	resp, err := send[*posnet.ReturnResponse](ctx, &s.exchange, req)
	if err != nil {
		s.release(ctx, tx)
		return resp, err
	}

	if tx != nil {
		s.record(ctx, tx, tx.Refund(req.Amount, s.now()))
	}
	s.logger.Info("refund approved", "order_id", cmd.OrderID, "host_log_key", cmd.HostLogKey, "amount", req.Amount)
	return resp, nil
}

// PointInquiry reads the card's loyalty balance. It moves no money.
func (s *PaymentService) PointInquiry(ctx context.Context, card posnet.CardInput) (*posnet.PointInquiryResponse, error) {
	req, err := posnet.NewPointInquiry(s.header, card)
	if err := s.validator.ValidateConverted(req, err); err != nil {
		return nil, err
	}
	return send[*posnet.PointInquiryResponse](ctx, &s.exchange, req)
}

// AgreementStatus lists what the gateway holds for an order. It is the way to
// settle a transaction whose outcome was lost to a timeout.
func (s *PaymentService) AgreementStatus(ctx context.Context, orderID string) (*posnet.AgreementStatusResponse, error) {
	req := posnet.NewAgreementStatusQuery(s.header, orderID)
	return send[*posnet.AgreementStatusResponse](ctx, &s.exchange, req)
}

func (s *PaymentService) paymentInput(cmd PaymentCommand) posnet.PaymentInput {
	return posnet.PaymentInput{
		OrderID:      cmd.OrderID,
		Amount:       cmd.Amount,
		Currency:     cmd.Currency,
		Installments: cmd.Installments,
		Card:         cmd.Card,
	}
}

// openTransaction journals a new attempt before it is sent, so a reused order
// id is refused locally.
func (s *PaymentService) openTransaction(ctx context.Context, orderID string, kind domain.TransactionKind, amount int64, currency domain.Currency) (*domain.Transaction, error) {
	if s.journal == nil {
		return nil, nil
	}

	money, err := domain.NewMoney(amount, currency)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}
	tx, err := domain.NewTransaction(uuid.New().String(), orderID, kind, money, s.now())
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}

	if err := s.journal.Create(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrDuplicateOrderID) {
			gwErr := domain.NewGatewayError(string(kind), domain.CodeDuplicateOrderID, "", "")
			gwErr.Err = err
			return nil, gwErr
		}
		return nil, storeFailure(err)
	}
	return tx, nil
}

// settle records the outcome of a sale or authorization. A technical failure
// leaves the entry PENDING: the bank may or may not have approved it.
func (s *PaymentService) settle(ctx context.Context, tx *domain.Transaction, responded bool, sendErr error, approved func() (domain.HostLogKey, string)) {
	if tx == nil {
		return
	}

	if sendErr == nil {
		hostLogKey, authCode := approved()
		s.record(ctx, tx, tx.Approve(hostLogKey, authCode, s.now()))
		return
	}

	code, ok := domain.GatewayCode(sendErr)
	if !ok || code.IsRetryable() || !responded {
		s.logger.Warn("transaction outcome unknown, reconcile with agreement status",
			"order_id", tx.OrderID,
			"transaction_id", tx.ID,
			"error", sendErr,
		)
		return
	}
	s.record(ctx, tx, tx.Fail(code, s.now()))
}

// record persists a journal transition. Once the gateway has moved money, a
// journal failure is logged and never turned into a request failure.
func (s *PaymentService) record(ctx context.Context, tx *domain.Transaction, transitionErr error) {
	if transitionErr != nil {
		s.logger.Error("journal transition rejected", "transaction_id", tx.ID, "status", tx.Status, "error", transitionErr)
		return
	}
	if err := s.journal.Update(ctx, tx); err != nil {
		s.logger.Error("journal update failed",
			"transaction_id", tx.ID,
			"order_id", tx.OrderID,
			"status", tx.Status,
			"error", err,
		)
	}
}

// hold moves tx into an in-flight status and commits it only if no other
// request moved it first. Exactly one of two concurrent captures or refunds of
// the same host log key gets past here.
func (s *PaymentService) hold(ctx context.Context, tx *domain.Transaction, mark func(now time.Time) error) error {
	from := tx.Status
	if err := mark(s.now()); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return application.NewInvalidStateError(err)
		}
		return err
	}
	if err := s.journal.UpdateFrom(ctx, tx, from); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return application.NewInvalidStateError(err)
		}
		return storeFailure(err)
	}
	return nil
}

// release ends a hold after a failed send. A retry after an unknown outcome is
// left to the gateway, which refuses a second capture of the same key itself.
func (s *PaymentService) release(ctx context.Context, tx *domain.Transaction) {
	if tx == nil || !tx.OnHold() {
		return
	}
	s.record(ctx, tx, tx.ReleaseHold(s.now()))
}

func (s *PaymentService) lookup(ctx context.Context, hostLogKey domain.HostLogKey) (*domain.Transaction, error) {
	if s.journal == nil || hostLogKey == "" {
		return nil, nil
	}
	tx, err := s.journal.FindByHostLogKey(ctx, hostLogKey)
	if err != nil {
		if isNotFound(err) {
			s.logger.Debug("host log key not in journal", "host_log_key", hostLogKey)
			return nil, nil
		}
		return nil, storeFailure(err)
	}
	return tx, nil
}

func reversalTarget(tx *domain.Transaction) posnet.Operation {
	if tx == nil {
		return posnet.OpSale
	}
	switch {
	case tx.Kind == domain.KindAuth && tx.Status == domain.TxStatusCaptured:
		return posnet.OpCapture
	case tx.Kind == domain.KindAuth:
		return posnet.OpAuthorize
	default:
		return posnet.OpSale
	}
}

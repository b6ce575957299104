package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/posnet-gateway/internal/application"
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
	"github.com/DanielPopoola/posnet-gateway/internal/validation"
)

// exchange runs one gateway operation: validate, send, check the outcome and
// report it. Both services share it.
type exchange struct {
	gateway   application.Gateway
	validator *validation.Validator
	recorder  application.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

func newExchange(gateway application.Gateway, validator *validation.Validator, recorder application.Recorder, logger *slog.Logger) exchange {
	if recorder == nil {
		recorder = application.NopRecorder{}
	}
	return exchange{
		gateway:   gateway,
		validator: validator,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// send validates req and exchanges it with the gateway. An unsuccessful
// response is returned together with its *domain.GatewayError so callers can
// still inspect the bank's fields.
func send[T posnet.Response](ctx context.Context, x *exchange, req posnet.Request) (T, error) {
	var zero T
	op := req.Operation()

	if err := x.validator.ValidateOrThrow(req); err != nil {
		x.logger.Info("request rejected before sending", "operation", op, "error", err)
		return zero, err
	}

	start := x.now()
	resp, err := x.gateway.Send(ctx, req)
	elapsed := x.now().Sub(start)
	if err != nil {
		category := application.CategorizeError(err)
		x.recorder.ObserveOperation(op, category, elapsed)
		x.logger.Error("gateway call failed",
			"operation", op,
			"category", category,
			"retryable", application.IsRetryable(err),
			"elapsed", elapsed,
			"error", err,
		)
		return zero, err
	}

	typed, ok := resp.(T)
	if !ok {
		err := domain.NewTechnicalError(string(op), domain.CodeMalformedPayload,
			fmt.Errorf("unexpected response type %T", resp))
		x.recorder.ObserveOperation(op, domain.CategoryTechnical, elapsed)
		return zero, err
	}

	if typed.Successful() {
		x.recorder.ObserveOperation(op, domain.CategorySuccess, elapsed)
		x.logger.Debug("gateway call succeeded", "operation", op, "elapsed", elapsed)
		return typed, nil
	}

	outcome := typed.Outcome()
	gwErr := outcome.Err(op)
	code, _ := domain.GatewayCode(gwErr)
	x.recorder.ObserveOperation(op, code.Category(), elapsed)
	x.logOutcome(op, code, outcome)
	return typed, gwErr
}

// logOutcome logs a failed outcome at the severity its category calls for.
// Responses carry no card data, so the raw payload is safe to log.
func (x *exchange) logOutcome(op posnet.Operation, code domain.ErrorCode, outcome posnet.Result) {
	attrs := []any{
		"operation", op,
		"code", code.String(),
		"raw_code", outcome.RawCode,
		"category", code.Category(),
	}

	switch code.Category() {
	case domain.CategoryBankDecline:
		x.logger.Info("gateway declined", append(attrs, "message", outcome.Message)...)
	case domain.CategoryTechnical:
		x.logger.Error("gateway technical failure", append(attrs, "raw", string(outcome.Raw))...)
	default:
		x.logger.Warn("gateway rejected request", append(attrs, "message", outcome.Message, "raw", string(outcome.Raw))...)
	}
}

// securityEvent logs and counts an integrity failure. It never logs MAC values.
func (x *exchange) securityEvent(v *domain.SecurityViolationError) {
	x.recorder.SecurityEvent(v.Code)
	x.logger.Error("security violation",
		"security_event", true,
		"order_ref", v.OrderRef,
		"code", v.Code.String(),
		"reason", v.Reason,
	)
}

// storeFailure wraps a journal or session store error. A store call cut short
// by the request deadline is a timeout, anything else is internal.
func storeFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return application.NewTimeoutError(err)
	}
	return application.NewInternalError(err)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrTransactionNotFound) || errors.Is(err, domain.ErrSessionNotFound)
}

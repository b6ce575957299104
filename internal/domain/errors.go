package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeSessionNotFound     = "SESSION_NOT_FOUND"
	ErrCodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	ErrCodeMissingRequired     = "MISSING_REQUIRED_FIELD"
)

var (
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrSessionNotFound     = errors.New("3ds session not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateOrderID    = errors.New("order id already recorded")
)

func NewInvalidTransitionError(from, to string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
		Err:     ErrInvalidTransition,
	}
}

func NewSessionNotFoundError(orderRef string) *DomainError {
	return &DomainError{
		Code:    ErrCodeSessionNotFound,
		Message: fmt.Sprintf("no 3ds session for order %s", orderRef),
		Err:     ErrSessionNotFound,
	}
}

// NewTransactionNotFoundError reports a journal miss. key is whatever the
// lookup used: host log key, order id or transaction id.
func NewTransactionNotFoundError(key string) *DomainError {
	return &DomainError{
		Code:    ErrCodeTransactionNotFound,
		Message: fmt.Sprintf("no transaction for %s", key),
		Err:     ErrTransactionNotFound,
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequired,
		Message: fmt.Sprintf("%s is required", field),
	}
}

// GatewayError is a non-successful gateway outcome, either reported by the
// bank or synthesized locally (timeouts, pre-flight protocol checks). Message
// is the bank's own text and never contains card data.
type GatewayError struct {
	Operation string
	Code      ErrorCode
	RawCode   string
	Message   string
	Err       error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("%s failed [%s/%s]", e.Operation, e.Code.Category(), e.Code)
	if e.RawCode != "" {
		msg += " code=" + e.RawCode
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) IsRetryable() bool {
	return e.Code.IsRetryable()
}

func NewGatewayError(operation string, code ErrorCode, rawCode, message string) *GatewayError {
	return &GatewayError{
		Operation: operation,
		Code:      code,
		RawCode:   rawCode,
		Message:   message,
	}
}

// NewTechnicalError wraps a transport-level failure.
func NewTechnicalError(operation string, code ErrorCode, err error) *GatewayError {
	return &GatewayError{
		Operation: operation,
		Code:      code,
		Err:       err,
	}
}

// SecurityViolationError marks an integrity failure: a missing or wrong
// signature, a MAC mismatch, or tampered transaction data. It is never
// retryable and is reported separately from ordinary declines.
type SecurityViolationError struct {
	OrderRef string
	Code     ErrorCode
	Reason   string
}

func (e *SecurityViolationError) Error() string {
	return fmt.Sprintf("security violation on order %s [%s]: %s", e.OrderRef, e.Code, e.Reason)
}

func (e *SecurityViolationError) IsRetryable() bool {
	return false
}

func NewSecurityViolation(orderRef string, code ErrorCode, reason string) *SecurityViolationError {
	return &SecurityViolationError{
		OrderRef: orderRef,
		Code:     code,
		Reason:   reason,
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GatewayCode extracts the ErrorCode carried by err, if any.
func GatewayCode(err error) (ErrorCode, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Code, true
	}
	var secErr *SecurityViolationError
	if errors.As(err, &secErr) {
		return secErr.Code, true
	}
	return CodeUnknown, false
}

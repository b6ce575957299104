package application

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/validation"
)

// CategorizeError places any error in the gateway taxonomy so callers can
// decide on retries and disclosure without inspecting concrete types.
func CategorizeError(err error) domain.ErrorCategory {
	if err == nil {
		return domain.CategorySuccess
	}

	// Gateway and security errors carry their own code
	if code, ok := domain.GatewayCode(err); ok {
		return code.Category()
	}

	// Context and network errors are transport failures
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.CategoryTechnical
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.CategoryTechnical
	}

	// Pre-flight rejections never reached the gateway
	var vErr *validation.ValidationError
	if errors.As(err, &vErr) {
		return domain.CategoryProtocol
	}
	if errors.Is(err, domain.ErrInvalidTransition) ||
		errors.Is(err, domain.ErrSessionNotFound) ||
		errors.Is(err, domain.ErrTransactionNotFound) ||
		errors.Is(err, domain.ErrDuplicateOrderID) {
		return domain.CategoryProtocol
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeTimeout, ErrCodeInternal:
			return domain.CategoryTechnical
		case ErrCodeInvalidInput, ErrCodeInvalidState, ErrCodeValidation:
			return domain.CategoryProtocol
		}
	}

	// Default: Unknown, which is never retried
	return domain.CategoryUnknown
}

// IsRetryable reports whether repeating the call may succeed. Only technical
// failures qualify.
func IsRetryable(err error) bool {
	return CategorizeError(err) == domain.CategoryTechnical
}

// IsSecurityViolation reports whether err is a MAC, signature or tampering
// failure.
func IsSecurityViolation(err error) bool {
	var secErr *domain.SecurityViolationError
	return errors.As(err, &secErr)
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	var vErr *validation.ValidationError
	switch {
	case errors.As(err, &vErr),
		domain.IsErrorCode(err, domain.ErrCodeMissingRequired):
		return http.StatusBadRequest
	case IsSecurityViolation(err):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateOrderID):
		return http.StatusConflict
	}

	if code, ok := domain.GatewayCode(err); ok {
		switch code.Category() {
		case domain.CategoryBankDecline:
			return http.StatusPaymentRequired
		case domain.CategoryProtocol:
			return http.StatusConflict
		case domain.CategoryTechnical:
			if code == domain.CodeTimeout {
				return http.StatusGatewayTimeout
			}
			return http.StatusBadGateway
		default:
			return http.StatusBadGateway
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}

	// Default to 500
	return http.StatusInternalServerError
}

// ToErrorCode clear error code for API responses. Gateway failures are
// reported by bucket, never by the raw bank code.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var vErr *validation.ValidationError
	if errors.As(err, &vErr) {
		return ErrCodeValidation
	}
	if IsSecurityViolation(err) {
		return ErrCodeSecurityViolation
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		return domain.ErrCodeInvalidTransition
	}
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.ErrCodeSessionNotFound
	}
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return domain.ErrCodeTransactionNotFound
	}
	if domain.IsErrorCode(err, domain.ErrCodeMissingRequired) {
		return domain.ErrCodeMissingRequired
	}

	if code, ok := domain.GatewayCode(err); ok {
		switch code.Category() {
		case domain.CategoryBankDecline:
			return ErrCodeCardDeclined
		case domain.CategoryTechnical:
			return ErrCodeGatewayFailure
		case domain.CategoryProtocol:
			return ErrCodePaymentRejected
		default:
			return ErrCodePaymentFailed
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}

	return ErrCodeInternal
}

// ToUserMessage is the text an end user may see for err.
func ToUserMessage(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Message
	}

	var vErr *validation.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error()
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	if code, ok := domain.GatewayCode(err); ok {
		return code.UserMessage()
	}
	if IsRetryable(err) {
		return domain.CodeTimeout.UserMessage()
	}
	return "An internal error occurred"
}

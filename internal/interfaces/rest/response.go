package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/posnet-gateway/internal/application"
	"github.com/DanielPopoola/posnet-gateway/internal/validation"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Category   string                 `json:"category,omitempty"`
	Retryable  bool                   `json:"retryable"`
	Violations []validation.Violation `json:"violations,omitempty"`
}

// WriteJSON writes data in the success envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{Success: true, Data: data})
}

// WriteError maps err to a status and the error envelope. The message is the
// user-facing text; internal detail is logged, never returned.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	statusCode := application.ToHTTPStatus(err)
	detail := ErrorDetail{
		Code:      application.ToErrorCode(err),
		Message:   application.ToUserMessage(err),
		Category:  string(application.CategorizeError(err)),
		Retryable: application.IsRetryable(err),
	}

	var vErr *validation.ValidationError
	if errors.As(err, &vErr) {
		detail.Violations = vErr.Violations
	}

	if statusCode >= http.StatusInternalServerError {
		logger.Error("request failed", "status", statusCode, "code", detail.Code, "error", err)
	} else {
		logger.Debug("request rejected", "status", statusCode, "code", detail.Code, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: detail})
}

// DecodeJSON reads a JSON body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return application.NewInvalidInputError(err)
	}
	return nil
}

package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

func TestParseErrorCode(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.ErrorCode
	}{
		{"0", domain.CodeSuccess},
		{"00", domain.CodeSuccess},
		{"000", domain.CodeSuccess},
		{"0000", domain.CodeSuccess},
		{"17", domain.CodeDeclinedCustomerCancelled},
		{"0017", domain.CodeDeclinedCustomerCancelled},
		{"51", domain.CodeInsufficientFunds},
		{"0127", domain.CodeDuplicateOrderID},
		{"424242", domain.CodeUnknown},
		{"", domain.CodeUnknown},
		{"abc", domain.CodeUnknown},
		{"-5", domain.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ParseErrorCode(tt.raw))
		})
	}
}

func TestErrorCode_Categories(t *testing.T) {
	tests := []struct {
		code      domain.ErrorCode
		category  domain.ErrorCategory
		retryable bool
	}{
		{domain.CodeSuccess, domain.CategorySuccess, false},
		{domain.CodeTimeout, domain.CategoryTechnical, true},
		{domain.CodeConnectionFailure, domain.CategoryTechnical, true},
		{domain.CodeMalformedPayload, domain.CategoryTechnical, true},
		{domain.CodeInsufficientFunds, domain.CategoryBankDecline, false},
		{domain.CodeExpiredCard, domain.CategoryBankDecline, false},
		{domain.CodeCaptureExceedsAuth, domain.CategoryProtocol, false},
		{domain.CodeMacVerificationFailed, domain.CategoryProtocol, false},
		{domain.CodeUnknown, domain.CategoryUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.category, tt.code.Category())
			assert.Equal(t, tt.retryable, tt.code.IsRetryable())
		})
	}
}

func TestErrorCode_UserMessage(t *testing.T) {
	assert.Equal(t, "Insufficient card limit", domain.CodeInsufficientFunds.UserMessage())

	for _, code := range []domain.ErrorCode{domain.CodeSystemMalfunction, domain.CodeDuplicateOrderID, domain.CodeUnknown} {
		msg := code.UserMessage()
		assert.NotContains(t, msg, code.Description())
		assert.NotContains(t, msg, "127")
		assert.NotContains(t, msg, "96")
	}
	assert.Contains(t, domain.CodeTimeout.UserMessage(), "try again")
	assert.Contains(t, domain.CodeMacVerificationFailed.UserMessage(), "contact support")
}

func TestGatewayCode(t *testing.T) {
	code, ok := domain.GatewayCode(domain.NewGatewayError("sale", domain.CodeDoNotHonor, "0005", "RED"))
	assert.True(t, ok)
	assert.Equal(t, domain.CodeDoNotHonor, code)

	code, ok = domain.GatewayCode(domain.NewSecurityViolation("ORD001", domain.CodeSignatureMissing, "no sign"))
	assert.True(t, ok)
	assert.Equal(t, domain.CodeSignatureMissing, code)

	_, ok = domain.GatewayCode(domain.ErrSessionNotFound)
	assert.False(t, ok)
}

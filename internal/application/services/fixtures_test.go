package services_test

import (
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
	"github.com/DanielPopoola/posnet-gateway/internal/security"
	"github.com/DanielPopoola/posnet-gateway/internal/validation"
)

const (
	testMerchantID = "6706598320"
	testTerminalID = "67005551"
	testEncKey     = "10,10,10,10,10,10,10,10"
)

var (
	testHeader = posnet.Header{MerchantID: testMerchantID, TerminalID: testTerminalID}
	testClock  = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	testCard   = posnet.CardInput{
		Number:     "4111 1111 1111 1111",
		Expiry:     "12/2030",
		CVV:        "000",
		HolderName: "AYSE YILMAZ",
	}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestValidator() *validation.Validator {
	return validation.New(validation.WithClock(func() time.Time { return testClock }))
}

func newTestAuthenticator() *security.Authenticator {
	return security.NewAuthenticator(testEncKey, testMerchantID, testTerminalID)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func approved() posnet.Result {
	return posnet.Result{Approved: true, ApprovedCode: "1", Code: domain.CodeSuccess}
}

func declined(raw string, code domain.ErrorCode, msg string) posnet.Result {
	return posnet.Result{Approved: false, ApprovedCode: "0", RawCode: raw, Code: code, Message: msg}
}

func ptr[T any](v T) *T {
	return &v
}

package domain

import (
	"strconv"
	"strings"
)

// ErrorCategory buckets gateway result codes for retry and disclosure decisions.
type ErrorCategory string

const (
	CategorySuccess     ErrorCategory = "SUCCESS"
	CategoryTechnical   ErrorCategory = "TECHNICAL"
	CategoryBankDecline ErrorCategory = "BANK_DECLINE"
	CategoryProtocol    ErrorCategory = "PROTOCOL"
	CategoryUnknown     ErrorCategory = "UNKNOWN"
)

// ErrorCode is the closed set of result codes the gateway can report. Raw wire
// codes are converted with ParseErrorCode as soon as a response is decoded.
type ErrorCode int

const (
	CodeUnknown ErrorCode = -1
	CodeSuccess ErrorCode = 0

	// Bank declines (ISO 8583 response codes).
	CodeReferToIssuer             ErrorCode = 1
	CodePickUpCard                ErrorCode = 4
	CodeDoNotHonor                ErrorCode = 5
	CodeInvalidTransaction        ErrorCode = 12
	CodeInvalidAmount             ErrorCode = 13
	CodeInvalidCardNumber         ErrorCode = 14
	CodeDeclinedCustomerCancelled ErrorCode = 17
	CodeLostCard                  ErrorCode = 41
	CodeStolenCard                ErrorCode = 43
	CodeInsufficientFunds         ErrorCode = 51
	CodeExpiredCard               ErrorCode = 54
	CodeIncorrectPIN              ErrorCode = 55
	CodeNotPermittedToCardholder  ErrorCode = 57
	CodeExceedsLimit              ErrorCode = 61
	CodeRestrictedCard            ErrorCode = 62
	CodePINTriesExceeded          ErrorCode = 75
	CodeCardholderAuthFailed      ErrorCode = 401

	// Technical failures.
	CodeFormatError       ErrorCode = 30
	CodeTimeout           ErrorCode = 68
	CodeIssuerUnavailable ErrorCode = 91
	CodeSystemMalfunction ErrorCode = 96
	CodeDatabaseError     ErrorCode = 901
	CodeMalformedPayload  ErrorCode = 902
	CodeConnectionFailure ErrorCode = 903

	// Protocol-specific failures.
	CodeDuplicateOrderID        ErrorCode = 127
	CodeCaptureExceedsAuth      ErrorCode = 221
	CodeAuthorizationExpired    ErrorCode = 222
	CodeAlreadyCaptured         ErrorCode = 223
	CodeHostLogKeyNotFound      ErrorCode = 224
	CodeReversalWindowClosed    ErrorCode = 225
	CodeRefundExceedsCapture    ErrorCode = 226
	CodeMacVerificationFailed   ErrorCode = 311
	CodeSignatureMissing        ErrorCode = 312
	CodeTransactionDataMismatch ErrorCode = 313
)

type codeInfo struct {
	name        string
	description string
	category    ErrorCategory
}

var codeTable = map[ErrorCode]codeInfo{
	CodeSuccess: {"Success", "Approved", CategorySuccess},

	CodeReferToIssuer:             {"ReferToIssuer", "Please contact your card issuer", CategoryBankDecline},
	CodePickUpCard:                {"PickUpCard", "The card cannot be used", CategoryBankDecline},
	CodeDoNotHonor:                {"DoNotHonor", "The transaction was declined by your bank", CategoryBankDecline},
	CodeInvalidTransaction:        {"InvalidTransaction", "This transaction is not allowed for the card", CategoryBankDecline},
	CodeInvalidAmount:             {"InvalidAmount", "The amount was rejected by your bank", CategoryBankDecline},
	CodeInvalidCardNumber:         {"InvalidCardNumber", "The card number is invalid", CategoryBankDecline},
	CodeDeclinedCustomerCancelled: {"DeclinedCustomerCancelled", "The transaction was cancelled by the cardholder", CategoryBankDecline},
	CodeLostCard:                  {"LostCard", "The card cannot be used", CategoryBankDecline},
	CodeStolenCard:                {"StolenCard", "The card cannot be used", CategoryBankDecline},
	CodeInsufficientFunds:         {"InsufficientFunds", "Insufficient card limit", CategoryBankDecline},
	CodeExpiredCard:               {"ExpiredCard", "The card has expired", CategoryBankDecline},
	CodeIncorrectPIN:              {"IncorrectPIN", "Incorrect PIN", CategoryBankDecline},
	CodeNotPermittedToCardholder:  {"NotPermittedToCardholder", "The card is not permitted for this transaction", CategoryBankDecline},
	CodeExceedsLimit:              {"ExceedsLimit", "The transaction exceeds the card limit", CategoryBankDecline},
	CodeRestrictedCard:            {"RestrictedCard", "The card is restricted", CategoryBankDecline},
	CodePINTriesExceeded:          {"PINTriesExceeded", "PIN tries exceeded", CategoryBankDecline},
	CodeCardholderAuthFailed:      {"CardholderAuthFailed", "Cardholder authentication failed", CategoryBankDecline},

	CodeFormatError:       {"FormatError", "message format error", CategoryTechnical},
	CodeTimeout:           {"Timeout", "gateway response timed out", CategoryTechnical},
	CodeIssuerUnavailable: {"IssuerUnavailable", "issuer or switch inoperative", CategoryTechnical},
	CodeSystemMalfunction: {"SystemMalfunction", "gateway system error", CategoryTechnical},
	CodeDatabaseError:     {"DatabaseError", "gateway database error", CategoryTechnical},
	CodeMalformedPayload:  {"MalformedPayload", "malformed gateway payload", CategoryTechnical},
	CodeConnectionFailure: {"ConnectionFailure", "could not reach gateway", CategoryTechnical},

	CodeDuplicateOrderID:        {"DuplicateOrderID", "order id already used", CategoryProtocol},
	CodeCaptureExceedsAuth:      {"CaptureExceedsAuth", "capture amount exceeds authorized amount", CategoryProtocol},
	CodeAuthorizationExpired:    {"AuthorizationExpired", "authorization expired", CategoryProtocol},
	CodeAlreadyCaptured:         {"AlreadyCaptured", "authorization already captured", CategoryProtocol},
	CodeHostLogKeyNotFound:      {"HostLogKeyNotFound", "no transaction for host log key", CategoryProtocol},
	CodeReversalWindowClosed:    {"ReversalWindowClosed", "reversal window closed", CategoryProtocol},
	CodeRefundExceedsCapture:    {"RefundExceedsCapture", "refund amount exceeds captured amount", CategoryProtocol},
	CodeMacVerificationFailed:   {"MacVerificationFailed", "mac verification failed", CategoryProtocol},
	CodeSignatureMissing:        {"SignatureMissing", "signature or mac missing", CategoryProtocol},
	CodeTransactionDataMismatch: {"TransactionDataMismatch", "transaction data mismatch", CategoryProtocol},
}

const (
	messageTryAgain       = "The payment could not be processed. Please try again."
	messageContactSupport = "The payment could not be completed. Please contact support."
)

// ParseErrorCode maps a raw wire code to an ErrorCode. Any all-zero string is
// Success whatever its width; an unrecognized number is Unknown, never Success.
func ParseErrorCode(raw string) ErrorCode {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CodeUnknown
	}
	if strings.Trim(raw, "0") == "" {
		return CodeSuccess
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return CodeUnknown
	}
	code := ErrorCode(n)
	if _, ok := codeTable[code]; !ok {
		return CodeUnknown
	}
	return code
}

func (c ErrorCode) info() codeInfo {
	if info, ok := codeTable[c]; ok {
		return info
	}
	return codeInfo{"Unknown", "unrecognized gateway code", CategoryUnknown}
}

func (c ErrorCode) String() string {
	return c.info().name
}

func (c ErrorCode) Description() string {
	return c.info().description
}

func (c ErrorCode) Category() ErrorCategory {
	return c.info().category
}

func (c ErrorCode) IsSuccess() bool {
	return c == CodeSuccess
}

// IsRetryable is true only for technical failures. Unknown codes are treated
// conservatively as final.
func (c ErrorCode) IsRetryable() bool {
	return c.Category() == CategoryTechnical
}

// UserMessage is the text safe to show an end user. Only bank declines carry
// their own description; everything else is generic and omits the raw code.
func (c ErrorCode) UserMessage() string {
	switch c.Category() {
	case CategorySuccess, CategoryBankDecline:
		return c.Description()
	case CategoryTechnical:
		return messageTryAgain
	default:
		return messageContactSupport
	}
}

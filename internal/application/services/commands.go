package services

import (
	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

// PaymentCommand is the input for Sale and Authorize.
type PaymentCommand struct {
	OrderID      string
	Amount       decimal.Decimal
	Currency     string
	Installments int
	Card         posnet.CardInput
}

type CaptureCommand struct {
	OrderID    string
	HostLogKey domain.HostLogKey
	Amount     decimal.Decimal
	// Currency may be left empty when the journal knows the transaction.
	Currency     string
	Installments int
}

type ReverseCommand struct {
	OrderID    string
	HostLogKey domain.HostLogKey
	// Transaction is the operation being reversed. When empty it is derived
	// from the journal, falling back to a sale.
	Transaction posnet.Operation
}

type RefundCommand struct {
	OrderID    string
	HostLogKey domain.HostLogKey
	Amount     decimal.Decimal
	Currency   string
}

// InitiateCommand starts a 3-D Secure flow.
type InitiateCommand struct {
	OrderID      string
	Amount       decimal.Decimal
	Currency     string
	Installments int
	TranType     domain.TranType
	Card         posnet.CardInput

	// Optional campaign fields. Left empty, they are omitted from the form.
	VFTCode       string
	UseJokerVadaa bool
}

// CallbackForm is the bank's form POST to the merchant return URL. Only
// BankData, MerchantData, Sign and Mac are used; the rest is informational and
// never trusted.
type CallbackForm struct {
	BankData     string
	MerchantData string
	Sign         string
	Mac          string
	MdStatus     string
	Xid          string
	Amount       string
	Currency     string
	Eci          string
	Cavv         string
}

package posnet

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

// CardInput is card data as a person types it.
type CardInput struct {
	Number     string // may contain spaces or dashes
	Expiry     string // MM/YYYY or MM/YY
	CVV        string
	HolderName string
}

// PaymentInput is the human-oriented input for a sale or authorization.
type PaymentInput struct {
	OrderID      string
	Amount       decimal.Decimal
	Currency     string
	Installments int
	Card         CardInput
}

// FieldConversion is one input field a factory could not convert.
type FieldConversion struct {
	Field string
	Err   error
}

// ConversionError lists every field a factory could not convert. The request
// returned next to it is complete apart from those fields, which are left at
// their zero value, so it can still be validated for the remaining problems.
type ConversionError struct {
	Fields []FieldConversion
}

func (e *ConversionError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e *ConversionError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		errs[i] = f.Err
	}
	return errs
}

// converter turns human-oriented input into wire values, collecting failures
// instead of stopping at the first one.
type converter struct {
	failed []FieldConversion
}

func (c *converter) fail(field string, err error) {
	c.failed = append(c.failed, FieldConversion{Field: field, Err: err})
}

func (c *converter) amount(field string, amount decimal.Decimal) int64 {
	minor, err := domain.ToMinorUnits(amount)
	if err != nil {
		c.fail(field, err)
		return 0
	}
	return minor
}

func (c *converter) currency(raw string) domain.Currency {
	cur, err := domain.ParseCurrency(raw)
	if err != nil {
		c.fail("currency", err)
		return ""
	}
	return cur
}

func (c *converter) card(in CardInput) domain.CardInfo {
	card, err := domain.NewCardInfo(in.Number, in.Expiry, in.CVV, in.HolderName)
	if err != nil {
		c.fail("card.expiry", err)
	}
	return card
}

func (c *converter) err() error {
	if len(c.failed) == 0 {
		return nil
	}
	return &ConversionError{Fields: c.failed}
}

// AsConversionError unwraps a factory failure.
func AsConversionError(err error) (*ConversionError, bool) {
	var convErr *ConversionError
	ok := errors.As(err, &convErr)
	return convErr, ok
}

// The factories below only convert representations. They do not validate;
// run the result through the validator before sending it. A conversion
// failure comes back as a *ConversionError next to a non-nil request.

func NewSale(h Header, in PaymentInput) (*SaleRequest, error) {
	var c converter
	req := &SaleRequest{
		Header:      h,
		OrderID:     in.OrderID,
		Amount:      c.amount("amount", in.Amount),
		Currency:    c.currency(in.Currency),
		Installment: domain.FormatInstallment(in.Installments),
		Card:        c.card(in.Card),
	}
	return req, c.err()
}

func NewAuthorize(h Header, in PaymentInput) (*AuthorizeRequest, error) {
	var c converter
	req := &AuthorizeRequest{
		Header:      h,
		OrderID:     in.OrderID,
		Amount:      c.amount("amount", in.Amount),
		Currency:    c.currency(in.Currency),
		Installment: domain.FormatInstallment(in.Installments),
		Card:        c.card(in.Card),
	}
	return req, c.err()
}

func NewCapture(h Header, hostLogKey domain.HostLogKey, amount decimal.Decimal, currency string, installments int) (*CaptureRequest, error) {
	var c converter
	req := &CaptureRequest{
		Header:      h,
		HostLogKey:  hostLogKey,
		Amount:      c.amount("amount", amount),
		Currency:    c.currency(currency),
		Installment: domain.FormatInstallment(installments),
	}
	return req, c.err()
}

// NewReverse builds a reversal of the transaction of kind original.
func NewReverse(h Header, hostLogKey domain.HostLogKey, original Operation) *ReverseRequest {
	return &ReverseRequest{
		Header:      h,
		HostLogKey:  hostLogKey,
		Transaction: original,
	}
}

func NewReturn(h Header, hostLogKey domain.HostLogKey, amount decimal.Decimal, currency string) (*ReturnRequest, error) {
	var c converter
	req := &ReturnRequest{
		Header:     h,
		HostLogKey: hostLogKey,
		Amount:     c.amount("amount", amount),
		Currency:   c.currency(currency),
	}
	return req, c.err()
}

func NewPointInquiry(h Header, card CardInput) (*PointInquiryRequest, error) {
	var c converter
	req := &PointInquiryRequest{Header: h, Card: c.card(card)}
	return req, c.err()
}

func NewAgreementStatusQuery(h Header, orderID string) *AgreementStatusQueryRequest {
	return &AgreementStatusQueryRequest{Header: h, OrderID: orderID}
}

// NewThreeDSecureInitiate builds the OOS request. The order id doubles as the
// transaction id (XID) the resolved data is later compared against.
func NewThreeDSecureInitiate(h Header, posnetID string, tranType domain.TranType, in PaymentInput) (*ThreeDSecureInitiateRequest, error) {
	var c converter
	req := &ThreeDSecureInitiateRequest{
		Header:      h,
		PosnetID:    posnetID,
		XID:         in.OrderID,
		Amount:      c.amount("amount", in.Amount),
		Currency:    c.currency(in.Currency),
		Installment: domain.FormatInstallment(in.Installments),
		TranType:    tranType,
		Card:        c.card(in.Card),
	}
	return req, c.err()
}

func NewThreeDSecureResolve(h Header, bankData, merchantData, sign, mac string) *ThreeDSecureResolveRequest {
	return &ThreeDSecureResolveRequest{
		Header:       h,
		BankData:     bankData,
		MerchantData: merchantData,
		Sign:         sign,
		Mac:          mac,
	}
}

func NewThreeDSecureFinalize(h Header, bankData string, worldPoints decimal.Decimal, mac string) (*ThreeDSecureFinalizeRequest, error) {
	var c converter
	var wp int64
	if !worldPoints.IsZero() {
		wp = c.amount("worldPointAmount", worldPoints)
	}
	req := &ThreeDSecureFinalizeRequest{
		Header:           h,
		BankData:         bankData,
		WorldPointAmount: wp,
		Mac:              mac,
	}
	return req, c.err()
}

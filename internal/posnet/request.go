// Package posnet models the gateway's request and response messages and their
// XML wire encoding.
package posnet

import (
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

// Operation names a gateway message kind. The value is the element name the
// operation uses inside <posnetRequest>.
type Operation string

const (
	OpSale            Operation = "sale"
	OpAuthorize       Operation = "auth"
	OpCapture         Operation = "capt"
	OpReverse         Operation = "reverse"
	OpReturn          Operation = "return"
	OpPointInquiry    Operation = "pointinquiry"
	OpAgreementStatus Operation = "agreement"
	OpThreeDSInitiate Operation = "oosRequestData"
	OpThreeDSResolve  Operation = "oosResolveMerchantData"
	OpThreeDSFinalize Operation = "oosTranData"
)

func (o Operation) String() string {
	return string(o)
}

// ReadOnly reports whether the operation has no effect on funds.
func (o Operation) ReadOnly() bool {
	return o == OpPointInquiry || o == OpAgreementStatus
}

// Request is the closed set of outbound gateway messages. The unexported
// envelope method keeps implementations inside this package, so a type switch
// over the variants below is exhaustive.
type Request interface {
	Operation() Operation
	Credentials() Header
	envelope() (*xmlRequest, error)
}

// Header identifies the merchant and terminal on every request.
type Header struct {
	MerchantID string `validate:"required,len=10,digits"`
	TerminalID string `validate:"required,len=8,alphanum"`
}

func (h Header) Credentials() Header {
	return h
}

// SaleRequest charges a card in one step.
type SaleRequest struct {
	Header
	OrderID     string          `validate:"required,max=24,alphanum"`
	Amount      int64           `validate:"min=1,max=999999999"`
	Currency    domain.Currency `validate:"required,currency"`
	Installment string          `validate:"required,installment"`
	Card        domain.CardInfo
}

func (r *SaleRequest) Operation() Operation { return OpSale }

// AuthorizeRequest reserves funds for a later capture.
type AuthorizeRequest struct {
	Header
	OrderID     string          `validate:"required,max=24,alphanum"`
	Amount      int64           `validate:"min=1,max=999999999"`
	Currency    domain.Currency `validate:"required,currency"`
	Installment string          `validate:"required,installment"`
	Card        domain.CardInfo
}

func (r *AuthorizeRequest) Operation() Operation { return OpAuthorize }

// CaptureRequest finalizes a prior authorization.
type CaptureRequest struct {
	Header
	HostLogKey  domain.HostLogKey `validate:"required,alphanum"`
	Amount      int64             `validate:"min=1,max=999999999"`
	Currency    domain.Currency   `validate:"required,currency"`
	Installment string            `validate:"required,installment"`
}

func (r *CaptureRequest) Operation() Operation { return OpCapture }

// ReverseRequest cancels a same-day transaction.
type ReverseRequest struct {
	Header
	HostLogKey domain.HostLogKey `validate:"required,alphanum"`
	// Transaction is the operation being reversed: sale, auth, capt or return.
	Transaction Operation `validate:"required,oneof=sale auth capt return"`
}

func (r *ReverseRequest) Operation() Operation { return OpReverse }

// ReturnRequest refunds all or part of a captured transaction.
type ReturnRequest struct {
	Header
	HostLogKey domain.HostLogKey `validate:"required,alphanum"`
	Amount     int64             `validate:"min=1,max=999999999"`
	Currency   domain.Currency   `validate:"required,currency"`
}

func (r *ReturnRequest) Operation() Operation { return OpReturn }

// PointInquiryRequest asks for the card's loyalty point balance.
type PointInquiryRequest struct {
	Header
	Card domain.CardInfo
}

func (r *PointInquiryRequest) Operation() Operation { return OpPointInquiry }

// AgreementStatusQueryRequest asks for the transactions recorded against an
// order id.
type AgreementStatusQueryRequest struct {
	Header
	OrderID string `validate:"required,max=24,alphanum"`
}

func (r *AgreementStatusQueryRequest) Operation() Operation { return OpAgreementStatus }

// ThreeDSecureInitiateRequest asks the gateway to encrypt the transaction for
// the bank's hosted authentication page.
type ThreeDSecureInitiateRequest struct {
	Header
	PosnetID    string          `validate:"required,digits"`
	XID         string          `validate:"required,max=24,alphanum"`
	Amount      int64           `validate:"min=1,max=999999999"`
	Currency    domain.Currency `validate:"required,currency"`
	Installment string          `validate:"required,installment"`
	TranType    domain.TranType `validate:"required,oneof=Sale Auth"`
	Card        domain.CardInfo
}

func (r *ThreeDSecureInitiateRequest) Operation() Operation { return OpThreeDSInitiate }

// ThreeDSecureResolveRequest decrypts the data the bank posted back.
type ThreeDSecureResolveRequest struct {
	Header
	BankData     string `validate:"required"`
	MerchantData string `validate:"required"`
	Sign         string `validate:"required"`
	Mac          string `validate:"required"`
}

func (r *ThreeDSecureResolveRequest) Operation() Operation { return OpThreeDSResolve }

// ThreeDSecureFinalizeRequest completes an authenticated transaction.
type ThreeDSecureFinalizeRequest struct {
	Header
	BankData string `validate:"required"`
	// WorldPointAmount is the loyalty amount spent; zero for none.
	WorldPointAmount int64  `validate:"min=0"`
	Mac              string `validate:"required"`
}

func (r *ThreeDSecureFinalizeRequest) Operation() Operation { return OpThreeDSFinalize }

var (
	_ Request = (*SaleRequest)(nil)
	_ Request = (*AuthorizeRequest)(nil)
	_ Request = (*CaptureRequest)(nil)
	_ Request = (*ReverseRequest)(nil)
	_ Request = (*ReturnRequest)(nil)
	_ Request = (*PointInquiryRequest)(nil)
	_ Request = (*AgreementStatusQueryRequest)(nil)
	_ Request = (*ThreeDSecureInitiateRequest)(nil)
	_ Request = (*ThreeDSecureResolveRequest)(nil)
	_ Request = (*ThreeDSecureFinalizeRequest)(nil)
)

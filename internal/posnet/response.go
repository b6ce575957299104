package posnet

import (
	"fmt"
	"strings"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

const (
	approvedNo        = "0"
	approvedYes       = "1"
	approvedDuplicate = "2"
)

// Response is the closed set of gateway replies, one variant per Request.
type Response interface {
	Operation() Operation
	Outcome() Result
	Successful() bool
	isResponse()
}

// Result is the part of every reply that decides success.
type Result struct {
	Approved bool
	// ApprovedCode is the raw approval flag: "0", "1", or "2" for a
	// transaction the gateway had already approved.
	ApprovedCode string
	RawCode      string
	Code         domain.ErrorCode
	Message      string
	// Raw is the undecoded wire payload, kept for audit and replay diagnosis.
	Raw []byte
}

func (r Result) Outcome() Result {
	return r
}

// Successful requires both the approval flag and a Success code. A reply that
// is approved but carries a non-zero code is a failure.
func (r Result) Successful() bool {
	return r.Approved && r.Code.IsSuccess()
}

// Err converts an unsuccessful result into a *domain.GatewayError.
func (r Result) Err(op Operation) error {
	if r.Successful() {
		return nil
	}
	code := r.Code
	if code.IsSuccess() {
		// not approved but no failure code either
		code = domain.CodeUnknown
	}
	return domain.NewGatewayError(string(op), code, r.RawCode, r.Message)
}

// InstallmentInfo describes the installment plan the bank applied.
type InstallmentInfo struct {
	Count  *int64
	Amount *int64
}

// PointInfo is the card's loyalty point state.
type PointInfo struct {
	Point            *int64
	PointAmount      *int64
	TotalPoint       *int64
	TotalPointAmount *int64
}

type SaleResponse struct {
	Result
	HostLogKey  domain.HostLogKey
	AuthCode    string
	Installment *InstallmentInfo
	Points      *PointInfo
}

func (r *SaleResponse) Operation() Operation { return OpSale }
func (r *SaleResponse) isResponse()          {}

type AuthorizeResponse struct {
	Result
	HostLogKey  domain.HostLogKey
	AuthCode    string
	Installment *InstallmentInfo
	Points      *PointInfo
}

func (r *AuthorizeResponse) Operation() Operation { return OpAuthorize }
func (r *AuthorizeResponse) isResponse()          {}

type CaptureResponse struct {
	Result
	HostLogKey  domain.HostLogKey
	AuthCode    string
	Installment *InstallmentInfo
	Points      *PointInfo
}

func (r *CaptureResponse) Operation() Operation { return OpCapture }
func (r *CaptureResponse) isResponse()          {}

type ReverseResponse struct {
	Result
	HostLogKey domain.HostLogKey
	AuthCode   string
}

func (r *ReverseResponse) Operation() Operation { return OpReverse }
func (r *ReverseResponse) isResponse()          {}

type ReturnResponse struct {
	Result
	HostLogKey domain.HostLogKey
	AuthCode   string
}

func (r *ReturnResponse) Operation() Operation { return OpReturn }
func (r *ReturnResponse) isResponse()          {}

type PointInquiryResponse struct {
	Result
	Points *PointInfo
}

func (r *PointInquiryResponse) Operation() Operation { return OpPointInquiry }
func (r *PointInquiryResponse) isResponse()          {}

// AgreementTransaction is one transaction the gateway holds for an order.
type AgreementTransaction struct {
	OrderID    string
	HostLogKey domain.HostLogKey
	State      string
	Type       string
	Amount     *int64
	Currency   domain.Currency
	AuthCode   string
	TranDate   string
}

type AgreementStatusResponse struct {
	Result
	Transactions []AgreementTransaction
}

func (r *AgreementStatusResponse) Operation() Operation { return OpAgreementStatus }
func (r *AgreementStatusResponse) isResponse()          {}

// ThreeDSecureInitiateResponse carries the encrypted blobs for the bank's
// hosted page.
type ThreeDSecureInitiateResponse struct {
	Result
	Data1 string
	Data2 string
	Sign  string
}

func (r *ThreeDSecureInitiateResponse) Operation() Operation { return OpThreeDSInitiate }
func (r *ThreeDSecureInitiateResponse) isResponse()          {}

// ThreeDSecureResolveResponse is the decrypted merchant data for a callback.
type ThreeDSecureResolveResponse struct {
	Result
	XID            string
	Amount         *int64
	Currency       domain.Currency
	Installment    string
	Point          *int64
	PointAmount    *int64
	TxStatus       string
	MdStatus       string
	MdErrorMessage string
	Mac            string
}

func (r *ThreeDSecureResolveResponse) Operation() Operation { return OpThreeDSResolve }
func (r *ThreeDSecureResolveResponse) isResponse()          {}

// Resolved returns the fields the session compares against its captured tuple.
// A missing amount becomes -1 so it can never match a captured amount.
func (r *ThreeDSecureResolveResponse) Resolved() domain.ResolvedMerchantData {
	amount := int64(-1)
	if r.Amount != nil {
		amount = *r.Amount
	}
	return domain.ResolvedMerchantData{
		XID:            r.XID,
		Amount:         amount,
		Currency:       r.Currency,
		MdStatus:       r.MdStatus,
		MdErrorMessage: r.MdErrorMessage,
		Mac:            r.Mac,
	}
}

type ThreeDSecureFinalizeResponse struct {
	Result
	HostLogKey  domain.HostLogKey
	AuthCode    string
	Installment *InstallmentInfo
	Points      *PointInfo
}

func (r *ThreeDSecureFinalizeResponse) Operation() Operation { return OpThreeDSFinalize }
func (r *ThreeDSecureFinalizeResponse) isResponse()          {}

// AlreadyFinalized reports the gateway's "approved before" answer to a repeated
// finalize.
func (r *ThreeDSecureFinalizeResponse) AlreadyFinalized() bool {
	return r.ApprovedCode == approvedDuplicate
}

// Successful also accepts an already-finalized transaction: the money moved on
// an earlier attempt and must not be processed again.
func (r *ThreeDSecureFinalizeResponse) Successful() bool {
	return r.AlreadyFinalized() || r.Result.Successful()
}

// ParseResponse decodes a gateway reply for op. Absent optional fields are left
// zero or nil; only an undecodable document is an error.
func ParseResponse(op Operation, raw []byte) (Response, error) {
	wire, err := decodeResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", op, err)
	}
	result := newResult(wire, raw)

	switch op {
	case OpSale:
		return &SaleResponse{
			Result:      result,
			HostLogKey:  domain.HostLogKey(wire.HostLogKey),
			AuthCode:    wire.AuthCode,
			Installment: installmentInfo(wire.InstInfo),
			Points:      pointInfo(wire.PointInfo),
		}, nil
	case OpAuthorize:
		return &AuthorizeResponse{
			Result:      result,
			HostLogKey:  domain.HostLogKey(wire.HostLogKey),
			AuthCode:    wire.AuthCode,
			Installment: installmentInfo(wire.InstInfo),
			Points:      pointInfo(wire.PointInfo),
		}, nil
	case OpCapture:
		return &CaptureResponse{
			Result:      result,
			HostLogKey:  domain.HostLogKey(wire.HostLogKey),
			AuthCode:    wire.AuthCode,
			Installment: installmentInfo(wire.InstInfo),
			Points:      pointInfo(wire.PointInfo),
		}, nil
	case OpReverse:
		return &ReverseResponse{
			Result:     result,
			HostLogKey: domain.HostLogKey(wire.HostLogKey),
			AuthCode:   wire.AuthCode,
		}, nil
	case OpReturn:
		return &ReturnResponse{
			Result:     result,
			HostLogKey: domain.HostLogKey(wire.HostLogKey),
			AuthCode:   wire.AuthCode,
		}, nil
	case OpPointInquiry:
		return &PointInquiryResponse{
			Result: result,
			Points: pointInfo(wire.PointInfo),
		}, nil
	case OpAgreementStatus:
		return &AgreementStatusResponse{
			Result:       result,
			Transactions: agreementTransactions(wire.Transactions),
		}, nil
	case OpThreeDSInitiate:
		resp := &ThreeDSecureInitiateResponse{Result: result}
		if d := wire.OOSRequestData; d != nil {
			resp.Data1 = d.Data1
			resp.Data2 = d.Data2
			resp.Sign = d.Sign
		}
		return resp, nil
	case OpThreeDSResolve:
		resp := &ThreeDSecureResolveResponse{Result: result}
		if d := wire.OOSResolve; d != nil {
			resp.XID = d.XID
			resp.Amount = optionalInt(d.Amount)
			resp.Currency = domain.Currency(strings.TrimSpace(d.Currency))
			resp.Installment = d.Installment
			resp.Point = optionalInt(d.Point)
			resp.PointAmount = optionalInt(d.PointAmount)
			resp.TxStatus = d.TxStatus
			resp.MdStatus = strings.TrimSpace(d.MdStatus)
			resp.MdErrorMessage = d.MdErrorMessage
			resp.Mac = d.Mac
		}
		return resp, nil
	case OpThreeDSFinalize:
		return &ThreeDSecureFinalizeResponse{
			Result:      result,
			HostLogKey:  domain.HostLogKey(wire.HostLogKey),
			AuthCode:    wire.AuthCode,
			Installment: installmentInfo(wire.InstInfo),
			Points:      pointInfo(wire.PointInfo),
		}, nil
	}
	return nil, fmt.Errorf("unknown operation %q", op)
}

// newResult turns the raw approval flag and code into a Result. The gateway
// omits respCode on approvals, so an approved reply without a code is Success;
// an unapproved reply without one is Unknown.
func newResult(wire *xmlResponse, raw []byte) Result {
	approvedCode := strings.TrimSpace(wire.Approved)
	approved := approvedCode == approvedYes || approvedCode == approvedDuplicate

	rawCode := strings.TrimSpace(wire.RespCode)
	code := domain.ParseErrorCode(rawCode)
	if rawCode == "" && approved {
		code = domain.CodeSuccess
	}

	return Result{
		Approved:     approved,
		ApprovedCode: approvedCode,
		RawCode:      rawCode,
		Code:         code,
		Message:      strings.TrimSpace(wire.RespText),
		Raw:          raw,
	}
}

func installmentInfo(w *xmlInstInfo) *InstallmentInfo {
	if w == nil {
		return nil
	}
	return &InstallmentInfo{
		Count:  optionalInt(w.InstQty),
		Amount: optionalInt(w.Amount),
	}
}

func pointInfo(w *xmlPointInfo) *PointInfo {
	if w == nil {
		return nil
	}
	return &PointInfo{
		Point:            optionalInt(w.Point),
		PointAmount:      optionalInt(w.PointAmount),
		TotalPoint:       optionalInt(w.TotalPoint),
		TotalPointAmount: optionalInt(w.TotalAmount),
	}
}

func agreementTransactions(ws []xmlAgreementTransaction) []AgreementTransaction {
	if len(ws) == 0 {
		return nil
	}
	out := make([]AgreementTransaction, 0, len(ws))
	for _, w := range ws {
		out = append(out, AgreementTransaction{
			OrderID:    w.OrderID,
			HostLogKey: domain.HostLogKey(w.HostLogKey),
			State:      w.State,
			Type:       w.TxnType,
			Amount:     optionalInt(w.Amount),
			Currency:   domain.Currency(w.Currency),
			AuthCode:   w.AuthCode,
			TranDate:   w.TranDate,
		})
	}
	return out
}

package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/posnet-gateway/internal/application/services"
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

type CardRequest struct {
	Number     string `json:"number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	HolderName string `json:"holderName,omitempty"`
}

func (c CardRequest) toInput() posnet.CardInput {
	return posnet.CardInput{
		Number:     c.Number,
		Expiry:     c.Expiry,
		CVV:        c.CVV,
		HolderName: c.HolderName,
	}
}

type PaymentRequest struct {
	OrderID      string          `json:"orderId"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Installments int             `json:"installments,omitempty"`
	Card         CardRequest     `json:"card"`
}

func (r PaymentRequest) toCommand() services.PaymentCommand {
	return services.PaymentCommand{
		OrderID:      r.OrderID,
		Amount:       r.Amount,
		Currency:     r.Currency,
		Installments: r.Installments,
		Card:         r.Card.toInput(),
	}
}

type CaptureRequest struct {
	OrderID      string          `json:"orderId"`
	HostLogKey   string          `json:"hostLogKey"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	Installments int             `json:"installments,omitempty"`
}

type ReverseRequest struct {
	OrderID     string `json:"orderId"`
	HostLogKey  string `json:"hostLogKey"`
	Transaction string `json:"transaction,omitempty"`
}

type RefundRequest struct {
	OrderID    string          `json:"orderId"`
	HostLogKey string          `json:"hostLogKey"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency,omitempty"`
}

type PointInquiryRequest struct {
	Card CardRequest `json:"card"`
}

type InitiateRequest struct {
	OrderID       string          `json:"orderId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Installments  int             `json:"installments,omitempty"`
	TranType      string          `json:"tranType,omitempty"`
	Card          CardRequest     `json:"card"`
	VFTCode       string          `json:"vftCode,omitempty"`
	UseJokerVadaa bool            `json:"useJokerVadaa,omitempty"`
}

func (r InitiateRequest) toCommand() services.InitiateCommand {
	return services.InitiateCommand{
		OrderID:       r.OrderID,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Installments:  r.Installments,
		TranType:      domain.TranType(r.TranType),
		Card:          r.Card.toInput(),
		VFTCode:       r.VFTCode,
		UseJokerVadaa: r.UseJokerVadaa,
	}
}

// TransactionResponse is the body for every approved money movement.
type TransactionResponse struct {
	Operation   string           `json:"operation"`
	HostLogKey  string           `json:"hostLogKey"`
	AuthCode    string           `json:"authCode,omitempty"`
	Installment *InstallmentBody `json:"installment,omitempty"`
	Points      *PointsBody      `json:"points,omitempty"`
}

type InstallmentBody struct {
	Count  *int64           `json:"count,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

type PointsBody struct {
	Point            *int64           `json:"point,omitempty"`
	PointAmount      *decimal.Decimal `json:"pointAmount,omitempty"`
	TotalPoint       *int64           `json:"totalPoint,omitempty"`
	TotalPointAmount *decimal.Decimal `json:"totalPointAmount,omitempty"`
}

func transactionBody(op posnet.Operation, hostLogKey domain.HostLogKey, authCode string, inst *posnet.InstallmentInfo, points *posnet.PointInfo) TransactionResponse {
	return TransactionResponse{
		Operation:   string(op),
		HostLogKey:  hostLogKey.String(),
		AuthCode:    authCode,
		Installment: installmentBody(inst),
		Points:      pointsBody(points),
	}
}

func installmentBody(inst *posnet.InstallmentInfo) *InstallmentBody {
	if inst == nil {
		return nil
	}
	return &InstallmentBody{Count: inst.Count, Amount: money(inst.Amount)}
}

func pointsBody(p *posnet.PointInfo) *PointsBody {
	if p == nil {
		return nil
	}
	return &PointsBody{
		Point:            p.Point,
		PointAmount:      money(p.PointAmount),
		TotalPoint:       p.TotalPoint,
		TotalPointAmount: money(p.TotalPointAmount),
	}
}

type AgreementResponse struct {
	OrderID      string                 `json:"orderId"`
	Transactions []AgreementTransaction `json:"transactions"`
}

type AgreementTransaction struct {
	OrderID    string           `json:"orderId"`
	HostLogKey string           `json:"hostLogKey"`
	State      string           `json:"state"`
	Type       string           `json:"type"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Currency   string           `json:"currency,omitempty"`
	AuthCode   string           `json:"authCode,omitempty"`
	TranDate   string           `json:"tranDate,omitempty"`
}

func agreementBody(orderID string, resp *posnet.AgreementStatusResponse) AgreementResponse {
	body := AgreementResponse{
		OrderID:      orderID,
		Transactions: make([]AgreementTransaction, 0, len(resp.Transactions)),
	}
	for _, tx := range resp.Transactions {
		body.Transactions = append(body.Transactions, AgreementTransaction{
			OrderID:    tx.OrderID,
			HostLogKey: tx.HostLogKey.String(),
			State:      tx.State,
			Type:       tx.Type,
			Amount:     money(tx.Amount),
			Currency:   string(tx.Currency),
			AuthCode:   tx.AuthCode,
			TranDate:   tx.TranDate,
		})
	}
	return body
}

type InitiateResponse struct {
	OrderRef string            `json:"orderRef"`
	Action   string            `json:"action"`
	Fields   map[string]string `json:"fields"`
}

type FinalizeResponse struct {
	OrderRef         string `json:"orderRef"`
	HostLogKey       string `json:"hostLogKey"`
	AuthCode         string `json:"authCode,omitempty"`
	AlreadyFinalized bool   `json:"alreadyFinalized"`
	MdStatus         string `json:"mdStatus,omitempty"`
}

// SessionResponse never exposes the bank packet.
type SessionResponse struct {
	OrderRef      string          `json:"orderRef"`
	Phase         string          `json:"phase"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	TranType      string          `json:"tranType"`
	MdStatus      string          `json:"mdStatus,omitempty"`
	HostLogKey    string          `json:"hostLogKey,omitempty"`
	AuthCode      string          `json:"authCode,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func sessionBody(s *domain.ThreeDSecureSession) SessionResponse {
	return SessionResponse{
		OrderRef:      s.OrderRef,
		Phase:         string(s.Phase),
		Amount:        domain.FromMinorUnits(s.Amount),
		Currency:      string(s.Currency),
		TranType:      string(s.TranType),
		MdStatus:      s.MdStatus,
		HostLogKey:    s.HostLogKey.String(),
		AuthCode:      s.AuthCode,
		FailureReason: s.FailureReason,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func money(minor *int64) *decimal.Decimal {
	if minor == nil {
		return nil
	}
	d := domain.FromMinorUnits(*minor)
	return &d
}

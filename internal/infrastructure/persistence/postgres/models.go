package postgres

import (
	"time"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

// SessionModel is the threeds_sessions row.
type SessionModel struct {
	OrderRef      string
	XID           string
	Amount        int64
	Currency      string
	Installment   string
	TranType      string
	Phase         string
	MdStatus      *string
	BankData      *string
	HostLogKey    *string
	AuthCode      *string
	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TransactionModel is the transactions row.
type TransactionModel struct {
	ID             string
	OrderID        string
	Kind           string
	HostLogKey     *string
	AuthCode       *string
	Amount         int64
	Currency       string
	CapturedAmount int64
	RefundedAmount int64
	Status         string
	LastCode       *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func toSessionModel(s *domain.ThreeDSecureSession) SessionModel {
	return SessionModel{
		OrderRef:      s.OrderRef,
		XID:           s.XID,
		Amount:        s.Amount,
		Currency:      string(s.Currency),
		Installment:   s.Installment,
		TranType:      string(s.TranType),
		Phase:         string(s.Phase),
		MdStatus:      nullable(s.MdStatus),
		BankData:      nullable(s.BankData),
		HostLogKey:    nullable(string(s.HostLogKey)),
		AuthCode:      nullable(s.AuthCode),
		FailureReason: nullable(s.FailureReason),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (m SessionModel) toDomain() *domain.ThreeDSecureSession {
	return &domain.ThreeDSecureSession{
		OrderRef:      m.OrderRef,
		XID:           m.XID,
		Amount:        m.Amount,
		Currency:      domain.Currency(m.Currency),
		Installment:   m.Installment,
		TranType:      domain.TranType(m.TranType),
		Phase:         domain.SessionPhase(m.Phase),
		MdStatus:      deref(m.MdStatus),
		BankData:      deref(m.BankData),
		HostLogKey:    domain.HostLogKey(deref(m.HostLogKey)),
		AuthCode:      deref(m.AuthCode),
		FailureReason: deref(m.FailureReason),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toTransactionModel(t *domain.Transaction) TransactionModel {
	m := TransactionModel{
		ID:             t.ID,
		OrderID:        t.OrderID,
		Kind:           string(t.Kind),
		AuthCode:       t.AuthCode,
		Amount:         t.Amount,
		Currency:       string(t.Currency),
		CapturedAmount: t.CapturedAmount,
		RefundedAmount: t.RefundedAmount,
		Status:         string(t.Status),
		LastCode:       t.LastCode,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.HostLogKey != nil {
		key := string(*t.HostLogKey)
		m.HostLogKey = &key
	}
	return m
}

func (m TransactionModel) toDomain() *domain.Transaction {
	t := &domain.Transaction{
		ID:             m.ID,
		OrderID:        m.OrderID,
		Kind:           domain.TransactionKind(m.Kind),
		AuthCode:       m.AuthCode,
		Amount:         m.Amount,
		Currency:       domain.Currency(m.Currency),
		CapturedAmount: m.CapturedAmount,
		RefundedAmount: m.RefundedAmount,
		Status:         domain.TransactionStatus(m.Status),
		LastCode:       m.LastCode,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.HostLogKey != nil {
		key := domain.HostLogKey(*m.HostLogKey)
		t.HostLogKey = &key
	}
	return t
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

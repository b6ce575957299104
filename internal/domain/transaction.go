package domain

import (
	"slices"
	"time"
)

// TransactionStatus is the journal's view of a gateway transaction.
type TransactionStatus string

const (
	TxStatusPending           TransactionStatus = "PENDING"
	TxStatusAuthorized        TransactionStatus = "AUTHORIZED"
	TxStatusCapturing         TransactionStatus = "CAPTURING"
	TxStatusCaptured          TransactionStatus = "CAPTURED"
	TxStatusRefunding         TransactionStatus = "REFUNDING"
	TxStatusPartiallyRefunded TransactionStatus = "PARTIALLY_REFUNDED"
	TxStatusRefunded          TransactionStatus = "REFUNDED"
	TxStatusReversed          TransactionStatus = "REVERSED"
	TxStatusFailed            TransactionStatus = "FAILED"
)

// TransactionKind distinguishes a one-step sale from a pre-authorization.
type TransactionKind string

const (
	KindSale TransactionKind = "SALE"
	KindAuth TransactionKind = "AUTH"
)

// Transaction is the journal record of a sale or authorization and every
// follow-up operation against its host log key.
type Transaction struct {
	ID             string
	OrderID        string
	Kind           TransactionKind
	HostLogKey     *HostLogKey
	AuthCode       *string
	Amount         int64
	Currency       Currency
	CapturedAmount int64
	RefundedAmount int64
	Status         TransactionStatus
	LastCode       *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewTransaction(id, orderID string, kind TransactionKind, amount Money, now time.Time) (*Transaction, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("transaction id")
	}
	if orderID == "" {
		return nil, NewMissingRequiredFieldError("order id")
	}
	return &Transaction{
		ID:        id,
		OrderID:   orderID,
		Kind:      kind,
		Amount:    amount.Amount,
		Currency:  amount.Currency,
		Status:    TxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Approve records the gateway's approval. A sale is captured in the same step.
func (t *Transaction) Approve(hostLogKey HostLogKey, authCode string, now time.Time) error {
	target := TxStatusAuthorized
	if t.Kind == KindSale {
		target = TxStatusCaptured
	}
	if err := t.transition(target, now); err != nil {
		return err
	}
	t.HostLogKey = &hostLogKey
	t.AuthCode = &authCode
	if t.Kind == KindSale {
		t.CapturedAmount = t.Amount
	}
	return nil
}

// Fail records a declined or errored attempt.
func (t *Transaction) Fail(code ErrorCode, now time.Time) error {
	if err := t.transition(TxStatusFailed, now); err != nil {
		return err
	}
	name := code.String()
	t.LastCode = &name
	return nil
}

// CheckCapture enforces single capture of at most the authorized amount.
func (t *Transaction) CheckCapture(amount int64) error {
	switch t.Status {
	case TxStatusAuthorized:
	case TxStatusCaptured, TxStatusPartiallyRefunded, TxStatusRefunded:
		return NewGatewayError("capture", CodeAlreadyCaptured, "", "")
	default:
		return NewInvalidTransitionError(string(t.Status), string(TxStatusCaptured))
	}
	if amount > t.Amount {
		return NewGatewayError("capture", CodeCaptureExceedsAuth, "", "")
	}
	return nil
}

// MarkCapturing holds an authorization while its capture is in flight. A
// second capture of the same host log key is refused until the hold ends.
func (t *Transaction) MarkCapturing(amount int64, now time.Time) error {
	if err := t.CheckCapture(amount); err != nil {
		return err
	}
	return t.transition(TxStatusCapturing, now)
}

// Capture records an approved capture, with or without a preceding hold.
func (t *Transaction) Capture(amount int64, now time.Time) error {
	if t.Status != TxStatusCapturing {
		if err := t.CheckCapture(amount); err != nil {
			return err
		}
	} else if amount > t.Amount {
		return NewGatewayError("capture", CodeCaptureExceedsAuth, "", "")
	}
	if err := t.transition(TxStatusCaptured, now); err != nil {
		return err
	}
	t.CapturedAmount = amount
	return nil
}

// CheckRefund enforces that refunds never exceed what was captured.
func (t *Transaction) CheckRefund(amount int64) error {
	switch t.Status {
	case TxStatusCaptured, TxStatusPartiallyRefunded:
	default:
		return NewInvalidTransitionError(string(t.Status), string(TxStatusRefunded))
	}
	if amount > t.CapturedAmount-t.RefundedAmount {
		return NewGatewayError("refund", CodeRefundExceedsCapture, "", "")
	}
	return nil
}

// MarkRefunding holds a captured transaction while a refund is in flight.
func (t *Transaction) MarkRefunding(amount int64, now time.Time) error {
	if err := t.CheckRefund(amount); err != nil {
		return err
	}
	return t.transition(TxStatusRefunding, now)
}

// Refund records an approved refund, with or without a preceding hold.
func (t *Transaction) Refund(amount int64, now time.Time) error {
	if t.Status != TxStatusRefunding {
		if err := t.CheckRefund(amount); err != nil {
			return err
		}
	} else if amount > t.CapturedAmount-t.RefundedAmount {
		return NewGatewayError("refund", CodeRefundExceedsCapture, "", "")
	}
	target := TxStatusPartiallyRefunded
	if t.RefundedAmount+amount == t.CapturedAmount {
		target = TxStatusRefunded
	}
	if err := t.transition(target, now); err != nil {
		return err
	}
	t.RefundedAmount += amount
	return nil
}

// ReleaseHold ends a capture or refund hold without recording it, returning
// the transaction to the status it had before.
func (t *Transaction) ReleaseHold(now time.Time) error {
	switch t.Status {
	case TxStatusCapturing:
		return t.transition(TxStatusAuthorized, now)
	case TxStatusRefunding:
		if t.RefundedAmount == 0 {
			return t.transition(TxStatusCaptured, now)
		}
		return t.transition(TxStatusPartiallyRefunded, now)
	}
	return NewInvalidTransitionError(string(t.Status), "release hold")
}

// OnHold reports whether a capture or refund is in flight.
func (t *Transaction) OnHold() bool {
	return t.Status == TxStatusCapturing || t.Status == TxStatusRefunding
}

func (t *Transaction) Reverse(now time.Time) error {
	return t.transition(TxStatusReversed, now)
}

func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case TxStatusRefunded, TxStatusReversed, TxStatusFailed:
		return true
	default:
		return false
	}
}

func (t *Transaction) transition(target TransactionStatus, now time.Time) error {
	if err := t.canTransitionTo(target); err != nil {
		return err
	}
	t.Status = target
	t.UpdatedAt = now
	return nil
}

func (t *Transaction) canTransitionTo(target TransactionStatus) error {
	switch t.Status {
	case TxStatusPending:
		return t.allow(target, TxStatusAuthorized, TxStatusCaptured, TxStatusFailed)
	case TxStatusAuthorized:
		return t.allow(target, TxStatusCapturing, TxStatusCaptured, TxStatusReversed)
	case TxStatusCapturing:
		return t.allow(target, TxStatusCaptured, TxStatusAuthorized)
	case TxStatusCaptured:
		return t.allow(target, TxStatusRefunding, TxStatusPartiallyRefunded, TxStatusRefunded, TxStatusReversed)
	case TxStatusPartiallyRefunded:
		return t.allow(target, TxStatusRefunding, TxStatusPartiallyRefunded, TxStatusRefunded)
	case TxStatusRefunding:
		return t.allow(target, TxStatusPartiallyRefunded, TxStatusRefunded, TxStatusCaptured)
	}
	return NewInvalidTransitionError(string(t.Status), string(target))
}

func (t *Transaction) allow(target TransactionStatus, allowed ...TransactionStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError(string(t.Status), string(target))
}

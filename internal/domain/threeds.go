package domain

import (
	"slices"
	"time"
)

// SessionPhase is the position of a 3-D Secure attempt in its lifecycle.
type SessionPhase string

const (
	PhaseInitiated            SessionPhase = "INITIATED"
	PhaseAwaitingBankRedirect SessionPhase = "AWAITING_BANK_REDIRECT"
	PhaseCallbackReceived     SessionPhase = "CALLBACK_RECEIVED"
	PhaseMerchantDataResolved SessionPhase = "MERCHANT_DATA_RESOLVED"
	PhaseFinalized            SessionPhase = "FINALIZED"
	PhaseRejected             SessionPhase = "REJECTED"
	PhaseAborted              SessionPhase = "ABORTED"
)

// ThreeDSecureSession tracks one cardholder authentication attempt. It is a
// plain value: the service loads it from a SessionStore, applies one
// transition and saves it back, so it survives restarts between the redirect
// and the callback.
type ThreeDSecureSession struct {
	OrderRef string

	// Captured at initiation and compared against the bank's resolved data.
	XID      string
	Amount   int64
	Currency Currency

	Installment string
	TranType    TranType
	Phase       SessionPhase

	MdStatus      string
	BankData      string
	HostLogKey    HostLogKey
	AuthCode      string
	FailureReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResolvedMerchantData is the decrypted data returned by the gateway for a
// bank callback.
type ResolvedMerchantData struct {
	XID            string
	Amount         int64
	Currency       Currency
	MdStatus       string
	MdErrorMessage string
	Mac            string
}

// NewThreeDSecureSession captures the tamper-comparison tuple for an attempt.
func NewThreeDSecureSession(orderRef string, amount Money, installment string, tranType TranType, now time.Time) (*ThreeDSecureSession, error) {
	if orderRef == "" {
		return nil, NewMissingRequiredFieldError("order reference")
	}
	return &ThreeDSecureSession{
		OrderRef:    orderRef,
		XID:         orderRef,
		Amount:      amount.Amount,
		Currency:    amount.Currency,
		Installment: installment,
		TranType:    tranType,
		Phase:       PhaseInitiated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// MarkAwaitingRedirect records that the bank accepted the OOS request.
func (s *ThreeDSecureSession) MarkAwaitingRedirect(now time.Time) error {
	return s.transition(PhaseAwaitingBankRedirect, now)
}

// MarkCallbackReceived stores the opaque bank data posted back by the bank.
func (s *ThreeDSecureSession) MarkCallbackReceived(bankData string, now time.Time) error {
	if err := s.transition(PhaseCallbackReceived, now); err != nil {
		return err
	}
	s.BankData = bankData
	return nil
}

// VerifyResolution checks the resolved data against the captured tuple in a
// fixed order: xid, amount, currency, then MAC. macValid must come from a
// constant-time comparison. A nil return means the data is authentic; it says
// nothing yet about mdStatus.
func (s *ThreeDSecureSession) VerifyResolution(resolved ResolvedMerchantData, macValid bool) *SecurityViolationError {
	switch {
	case resolved.XID != s.XID:
		return NewSecurityViolation(s.OrderRef, CodeTransactionDataMismatch, "xid does not match initiated transaction")
	case resolved.Amount != s.Amount:
		return NewSecurityViolation(s.OrderRef, CodeTransactionDataMismatch, "amount does not match initiated transaction")
	case resolved.Currency != s.Currency:
		return NewSecurityViolation(s.OrderRef, CodeTransactionDataMismatch, "currency does not match initiated transaction")
	case !macValid:
		return NewSecurityViolation(s.OrderRef, CodeMacVerificationFailed, "mac verification failed")
	}
	return nil
}

// MarkMerchantDataResolved records a verified, sufficiently authenticated
// resolution.
func (s *ThreeDSecureSession) MarkMerchantDataResolved(mdStatus string, now time.Time) error {
	if err := s.transition(PhaseMerchantDataResolved, now); err != nil {
		return err
	}
	s.MdStatus = mdStatus
	return nil
}

// Finalize records the host log key of the completed authorization.
func (s *ThreeDSecureSession) Finalize(hostLogKey HostLogKey, authCode string, now time.Time) error {
	if err := s.transition(PhaseFinalized, now); err != nil {
		return err
	}
	s.HostLogKey = hostLogKey
	s.AuthCode = authCode
	return nil
}

// Reject ends the session on a bank decline.
func (s *ThreeDSecureSession) Reject(reason string, now time.Time) error {
	if err := s.transition(PhaseRejected, now); err != nil {
		return err
	}
	s.FailureReason = reason
	return nil
}

// Abort ends the session on a security violation, an unacceptable mdStatus or
// abandonment.
func (s *ThreeDSecureSession) Abort(reason string, now time.Time) error {
	if err := s.transition(PhaseAborted, now); err != nil {
		return err
	}
	s.FailureReason = reason
	return nil
}

func (s *ThreeDSecureSession) IsTerminal() bool {
	switch s.Phase {
	case PhaseFinalized, PhaseRejected, PhaseAborted:
		return true
	default:
		return false
	}
}

func (s *ThreeDSecureSession) transition(target SessionPhase, now time.Time) error {
	if err := s.canTransitionTo(target); err != nil {
		return err
	}
	s.Phase = target
	s.UpdatedAt = now
	return nil
}

func (s *ThreeDSecureSession) canTransitionTo(target SessionPhase) error {
	if s.IsTerminal() {
		return NewInvalidTransitionError(string(s.Phase), string(target))
	}
	if target == PhaseRejected || target == PhaseAborted {
		return nil
	}

	switch s.Phase {
	case PhaseInitiated:
		return s.allow(target, PhaseAwaitingBankRedirect)
	case PhaseAwaitingBankRedirect:
		return s.allow(target, PhaseCallbackReceived)
	case PhaseCallbackReceived:
		return s.allow(target, PhaseMerchantDataResolved)
	case PhaseMerchantDataResolved:
		return s.allow(target, PhaseFinalized)
	}
	return NewInvalidTransitionError(string(s.Phase), string(target))
}

func (s *ThreeDSecureSession) allow(target SessionPhase, allowed ...SessionPhase) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError(string(s.Phase), string(target))
}

// MdStatusAcceptable reports whether the bank's authentication outcome lets the
// flow proceed: 1 is full authentication, 2-4 are attempts the gateway policy
// accepts.
func MdStatusAcceptable(mdStatus string) bool {
	switch mdStatus {
	case "1", "2", "3", "4":
		return true
	}
	return false
}

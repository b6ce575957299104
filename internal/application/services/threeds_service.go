package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/posnet-gateway/internal/application"
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
	"github.com/DanielPopoola/posnet-gateway/internal/security"
	"github.com/DanielPopoola/posnet-gateway/internal/validation"
)

// ThreeDSecureOptions are the merchant settings for the hosted page handoff.
type ThreeDSecureOptions struct {
	PosnetID string
	// RedirectURL is the bank's hosted authentication page.
	RedirectURL string
	// ReturnURL is the callback base; the order reference is appended as the
	// last path segment.
	ReturnURL string
	Lang      string
}

// FormField is one hidden input of the redirect form.
type FormField struct {
	Name  string
	Value string
}

// RedirectForm is what the caller renders to send the cardholder to the bank.
// Fields are ordered and never contain empty optional values.
type RedirectForm struct {
	Action string
	Fields []FormField
}

// Values returns the form as url.Values.
func (f RedirectForm) Values() url.Values {
	v := make(url.Values, len(f.Fields))
	for _, field := range f.Fields {
		v.Set(field.Name, field.Value)
	}
	return v
}

// ThreeDSecureInitiation is the result of Initiate3DS.
type ThreeDSecureInitiation struct {
	OrderRef string
	Form     RedirectForm
}

// ThreeDSecureResolution is a verified callback, ready to finalize.
type ThreeDSecureResolution struct {
	OrderRef string
	XID      string
	Amount   int64
	Currency domain.Currency
	MdStatus string
}

// ThreeDSecureFinalization is the outcome of Finalize3DS. Response is nil when
// the session had already been finalized and the stored result is returned.
type ThreeDSecureFinalization struct {
	OrderRef         string
	HostLogKey       domain.HostLogKey
	AuthCode         string
	AlreadyFinalized bool
	Response         *posnet.ThreeDSecureFinalizeResponse
}

// ThreeDSecureService drives the OOS flow. All state lives in the session
// store between calls, so any instance can handle the callback.
type ThreeDSecureService struct {
	exchange
	header   posnet.Header
	opts     ThreeDSecureOptions
	auth     *security.Authenticator
	sessions application.SessionStore
	journal  application.TransactionJournal
}

func NewThreeDSecureService(
	gateway application.Gateway,
	validator *validation.Validator,
	header posnet.Header,
	opts ThreeDSecureOptions,
	auth *security.Authenticator,
	sessions application.SessionStore,
	journal application.TransactionJournal,
	recorder application.Recorder,
	logger *slog.Logger,
) *ThreeDSecureService {
	return &ThreeDSecureService{
		exchange: newExchange(gateway, validator, recorder, logger),
		header:   header,
		opts:     opts,
		auth:     auth,
		sessions: sessions,
		journal:  journal,
	}
}

// Initiate3DS asks the gateway to encrypt the transaction, stores the session
// with the tuple the resolved data will be checked against, and returns the
// redirect form.
func (s *ThreeDSecureService) Initiate3DS(ctx context.Context, cmd InitiateCommand) (*ThreeDSecureInitiation, error) {
	tranType := cmd.TranType
	if tranType == "" {
		tranType = domain.TranTypeSale
	}

	req, err := posnet.NewThreeDSecureInitiate(s.header, s.opts.PosnetID, tranType, posnet.PaymentInput{
		OrderID:      cmd.OrderID,
		Amount:       cmd.Amount,
		Currency:     cmd.Currency,
		Installments: cmd.Installments,
		Card:         cmd.Card,
	})
	if err := s.validator.ValidateConverted(req, err); err != nil {
		return nil, err
	}

	if _, err := s.sessions.Get(ctx, req.XID); err == nil {
		return nil, domain.NewGatewayError(string(req.Operation()), domain.CodeDuplicateOrderID, "", "3ds session already exists")
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, storeFailure(err)
	}

	money, err := domain.NewMoney(req.Amount, req.Currency)
	if err != nil {
		return nil, application.NewInvalidInputError(err)
	}
	session, err := domain.NewThreeDSecureSession(req.XID, money, req.Installment, tranType, s.now())
	if err != nil {
		return nil, err
	}

	resp, err := send[*posnet.ThreeDSecureInitiateResponse](ctx, &s.exchange, req)
	if err != nil {
		if resp != nil {
			s.end(ctx, session, session.Reject(resp.Outcome().Message, s.now()))
		}
		return nil, err
	}

	if err := session.MarkAwaitingRedirect(s.now()); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, storeFailure(err)
	}

	form, err := s.redirectForm(session.OrderRef, resp, cmd)
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	s.logger.Info("3ds initiated", "order_ref", session.OrderRef, "amount", session.Amount, "currency", session.Currency, "card", req.Card)
	return &ThreeDSecureInitiation{OrderRef: session.OrderRef, Form: form}, nil
}

// ResolveCallback handles the bank's POST back for orderRef. The callback's
// own xid, amount and currency are ignored; the decrypted data is compared with
// the session and its MAC recomputed before anything proceeds.
func (s *ThreeDSecureService) ResolveCallback(ctx context.Context, orderRef string, cb CallbackForm) (*ThreeDSecureResolution, error) {
	session, err := s.sessions.Get(ctx, orderRef)
	if err != nil {
		return nil, err
	}

	switch session.Phase {
	case domain.PhaseMerchantDataResolved, domain.PhaseFinalized:
		// repeated callback for an already verified session
		return resolutionOf(session), nil
	}
	if session.IsTerminal() {
		return nil, domain.NewInvalidTransitionError(string(session.Phase), string(domain.PhaseCallbackReceived))
	}

	if cb.Sign == "" || cb.Mac == "" {
		v := domain.NewSecurityViolation(orderRef, domain.CodeSignatureMissing, "callback without signature or mac")
		s.abort(ctx, session, v)
		return nil, v
	}

	if session.Phase == domain.PhaseCallbackReceived {
		// replay after a resolve that failed technically
		s.logger.Info("3ds callback replayed", "order_ref", orderRef)
	} else {
		if err := session.MarkCallbackReceived(cb.BankData, s.now()); err != nil {
			return nil, err
		}
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, storeFailure(err)
		}
	}

	req := posnet.NewThreeDSecureResolve(s.header, cb.BankData, cb.MerchantData, cb.Sign, cb.Mac)
	resp, err := send[*posnet.ThreeDSecureResolveResponse](ctx, &s.exchange, req)
	if err != nil {
		// Technical failures keep the session so the callback can be replayed.
		if resp != nil && !application.IsRetryable(err) {
			s.end(ctx, session, session.Reject(resp.Outcome().Message, s.now()))
		}
		return nil, err
	}

	resolved := resp.Resolved()
	macValid := s.auth.VerifyTransaction(session.XID, session.Amount, session.Currency, resolved.Mac)
	s.logger.Debug("3ds merchant data resolved", "order_ref", orderRef, "mac_valid", macValid, "md_status", resolved.MdStatus)

	if v := session.VerifyResolution(resolved, macValid); v != nil {
		s.abort(ctx, session, v)
		return nil, v
	}

	if !domain.MdStatusAcceptable(resolved.MdStatus) {
		reason := fmt.Sprintf("mdStatus %q not acceptable", resolved.MdStatus)
		s.end(ctx, session, session.Abort(reason, s.now()))
		s.logger.Warn("3ds authentication failed", "order_ref", orderRef, "md_status", resolved.MdStatus, "md_error", resolved.MdErrorMessage)
		return nil, domain.NewGatewayError(string(req.Operation()), domain.CodeCardholderAuthFailed, resolved.MdStatus, resolved.MdErrorMessage)
	}

	if err := session.MarkMerchantDataResolved(resolved.MdStatus, s.now()); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, storeFailure(err)
	}

	return resolutionOf(session), nil
}

// Finalize3DS completes a verified session. It is idempotent: a finalized
// session returns its stored result, and the gateway's "already approved"
// answer counts as success.
func (s *ThreeDSecureService) Finalize3DS(ctx context.Context, res *ThreeDSecureResolution) (*ThreeDSecureFinalization, error) {
	if res == nil || res.OrderRef == "" {
		return nil, domain.NewMissingRequiredFieldError("order reference")
	}

	session, err := s.sessions.Get(ctx, res.OrderRef)
	if err != nil {
		return nil, err
	}

	if session.Phase == domain.PhaseFinalized {
		return &ThreeDSecureFinalization{
			OrderRef:         session.OrderRef,
			HostLogKey:       session.HostLogKey,
			AuthCode:         session.AuthCode,
			AlreadyFinalized: true,
		}, nil
	}
	if session.Phase != domain.PhaseMerchantDataResolved {
		return nil, domain.NewInvalidTransitionError(string(session.Phase), string(domain.PhaseFinalized))
	}

	mac := s.auth.TransactionMac(session.XID, session.Amount, session.Currency)
	req, err := posnet.NewThreeDSecureFinalize(s.header, session.BankData, decimal.Zero, mac)
	if err := s.validator.ValidateConverted(req, err); err != nil {
		return nil, err
	}

	resp, err := send[*posnet.ThreeDSecureFinalizeResponse](ctx, &s.exchange, req)
	if err != nil {
		if resp != nil && !application.IsRetryable(err) {
			s.end(ctx, session, session.Reject(resp.Outcome().Message, s.now()))
		}
		return nil, err
	}

	hostLogKey, authCode := resp.HostLogKey, resp.AuthCode
	if err := session.Finalize(hostLogKey, authCode, s.now()); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		// The gateway has approved; the caller still gets the host log key.
		s.logger.Error("3ds session save failed after finalize", "order_ref", session.OrderRef, "host_log_key", hostLogKey, "error", err)
	}
	s.journalApproved(ctx, session)

	s.logger.Info("3ds finalized",
		"order_ref", session.OrderRef,
		"host_log_key", hostLogKey,
		"already_finalized", resp.AlreadyFinalized(),
	)
	return &ThreeDSecureFinalization{
		OrderRef:         session.OrderRef,
		HostLogKey:       hostLogKey,
		AuthCode:         authCode,
		AlreadyFinalized: resp.AlreadyFinalized(),
		Response:         resp,
	}, nil
}

// Session returns the stored session for orderRef.
func (s *ThreeDSecureService) Session(ctx context.Context, orderRef string) (*domain.ThreeDSecureSession, error) {
	return s.sessions.Get(ctx, orderRef)
}

func (s *ThreeDSecureService) redirectForm(orderRef string, resp *posnet.ThreeDSecureInitiateResponse, cmd InitiateCommand) (RedirectForm, error) {
	returnURL, err := url.JoinPath(s.opts.ReturnURL, orderRef)
	if err != nil {
		return RedirectForm{}, fmt.Errorf("build return url: %w", err)
	}

	lang := s.opts.Lang
	if lang == "" {
		lang = "tr"
	}

	fields := []FormField{
		{Name: "mid", Value: s.header.MerchantID},
		{Name: "posnetID", Value: s.opts.PosnetID},
		{Name: "posnetData", Value: resp.Data1},
		{Name: "posnetData2", Value: resp.Data2},
		{Name: "digest", Value: resp.Sign},
		{Name: "merchantReturnURL", Value: returnURL},
		{Name: "lang", Value: lang},
	}
	if cmd.VFTCode != "" {
		fields = append(fields, FormField{Name: "vftCode", Value: cmd.VFTCode})
	}
	if cmd.UseJokerVadaa {
		fields = append(fields, FormField{Name: "useJokerVadaa", Value: "1"})
	}

	return RedirectForm{Action: s.opts.RedirectURL, Fields: fields}, nil
}

func (s *ThreeDSecureService) abort(ctx context.Context, session *domain.ThreeDSecureSession, v *domain.SecurityViolationError) {
	s.securityEvent(v)
	s.end(ctx, session, session.Abort(v.Reason, s.now()))
}

// end saves a session after a failure transition.
func (s *ThreeDSecureService) end(ctx context.Context, session *domain.ThreeDSecureSession, transitionErr error) {
	if transitionErr != nil {
		s.logger.Error("3ds session transition rejected", "order_ref", session.OrderRef, "phase", session.Phase, "error", transitionErr)
		return
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("3ds session save failed", "order_ref", session.OrderRef, "phase", session.Phase, "error", err)
	}
}

func (s *ThreeDSecureService) journalApproved(ctx context.Context, session *domain.ThreeDSecureSession) {
	if s.journal == nil {
		return
	}

	kind := domain.KindSale
	if session.TranType == domain.TranTypeAuth {
		kind = domain.KindAuth
	}
	money := domain.Money{Amount: session.Amount, Currency: session.Currency}
	tx, err := domain.NewTransaction(uuid.New().String(), session.OrderRef, kind, money, s.now())
	if err == nil {
		err = tx.Approve(session.HostLogKey, session.AuthCode, s.now())
	}
	if err == nil {
		err = s.journal.Create(ctx, tx)
	}
	if err != nil && !errors.Is(err, domain.ErrDuplicateOrderID) {
		s.logger.Error("journal record of 3ds transaction failed", "order_ref", session.OrderRef, "error", err)
	}
}

func resolutionOf(session *domain.ThreeDSecureSession) *ThreeDSecureResolution {
	return &ThreeDSecureResolution{
		OrderRef: session.OrderRef,
		XID:      session.XID,
		Amount:   session.Amount,
		Currency: session.Currency,
		MdStatus: session.MdStatus,
	}
}

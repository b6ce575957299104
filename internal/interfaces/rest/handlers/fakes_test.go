package handlers

import (
	"context"
	"io"
	"log/slog"

	"github.com/DanielPopoola/posnet-gateway/internal/application/services"
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

type fakePayments struct {
	sale      func(services.PaymentCommand) (*posnet.SaleResponse, error)
	authorize func(services.PaymentCommand) (*posnet.AuthorizeResponse, error)
	capture   func(services.CaptureCommand) (*posnet.CaptureResponse, error)
	reverse   func(services.ReverseCommand) (*posnet.ReverseResponse, error)
	refund    func(services.RefundCommand) (*posnet.ReturnResponse, error)
	points    func(posnet.CardInput) (*posnet.PointInquiryResponse, error)
	agreement func(string) (*posnet.AgreementStatusResponse, error)
}

func (f *fakePayments) Sale(_ context.Context, cmd services.PaymentCommand) (*posnet.SaleResponse, error) {
	return f.sale(cmd)
}

func (f *fakePayments) Authorize(_ context.Context, cmd services.PaymentCommand) (*posnet.AuthorizeResponse, error) {
	return f.authorize(cmd)
}

func (f *fakePayments) Capture(_ context.Context, cmd services.CaptureCommand) (*posnet.CaptureResponse, error) {
	return f.capture(cmd)
}

func (f *fakePayments) Reverse(_ context.Context, cmd services.ReverseCommand) (*posnet.ReverseResponse, error) {
	return f.reverse(cmd)
}

func (f *fakePayments) Refund(_ context.Context, cmd services.RefundCommand) (*posnet.ReturnResponse, error) {
	return f.refund(cmd)
}

func (f *fakePayments) PointInquiry(_ context.Context, card posnet.CardInput) (*posnet.PointInquiryResponse, error) {
	return f.points(card)
}

func (f *fakePayments) AgreementStatus(_ context.Context, orderID string) (*posnet.AgreementStatusResponse, error) {
	return f.agreement(orderID)
}

type fakeThreeDS struct {
	initiate func(services.InitiateCommand) (*services.ThreeDSecureInitiation, error)
	resolve  func(string, services.CallbackForm) (*services.ThreeDSecureResolution, error)
	finalize func(*services.ThreeDSecureResolution) (*services.ThreeDSecureFinalization, error)
	session  func(string) (*domain.ThreeDSecureSession, error)
}

func (f *fakeThreeDS) Initiate3DS(_ context.Context, cmd services.InitiateCommand) (*services.ThreeDSecureInitiation, error) {
	return f.initiate(cmd)
}

func (f *fakeThreeDS) ResolveCallback(_ context.Context, orderRef string, cb services.CallbackForm) (*services.ThreeDSecureResolution, error) {
	return f.resolve(orderRef, cb)
}

func (f *fakeThreeDS) Finalize3DS(_ context.Context, res *services.ThreeDSecureResolution) (*services.ThreeDSecureFinalization, error) {
	return f.finalize(res)
}

func (f *fakeThreeDS) Session(_ context.Context, orderRef string) (*domain.ThreeDSecureSession, error) {
	return f.session(orderRef)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

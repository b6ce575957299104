package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/posnet-gateway/internal/application/services"
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

// PaymentAPI is the payment surface the handlers call.
type PaymentAPI interface {
	Sale(ctx context.Context, cmd services.PaymentCommand) (*posnet.SaleResponse, error)
	Authorize(ctx context.Context, cmd services.PaymentCommand) (*posnet.AuthorizeResponse, error)
	Capture(ctx context.Context, cmd services.CaptureCommand) (*posnet.CaptureResponse, error)
	Reverse(ctx context.Context, cmd services.ReverseCommand) (*posnet.ReverseResponse, error)
	Refund(ctx context.Context, cmd services.RefundCommand) (*posnet.ReturnResponse, error)
	PointInquiry(ctx context.Context, card posnet.CardInput) (*posnet.PointInquiryResponse, error)
	AgreementStatus(ctx context.Context, orderID string) (*posnet.AgreementStatusResponse, error)
}

// ThreeDSecureAPI is the 3-D Secure surface the handlers call.
type ThreeDSecureAPI interface {
	Initiate3DS(ctx context.Context, cmd services.InitiateCommand) (*services.ThreeDSecureInitiation, error)
	ResolveCallback(ctx context.Context, orderRef string, cb services.CallbackForm) (*services.ThreeDSecureResolution, error)
	Finalize3DS(ctx context.Context, res *services.ThreeDSecureResolution) (*services.ThreeDSecureFinalization, error)
	Session(ctx context.Context, orderRef string) (*domain.ThreeDSecureSession, error)
}

var (
	_ PaymentAPI      = (*services.PaymentService)(nil)
	_ ThreeDSecureAPI = (*services.ThreeDSecureService)(nil)
)

// Handlers serves the REST API.
type Handlers struct {
	payments PaymentAPI
	threeDS  ThreeDSecureAPI
	logger   *slog.Logger
}

func NewHandlers(payments PaymentAPI, threeDS ThreeDSecureAPI, logger *slog.Logger) *Handlers {
	return &Handlers{
		payments: payments,
		threeDS:  threeDS,
		logger:   logger,
	}
}

// Register mounts every route on mux. wrap lets the caller decorate each route
// knowing its pattern; nil mounts the handlers as they are.
func (h *Handlers) Register(mux *http.ServeMux, wrap func(pattern string, next http.Handler) http.Handler) {
	if wrap == nil {
		wrap = func(_ string, next http.Handler) http.Handler { return next }
	}
	routes := map[string]http.HandlerFunc{
		"POST /v1/payments/sale":           h.Sale,
		"POST /v1/payments/authorize":      h.Authorize,
		"POST /v1/payments/capture":        h.Capture,
		"POST /v1/payments/reverse":        h.Reverse,
		"POST /v1/payments/refund":         h.Refund,
		"POST /v1/points/inquiry":          h.PointInquiry,
		"GET /v1/agreements/{orderId}":     h.AgreementStatus,
		"POST /v1/3ds/initiate":            h.Initiate3DS,
		"POST /v1/3ds/callback/{orderRef}": h.Callback3DS,
		"GET /v1/3ds/sessions/{orderRef}":  h.GetSession,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, wrap(pattern, fn))
	}
}

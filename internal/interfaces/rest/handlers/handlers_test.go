package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/posnet-gateway/internal/application"
	"github.com/DanielPopoola/posnet-gateway/internal/application/services"
	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
	"github.com/DanielPopoola/posnet-gateway/internal/validation"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code       string                 `json:"code"`
		Message    string                 `json:"message"`
		Category   string                 `json:"category"`
		Retryable  bool                   `json:"retryable"`
		Violations []validation.Violation `json:"violations"`
	} `json:"error"`
}

func serve(t *testing.T, h *Handlers, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

const saleBody = `{
	"orderId": "ORD001",
	"amount": "150.50",
	"currency": "TL",
	"card": {"number": "4111111111111111", "expiry": "12/30", "cvv": "000"}
}`

func TestSale(t *testing.T) {
	t.Run("approved", func(t *testing.T) {
		var got services.PaymentCommand
		payments := &fakePayments{sale: func(cmd services.PaymentCommand) (*posnet.SaleResponse, error) {
			got = cmd
			return &posnet.SaleResponse{HostLogKey: "021000000112", AuthCode: "123456"}, nil
		}}
		h := NewHandlers(payments, &fakeThreeDS{}, discardLogger())

		rec, env := serve(t, h, jsonRequest(http.MethodPost, "/v1/payments/sale", saleBody))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, env.Success)
		assert.True(t, decimal.RequireFromString("150.50").Equal(got.Amount))
		assert.Equal(t, "ORD001", got.OrderID)
		assert.Equal(t, "12/30", got.Card.Expiry)

		var body TransactionResponse
		require.NoError(t, json.Unmarshal(env.Data, &body))
		assert.Equal(t, "sale", body.Operation)
		assert.Equal(t, "021000000112", body.HostLogKey)
		assert.Equal(t, "123456", body.AuthCode)
	})

	t.Run("decline maps to payment required", func(t *testing.T) {
		payments := &fakePayments{sale: func(services.PaymentCommand) (*posnet.SaleResponse, error) {
			return &posnet.SaleResponse{}, domain.NewGatewayError("sale", domain.CodeInsufficientFunds, "0051", "YETERSIZ BAKIYE")
		}}
		h := NewHandlers(payments, &fakeThreeDS{}, discardLogger())

		rec, env := serve(t, h, jsonRequest(http.MethodPost, "/v1/payments/sale", saleBody))

		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.False(t, env.Success)
		assert.Equal(t, application.ErrCodeCardDeclined, env.Error.Code)
		assert.Equal(t, string(domain.CategoryBankDecline), env.Error.Category)
		assert.False(t, env.Error.Retryable)
		assert.NotContains(t, rec.Body.String(), "YETERSIZ")
	})

	t.Run("timeout is retryable", func(t *testing.T) {
		payments := &fakePayments{sale: func(services.PaymentCommand) (*posnet.SaleResponse, error) {
			return nil, domain.NewTechnicalError("sale", domain.CodeTimeout, nil)
		}}
		h := NewHandlers(payments, &fakeThreeDS{}, discardLogger())

		rec, env := serve(t, h, jsonRequest(http.MethodPost, "/v1/payments/sale", saleBody))

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
		assert.True(t, env.Error.Retryable)
	})

	t.Run("violations are listed", func(t *testing.T) {
		payments := &fakePayments{sale: func(services.PaymentCommand) (*posnet.SaleResponse, error) {
			return nil, &validation.ValidationError{
				Operation: posnet.OpSale,
				Violations: []validation.Violation{
					{Field: "card.cvv", Message: "is required"},
					{Field: "orderId", Message: "must be at most 24 characters"},
				},
			}
		}}
		h := NewHandlers(payments, &fakeThreeDS{}, discardLogger())

		rec, env := serve(t, h, jsonRequest(http.MethodPost, "/v1/payments/sale", saleBody))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, application.ErrCodeValidation, env.Error.Code)
		assert.Len(t, env.Error.Violations, 2)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		h := NewHandlers(&fakePayments{}, &fakeThreeDS{}, discardLogger())

		rec, env := serve(t, h, jsonRequest(http.MethodPost, "/v1/payments/sale", `{"orderId":"ORD001","pan":"4111"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, application.ErrCodeInvalidInput, env.Error.Code)
	})
}

func TestCaptureAndRefund(t *testing.T) {
	var capture services.CaptureCommand
	var refund services.RefundCommand
	payments := &fakePayments{
		capture: func(cmd services.CaptureCommand) (*posnet.CaptureResponse, error) {
			capture = cmd
			return &posnet.CaptureResponse{HostLogKey: cmd.HostLogKey}, nil
		},
		refund: func(cmd services.RefundCommand) (*posnet.ReturnResponse, error) {
			refund = cmd
			return &posnet.ReturnResponse{HostLogKey: cmd.HostLogKey}, nil
		},
	}
	h := NewHandlers(payments, &fakeThreeDS{}, discardLogger())

	rec, _ := serve(t, h, jsonRequest(http.MethodPost, "/v1/payments/capture",
		`{"orderId":"ORD001","hostLogKey":"021000000112","amount":100}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.HostLogKey("021000000112"), capture.HostLogKey)
	assert.True(t, decimal.NewFromInt(100).Equal(capture.Amount))
	assert.Empty(t, capture.Currency)

	rec, _ = serve(t, h, jsonRequest(http.MethodPost, "/v1/payments/refund",
		`{"orderId":"ORD001","hostLogKey":"021000000112","amount":"25.25","currency":"TL"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "25.25", refund.Amount.StringFixed(2))
	assert.Equal(t, "TL", refund.Currency)
}

func TestReverse(t *testing.T) {
	t.Run("passes the original operation", func(t *testing.T) {
		var got services.ReverseCommand
		payments := &fakePayments{reverse: func(cmd services.ReverseCommand) (*posnet.ReverseResponse, error) {
			got = cmd
			return &posnet.ReverseResponse{HostLogKey: cmd.HostLogKey}, nil
		}}
		h := NewHandlers(payments, &fakeThreeDS{}, discardLogger())

		rec, env := serve(t, h, jsonRequest(http.MethodPost, "/v1/payments/reverse",
			`{"orderId":"ORD001","hostLogKey":"021000000112","transaction":"auth"}`))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, posnet.OpAuthorize, got.Transaction)
		var body TransactionResponse
		require.NoError(t, json.Unmarshal(env.Data, &body))
		assert.Equal(t, "reverse", body.Operation)
	})

	t.Run("already reversed is a conflict", func(t *testing.T) {
		payments := &fakePayments{reverse: func(services.ReverseCommand) (*posnet.ReverseResponse, error) {
			return nil, domain.NewInvalidTransitionError("REVERSED", "REVERSED")
		}}
		h := NewHandlers(payments, &fakeThreeDS{}, discardLogger())

		rec, env := serve(t, h, jsonRequest(http.MethodPost, "/v1/payments/reverse",
			`{"orderId":"ORD001","hostLogKey":"021000000112"}`))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, domain.ErrCodeInvalidTransition, env.Error.Code)
	})
}

func TestPointInquiry(t *testing.T) {
	balance := int64(1250)
	payments := &fakePayments{points: func(card posnet.CardInput) (*posnet.PointInquiryResponse, error) {
		assert.Equal(t, "4111111111111111", card.Number)
		return &posnet.PointInquiryResponse{Points: &posnet.PointInfo{TotalPoint: &balance, TotalPointAmount: &balance}}, nil
	}}
	h := NewHandlers(payments, &fakeThreeDS{}, discardLogger())

	rec, env := serve(t, h, jsonRequest(http.MethodPost, "/v1/points/inquiry",
		`{"card":{"number":"4111111111111111","expiry":"12/30","cvv":"000"}}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var body PointsBody
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.NotNil(t, body.TotalPoint)
	assert.Equal(t, int64(1250), *body.TotalPoint)
	assert.Equal(t, "12.5", body.TotalPointAmount.String())
}

func TestAgreementStatus(t *testing.T) {
	amount := int64(15050)
	payments := &fakePayments{agreement: func(orderID string) (*posnet.AgreementStatusResponse, error) {
		assert.Equal(t, "ORD001", orderID)
		return &posnet.AgreementStatusResponse{Transactions: []posnet.AgreementTransaction{
			{OrderID: orderID, HostLogKey: "021000000112", State: "Sale", Type: "Sale", Amount: &amount, Currency: domain.CurrencyTL},
		}}, nil
	}}
	h := NewHandlers(payments, &fakeThreeDS{}, discardLogger())

	rec, env := serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/agreements/ORD001", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body AgreementResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.Len(t, body.Transactions, 1)
	assert.Equal(t, "150.5", body.Transactions[0].Amount.String())
	assert.Equal(t, "TL", body.Transactions[0].Currency)
}

func initiation() *services.ThreeDSecureInitiation {
	return &services.ThreeDSecureInitiation{
		OrderRef: "ORD001",
		Form: services.RedirectForm{
			Action: "https://setmpos.ykb.com/3DSWebService/YKBPaymentService",
			Fields: []services.FormField{
				{Name: "mid", Value: "6706598320"},
				{Name: "posnetData", Value: "<enc&data>"},
				{Name: "merchantReturnURL", Value: "https://shop.example.com/v1/3ds/callback/ORD001"},
			},
		},
	}
}

func TestInitiate3DS(t *testing.T) {
	threeDS := &fakeThreeDS{initiate: func(cmd services.InitiateCommand) (*services.ThreeDSecureInitiation, error) {
		assert.Equal(t, domain.TranTypeAuth, cmd.TranType)
		return initiation(), nil
	}}
	h := NewHandlers(&fakePayments{}, threeDS, discardLogger())
	body := `{
		"orderId": "ORD001",
		"amount": 150.5,
		"currency": "TL",
		"tranType": "Auth",
		"card": {"number": "4111111111111111", "expiry": "12/30", "cvv": "000"}
	}`

	t.Run("json", func(t *testing.T) {
		rec, env := serve(t, h, jsonRequest(http.MethodPost, "/v1/3ds/initiate", body))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp InitiateResponse
		require.NoError(t, json.Unmarshal(env.Data, &resp))
		assert.Equal(t, "ORD001", resp.OrderRef)
		assert.Equal(t, "6706598320", resp.Fields["mid"])
		assert.Equal(t, "<enc&data>", resp.Fields["posnetData"])
	})

	t.Run("html form escapes values", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/v1/3ds/initiate", body)
		req.Header.Set("Accept", "text/html")

		rec, _ := serve(t, h, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		page := rec.Body.String()
		assert.Contains(t, page, `action="https://setmpos.ykb.com/3DSWebService/YKBPaymentService"`)
		assert.Contains(t, page, `name="posnetData" value="&lt;enc&amp;data&gt;"`)
		assert.Contains(t, page, "document.forms[0].submit()")
	})
}

func callbackRequest(orderRef string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/3ds/callback/"+orderRef, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestCallback3DS(t *testing.T) {
	form := url.Values{
		"BankPacket":     {"BANKDATA"},
		"MerchantPacket": {"MERCHANTDATA"},
		"Sign":           {"SIGN"},
		"Mac":            {"MAC"},
		"MdStatus":       {"1"},
		"Xid":            {"ORD001"},
	}

	t.Run("resolves then finalizes", func(t *testing.T) {
		var got services.CallbackForm
		threeDS := &fakeThreeDS{
			resolve: func(orderRef string, cb services.CallbackForm) (*services.ThreeDSecureResolution, error) {
				assert.Equal(t, "ORD001", orderRef)
				got = cb
				return &services.ThreeDSecureResolution{OrderRef: orderRef, MdStatus: "1"}, nil
			},
			finalize: func(res *services.ThreeDSecureResolution) (*services.ThreeDSecureFinalization, error) {
				return &services.ThreeDSecureFinalization{OrderRef: res.OrderRef, HostLogKey: "021000000199", AuthCode: "654321"}, nil
			},
		}
		h := NewHandlers(&fakePayments{}, threeDS, discardLogger())

		rec, env := serve(t, h, callbackRequest("ORD001", form))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "BANKDATA", got.BankData)
		assert.Equal(t, "MERCHANTDATA", got.MerchantData)
		assert.Equal(t, "SIGN", got.Sign)
		assert.Equal(t, "MAC", got.Mac)

		var body FinalizeResponse
		require.NoError(t, json.Unmarshal(env.Data, &body))
		assert.Equal(t, "021000000199", body.HostLogKey)
		assert.Equal(t, "1", body.MdStatus)
		assert.False(t, body.AlreadyFinalized)
	})

	t.Run("security violation is forbidden and never finalized", func(t *testing.T) {
		threeDS := &fakeThreeDS{
			resolve: func(orderRef string, _ services.CallbackForm) (*services.ThreeDSecureResolution, error) {
				return nil, domain.NewSecurityViolation(orderRef, domain.CodeTransactionDataMismatch, "amount mismatch")
			},
			finalize: func(*services.ThreeDSecureResolution) (*services.ThreeDSecureFinalization, error) {
				t.Fatal("finalize must not run")
				return nil, nil
			},
		}
		h := NewHandlers(&fakePayments{}, threeDS, discardLogger())

		rec, env := serve(t, h, callbackRequest("ORD001", form))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, application.ErrCodeSecurityViolation, env.Error.Code)
		assert.NotContains(t, rec.Body.String(), "amount mismatch")
	})
}

func TestGetSession(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		threeDS := &fakeThreeDS{session: func(orderRef string) (*domain.ThreeDSecureSession, error) {
			return &domain.ThreeDSecureSession{
				OrderRef:  orderRef,
				XID:       orderRef,
				Amount:    15050,
				Currency:  domain.CurrencyTL,
				TranType:  domain.TranTypeSale,
				Phase:     domain.PhaseAwaitingBankRedirect,
				BankData:  "SECRET",
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}}
		h := NewHandlers(&fakePayments{}, threeDS, discardLogger())

		rec, env := serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/3ds/sessions/ORD001", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body SessionResponse
		require.NoError(t, json.Unmarshal(env.Data, &body))
		assert.Equal(t, "AWAITING_BANK_REDIRECT", body.Phase)
		assert.Equal(t, "150.5", body.Amount.String())
		assert.NotContains(t, rec.Body.String(), "SECRET")
	})

	t.Run("unknown", func(t *testing.T) {
		threeDS := &fakeThreeDS{session: func(orderRef string) (*domain.ThreeDSecureSession, error) {
			return nil, domain.NewSessionNotFoundError(orderRef)
		}}
		h := NewHandlers(&fakePayments{}, threeDS, discardLogger())

		rec, env := serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/3ds/sessions/NOPE", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, domain.ErrCodeSessionNotFound, env.Error.Code)
	})
}

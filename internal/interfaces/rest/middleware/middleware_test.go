package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/posnet-gateway/internal/interfaces/rest/openapi"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	t.Run("keeps a valid caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "5f0c8a7e-3f7b-4d0e-9a55-5b2f3c1d9e10")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.Equal(t, "5f0c8a7e-3f7b-4d0e-9a55-5b2f3c1d9e10", seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("replaces a malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		assert.NotEqual(t, "<script>", seen)
		assert.Len(t, seen, 36)
	})
}

type observed struct {
	pattern string
	status  int
}

type fakeObserver struct {
	calls []observed
}

func (f *fakeObserver) ObserveRequest(pattern string, status int) {
	f.calls = append(f.calls, observed{pattern, status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	obs := &fakeObserver{}
	wrap := Metrics(obs)
	mux := http.NewServeMux()
	pattern := "GET /v1/3ds/sessions/{orderRef}"
	mux.Handle(pattern, wrap(pattern, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/3ds/sessions/ORD001", nil))
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/3ds/sessions/ORD002", nil))

	require.Len(t, obs.calls, 2)
	assert.Equal(t, observed{pattern, http.StatusNotFound}, obs.calls[0])
	assert.Equal(t, obs.calls[0], obs.calls[1])
}

func TestRecovery(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestValidateRequests(t *testing.T) {
	doc, err := openapi.Load(context.Background())
	require.NoError(t, err)
	validate, err := ValidateRequests(doc, discardLogger())
	require.NoError(t, err)

	reached := false
	h := validate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		body, _ := io.ReadAll(r.Body)
		assert.NotEmpty(t, body)
		w.WriteHeader(http.StatusOK)
	}))

	post := func(path, body string) *httptest.ResponseRecorder {
		reached = false
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid body reaches the handler intact", func(t *testing.T) {
		rec := post("/v1/payments/sale", `{"orderId":"ORD001","amount":"150.50","currency":"TL","card":{"number":"4111111111111111","expiry":"12/30","cvv":"000"}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, reached)
	})

	t.Run("missing card is rejected", func(t *testing.T) {
		rec := post("/v1/payments/sale", `{"orderId":"ORD001","amount":"150.50","currency":"TL"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, reached)

		var env struct {
			Success bool `json:"success"`
			Error   struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	})

	t.Run("undocumented path passes through", func(t *testing.T) {
		rec := post("/internal/debug", `{}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, reached)
	})
}

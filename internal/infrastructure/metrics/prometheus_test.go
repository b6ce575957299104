package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/infrastructure/metrics"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	rec.ObserveOperation(posnet.OpSale, domain.CategorySuccess, 120*time.Millisecond)
	rec.ObserveOperation(posnet.OpSale, domain.CategoryBankDecline, 80*time.Millisecond)
	rec.ObserveOperation(posnet.OpSale, domain.CategorySuccess, 90*time.Millisecond)
	rec.SecurityEvent(domain.CodeMacVerificationFailed)
	rec.ObserveRequest("/v1/payments/sale", 200)
	rec.ObserveRequest("/v1/payments/sale", 402)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"posnet_gateway_operations_total",
		"posnet_gateway_operation_duration_seconds",
		"posnet_security_events_total",
		"posnet_http_requests_total",
		"posnet_http_request_errors_total",
	}, names)

	count, err := testutil.GatherAndCount(reg, "posnet_gateway_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per operation and category")

	count, err = testutil.GatherAndCount(reg, "posnet_http_request_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecorder_RejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewRecorder(reg)

	assert.Panics(t, func() { metrics.NewRecorder(reg) })
}

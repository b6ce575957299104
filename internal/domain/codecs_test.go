package domain_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"150.50", 15050},
		{"0.01", 1},
		{"1", 100},
		{"10.005", 1001},
		{"10.004", 1000},
		{"-10.005", -1001},
		{"9999999.99", 999_999_999},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ToMinorUnits(decimal.RequireFromString(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("out of range", func(t *testing.T) {
		_, err := domain.ToMinorUnits(decimal.RequireFromString("10000000.00"))
		assert.ErrorIs(t, err, domain.ErrAmountRange)
	})
}

func TestToMinorUnits_RoundTrip(t *testing.T) {
	for minor := int64(0); minor < 100_000; minor += 37 {
		a := decimal.New(minor, -2)

		got, err := domain.ToMinorUnits(a)
		require.NoError(t, err)
		assert.True(t, a.Equal(domain.FromMinorUnits(got)), "amount %s", a)
	}
}

func TestFormatExpiry(t *testing.T) {
	got, err := domain.FormatExpiry(8, 2030)
	require.NoError(t, err)
	assert.Equal(t, "3008", got)

	got, err = domain.FormatExpiry(12, 2005)
	require.NoError(t, err)
	assert.Equal(t, "0512", got)

	for _, month := range []int{0, 13, -1} {
		_, err := domain.FormatExpiry(month, 2030)
		assert.ErrorIs(t, err, domain.ErrInvalidExpiry, "month %d", month)
	}
}

func TestParseExpiry(t *testing.T) {
	month, year, err := domain.ParseExpiry("08/2030")
	require.NoError(t, err)
	assert.Equal(t, 8, month)
	assert.Equal(t, 30, year)

	month, year, err = domain.ParseExpiry(" 1/27 ")
	require.NoError(t, err)
	assert.Equal(t, 1, month)
	assert.Equal(t, 27, year)

	for _, raw := range []string{"", "0830", "13/2030", "08/1999", "08/203", "aa/bb"} {
		_, _, err := domain.ParseExpiry(raw)
		assert.ErrorIs(t, err, domain.ErrInvalidExpiry, raw)
	}
}

func TestMaskPan(t *testing.T) {
	assert.Equal(t, "4506****0017", domain.MaskPan("4506349043640017"))
	assert.Equal(t, "1234****7890", domain.MaskPan("1234567890"))
	assert.Equal(t, "****", domain.MaskPan("123456789"))
	assert.Equal(t, "****", domain.MaskPan(""))
}

func TestMaskPan_NeverExposesMoreThanEightDigits(t *testing.T) {
	for length := 10; length <= 19; length++ {
		pan := strings.Repeat("7", length)

		masked := domain.MaskPan(pan)

		assert.LessOrEqual(t, strings.Count(masked, "7"), 8, "length %d", length)
	}
}

func TestNormalizePan(t *testing.T) {
	assert.Equal(t, "4506349043640017", domain.NormalizePan("4506 3490-4364\t0017"))
}

func TestFormatInstallment(t *testing.T) {
	assert.Equal(t, "00", domain.FormatInstallment(0))
	assert.Equal(t, "00", domain.FormatInstallment(1))
	assert.Equal(t, "03", domain.FormatInstallment(3))
	assert.Equal(t, "12", domain.FormatInstallment(12))
}

func TestIsDigits(t *testing.T) {
	assert.True(t, domain.IsDigits("0123456789"))
	for _, s := range []string{"", "+1", "-1", "1.5", "1e3", " 1", "١٢"} {
		assert.False(t, domain.IsDigits(s), s)
	}
}

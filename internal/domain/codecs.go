package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxAmountMinor is the largest amount, in minor units, the gateway accepts.
	MaxAmountMinor int64 = 999_999_999

	maskedPlaceholder = "****"
)

var (
	ErrInvalidExpiry = errors.New("invalid expiry")
	ErrAmountRange   = errors.New("amount out of range")
)

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a decimal currency amount into integer minor units,
// rounding half away from zero. Every decimal-to-wire amount conversion goes
// through here so validation and signing always see the same integer.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	scaled := amount.Mul(hundred)

	// decimal.Round rounds half away from zero.
	rounded := scaled.Round(0)
	if rounded.Abs().GreaterThan(decimal.NewFromInt(MaxAmountMinor)) {
		return 0, fmt.Errorf("%w: %s", ErrAmountRange, amount.String())
	}
	return rounded.IntPart(), nil
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FormatExpiry renders a card expiry as the gateway's fixed-width YYMM string.
func FormatExpiry(month, year int) (string, error) {
	if month < 1 || month > 12 {
		return "", fmt.Errorf("%w: month %d", ErrInvalidExpiry, month)
	}
	if year >= 2000 {
		year -= 2000
	}
	if year < 0 || year > 99 {
		return "", fmt.Errorf("%w: year %d", ErrInvalidExpiry, year)
	}
	return fmt.Sprintf("%02d%02d", year, month), nil
}

// ParseExpiry accepts "MM/YYYY" or "MM/YY" and returns the month and the
// two-digit year offset from 2000.
func ParseExpiry(raw string) (month, year int, err error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: expected MM/YYYY, got %q", ErrInvalidExpiry, raw)
	}

	month, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: bad month in %q", ErrInvalidExpiry, raw)
	}

	yearPart := strings.TrimSpace(parts[1])
	year, err = strconv.Atoi(yearPart)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad year in %q", ErrInvalidExpiry, raw)
	}
	switch len(yearPart) {
	case 2:
	case 4:
		year -= 2000
	default:
		return 0, 0, fmt.Errorf("%w: bad year in %q", ErrInvalidExpiry, raw)
	}
	if year < 0 || year > 99 {
		return 0, 0, fmt.Errorf("%w: year out of range in %q", ErrInvalidExpiry, raw)
	}
	return month, year, nil
}

// MaskPan returns first4 + "****" + last4. Anything shorter than ten
// characters collapses to a fixed placeholder.
func MaskPan(cardNumber string) string {
	if len(cardNumber) < 10 {
		return maskedPlaceholder
	}
	return cardNumber[:4] + maskedPlaceholder + cardNumber[len(cardNumber)-4:]
}

// NormalizePan strips the separators people type into card numbers.
func NormalizePan(raw string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}
		return r
	}, raw)
}

// FormatInstallment renders an installment count as the 2-digit wire code.
// Zero and one both mean a single payment, which the gateway spells "00".
func FormatInstallment(count int) string {
	if count <= 1 {
		return "00"
	}
	return fmt.Sprintf("%02d", count)
}

// IsDigits reports whether s is non-empty and made of '0'-'9' only.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

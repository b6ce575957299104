package domain

import (
	"fmt"
	"strings"
)

// Currency is the gateway's 2-letter currency code. It is not ISO-4217.
type Currency string

const (
	CurrencyTL Currency = "TL"
	CurrencyUS Currency = "US"
	CurrencyEU Currency = "EU"
)

// ParseCurrency accepts either the gateway code or the ISO alpha code.
func ParseCurrency(raw string) (Currency, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TL", "TRY", "YTL":
		return CurrencyTL, nil
	case "US", "USD":
		return CurrencyUS, nil
	case "EU", "EUR":
		return CurrencyEU, nil
	}
	return "", fmt.Errorf("unsupported currency %q", raw)
}

func (c Currency) String() string {
	return string(c)
}

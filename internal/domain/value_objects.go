package domain

import (
	"errors"
)

// HostLogKey is the gateway's opaque handle for a completed transaction. It is
// the only valid reference for a later capture, reversal or return.
type HostLogKey string

func (k HostLogKey) String() string {
	return string(k)
}

// Money is an amount in minor units with its gateway currency.
type Money struct {
	Amount   int64
	Currency Currency
}

func NewMoney(amount int64, currency Currency) (Money, error) {
	if amount <= 0 {
		return Money{}, errors.New("amount must be positive")
	}
	if amount > MaxAmountMinor {
		return Money{}, ErrAmountRange
	}
	if currency == "" {
		return Money{}, errors.New("currency is required")
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// TranType is the transaction kind a 3-D Secure flow ends in.
type TranType string

const (
	TranTypeSale TranType = "Sale"
	TranTypeAuth TranType = "Auth"
)

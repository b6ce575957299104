package domain

import (
	"fmt"
	"log/slog"
	"time"
)

// CardInfo carries raw card data for a single outbound request. It is never
// persisted, and every textual rendering goes through MaskPan.
type CardInfo struct {
	Number      string `validate:"required,min=13,max=19,digits"`
	ExpiryMonth int    `validate:"min=1,max=12"`
	ExpiryYear  int    `validate:"min=0,max=99"`
	CVV         string `validate:"required,min=3,max=4,digits"`
	HolderName  string `validate:"max=60"`
}

// NewCardInfo builds a CardInfo from raw, human-oriented input: a PAN that may
// contain spaces or dashes and an "MM/YYYY" expiry. On a bad expiry the
// returned card still carries the other fields, with the expiry left at zero.
func NewCardInfo(pan, expiry, cvv, holder string) (CardInfo, error) {
	card := CardInfo{
		Number:     NormalizePan(pan),
		CVV:        cvv,
		HolderName: holder,
	}
	month, year, err := ParseExpiry(expiry)
	if err != nil {
		return card, err
	}
	card.ExpiryMonth, card.ExpiryYear = month, year
	return card, nil
}

// Expiry returns the wire YYMM form.
func (c CardInfo) Expiry() (string, error) {
	return FormatExpiry(c.ExpiryMonth, c.ExpiryYear)
}

// Masked returns the masked PAN.
func (c CardInfo) Masked() string {
	return MaskPan(c.Number)
}

// ExpiredAt reports whether the card has lapsed at now. A card is valid through
// the last instant of its expiry month.
func (c CardInfo) ExpiredAt(now time.Time) bool {
	if c.ExpiryMonth < 1 || c.ExpiryMonth > 12 {
		return true
	}
	firstOfNext := time.Date(2000+c.ExpiryYear, time.Month(c.ExpiryMonth)+1, 1, 0, 0, 0, 0, now.Location())
	return !now.Before(firstOfNext)
}

func (c CardInfo) String() string {
	return fmt.Sprintf("card(%s %02d/%02d)", c.Masked(), c.ExpiryMonth, c.ExpiryYear)
}

func (c CardInfo) GoString() string {
	return c.String()
}

func (c CardInfo) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("pan", c.Masked()),
		slog.Int("expiry_month", c.ExpiryMonth),
		slog.Int("expiry_year", c.ExpiryYear),
	)
}

// Luhn reports whether number passes the mod-10 checksum.
func Luhn(number string) bool {
	if number == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

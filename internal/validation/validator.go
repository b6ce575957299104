// Package validation checks outbound gateway requests before any network call.
// It reports every violation in a request, not just the first.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator"

	"github.com/DanielPopoola/posnet-gateway/internal/domain"
	"github.com/DanielPopoola/posnet-gateway/internal/posnet"
)

const (
	tagCurrency    = "currency"
	tagInstallment = "installment"
	tagNotExpired  = "notexpired"
	tagLuhn        = "luhn"
	tagDigits      = "digits"
)

// Violation is one field-level problem.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// ValidationError wraps all violations of a request for fail-fast callers.
type ValidationError struct {
	Operation  posnet.Operation
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("invalid %s request: %s", e.Operation, strings.Join(msgs, "; "))
}

type Option func(*Validator)

// WithClock sets the time source for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// WithLuhn turns the card number checksum on or off. It is off by default
// because sandbox test cards routinely fail it.
func WithLuhn(enforce bool) Option {
	return func(v *Validator) {
		v.enforceLuhn = enforce
	}
}

// Validator is safe for concurrent use.
type Validator struct {
	validate    *validator.Validate
	now         func() time.Time
	enforceLuhn bool
}

func New(opts ...Option) *Validator {
	v := &Validator{
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}

	// Registration only fails for empty tags or nil functions.
	_ = v.validate.RegisterValidation(tagDigits, validDigits)
	_ = v.validate.RegisterValidation(tagCurrency, validCurrency)
	_ = v.validate.RegisterValidation(tagInstallment, validInstallment)
	v.validate.RegisterStructValidation(v.validateCard, domain.CardInfo{})

	return v
}

// Validate returns every violation in req. An empty result means valid.
func (v *Validator) Validate(req posnet.Request) []Violation {
	if req == nil || reflect.ValueOf(req).IsNil() {
		return []Violation{{Field: "request", Message: "request is required"}}
	}

	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{{Field: "request", Message: err.Error()}}
	}

	violations := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, toViolation(fe))
	}
	return violations
}

// ValidateOrThrow returns a *ValidationError holding all violations, or nil.
func (v *Validator) ValidateOrThrow(req posnet.Request) error {
	violations := v.Validate(req)
	if len(violations) == 0 {
		return nil
	}
	var op posnet.Operation
	if req != nil && !reflect.ValueOf(req).IsNil() {
		op = req.Operation()
	}
	return &ValidationError{Operation: op, Violations: violations}
}

// ValidateConverted validates a request built by a posnet factory together
// with the factory's conversion error. Fields that failed to convert are
// reported once, with the conversion message, next to every other violation.
// An error that is not a *posnet.ConversionError is returned unchanged.
func (v *Validator) ValidateConverted(req posnet.Request, convErr error) error {
	if convErr == nil {
		return v.ValidateOrThrow(req)
	}
	conv, ok := posnet.AsConversionError(convErr)
	if !ok || req == nil || reflect.ValueOf(req).IsNil() {
		return convErr
	}

	violations := make([]Violation, 0, len(conv.Fields))
	for _, f := range conv.Fields {
		violations = append(violations, Violation{Field: f.Field, Message: f.Err.Error()})
	}
	for _, viol := range v.Validate(req) {
		if !coveredBy(viol.Field, conv.Fields) {
			violations = append(violations, viol)
		}
	}
	return &ValidationError{Operation: req.Operation(), Violations: violations}
}

// coveredBy reports whether field is, or belongs to, a field that failed to
// convert: "card.expiry" covers "card.expiryMonth".
func coveredBy(field string, failed []posnet.FieldConversion) bool {
	for _, f := range failed {
		if strings.HasPrefix(field, f.Field) {
			return true
		}
	}
	return false
}

func (v *Validator) validateCard(sl validator.StructLevel) {
	card, ok := sl.Current().Interface().(domain.CardInfo)
	if !ok {
		return
	}

	// An out-of-range month is already reported by its field tag.
	if card.ExpiryMonth >= 1 && card.ExpiryMonth <= 12 && card.ExpiredAt(v.now()) {
		sl.ReportError(card.ExpiryMonth, "Expiry", "Expiry", tagNotExpired, "")
	}
	if v.enforceLuhn && card.Number != "" && !domain.Luhn(card.Number) {
		sl.ReportError(card.Number, "Number", "Number", tagLuhn, "")
	}
}

// validDigits accepts ASCII digits only. The built-in numeric tag also lets
// signs and a decimal point through.
func validDigits(fl validator.FieldLevel) bool {
	return domain.IsDigits(fl.Field().String())
}

func validCurrency(fl validator.FieldLevel) bool {
	switch domain.Currency(fl.Field().String()) {
	case domain.CurrencyTL, domain.CurrencyUS, domain.CurrencyEU:
		return true
	}
	return false
}

// validInstallment accepts "00" for a single payment or "02" through "12".
// "01" is never valid.
func validInstallment(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return false
	}
	n := int(s[0]-'0')*10 + int(s[1]-'0')
	return n == 0 || (n >= 2 && n <= 12)
}

func toViolation(fe validator.FieldError) Violation {
	field := fieldPath(fe.Namespace())
	return Violation{Field: field, Message: message(field, fe)}
}

func message(field string, fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case tagDigits:
		return field + " must contain only digits"
	case "alphanum":
		return field + " must be alphanumeric"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case tagCurrency:
		return field + " must be one of TL, US, EU"
	case tagInstallment:
		return field + " must be 00 or 02-12"
	case tagNotExpired:
		return "card has expired"
	case tagLuhn:
		return "card number fails checksum"
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// fieldPath turns "SaleRequest.Header.MerchantID" into "merchantID".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "Header" {
			continue
		}
		out = append(out, lowerFirst(p))
	}
	return strings.Join(out, ".")
}

// lowerFirst lowercases a leading acronym as a unit: CVV -> cvv, XID -> xid,
// HostLogKey -> hostLogKey.
func lowerFirst(s string) string {
	r := []rune(s)
	upper := 0
	for upper < len(r) && unicode.IsUpper(r[upper]) {
		upper++
	}
	switch {
	case upper == 0:
		return s
	case upper == len(r) || upper == 1:
	default:
		// the last capital starts the next word
		upper--
	}
	for i := 0; i < upper; i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

package core

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// maxCents bounds a single amount to one trillion currency units.
const maxCents = int64(1e14)

// Money is an amount in integer cents. Parsing and display go through
// shopspring/decimal so user input never touches float64.
type Money struct {
	Cents int64
}

// ParseAmount converts a decimal string to Money with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for malformed, negative or zero values.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,345") -> 1235 cents
//	ParseAmount("12.344") -> 1234 cents
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// FromDecimal rounds d half-up to cents.
func FromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(2).Round(0)
	if !cents.IsPositive() || cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > maxCents {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two decimals, e.g. "12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// MarshalJSON encodes money as a decimal string to avoid float rounding on clients.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts "12.34", "12,34" or a bare JSON number.
func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return ErrInvalidAmount
		}
	} else {
		s = string(b)
	}
	if s == "" || s == "null" {
		*m = Money{}
		return nil
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Signed returns the amount with a sign matching the transaction type.
func Signed(t TxType, m Money) decimal.Decimal {
	if t == Expense {
		return m.Decimal().Neg()
	}
	return m.Decimal()
}

package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of minor-unit digits (paise).
const Scale = 2

// ErrOverflow is returned when a value does not fit in an Amount.
var ErrOverflow = errors.New("amount out of range")

// Amount is a fixed-point currency value stored as minor units.
type Amount int64

// FromDecimal rounds d half-to-even to minor units.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	minor := d.RoundBank(Scale).Shift(Scale)
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, d.String())
	}
	return Amount(minor.IntPart()), nil
}

// Parse reads a decimal string such as "220.00".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Total multiplies each price by its quantity, sums exactly and rounds once.
// A sum too large for an Amount returns ErrOverflow.
func Total(lines []Line) (Amount, error) {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return FromDecimal(sum)
}

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of minor-unit digits carried by Money.
const MoneyScale = 2

// MaxMoney bounds the magnitude of any single amount and of any total built
// from amounts.
const MaxMoney Money = 1 << 53

// Money is an amount in minor units (hundredths of a shilling).
// It travels as a decimal string ("120000.00") on the wire.
type Money int64

// groupedAmount matches amounts written with comma thousands separators.
var groupedAmount = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// ParseMoney parses a decimal string such as "120000", "1,250,000" or
// "1500.50". Commas are only accepted as thousands separators. More than
// MoneyScale fractional digits is rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.Contains(s, ",") {
		if !groupedAmount.MatchString(s) {
			return 0, fmt.Errorf("invalid amount %q: misplaced thousands separator", s)
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if !d.Equal(d.Truncate(MoneyScale)) {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", s, MoneyScale)
	}
	minor := d.Shift(MoneyScale)
	if !minor.IsInteger() || minor.Abs().GreaterThan(decimal.NewFromInt(int64(MaxMoney))) {
		return 0, fmt.Errorf("amount %q out of range", s)
	}
	return Money(minor.IntPart()), nil
}

// MustMoney is ParseMoney for literals in tests and fixtures.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Shillings builds Money from a whole-shilling amount.
func Shillings(n int64) Money {
	return Money(n * 100)
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -MoneyScale)
}

// String renders the amount with exactly MoneyScale decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(MoneyScale)
}

func (m Money) IsPositive() bool { return m > 0 }

func (m Money) IsNegative() bool { return m < 0 }

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "1500.50" and 1500.50.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Add returns m+o. ok is false when either operand or the result lies
// outside ±MaxMoney.
func (m Money) Add(o Money) (sum Money, ok bool) {
	if !m.inRange() || !o.inRange() {
		return 0, false
	}
	// Both operands are within 2^53, so the int64 sum cannot wrap.
	sum = m + o
	return sum, sum.inRange()
}

// Sub returns m-o with the same range rules as Add.
func (m Money) Sub(o Money) (Money, bool) {
	if !o.inRange() {
		return 0, false
	}
	return m.Add(-o)
}

func (m Money) inRange() bool { return m >= -MaxMoney && m <= MaxMoney }

// SumMoney adds up amounts, failing when the total leaves ±MaxMoney.
func SumMoney(amounts ...Money) (Money, error) {
	var total Money
	for _, a := range amounts {
		var ok bool
		if total, ok = total.Add(a); !ok {
			return 0, &ErrValidation{Field: "amount", Message: "total out of range"}
		}
	}
	return total, nil
}

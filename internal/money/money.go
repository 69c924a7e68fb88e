// Package money provides the exact decimal amount type used by every ledger,
// budget and goal computation.
//
// Amounts are backed by shopspring/decimal, never by binary floats. Parsing is
// strict: input that does not look like a plain decimal number after thousands
// separators are removed yields an invalid Money instead of a wrong number.
// Arithmetic treats an invalid operand as zero, so a bad row degrades a total
// instead of failing a whole report.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DivisionPlaces is the number of fractional digits kept by Div.
	DivisionPlaces int32 = 28
	// DisplayPlaces is the rounding applied for display and installment targets.
	DisplayPlaces int32 = 2
	// StoragePlaces is the fixed number of fractional digits in the persisted form.
	StoragePlaces int32 = 4
)

// ErrInvalidAmount is returned by the JSON and database boundaries when a value
// cannot be parsed as an amount.
var ErrInvalidAmount = errors.New("invalid amount")

var numericPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Money is an exact decimal quantity. The zero value is a valid zero.
type Money struct {
	d       decimal.Decimal
	invalid bool
}

// Zero is the valid zero amount.
var Zero = Money{}

// Invalid returns the "no value" sentinel produced by failed parses.
func Invalid() Money {
	return Money{invalid: true}
}

// New wraps a decimal.
func New(d decimal.Decimal) Money {
	return Money{d: d}
}

// NewFromInt returns a whole amount.
func NewFromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// Parse converts external input into Money. It accepts strings (with optional
// thousands separators), json.Number, integer and float kinds, decimal.Decimal
// and Money. The second return value is false when the input is rejected, in
// which case the returned Money is Invalid().
func Parse(input any) (Money, bool) {
	switch v := input.(type) {
	case Money:
		return v, v.Valid()
	case *Money:
		if v == nil {
			return Invalid(), false
		}
		return *v, v.Valid()
	case decimal.Decimal:
		return Money{d: v}, true
	case *decimal.Decimal:
		if v == nil {
			return Invalid(), false
		}
		return Money{d: *v}, true
	case string:
		return parseString(v)
	case json.Number:
		return parseString(v.String())
	case int:
		return NewFromInt(int64(v)), true
	case int32:
		return NewFromInt(int64(v)), true
	case int64:
		return NewFromInt(v), true
	case uint:
		return parseString(strconv.FormatUint(uint64(v), 10))
	case uint32:
		return NewFromInt(int64(v)), true
	case uint64:
		return parseString(strconv.FormatUint(v, 10))
	case float32:
		return parseString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case float64:
		return parseString(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return Invalid(), false
	}
}

func parseString(s string) (Money, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if !numericPattern.MatchString(cleaned) {
		return Invalid(), false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return Invalid(), false
	}
	return Money{d: d}, true
}

// MustParse is like Parse but panics on invalid input. Use it for literals.
func MustParse(s string) Money {
	m, ok := Parse(s)
	if !ok {
		panic(fmt.Sprintf("money: invalid literal %q", s))
	}
	return m
}

// Valid reports whether m holds a value.
func (m Money) Valid() bool { return !m.invalid }

// Decimal returns the underlying decimal. Invalid amounts return zero.
func (m Money) Decimal() decimal.Decimal {
	if m.invalid {
		return decimal.Zero
	}
	return m.d
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{d: m.Decimal().Add(o.Decimal())}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{d: m.Decimal().Sub(o.Decimal())}
}

// Mul returns m * o.
func (m Money) Mul(o Money) Money {
	return Money{d: m.Decimal().Mul(o.Decimal())}
}

// Div returns m / o rounded to DivisionPlaces. Dividing by zero yields Zero.
func (m Money) Div(o Money) Money {
	divisor := o.Decimal()
	if divisor.IsZero() {
		return Zero
	}
	return Money{d: m.Decimal().DivRound(divisor, DivisionPlaces)}
}

// CeilQuo returns ceil(m / o) as an integer, computed from the exact integer
// quotient and remainder. It returns 0 when o is zero.
func (m Money) CeilQuo(o Money) int64 {
	divisor := o.Decimal()
	if divisor.IsZero() {
		return 0
	}
	dividend := m.Decimal()
	q, r := dividend.QuoRem(divisor, 0)
	n := q.IntPart()
	// QuoRem truncates toward zero, which is already the ceiling for negative quotients.
	if !r.IsZero() && dividend.Sign()*divisor.Sign() > 0 {
		n++
	}
	return n
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{d: m.Decimal().Neg()}
}

// Storable reports whether m is valid and has no digits beyond StoragePlaces,
// so the persisted form reads back as the same number.
func (m Money) Storable() bool {
	return m.Valid() && m.d.Equal(m.d.Round(StoragePlaces))
}

// Cmp compares m and o: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) int {
	return m.Decimal().Cmp(o.Decimal())
}

// Equal reports whether m and o are numerically equal.
func (m Money) Equal(o Money) bool {
	return m.Cmp(o) == 0
}

// IsPositive reports m > 0.
func (m Money) IsPositive() bool { return m.Decimal().IsPositive() }

// IsNegative reports m < 0.
func (m Money) IsNegative() bool { return m.Decimal().IsNegative() }

// IsZero reports m == 0.
func (m Money) IsZero() bool { return m.Decimal().IsZero() }

// Round returns m rounded to DisplayPlaces, half away from zero.
func (m Money) Round() Money {
	return Money{d: m.Decimal().Round(DisplayPlaces)}
}

// StorageString returns the canonical persisted form, e.g. "1234.5600".
func (m Money) StorageString() string {
	return m.Decimal().StringFixed(StoragePlaces)
}

// DisplayString returns the amount rounded for display, e.g. "1234.56".
func (m Money) DisplayString() string {
	return m.Decimal().StringFixed(DisplayPlaces)
}

// String implements fmt.Stringer.
func (m Money) String() string {
	if m.invalid {
		return "invalid"
	}
	return m.DisplayString()
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a.Cmp(b) <= 0 {
		return New(a.Decimal())
	}
	return New(b.Decimal())
}

// Max returns the larger of a and b.
func Max(a, b Money) Money {
	if a.Cmp(b) >= 0 {
		return New(a.Decimal())
	}
	return New(b.Decimal())
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MarshalJSON encodes the storage form as a JSON string. Invalid amounts encode as null.
func (m Money) MarshalJSON() ([]byte, error) {
	if m.invalid {
		return []byte("null"), nil
	}
	return json.Marshal(m.StorageString())
}

// UnmarshalJSON accepts a JSON string or number.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*m = Invalid()
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	parsed, ok := Parse(raw)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, string(data))
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer with the fixed 4-decimal storage string.
func (m Money) Value() (driver.Value, error) {
	if m.invalid {
		return nil, ErrInvalidAmount
	}
	return m.StorageString(), nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(src any) error {
	var parsed Money
	var ok bool
	switch v := src.(type) {
	case []byte:
		parsed, ok = Parse(string(v))
	case nil:
		parsed, ok = Invalid(), false
	default:
		parsed, ok = Parse(v)
	}
	if !ok {
		return fmt.Errorf("%w: cannot scan %v", ErrInvalidAmount, src)
	}
	*m = parsed
	return nil
}

// GormDataType maps Money columns to a string type in every dialect.
func (Money) GormDataType() string {
	return "string"
}

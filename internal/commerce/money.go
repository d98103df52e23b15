package commerce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money stores an amount in minor units (cents). The commerce API sends decimals either as
// strings ("89.99") or numbers (89.99); both decode to the same value.
type Money int64

// Cents builds a Money value from minor units.
func Cents(c int64) Money { return Money(c) }

// ParseMoney parses a decimal amount. Digits past the second fractional place are rounded
// half away from zero. Exponent forms such as "1e2" are accepted as JSON numbers allow them.
func ParseMoney(raw string) (Money, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if strings.ContainsAny(s, "eE") {
		return parseExponent(raw, s, neg)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if !digits(whole) || !digits(frac) {
		return 0, invalidAmount(raw)
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, invalidAmount(raw)
	}
	var cents int64
	switch {
	case len(frac) == 0:
	case len(frac) == 1:
		cents = int64(frac[0]-'0') * 10
	default:
		cents = int64(frac[0]-'0')*10 + int64(frac[1]-'0')
		if len(frac) > 2 && frac[2] >= '5' {
			cents++
		}
	}
	if units > (math.MaxInt64-cents)/100 {
		return 0, invalidAmount(raw)
	}
	total := units*100 + cents
	if neg {
		total = -total
	}
	return Money(total), nil
}

func parseExponent(raw, s string, neg bool) (Money, error) {
	if s == "" || (s[0] != '.' && !digits(s[:1])) || strings.ContainsAny(s, "xX_") {
		return 0, invalidAmount(raw)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, invalidAmount(raw)
	}
	c := math.Round(f * 100)
	// float64(math.MaxInt64) rounds up to 2^63, so equality already overflows.
	if math.IsNaN(c) || c >= float64(math.MaxInt64) {
		return 0, invalidAmount(raw)
	}
	total := int64(c)
	if neg {
		total = -total
	}
	return Money(total), nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func invalidAmount(raw string) error {
	return fmt.Errorf("commerce: invalid amount %q", raw)
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 { return int64(m) }

// Mul multiplies the amount by an integer quantity.
func (m Money) Mul(qty int) Money { return m * Money(qty) }

// String renders the amount with exactly two decimals, e.g. "25.00".
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes the amount as a decimal string, the format the API accepts for prices.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts decimal strings, JSON numbers and null.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = 0
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = s
	}
	v, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ID is an entity identifier. The API uses integer primary keys; routes carry strings.
type ID string

// String returns the identifier as text.
func (id ID) String() string { return string(id) }

// IsZero reports whether the identifier is empty.
func (id ID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

// UnmarshalJSON accepts both numeric and string identifiers.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("commerce: invalid id %s", string(b))
	}
	*id = ID(n.String())
	return nil
}

// Rating is an average review score. Like prices it may arrive as a string or a number.
type Rating float64

// UnmarshalJSON accepts decimal strings, JSON numbers and null.
func (r *Rating) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if raw == "" || raw == "null" {
		*r = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("commerce: invalid rating %q", raw)
	}
	*r = Rating(v)
	return nil
}

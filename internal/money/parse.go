package money

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var reNumeric = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParseNumber parses a French or English formatted amount ("1 234,56",
// "1.234,56", "1,234.56", "12,5") and rounds it to two decimals.
// When both ',' and '.' are present the rightmost one is the decimal
// separator and every other separator is dropped. It returns NaN when the
// value is not numeric.
func ParseNumber(value string) float64 {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimSuffix(strings.TrimSuffix(s, "EUR"), "eur")
	s = strings.TrimPrefix(s, "€")
	if s == "" {
		return math.NaN()
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	decimalAt := max(lastComma, lastDot)
	if decimalAt >= 0 {
		var b strings.Builder
		for i, r := range s {
			switch {
			case i == decimalAt:
				b.WriteByte('.')
			case r == ',' || r == '.':
				// thousands separator
			default:
				b.WriteRune(r)
			}
		}
		s = b.String()
	}

	if !reNumeric.MatchString(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return Round2(f)
}

// ParseValue accepts the loosely typed values found in decoded JSON
// (float64, int, json.Number or string) and parses them like ParseNumber.
func ParseValue(v any) float64 {
	switch t := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return math.NaN()
		}
		return Round2(t)
	case float32:
		return ParseValue(float64(t))
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		return ParseNumber(t.String())
	case string:
		return ParseNumber(t)
	default:
		return math.NaN()
	}
}

// IsNumber reports whether value parses to a finite number.
func IsNumber(value string) bool {
	return !math.IsNaN(ParseNumber(value))
}

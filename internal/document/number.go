package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Number is a figure that may be unspecified on the source document, such as
// the hours of a flat-rate labour line. Unspecified values encode as "-".
type Number struct {
	value float64
	known bool
}

// Known wraps a specified value.
func Known(v float64) Number { return Number{value: v, known: true} }

// Unspecified is the "-" placeholder.
func Unspecified() Number { return Number{} }

// Value returns the number and whether it is specified.
func (n Number) Value() (float64, bool) { return n.value, n.known }

// IsKnown reports whether the number is specified.
func (n Number) IsKnown() bool { return n.known }

// Or returns the value, or fallback when unspecified.
func (n Number) Or(fallback float64) float64 {
	if !n.known {
		return fallback
	}
	return n.value
}

func (n Number) String() string {
	if !n.known {
		return "-"
	}
	return strconv.FormatFloat(n.value, 'f', -1, 64)
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.known {
		return []byte(`"-"`), nil
	}
	return json.Marshal(n.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`"-"`)) || bytes.Equal(data, []byte(`""`)) {
		*n = Unspecified()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decoding number %s: %w", data, err)
	}
	*n = Known(f)
	return nil
}

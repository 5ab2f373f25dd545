// Package rules implements the closed expression language used by conditional pricing rules
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Type is the runtime type of a Value
type Type int

const (
	TypeInvalid Type = iota
	TypeNumber
	TypeString
	TypeBool
)

// String returns the string representation of the type
func (t Type) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is an immutable rule value: a decimal number, a string or a boolean
type Value struct {
	typ Type
	num decimal.Decimal
	str string
	b   bool
}

// Number wraps a decimal
func Number(d decimal.Decimal) Value {
	return Value{typ: TypeNumber, num: d}
}

// Int wraps an integer
func Int(i int64) Value {
	return Value{typ: TypeNumber, num: decimal.NewFromInt(i)}
}

// MustNumber parses a decimal literal and panics on malformed input. Intended for tests and constants.
func MustNumber(s string) Value {
	return Number(decimal.RequireFromString(s))
}

// String wraps a string
func String(s string) Value {
	return Value{typ: TypeString, str: s}
}

// Bool wraps a boolean
func Bool(b bool) Value {
	return Value{typ: TypeBool, b: b}
}

// Type returns the runtime type of the value
func (v Value) Type() Type {
	return v.typ
}

// AsNumber returns the decimal held by a number value
func (v Value) AsNumber() (decimal.Decimal, bool) {
	return v.num, v.typ == TypeNumber
}

// AsString returns the string held by a string value
func (v Value) AsString() (string, bool) {
	return v.str, v.typ == TypeString
}

// AsBool returns the boolean held by a bool value
func (v Value) AsBool() (bool, bool) {
	return v.b, v.typ == TypeBool
}

// Equal reports whether two values have the same type and content
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNumber:
		return v.num.Equal(o.num)
	case TypeString:
		return v.str == o.str
	case TypeBool:
		return v.b == o.b
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.typ {
	case TypeNumber:
		return v.num.String()
	case TypeString:
		return strconv.Quote(v.str)
	case TypeBool:
		return strconv.FormatBool(v.b)
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes numbers as JSON numbers, keeping decimal precision
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.typ {
	case TypeNumber:
		return []byte(v.num.String()), nil
	case TypeString:
		return json.Marshal(v.str)
	case TypeBool:
		return json.Marshal(v.b)
	default:
		return nil, fmt.Errorf("cannot encode invalid rule value")
	}
}

// UnmarshalJSON decodes a JSON number, string or boolean. null is rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty rule value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case 'n':
		return fmt.Errorf("null is not a rule value")
	default:
		d, err := decimal.NewFromString(string(data))
		if err != nil {
			return fmt.Errorf("invalid number %s: %w", data, err)
		}
		*v = Number(d)
	}
	return nil
}

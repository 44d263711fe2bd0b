// Package values implements the core's closed tagged union of scalar
// value variants (spec §3, §4.2, §9: "the value variants form a closed
// tagged union (Text | Integer | Floating | Boolean); implementers
// should represent it as such, not via open-ended dynamic typing").
package values

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Ap3pp3rs94/eventcommands/internal/enginerr"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindText Kind = iota
	KindInteger
	KindFloating
	KindBoolean
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloating:
		return "floating"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// Value is a closed tagged union over Text/Integer/Floating/Boolean.
// Exactly one of the fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind
	Text string
	Int  int64
	Flt  float64
	Bool bool
}

func Text(s string) Value     { return Value{Kind: KindText, Text: s} }
func Integer(i int64) Value   { return Value{Kind: KindInteger, Int: i} }
func Floating(f float64) Value { return Value{Kind: KindFloating, Flt: f} }
func Boolean(b bool) Value    { return Value{Kind: KindBoolean, Bool: b} }

// IsNumeric reports whether v holds a variant usable as a counter
// payload for AddValue metrics (spec §4.7 step 4).
func (v Value) IsNumeric() bool {
	return v.Kind == KindInteger || v.Kind == KindFloating
}

// Numeric returns v's value as a float64 counter payload. Callers must
// check IsNumeric first.
func (v Value) Numeric() float64 {
	if v.Kind == KindInteger {
		return float64(v.Int)
	}
	return v.Flt
}

// CoerceJSON maps a decoded JSON scalar (string, json.Number-as-float64
// or int64, bool, or nil) into a Value. A JSON null is reported via ok=false
// with no error, per spec §3 ("null causes the field to be dropped").
// Nested maps/slices are structural errors, not values; callers must
// reject those before calling CoerceJSON.
func CoerceJSON(raw any) (v Value, ok bool, err error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, false, nil
	case string:
		return Text(t), true, nil
	case bool:
		return Boolean(t), true, nil
	case int64:
		return Integer(t), true, nil
	case int:
		return Integer(int64(t)), true, nil
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) && withinInt64Range(t) {
			return Integer(int64(t)), true, nil
		}
		return Floating(t), true, nil
	default:
		return Value{}, false, enginerr.New(enginerr.InvalidEvent, "unsupported scalar type", "go_type", fmt.Sprintf("%T", raw))
	}
}

func withinInt64Range(f float64) bool {
	return f >= -9223372036854775808 && f <= 9223372036854775807
}

// Render produces the canonical string form used when a value becomes
// part of a key or bitmap element (spec §4.2).
//
//   Text     -> as-is (already sanitized by the caller)
//   Integer  -> shortest decimal, no leading zeros, optional leading '-'
//   Floating -> shortest round-trippable decimal; NaN/Inf rejected
//   Boolean  -> "true" / "false"
func Render(v Value) (string, error) {
	switch v.Kind {
	case KindText:
		return v.Text, nil
	case KindInteger:
		return strconv.FormatInt(v.Int, 10), nil
	case KindFloating:
		if math.IsNaN(v.Flt) || math.IsInf(v.Flt, 0) {
			return "", enginerr.New(enginerr.ValueDomain, "non-finite float value")
		}
		return strconv.FormatFloat(v.Flt, 'g', -1, 64), nil
	case KindBoolean:
		if v.Bool {
			return "true", nil
		}
		return "false", nil
	default:
		return "", enginerr.New(enginerr.ValueDomain, "unknown value kind")
	}
}

// Package sanitize implements the core's pure normalization functions
// for field names and scalar values (spec §4.1). Centralizing charset
// and length policy here lets every downstream component assume
// well-formed inputs and never re-validate them — the same division of
// labor the teacher draws between canonical.Normalize and
// canonical.Validate.
package sanitize

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/Ap3pp3rs94/eventcommands/internal/enginerr"
	"github.com/Ap3pp3rs94/eventcommands/internal/values"
)

// Separator and delimiter characters reserved by the key grammar (spec §3).
const (
	SeparatorChar = '~'
	DelimiterChar = ':'
)

// Limits bounds field-name and value-text length. A non-positive limit
// disables that length check here; mapping.Compile replaces non-positive
// limits with defaults before they reach here.
type Limits struct {
	MaxFieldLength int
	MaxValueLength int
}

// Name is a sanitized field name: lowercased, trimmed, charset-checked.
type Name string

// FieldName sanitizes a raw JSON object key into a Name.
//
// Lowercases, trims surrounding whitespace, rejects if empty after trim,
// too long, or containing the separator, the delimiter, or a control
// character. An empty result after trim is reported via ok=false with no
// error — spec §3 treats it as a drop, not a rejection — except when the
// raw input was non-empty before trimming, in which case the caller
// asked to track a field that sanitized to nothing meaningful and that
// is a FieldSanitization error (ambiguous names are refused, not
// silently dropped).
func FieldName(raw string, lim Limits) (Name, bool, error) {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		if raw == "" {
			return "", false, nil
		}
		return "", false, enginerr.New(enginerr.FieldSanitization, "field name empty after trim", "raw", raw)
	}
	if err := checkCharsetAndLength(trimmed, lim.MaxFieldLength, "field"); err != nil {
		return "", false, err
	}
	return Name(trimmed), true, nil
}

// Scalar sanitizes a coerced Value for use as text/rendered content.
// Returns ok=false, nil error when v represents a dropped (absent) field
// — callers pass raw JSON through values.CoerceJSON first, which already
// reports null as ok=false, so Scalar only needs to apply length/charset
// policy to Text variants; numeric and boolean variants are validated at
// render time (values.Render rejects non-finite floats).
func Scalar(v values.Value, lim Limits) (values.Value, bool, error) {
	if v.Kind != values.KindText {
		return v, true, nil
	}
	trimmed := strings.TrimSpace(v.Text)
	if trimmed == "" {
		return values.Value{}, false, nil
	}
	if err := checkCharsetAndLength(trimmed, lim.MaxValueLength, "value"); err != nil {
		return values.Value{}, false, err
	}
	return values.Text(trimmed), true, nil
}

func checkCharsetAndLength(s string, maxLen int, kind string) error {
	if maxLen > 0 && len(s) > maxLen {
		errKind := enginerr.FieldSanitization
		if kind == "value" {
			errKind = enginerr.ValueDomain
		}
		return enginerr.New(errKind, kind+" exceeds max length", kind, s, "max_length", strconv.Itoa(maxLen))
	}
	for _, r := range s {
		if r == SeparatorChar || r == DelimiterChar || unicode.IsControl(r) {
			errKind := enginerr.FieldSanitization
			if kind == "value" {
				errKind = enginerr.ValueDomain
			}
			return enginerr.New(errKind, kind+" contains a disallowed character", kind, s)
		}
	}
	return nil
}

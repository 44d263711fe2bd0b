// Package enginerr defines the closed error taxonomy the engine surfaces
// to its caller (spec §7). It follows the shape of the teacher's own
// error-code registry (pkg/errors/codes.go): a small set of named Kinds,
// a metadata table describing each, and a typed error carrying optional
// structured detail fields.
package enginerr

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is one of the five closed error kinds the core can surface.
type Kind string

const (
	// InvalidEvent: root not an object, duplicate sanitized key, nested
	// structure, missing discriminator field, empty after sanitization.
	InvalidEvent Kind = "invalid_event"
	// FieldSanitization: field name fails length or charset rules.
	FieldSanitization Kind = "field_sanitization"
	// ValueDomain: value length/charset violation, or non-finite float.
	ValueDomain Kind = "value_domain"
	// ConfigError: raised at compile time for unknown timezone, malformed
	// pattern, non-positive limit, or internal config inconsistency.
	ConfigError Kind = "config_error"
	// LimitExceeded: per-event metric cap or per-pattern combination cap
	// would be exceeded.
	LimitExceeded Kind = "limit_exceeded"
)

// KindMeta describes where in the pipeline a Kind can originate.
type KindMeta struct {
	// CompileTime is true for kinds only raised while compiling a config
	// (never per-event).
	CompileTime bool
	Description string
}

var registry = map[Kind]KindMeta{
	InvalidEvent:      {CompileTime: false, Description: "event shape or contents rejected"},
	FieldSanitization: {CompileTime: false, Description: "a field name failed length/charset rules"},
	ValueDomain:       {CompileTime: false, Description: "a value failed length/charset rules or was non-finite"},
	ConfigError:       {CompileTime: true, Description: "declarative configuration failed to compile"},
	LimitExceeded:     {CompileTime: false, Description: "per-event or per-pattern emission cap would be exceeded"},
}

// Meta returns metadata for a Kind.
func Meta(k Kind) (KindMeta, bool) {
	m, ok := registry[k]
	return m, ok
}

// Known reports whether k is one of the closed set of kinds.
func Known(k Kind) bool {
	_, ok := registry[k]
	return ok
}

// List returns all known kinds, sorted.
func List() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Detail is a single structured key/value attached to an Error, rendered
// deterministically (sorted by key) in Error().
type Detail struct {
	Key   string
	Value string
}

// Error is the engine's single error type. Callers distinguish failure
// modes with errors.Is against the Kind sentinels below, or by reading
// Kind directly.
type Error struct {
	Kind    Kind
	Message string
	Details []Detail
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		details := append([]Detail(nil), e.Details...)
		sort.Slice(details, func(i, j int) bool { return details[i].Key < details[j].Key })
		b.WriteString(" (")
		for i, d := range details {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", d.Key, d.Value)
		}
		b.WriteString(")")
	}
	return b.String()
}

// Is supports errors.Is(err, enginerr.Sentinel(enginerr.InvalidEvent)) by
// comparing kind sentinels. kindSentinel lets a bare Kind value be used as a target.
func (e *Error) Is(target error) bool {
	ks, ok := target.(kindSentinel)
	if !ok {
		return false
	}
	return e.Kind == Kind(ks)
}

// kindSentinel lets package consumers write errors.Is(err, enginerr.Sentinel(enginerr.LimitExceeded)).
type kindSentinel Kind

func (kindSentinel) Error() string { return "" }

// Sentinel returns an error value usable as an errors.Is target for k.
func Sentinel(k Kind) error { return kindSentinel(k) }

// New builds an *Error with optional details (key, value, key, value, ...).
func New(k Kind, message string, kv ...string) *Error {
	e := &Error{Kind: k, Message: message}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Details = append(e.Details, Detail{Key: kv[i], Value: kv[i+1]})
	}
	return e
}

// Package keycompose builds canonical pattern strings and value strings
// for bitmap, counter, and value-aggregation metrics from a compiled
// config plus an event (spec §4.6). It is pure and allocation-bounded:
// each invocation allocates at most one values string; pattern strings
// are precomputed once at config-compile time and reused verbatim.
package keycompose

import (
	"strings"

	"github.com/Ap3pp3rs94/eventcommands/internal/eventmodel"
	"github.com/Ap3pp3rs94/eventcommands/internal/mapping"
	"github.com/Ap3pp3rs94/eventcommands/internal/sanitize"
	"github.com/Ap3pp3rs94/eventcommands/internal/values"
)

// Bitmap composes the (field, element) pair for a bitmap metric. ok is
// false when field is absent from e — a silent skip, never an error
// (spec §4.6).
func Bitmap(field sanitize.Name, e *eventmodel.Event) (element string, ok bool, err error) {
	v, present := e.Lookup(field)
	if !present {
		return "", false, nil
	}
	rendered, err := values.Render(v)
	if err != nil {
		return "", false, err
	}
	return rendered, true, nil
}

// Pattern composes the values string for a compiled pattern against an
// event. ok is false when any pattern field is absent from e.
func Pattern(p mapping.AddPattern, e *eventmodel.Event) (valuesStr string, ok bool, err error) {
	rendered := make([]string, len(p.Fields))
	// Pre-size the builder from the field count; exact byte length isn't
	// known up front without a second pass, so this sizes for separators
	// plus a conservative per-field estimate (spec §9 "Hot paths").
	var b strings.Builder
	b.Grow(len(p.Fields) * 16)

	for i, f := range p.Fields {
		v, present := e.Lookup(f)
		if !present {
			return "", false, nil
		}
		r, err := values.Render(v)
		if err != nil {
			return "", false, err
		}
		rendered[i] = r
	}
	for i, r := range rendered {
		if i > 0 {
			b.WriteByte('~')
		}
		b.WriteString(r)
	}
	return b.String(), true, nil
}

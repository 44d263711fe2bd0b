// Package eventmodel implements the core's internal representation of
// an ingested event (spec §3 "Event (input)", §4.5).
package eventmodel

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/Ap3pp3rs94/eventcommands/internal/enginerr"
	"github.com/Ap3pp3rs94/eventcommands/internal/sanitize"
	"github.com/Ap3pp3rs94/eventcommands/internal/values"
)

// Event is an ordered mapping from sanitized field name to coerced
// value. Field order is insignificant for correctness — order is kept
// as a slice purely so dumps/tests are deterministic (spec §4.5).
type Event struct {
	fields map[sanitize.Name]values.Value
	order  []sanitize.Name
}

// Lookup returns the value bound to name, if present.
func (e *Event) Lookup(name sanitize.Name) (values.Value, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// Fields returns field names in insertion order. The returned slice must
// not be mutated by callers.
func (e *Event) Fields() []sanitize.Name { return e.order }

// Len reports the number of sanitized fields retained on the event.
func (e *Event) Len() int { return len(e.order) }

// Options configures event construction.
type Options struct {
	Limits      sanitize.Limits
	Discriminator sanitize.Name // default "event" if empty
}

// FromJSON builds an Event from a raw JSON object payload, applying the
// rules of spec §4.5:
//
//  1. reject non-object roots
//  2. sanitize each key, coerce each value, drop nulls, error on nested
//     structures
//  3. reject duplicate sanitized keys
//  4. reject an event with zero fields after sanitization, or one
//     lacking the configured discriminator field
func FromJSON(raw []byte, opts Options) (*Event, error) {
	disc := opts.Discriminator
	if disc == "" {
		disc = "event"
	}

	var root any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&root); err != nil {
		return nil, enginerr.New(enginerr.InvalidEvent, "invalid JSON", "cause", err.Error())
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, enginerr.New(enginerr.InvalidEvent, "root is not a JSON object")
	}

	e := &Event{fields: make(map[sanitize.Name]values.Value, len(obj))}

	// Deterministic processing order: sort raw keys so duplicate-key
	// detection and any future tie-breaking behavior is reproducible.
	rawKeys := make([]string, 0, len(obj))
	for k := range obj {
		rawKeys = append(rawKeys, k)
	}
	sort.Strings(rawKeys)

	for _, rawKey := range rawKeys {
		rawVal := obj[rawKey]

		if err := rejectStructural(rawVal); err != nil {
			return nil, err
		}

		name, ok, err := sanitize.FieldName(rawKey, opts.Limits)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		v, ok, err := decodeScalar(rawVal, opts.Limits)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue // null: dropped, not an error
		}

		if _, dup := e.fields[name]; dup {
			return nil, enginerr.New(enginerr.InvalidEvent, "duplicate sanitized field name", "field", string(name))
		}
		e.fields[name] = v
		e.order = append(e.order, name)
	}

	if e.Len() == 0 {
		return nil, enginerr.New(enginerr.InvalidEvent, "event has no fields after sanitization")
	}
	if _, ok := e.fields[disc]; !ok {
		return nil, enginerr.New(enginerr.InvalidEvent, "event missing discriminator field", "discriminator", string(disc))
	}
	return e, nil
}

func rejectStructural(raw any) error {
	switch raw.(type) {
	case map[string]any, []any:
		return enginerr.New(enginerr.InvalidEvent, "nested objects and arrays are rejected")
	default:
		return nil
	}
}

func decodeScalar(raw any, lim sanitize.Limits) (values.Value, bool, error) {
	if num, ok := raw.(json.Number); ok {
		raw2, err := jsonNumberToScalar(num)
		if err != nil {
			return values.Value{}, false, err
		}
		raw = raw2
	}
	v, ok, err := values.CoerceJSON(raw)
	if err != nil || !ok {
		return v, ok, err
	}
	return sanitize.Scalar(v, lim)
}

// jsonNumberToScalar maps a json.Number to int64 (no fractional
// component) or float64, per spec §3: "JSON numbers without a
// fractional component coerce to Integer; otherwise Floating."
func jsonNumberToScalar(num json.Number) (any, error) {
	if i, err := num.Int64(); err == nil {
		return i, nil
	}
	f, err := num.Float64()
	if err != nil {
		return nil, enginerr.New(enginerr.ValueDomain, "malformed numeric literal", "value", string(num))
	}
	return f, nil
}

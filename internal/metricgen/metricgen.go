// Package metricgen implements the Metric Generator (spec §4.7): it
// drives the Key Composer across every configured metric, enforces the
// per-event cap, deduplicates, and emits command records in the
// deterministic order spec §5 requires.
package metricgen

import (
	"strconv"
	"time"

	"github.com/Ap3pp3rs94/eventcommands/internal/command"
	"github.com/Ap3pp3rs94/eventcommands/internal/dedup"
	"github.com/Ap3pp3rs94/eventcommands/internal/enginerr"
	"github.com/Ap3pp3rs94/eventcommands/internal/eventmodel"
	"github.com/Ap3pp3rs94/eventcommands/internal/keycompose"
	"github.com/Ap3pp3rs94/eventcommands/internal/mapping"
	"github.com/Ap3pp3rs94/eventcommands/internal/timebucket"
)

// Generate produces the full, deduplicated, order-stable sequence of
// command records for e under cfg at instant, or fails the whole event
// atomically with a *enginerr.Error of Kind LimitExceeded — per spec
// §4.7 "Atomicity": any limit breach during generation discards all
// partial output.
func Generate(cfg *mapping.Compiled, e *eventmodel.Event, instant time.Time) ([]command.Record, error) {
	buckets := timebucket.Compute(cfg.Bucketer, instant, cfg.StoreHourly)

	out := make([]command.Record, 0, minInt(cfg.MaxMetricsPerEvent, 64))
	seen := dedup.NewSet(cfg.MaxMetricsPerEvent) // the authoritative (kind,key) table, spec §9

	emit := func(r command.Record) error {
		if idx, ok := seen.Lookup(string(r.Kind), r.Key); ok {
			// Identical (kind, key): counters sum, bitmap/text is a no-op
			// collapse (spec §4.7 "Deduplication").
			if r.Kind == command.KindIncrement || r.Kind == command.KindIncrementBy {
				out[idx].NumericPayload += r.NumericPayload
			}
			return nil
		}
		if len(out) >= cfg.MaxMetricsPerEvent {
			return enginerr.New(enginerr.LimitExceeded, "per-event metric cap exceeded", "max_metrics_per_event", strconv.Itoa(cfg.MaxMetricsPerEvent))
		}
		seen.Add(string(r.Kind), r.Key, len(out))
		out = append(out, r)
		return nil
	}

	emitBoth := func(mk func(b command.Bucket, ts uint64) command.Record) error {
		if err := emit(mk(command.BucketDaily, buckets.Daily)); err != nil {
			return err
		}
		if buckets.HasHourly {
			if err := emit(mk(command.BucketHourly, buckets.Hourly)); err != nil {
				return err
			}
		}
		return nil
	}

	// 1. bitmap metrics, in config order.
	for _, field := range cfg.BitmapFields {
		element, ok, err := keycompose.Bitmap(field, e)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		fieldStr := string(field)
		if err := emitBoth(func(b command.Bucket, ts uint64) command.Record {
			return command.EncodeBitmap(b, ts, fieldStr, element)
		}); err != nil {
			return nil, err
		}
	}

	// 2. add (count) metrics, in compiled-pattern order.
	for _, p := range cfg.AddPatterns {
		if cfg.MaxCombinations > 0 {
			// Reserved for future multi-valued-field enumeration (spec §4.7
			// step 6, §9 open question); current patterns emit at most one
			// combination each, so this check is presently a no-op.
		}
		valuesStr, ok, err := keycompose.Pattern(p, e)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		patternStr := p.PatternStr
		if err := emitBoth(func(b command.Bucket, ts uint64) command.Record {
			return command.EncodeAdd(b, ts, patternStr, valuesStr, 1)
		}); err != nil {
			return nil, err
		}
	}

	// 3. add_value (sum) metrics, in compiled-spec order.
	for _, spec := range cfg.AddValueSpecs {
		valuesStr, ok, err := keycompose.Pattern(spec.Pattern, e)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		v, present := e.Lookup(spec.ValueField)
		if !present || !v.IsNumeric() {
			continue // skip, not an error (spec §4.7 step 4, §7)
		}
		patternStr := spec.Pattern.PatternStr
		valueFieldStr := string(spec.ValueField)
		amount := v.Numeric()
		if err := emitBoth(func(b command.Bucket, ts uint64) command.Record {
			return command.EncodeAddValue(b, ts, valueFieldStr, patternStr, valuesStr, amount)
		}); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Package engine wires the pipeline stages (spec §2: Sanitizer → Value
// Coercion → Time Bucketer → Config Compiler → Event Model → Key
// Composer → Metric Generator → Command Encoder) into the single public
// entry point callers use: compile a config once, then process any
// number of events against it, with lock-free config hot-reload.
package engine

import (
	"sync/atomic"
	"time"

	"github.com/Ap3pp3rs94/eventcommands/internal/command"
	"github.com/Ap3pp3rs94/eventcommands/internal/enginerr"
	"github.com/Ap3pp3rs94/eventcommands/internal/eventmodel"
	"github.com/Ap3pp3rs94/eventcommands/internal/mapping"
	"github.com/Ap3pp3rs94/eventcommands/internal/metricgen"
)

// Engine holds a compiled config behind an atomic pointer so Process can
// run concurrently with a Reload (spec §5: "A compiled config is
// immutable and safe to share by reference across threads... reload
// swaps the active pointer without interrupting in-flight processing").
type Engine struct {
	compiled atomic.Pointer[mapping.Compiled]
}

// New compiles raw and returns a ready Engine, or the *enginerr.Error
// and *mapping.CompileReport describing why compilation failed.
func New(raw mapping.Raw) (*Engine, *mapping.CompileReport, error) {
	compiled, report, err := mapping.Compile(raw)
	if err != nil {
		return nil, report, err
	}
	e := &Engine{}
	e.compiled.Store(compiled)
	return e, report, nil
}

// Reload compiles raw and, on success, atomically swaps it in as the
// active config. On failure the Engine keeps processing events under
// its previous config (spec §7: "Config compilation is atomic... a
// failed reload must never leave the engine without a usable config").
func (e *Engine) Reload(raw mapping.Raw) (*mapping.CompileReport, error) {
	compiled, report, err := mapping.Compile(raw)
	if err != nil {
		return report, err
	}
	e.compiled.Store(compiled)
	return report, nil
}

// Revision returns the google/uuid-stamped identifier of the currently
// active compiled config (SPEC_FULL.md supplement #4), useful for
// correlating a Process call's output with the config that produced it
// across a Reload.
func (e *Engine) Revision() string {
	c := e.compiled.Load()
	if c == nil {
		return ""
	}
	return c.Revision
}

// Process runs one event through the full pipeline at instant and
// returns its command records. instant is supplied by the caller, not
// read from the wall clock, so bucketing stays deterministic and
// testable (spec §4.3's DST-stable bucketing depends on the exact
// instant the caller asserts the event occurred at).
//
// Per spec §7 ("Atomicity"): any failure — sanitization, coercion, or a
// per-event limit breach — returns no partial output. A *enginerr.Error
// is always returned on failure, carrying the Kind the caller should use
// to decide whether the event is retryable (CompileTime-false kinds
// never are; spec §7's Kind taxonomy is the contract).
func (e *Engine) Process(raw []byte, instant time.Time) ([]command.Record, error) {
	c := e.compiled.Load()
	if c == nil {
		return nil, enginerr.New(enginerr.ConfigError, "engine has no compiled config loaded")
	}

	evt, err := eventmodel.FromJSON(raw, eventmodel.Options{
		Limits:        c.Limits,
		Discriminator: c.Discriminator,
	})
	if err != nil {
		return nil, err
	}

	return metricgen.Generate(c, evt, instant)
}

// Package timebucket derives the daily (and optional hourly) bucket
// timestamps for an event instant in a configured IANA timezone (spec
// §3 "Time bucket", §4.3).
package timebucket

import (
	"time"

	"github.com/Ap3pp3rs94/eventcommands/internal/enginerr"
)

// Buckets holds the daily bucket and, when hourly tracking is enabled,
// the hourly bucket — both as Unix-second timestamps.
type Buckets struct {
	Daily      uint64
	Hourly     uint64
	HasHourly  bool
}

// Bucketer resolves event instants against a fixed *time.Location,
// resolved once at config-compile time (spec §4.3: "unknown timezone ⇒
// ConfigError at config compile time, not here").
type Bucketer struct {
	loc *time.Location
}

// NewBucketer resolves tzName via time.LoadLocation. Callers should do
// this exactly once, at config compile time, and reject ConfigError on
// failure; the core must never observe an unresolved timezone per-event.
func NewBucketer(tzName string) (*Bucketer, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, enginerr.New(enginerr.ConfigError, "unknown timezone", "timezone", tzName)
	}
	return &Bucketer{loc: loc}, nil
}

// Compute derives the daily bucket and, if storeHourly is true, the
// hourly bucket for instant. The hourly bucket floors instant to the
// start of its local hour using the location's UTC offset at instant
// itself (spec §3 invariant, §8 property 4, scenario S6): an instant just
// after a DST transition buckets against the post-transition offset, and
// the two passes through a repeated fall-back hour get distinct hourly
// buckets. The daily bucket is local midnight on instant's local date,
// resolved with the offset in effect at that midnight, so every instant
// of one local date shares one daily bucket across a DST transition.
func Compute(b *Bucketer, instant time.Time, storeHourly bool) Buckets {
	local := instant.In(b.loc)
	y, mo, d := local.Date()
	midnight := time.Date(y, mo, d, 0, 0, 0, 0, b.loc)

	out := Buckets{Daily: uint64(midnight.Unix())}
	if storeHourly {
		sinceHour := time.Duration(local.Minute())*time.Minute +
			time.Duration(local.Second())*time.Second +
			time.Duration(local.Nanosecond())
		out.Hourly = uint64(local.Add(-sinceHour).Unix())
		out.HasHourly = true
	}
	return out
}

package timebucket

import (
	"testing"
	"time"
)

func TestNewBucketerUnknownTimezone(t *testing.T) {
	_, err := NewBucketer("Not/A_Zone")
	if err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func TestComputeDailyBucketUTC(t *testing.T) {
	b, err := NewBucketer("UTC")
	if err != nil {
		t.Fatalf("NewBucketer: %v", err)
	}
	instant := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	got := Compute(b, instant, false)
	want := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC).Unix()
	if got.Daily != uint64(want) {
		t.Fatalf("Daily = %d, want %d", got.Daily, want)
	}
	if got.HasHourly {
		t.Fatalf("HasHourly should be false when storeHourly is false")
	}
}

func TestComputeHourlyBucket(t *testing.T) {
	b, err := NewBucketer("UTC")
	if err != nil {
		t.Fatalf("NewBucketer: %v", err)
	}
	instant := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	got := Compute(b, instant, true)
	if !got.HasHourly {
		t.Fatalf("expected HasHourly")
	}
	want := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC).Unix()
	if got.Hourly != uint64(want) {
		t.Fatalf("Hourly = %d, want %d", got.Hourly, want)
	}
}

// TestComputeDSTSpringForward exercises scenario S6: an instant just
// after a spring-forward transition must bucket against the
// post-transition offset, with no skipped or duplicated hour.
func TestComputeDSTSpringForward(t *testing.T) {
	b, err := NewBucketer("America/New_York")
	if err != nil {
		t.Fatalf("NewBucketer: %v", err)
	}

	// 2026-03-08 02:00 local does not exist (clocks jump to 03:00); pick
	// instants straddling the transition via their UTC equivalents.
	before := time.Date(2026, 3, 8, 6, 59, 0, 0, time.UTC)  // 01:59 EST (UTC-5)
	after := time.Date(2026, 3, 8, 7, 1, 0, 0, time.UTC)    // 03:01 EDT (UTC-4)

	bb := Compute(b, before, true)
	ab := Compute(b, after, true)

	if bb.Daily != ab.Daily {
		t.Fatalf("both instants fall on the same local day: before=%d after=%d", bb.Daily, ab.Daily)
	}
	if bb.Hourly == ab.Hourly {
		t.Fatalf("expected distinct hourly buckets across the transition")
	}

	localBefore := before.In(b.loc)
	localAfter := after.In(b.loc)
	if localBefore.Hour() != 1 {
		t.Fatalf("sanity: expected local hour 1 before transition, got %d", localBefore.Hour())
	}
	if localAfter.Hour() != 3 {
		t.Fatalf("sanity: expected local hour 3 after transition, got %d", localAfter.Hour())
	}
}

// TestComputeDSTFallBack exercises the ambiguous repeated-hour case: two
// distinct UTC instants both mapping to local 01:xx must still each
// bucket to their own correct, non-colliding hourly key because the
// bucketer derives the bucket from the location's offset at that exact
// instant, not from the ambiguous local wall-clock hour alone.
func TestComputeDSTFallBack(t *testing.T) {
	b, err := NewBucketer("America/New_York")
	if err != nil {
		t.Fatalf("NewBucketer: %v", err)
	}

	firstPass := time.Date(2026, 11, 1, 5, 30, 0, 0, time.UTC)  // 01:30 EDT
	secondPass := time.Date(2026, 11, 1, 6, 30, 0, 0, time.UTC) // 01:30 EST

	g1 := Compute(b, firstPass, true)
	g2 := Compute(b, secondPass, true)

	if g1.Hourly == g2.Hourly {
		t.Fatalf("ambiguous local hour must still bucket to distinct UTC-derived hours")
	}
	if g1.Daily != g2.Daily {
		t.Fatalf("both instants fall on the same local day")
	}
}

package keycompose

import (
	"testing"

	"github.com/Ap3pp3rs94/eventcommands/internal/eventmodel"
	"github.com/Ap3pp3rs94/eventcommands/internal/mapping"
	"github.com/Ap3pp3rs94/eventcommands/internal/sanitize"
)

var opts = eventmodel.Options{
	Limits:        sanitize.Limits{MaxFieldLength: 64, MaxValueLength: 64},
	Discriminator: "event",
}

func mustEvent(t *testing.T, raw string) *eventmodel.Event {
	t.Helper()
	e, err := eventmodel.FromJSON([]byte(raw), opts)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	return e
}

func TestBitmapPresent(t *testing.T) {
	e := mustEvent(t, `{"event":"x","country":"US"}`)
	el, ok, err := Bitmap("country", e)
	if err != nil || !ok {
		t.Fatalf("unexpected: ok=%v err=%v", ok, err)
	}
	if el != "US" {
		t.Fatalf("element = %q, want US", el)
	}
}

func TestBitmapAbsentSkips(t *testing.T) {
	e := mustEvent(t, `{"event":"x"}`)
	_, ok, err := Bitmap("country", e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected skip for absent field")
	}
}

func TestPatternComposesInFieldOrderWithTildeJoin(t *testing.T) {
	e := mustEvent(t, `{"event":"x","country":"US","plan":"pro"}`)
	p := mapping.AddPattern{Fields: []sanitize.Name{"country", "plan"}, PatternStr: "country~plan"}
	got, ok, err := Pattern(p, e)
	if err != nil || !ok {
		t.Fatalf("unexpected: ok=%v err=%v", ok, err)
	}
	if got != "US~pro" {
		t.Fatalf("values string = %q, want US~pro", got)
	}
}

func TestPatternMissingFieldSkips(t *testing.T) {
	e := mustEvent(t, `{"event":"x","country":"US"}`)
	p := mapping.AddPattern{Fields: []sanitize.Name{"country", "plan"}, PatternStr: "country~plan"}
	_, ok, err := Pattern(p, e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected skip when a pattern field is absent")
	}
}

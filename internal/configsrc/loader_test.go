package configsrc

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Ap3pp3rs94/eventcommands/internal/telemetry"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadBaseOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mapping.yaml"), `
time:
  store_hourly: false
  timezone: UTC
mapping:
  bitmap: ["country"]
limits:
  max_metrics_per_event: 100
`)

	l, err := NewLoader(root, Options{Name: "mapping"})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	raw, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(raw.Mapping.Bitmap) != 1 || raw.Mapping.Bitmap[0] != "country" {
		t.Fatalf("bitmap = %v", raw.Mapping.Bitmap)
	}
	if raw.Limits.MaxMetricsPerEvent != 100 {
		t.Fatalf("max_metrics_per_event = %d, want 100", raw.Limits.MaxMetricsPerEvent)
	}
	// Untouched limits still receive their defaults.
	if raw.Limits.MaxFieldLength == 0 {
		t.Fatalf("expected max_field_length to default, got 0")
	}
}

func TestLoadEnvTierOverridesBase(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mapping.yaml"), `
time:
  timezone: UTC
mapping:
  bitmap: ["country"]
`)
	writeFile(t, filepath.Join(root, "env", "prod", "mapping.yaml"), `
time:
  timezone: America/New_York
`)

	l, err := NewLoader(root, Options{Name: "mapping", Env: "prod"})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	raw, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if raw.Time.Timezone != "America/New_York" {
		t.Fatalf("timezone = %q, want env tier override", raw.Time.Timezone)
	}
	if len(raw.Mapping.Bitmap) != 1 {
		t.Fatalf("expected base tier's bitmap mapping to survive the merge, got %v", raw.Mapping.Bitmap)
	}
}

func TestLoadEnvVarOverride(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mapping.yaml"), `
time:
  timezone: UTC
`)

	t.Setenv("MAPPING_TIME__TIMEZONE", `"Europe/Berlin"`)

	l, err := NewLoader(root, Options{Name: "mapping", EnableEnvOverrides: true})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	raw, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if raw.Time.Timezone != "Europe/Berlin" {
		t.Fatalf("timezone = %q, want env-var override to win", raw.Time.Timezone)
	}
}

func TestLoadNoTiersPresentReturnsDefaults(t *testing.T) {
	root := t.TempDir()
	l, err := NewLoader(root, Options{Name: "mapping"})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	raw, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if raw.Discriminator != "event" {
		t.Fatalf("expected default discriminator, got %q", raw.Discriminator)
	}
}

func TestLoadWarningsGoThroughTelemetryLogger(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mapping.yaml"), `
time:
  timezone: UTC
`)

	// The trailing "__" (the default path delimiter) leaves an empty last
	// segment, which fails reSeg, so this env var matches the prefix but
	// is rejected with a config.env_override_invalid warning.
	t.Setenv("MAPPING_TIME__BAD__SEGMENT__", "1")

	var buf bytes.Buffer
	logger := telemetry.New(&buf, telemetry.Options{Service: "configsrc-test", Level: telemetry.LevelDebug})

	var onWarnCalls []string
	l, err := NewLoader(root, Options{
		Name:               "mapping",
		EnableEnvOverrides: true,
		Logger:             logger,
		OnWarn: func(code, detail string) {
			onWarnCalls = append(onWarnCalls, code)
		},
	})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if _, err := l.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !strings.Contains(buf.String(), "config.env_override_invalid") {
		t.Fatalf("expected telemetry logger to record the warning, got: %s", buf.String())
	}
	found := false
	for _, c := range onWarnCalls {
		if c == "config.env_override_invalid" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected OnWarn to still fire alongside the logger, got %v", onWarnCalls)
	}
}

func TestLoadDefaultsLoggerToNop(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mapping.yaml"), "time:\n  timezone: UTC\n")

	l, err := NewLoader(root, Options{Name: "mapping"})
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	if l.opts.Logger == nil {
		t.Fatalf("expected NewLoader to default Logger to telemetry.Nop, got nil")
	}
	if _, err := l.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestNewLoaderRejectsMissingRoot(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "does-not-exist"), Options{Name: "mapping"})
	if err == nil {
		t.Fatalf("expected error for a non-existent root")
	}
}

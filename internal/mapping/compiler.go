package mapping

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Ap3pp3rs94/eventcommands/internal/enginerr"
	"github.com/Ap3pp3rs94/eventcommands/internal/sanitize"
	"github.com/Ap3pp3rs94/eventcommands/internal/timebucket"
)

// IssueSeverity mirrors the teacher's profiles.CompileSeverity: not
// every normalization decision the compiler makes is an error, but all
// of them are worth surfacing to an operator auditing a config.
type IssueSeverity string

const (
	SevInfo  IssueSeverity = "info"
	SevWarn  IssueSeverity = "warn"
	SevError IssueSeverity = "error"
)

// Issue records one normalization or validation decision made while
// compiling a Raw config (spec-supplement #3 in SPEC_FULL.md).
type Issue struct {
	Severity IssueSeverity
	Code     string
	Message  string
}

// CompileReport accompanies a successfully compiled config (or a failed
// one — Compile always returns the report it produced, even on error) so
// operators can see exactly what the compiler did, not just whether it
// succeeded.
type CompileReport struct {
	Issues []Issue
	Errors int
	Warnings int
}

func (r *CompileReport) add(sev IssueSeverity, code, msg string) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Code: code, Message: msg})
	switch sev {
	case SevError:
		r.Errors++
	case SevWarn:
		r.Warnings++
	}
}

func (r *CompileReport) HasErrors() bool { return r.Errors > 0 }

// AddPattern is a compiled `mapping.add` entry: a sorted, deduplicated
// tuple of sanitized field names with its canonical `~`-joined rendering
// cached (spec §4.4, §9).
type AddPattern struct {
	Fields     []sanitize.Name
	PatternStr string
}

// AddValueSpec is a compiled `mapping.add_value` entry.
type AddValueSpec struct {
	Pattern    AddPattern
	ValueField sanitize.Name
}

// Compiled is the immutable output of Compile. It is safe to share by
// reference across goroutines (spec §5: "A compiled config is immutable
// and safe to share by reference across threads").
type Compiled struct {
	Revision string // stamped with google/uuid; see SPEC_FULL.md supplement #4

	Discriminator sanitize.Name
	StoreHourly   bool
	Bucketer      *timebucket.Bucketer

	BitmapFields  []sanitize.Name
	AddPatterns   []AddPattern
	AddValueSpecs []AddValueSpec

	Limits sanitize.Limits

	MaxCombinations    int
	MaxMetricsPerEvent int
}

// Compile validates raw and produces an immutable Compiled config plus a
// CompileReport describing every normalization decision. On any
// SevError issue, Compile returns (nil, report, *enginerr.Error) with
// Kind == enginerr.ConfigError; compilation is atomic per spec §7
// ("Config compilation is atomic: either a fully valid compiled config
// is returned or none is").
func Compile(raw Raw) (*Compiled, *CompileReport, error) {
	report := &CompileReport{}

	limits := sanitize.Limits{
		MaxFieldLength: raw.Limits.MaxFieldLength,
		MaxValueLength: raw.Limits.MaxValueLength,
	}
	if limits.MaxFieldLength <= 0 {
		limits.MaxFieldLength = DefaultMaxFieldLength
		report.add(SevInfo, "limits.max_field_length.defaulted", "max_field_length defaulted")
	}
	if limits.MaxValueLength <= 0 {
		limits.MaxValueLength = DefaultMaxValueLength
		report.add(SevInfo, "limits.max_value_length.defaulted", "max_value_length defaulted")
	}

	maxCombinations := raw.Limits.MaxCombinations
	if maxCombinations == 0 {
		maxCombinations = DefaultMaxCombinations
		report.add(SevInfo, "limits.max_combinations.defaulted", "max_combinations defaulted")
	} else if maxCombinations < 0 {
		report.add(SevError, "limits.max_combinations.invalid", "max_combinations must be positive")
	}

	maxMetrics := raw.Limits.MaxMetricsPerEvent
	if maxMetrics == 0 {
		maxMetrics = DefaultMaxMetricsPerEvent
		report.add(SevInfo, "limits.max_metrics_per_event.defaulted", "max_metrics_per_event defaulted")
	} else if maxMetrics < 0 {
		report.add(SevError, "limits.max_metrics_per_event.invalid", "max_metrics_per_event must be positive")
	}

	tz := strings.TrimSpace(raw.Time.Timezone)
	if tz == "" {
		tz = "UTC"
		report.add(SevInfo, "time.timezone.defaulted", "timezone defaulted to UTC")
	}
	bucketer, err := timebucket.NewBucketer(tz)
	if err != nil {
		report.add(SevError, "time.timezone.unknown", "unknown IANA timezone: "+tz)
	}

	discRaw := raw.Discriminator
	if strings.TrimSpace(discRaw) == "" {
		discRaw = "event"
	}
	discName, ok, discErr := sanitize.FieldName(discRaw, limits)
	if discErr != nil || !ok {
		report.add(SevError, "discriminator.invalid", "discriminator field name failed sanitization")
	}

	bitmapFields, bmIssues := compileBitmapFields(raw.Mapping.Bitmap, limits)
	report.Issues = append(report.Issues, bmIssues...)
	for _, iss := range bmIssues {
		if iss.Severity == SevError {
			report.Errors++
		} else if iss.Severity == SevWarn {
			report.Warnings++
		}
	}

	addPatterns, addIssues := compileAddPatterns(raw.Mapping.Add, limits)
	report.Issues = append(report.Issues, addIssues...)
	for _, iss := range addIssues {
		if iss.Severity == SevError {
			report.Errors++
		} else if iss.Severity == SevWarn {
			report.Warnings++
		}
	}

	addValueSpecs, avIssues := compileAddValueSpecs(raw.Mapping.AddValue, limits)
	report.Issues = append(report.Issues, avIssues...)
	for _, iss := range avIssues {
		if iss.Severity == SevError {
			report.Errors++
		} else if iss.Severity == SevWarn {
			report.Warnings++
		}
	}

	if report.HasErrors() {
		return nil, report, enginerr.New(enginerr.ConfigError, "configuration failed to compile", "error_count", itoa(report.Errors))
	}

	return &Compiled{
		Revision:           uuid.NewString(),
		Discriminator:      discName,
		StoreHourly:        raw.Time.StoreHourly,
		Bucketer:           bucketer,
		BitmapFields:       bitmapFields,
		AddPatterns:        addPatterns,
		AddValueSpecs:      addValueSpecs,
		Limits:             limits,
		MaxCombinations:    maxCombinations,
		MaxMetricsPerEvent: maxMetrics,
	}, report, nil
}

func compileBitmapFields(raw []string, limits sanitize.Limits) ([]sanitize.Name, []Issue) {
	var issues []Issue
	seen := map[sanitize.Name]bool{}
	out := make([]sanitize.Name, 0, len(raw))
	for _, f := range raw {
		name, ok, err := sanitize.FieldName(f, limits)
		if err != nil {
			issues = append(issues, Issue{Severity: SevError, Code: "mapping.bitmap.invalid_field", Message: "bitmap field failed sanitization: " + f})
			continue
		}
		if !ok {
			issues = append(issues, Issue{Severity: SevError, Code: "mapping.bitmap.empty_field", Message: "bitmap field is empty"})
			continue
		}
		if seen[name] {
			issues = append(issues, Issue{Severity: SevWarn, Code: "mapping.bitmap.duplicate", Message: "duplicate bitmap field collapsed: " + string(name)})
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, issues
}

// parsePattern splits a `~`-joined pattern spec into sanitized,
// lexicographically sorted field names (spec §3 "Compound-key pattern").
func parsePattern(spec string, limits sanitize.Limits) ([]sanitize.Name, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, enginerr.New(enginerr.ConfigError, "empty pattern")
	}
	parts := strings.Split(spec, string(sanitize.SeparatorChar))
	fields := make([]sanitize.Name, 0, len(parts))
	seen := map[sanitize.Name]bool{}
	for _, p := range parts {
		name, ok, err := sanitize.FieldName(p, limits)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, enginerr.New(enginerr.ConfigError, "pattern contains an empty field", "pattern", spec)
		}
		if seen[name] {
			return nil, enginerr.New(enginerr.ConfigError, "duplicate field within a pattern", "pattern", spec, "field", string(name))
		}
		seen[name] = true
		fields = append(fields, name)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields, nil
}

func renderPatternStr(fields []sanitize.Name) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = string(f)
	}
	return strings.Join(parts, string(sanitize.SeparatorChar))
}

func compileAddPatterns(raw []string, limits sanitize.Limits) ([]AddPattern, []Issue) {
	var issues []Issue
	seen := map[string]bool{}
	out := make([]AddPattern, 0, len(raw))
	for _, spec := range raw {
		fields, err := parsePattern(spec, limits)
		if err != nil {
			issues = append(issues, Issue{Severity: SevError, Code: "mapping.add.invalid_pattern", Message: err.Error()})
			continue
		}
		patternStr := renderPatternStr(fields)
		if seen[patternStr] {
			issues = append(issues, Issue{Severity: SevWarn, Code: "mapping.add.duplicate_pattern", Message: "duplicate add pattern collapsed: " + patternStr})
			continue
		}
		seen[patternStr] = true
		out = append(out, AddPattern{Fields: fields, PatternStr: patternStr})
	}
	return out, issues
}

func compileAddValueSpecs(raw []RawAddValue, limits sanitize.Limits) ([]AddValueSpec, []Issue) {
	var issues []Issue
	seen := map[string]bool{}
	out := make([]AddValueSpec, 0, len(raw))
	for _, rv := range raw {
		fields, err := parsePattern(rv.Pattern, limits)
		if err != nil {
			issues = append(issues, Issue{Severity: SevError, Code: "mapping.add_value.invalid_pattern", Message: err.Error()})
			continue
		}
		valueField, ok, err := sanitize.FieldName(rv.ValueField, limits)
		if err != nil || !ok {
			issues = append(issues, Issue{Severity: SevError, Code: "mapping.add_value.invalid_value_field", Message: "value_field failed sanitization: " + rv.ValueField})
			continue
		}
		conflict := false
		for _, f := range fields {
			if f == valueField {
				issues = append(issues, Issue{Severity: SevError, Code: "mapping.add_value.value_field_in_pattern", Message: "value_field equals a pattern field: " + string(valueField)})
				conflict = true
			}
		}
		if conflict {
			continue
		}
		patternStr := renderPatternStr(fields)
		key := patternStr + "|" + string(valueField)
		if seen[key] {
			issues = append(issues, Issue{Severity: SevWarn, Code: "mapping.add_value.duplicate", Message: "duplicate add_value spec collapsed: " + key})
			continue
		}
		seen[key] = true
		out = append(out, AddValueSpec{
			Pattern:    AddPattern{Fields: fields, PatternStr: patternStr},
			ValueField: valueField,
		})
	}
	return out, issues
}

func itoa(n int) string { return strconv.Itoa(n) }

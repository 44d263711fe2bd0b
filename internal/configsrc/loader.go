// Package configsrc loads a mapping.Raw configuration document from a
// filesystem root with the same deterministic layering convention as the
// teacher's pkg/config/loader.go: base -> env -> tenant -> env-var
// overrides, later layers winning. It is the only package in this
// module that touches a filesystem or the process environment; the core
// pipeline (internal/mapping and below) only ever sees an already
// decoded mapping.Raw, which mapping.Compile then validates.
package configsrc

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ap3pp3rs94/eventcommands/internal/mapping"
	"github.com/Ap3pp3rs94/eventcommands/internal/telemetry"
)

var (
	ErrInvalidRoot    = errors.New("configsrc: invalid root")
	ErrInvalidOptions = errors.New("configsrc: invalid options")
	ErrTooManyFiles   = errors.New("configsrc: too many files")
	ErrFileTooLarge   = errors.New("configsrc: file too large")
	ErrNotObject      = errors.New("configsrc: top-level must be a mapping document")
)

// Options configures a Loader. Mirrors the teacher's layering conventions
// (Service/Env/Tenant tiers, env-var overrides) scoped down to this
// module's single mapping document rather than a whole service bundle.
type Options struct {
	// Name is the base document name, e.g. "mapping" loads
	// "<root>/mapping.yaml", "<root>/env/<Env>/mapping.yaml", and
	// "<root>/tenants/<Tenant>/mapping.yaml".
	Name string

	Env    string
	Tenant string

	// EnableEnvOverrides applies process environment variables prefixed
	// with EnvPrefix (default UPPER(Name)+"_") over the merged document,
	// using PathDelimiter (default "__") to express nesting — e.g.
	// MAPPING_TIME__TIMEZONE=America/New_York => {"time":{"timezone":...}}.
	EnableEnvOverrides bool
	EnvPrefix          string
	PathDelimiter      string

	MaxFiles     int   // default 8
	MaxFileBytes int64 // default 1 MiB

	// Logger receives every non-fatal notice (a rejected env override,
	// too many matching env vars, a merge depth/node cap hit) as a
	// structured telemetry.Event. Defaulted limits and absent tiers are
	// not reported. Defaults to telemetry.Nop, so a
	// caller that doesn't care about warnings need not wire one up.
	Logger *telemetry.Logger

	// OnWarn, if set, additionally receives the same notices as a bare
	// (code, detail) callback — kept for callers that want the raw
	// values without standing up a telemetry.Logger. Nil-safe.
	OnWarn func(code, detail string)
}

type Loader struct {
	rootAbs string
	opts    Options
	reSeg   *regexp.Regexp
}

func NewLoader(root string, opts Options) (*Loader, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, ErrInvalidRoot
	}
	opts.Name = strings.TrimSpace(opts.Name)
	if opts.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidOptions)
	}
	opts.Env = strings.TrimSpace(opts.Env)
	opts.Tenant = strings.TrimSpace(opts.Tenant)

	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 8
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = 1024 * 1024
	}
	if opts.PathDelimiter == "" {
		opts.PathDelimiter = "__"
	}
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = strings.ToUpper(opts.Name) + "_"
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.Nop
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory", ErrInvalidRoot)
	}

	return &Loader{
		rootAbs: abs,
		opts:    opts,
		reSeg:   regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`),
	}, nil
}

func (l *Loader) warn(code, detail string) {
	if l == nil {
		return
	}
	l.opts.Logger.Warn(code, map[string]string{"detail": detail})
	if l.opts.OnWarn != nil {
		l.opts.OnWarn(code, detail)
	}
}

type tierPath struct {
	tier string
	path string
}

func (l *Loader) tierPaths() []tierPath {
	var out []tierPath
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		out = append(out, tierPath{tier: "base", path: l.opts.Name + ext})
	}
	if l.opts.Env != "" {
		for _, ext := range []string{".yaml", ".yml", ".json"} {
			out = append(out, tierPath{tier: "env", path: filepath.Join("env", l.opts.Env, l.opts.Name+ext)})
		}
	}
	if l.opts.Tenant != "" {
		for _, ext := range []string{".yaml", ".yml", ".json"} {
			out = append(out, tierPath{tier: "tenant", path: filepath.Join("tenants", l.opts.Tenant, l.opts.Name+ext)})
		}
	}
	return out
}

// Load reads every present tier, merges them deterministically, applies
// env-var overrides, and returns a mapping.Raw ready for mapping.Compile.
// Absent tiers are skipped silently; a present-but-malformed tier is a
// hard error (spec has no "best effort" config semantics — a bad
// document must never silently fall back to defaults).
func (l *Loader) Load() (mapping.Raw, error) {
	tiers := l.tierPaths()
	if len(tiers) > l.opts.MaxFiles*3 {
		return mapping.Raw{}, ErrTooManyFiles
	}

	var layers []map[string]any
	seenTier := map[string]bool{}
	for _, tp := range tiers {
		if seenTier[tp.tier] {
			// one extension already matched this tier; later extensions
			// for the same tier are redundant candidates.
			continue
		}
		doc, ok, err := l.readDoc(tp.path)
		if err != nil {
			return mapping.Raw{}, err
		}
		if !ok {
			continue
		}
		seenTier[tp.tier] = true
		layers = append(layers, doc)
	}

	merged, warnings := mergeMany(layers)
	for _, w := range warnings {
		l.warn("config.merge", fmt.Sprintf("%s: %s", w.path, w.msg))
	}

	if l.opts.EnableEnvOverrides {
		envLayer, err := l.envOverrides()
		if err != nil {
			return mapping.Raw{}, err
		}
		if len(envLayer) > 0 {
			merged, warnings = mergeMany([]map[string]any{merged, envLayer})
			for _, w := range warnings {
				l.warn("config.env_merge", fmt.Sprintf("%s: %s", w.path, w.msg))
			}
		}
	}

	raw := mapping.DefaultRaw()
	if len(merged) == 0 {
		return raw, nil
	}
	if err := decodeInto(merged, &raw); err != nil {
		return mapping.Raw{}, fmt.Errorf("configsrc: decode merged document: %w", err)
	}
	return raw, nil
}

func (l *Loader) readDoc(relPath string) (map[string]any, bool, error) {
	abs := filepath.Join(l.rootAbs, relPath)
	if !strings.HasPrefix(abs, l.rootAbs) {
		return nil, false, fmt.Errorf("configsrc: path escapes root: %s", relPath)
	}

	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("configsrc: stat %s: %w", relPath, err)
	}
	if info.Size() > l.opts.MaxFileBytes {
		return nil, false, fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, relPath, info.Size())
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, false, fmt.Errorf("configsrc: read %s: %w", relPath, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("configsrc: parse %s: %w", relPath, err)
	}
	if doc == nil {
		return nil, false, nil
	}
	return normalizeKeys(doc), true, nil
}

// normalizeKeys converts yaml.v3's map[string]interface{} nested values
// (which may themselves be map[string]interface{} already, yaml.v3
// decodes directly to that for a map[string]any target) into a form
// mergeMap can walk uniformly. yaml.v3 already produces map[string]any
// recursively for a map[string]any target, so this is an identity pass
// kept for clarity and as the seam a future non-YAML source would plug
// into.
func normalizeKeys(m map[string]any) map[string]any { return m }

// envOverrides scans os.Environ for keys prefixed with l.opts.EnvPrefix,
// turning "PREFIX_TIME__TIMEZONE" into the nested path {"time":{"timezone":v}}.
// Each value is parsed as JSON when possible (so "true", "3", "{"a":1}"
// decode to their native types) and falls back to a raw string.
func (l *Loader) envOverrides() (map[string]any, error) {
	out := map[string]any{}
	count := 0
	for _, kv := range os.Environ() {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key, val := kv[:eq], kv[eq+1:]
		if !strings.HasPrefix(key, l.opts.EnvPrefix) {
			continue
		}
		count++
		if count > 256 {
			l.warn("config.env_limit", "too many matching env vars, remainder ignored")
			break
		}
		rest := strings.TrimPrefix(key, l.opts.EnvPrefix)
		if rest == "" {
			continue
		}
		segs := strings.Split(rest, l.opts.PathDelimiter)
		valid := true
		for _, s := range segs {
			if !l.reSeg.MatchString(strings.ToLower(s)) {
				valid = false
				break
			}
		}
		if !valid {
			l.warn("config.env_override_invalid", key)
			continue
		}
		insertPath(out, segs, parseEnvValue(val))
	}
	return out, nil
}

func parseEnvValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func insertPath(root map[string]any, segs []string, value any) {
	cur := root
	for i, seg := range segs {
		key := strings.ToLower(seg)
		if i == len(segs)-1 {
			cur[key] = value
			return
		}
		next, ok := cur[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
}

// decodeInto remarshals a merged generic document through YAML into raw
// — yaml.v3 round-trips map[string]any cleanly and honors mapping.Raw's
// yaml tags, so this avoids hand-writing a second decoder for the same
// shape json.Marshal/Unmarshal would otherwise need its own copy of.
func decodeInto(merged map[string]any, raw *mapping.Raw) error {
	defaults := mapping.DefaultRaw()
	*raw = defaults

	b, err := yaml.Marshal(merged)
	if err != nil {
		return err
	}
	var overlay mapping.Raw
	if err := yaml.Unmarshal(b, &overlay); err != nil {
		return err
	}

	if _, ok := merged["time"]; ok {
		raw.Time = overlay.Time
	}
	if _, ok := merged["mapping"]; ok {
		raw.Mapping = overlay.Mapping
	}
	if _, ok := merged["discriminator"]; ok {
		raw.Discriminator = overlay.Discriminator
	}
	if limits, ok := merged["limits"].(map[string]any); ok {
		applyLimitDefault(&raw.Limits.MaxFieldLength, limits, "max_field_length", defaults.Limits.MaxFieldLength)
		applyLimitDefault(&raw.Limits.MaxValueLength, limits, "max_value_length", defaults.Limits.MaxValueLength)
		applyLimitDefault(&raw.Limits.MaxCombinations, limits, "max_combinations", defaults.Limits.MaxCombinations)
		applyLimitDefault(&raw.Limits.MaxMetricsPerEvent, limits, "max_metrics_per_event", defaults.Limits.MaxMetricsPerEvent)
	}
	return nil
}

func applyLimitDefault(dst *int, limits map[string]any, key string, def int) {
	if _, present := limits[key]; !present {
		*dst = def
		return
	}
	if n, ok := overlayInt(limits[key]); ok {
		*dst = n
		return
	}
	*dst = def
}

func overlayInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

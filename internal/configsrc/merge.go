package configsrc

import (
	"fmt"
	"sort"
)

// mergeOptions bounds recursive merge, adapted from the teacher's
// pkg/config/merge.go MergeOptions. A mapping document is small and
// shallow by construction (spec §4.4's Raw shape), so the defaults here
// are far lower than the teacher's service-config bounds.
type mergeOptions struct {
	maxDepth int
	maxNodes int
}

func defaultMergeOptions() mergeOptions {
	return mergeOptions{maxDepth: 16, maxNodes: 8192}
}

// mergeWarning records a non-fatal merge anomaly (depth or node cap hit)
// for the caller to log; it never aborts the merge.
type mergeWarning struct {
	path string
	msg  string
}

// mergeMany folds layers in order — later layers win — the same
// determinism contract as the teacher's MergeMany: map keys merge
// recursively, everything else (scalars, arrays) is a replace.
func mergeMany(layers []map[string]any) (map[string]any, []mergeWarning) {
	opts := defaultMergeOptions()
	var warnings []mergeWarning
	budget := opts.maxNodes

	out := map[string]any{}
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		out = mergeMap(out, layer, "$", 0, &budget, opts, &warnings)
	}
	return out, warnings
}

func mergeMap(dst, src map[string]any, path string, depth int, budget *int, opts mergeOptions, warnings *[]mergeWarning) map[string]any {
	if *budget <= 0 {
		*warnings = append(*warnings, mergeWarning{path: path, msg: fmt.Sprintf("max nodes exceeded (%d)", opts.maxNodes)})
		return src
	}
	*budget--

	if depth >= opts.maxDepth {
		*warnings = append(*warnings, mergeWarning{path: path, msg: fmt.Sprintf("max depth exceeded (%d); subtree replaced", opts.maxDepth)})
		return src
	}
	if dst == nil {
		dst = map[string]any{}
	}
	if src == nil {
		return dst
	}

	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sv := src[k]
		dv, exists := dst[k]
		if exists {
			dMap, dIsMap := dv.(map[string]any)
			sMap, sIsMap := sv.(map[string]any)
			if dIsMap && sIsMap {
				dst[k] = mergeMap(dMap, sMap, path+"."+k, depth+1, budget, opts, warnings)
				continue
			}
		}
		dst[k] = sv
	}
	return dst
}

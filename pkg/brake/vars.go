// vars.go builds filtered Var groups from key/value sources.

package brake

import (
	"net/http"
	"net/url"
	"sort"
)

// BuildVars drops entries with an empty key or value and exact duplicates,
// preserving the order of first occurrence. It never returns nil.
func BuildVars(vars []Var) []Var {
	out := make([]Var, 0, len(vars))
	seen := make(map[Var]struct{}, len(vars))
	for _, v := range vars {
		if v.Key == "" || v.Value == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// VarsFromMap converts a map into vars sorted by key.
func VarsFromMap(m map[string]string) []Var {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	vars := make([]Var, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, Var{Key: k, Value: m[k]})
	}
	return BuildVars(vars)
}

// VarsFromValues converts multi-valued form or query values into vars sorted
// by key. Every value of a key becomes its own Var.
func VarsFromValues(values url.Values) []Var {
	return varsFromMulti(values)
}

// VarsFromHeader converts HTTP headers into vars sorted by canonical key.
func VarsFromHeader(h http.Header) []Var {
	return varsFromMulti(h)
}

func varsFromMulti(m map[string][]string) []Var {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var vars []Var
	for _, k := range keys {
		for _, v := range m[k] {
			vars = append(vars, Var{Key: k, Value: v})
		}
	}
	return BuildVars(vars)
}

// context.go propagates run IDs, cxdb context IDs, and request vars through
// context.Context.

package brake

import "context"

// Context key types (unexported to avoid collisions)
type runIDKey struct{}
type contextIDKey struct{}
type varsKey struct{}
type urlKey struct{}

// contextIDSet is used to distinguish "zero value" from "not set"
type contextIDSet struct {
	id uint64
}

// VarGroup names one of the request var groups of a notice.
type VarGroup string

const (
	GroupParams  VarGroup = "params"
	GroupSession VarGroup = "session"
	GroupCgiData VarGroup = "cgi-data"
)

// contextVars is an immutable set of vars attached to a context.
type contextVars map[VarGroup][]Var

// WithRunID returns a context with the run ID attached.
// The run ID correlates adapter enrichment with the failures it reports.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext extracts the run ID from context.
// Returns empty string and false if not set or if the run ID is empty.
func RunIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(runIDKey{})
	id, ok := v.(string)
	return id, ok && id != ""
}

// WithContextID returns a context with the cxdb context ID attached.
// The cxdb mirror appends notices to this context instead of an orphan one.
func WithContextID(ctx context.Context, contextID uint64) context.Context {
	return context.WithValue(ctx, contextIDKey{}, contextIDSet{id: contextID})
}

// ContextIDFromContext extracts the cxdb context ID from context.
// Returns 0 and false if not set.
func ContextIDFromContext(ctx context.Context) (uint64, bool) {
	v := ctx.Value(contextIDKey{})
	if v == nil {
		return 0, false
	}
	set, ok := v.(contextIDSet)
	if !ok {
		return 0, false
	}
	return set.id, true
}

// ContextIDProvider is an optional interface that session implementations can
// satisfy to enable automatic context linkage for notices.
type ContextIDProvider interface {
	ContextID(ctx context.Context) (uint64, error)
}

// WithVars returns a context carrying additional vars for group. The Builder
// appends them after the group's hook output. Repeated calls accumulate.
func WithVars(ctx context.Context, group VarGroup, vars ...Var) context.Context {
	if len(vars) == 0 {
		return ctx
	}
	prev, _ := ctx.Value(varsKey{}).(contextVars)
	next := make(contextVars, len(prev)+1)
	for g, vs := range prev {
		next[g] = vs
	}
	merged := make([]Var, 0, len(prev[group])+len(vars))
	merged = append(merged, prev[group]...)
	merged = append(merged, vars...)
	next[group] = merged
	return context.WithValue(ctx, varsKey{}, next)
}

// VarsFromContext returns the vars attached to ctx for group.
func VarsFromContext(ctx context.Context, group VarGroup) []Var {
	vars, _ := ctx.Value(varsKey{}).(contextVars)
	return vars[group]
}

// WithURL returns a context carrying the request URL reported in notices
// when no URL hook is configured.
func WithURL(ctx context.Context, url string) context.Context {
	return context.WithValue(ctx, urlKey{}, url)
}

// URLFromContext extracts the URL attached by WithURL.
func URLFromContext(ctx context.Context) (string, bool) {
	url, ok := ctx.Value(urlKey{}).(string)
	return url, ok && url != ""
}

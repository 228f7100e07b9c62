// instrument.go provides the Instrument function for convenient runner setup.
// This is the recommended entry point for reporting ai-agents-sdk failures.

package agentssdk

import (
	"log/slog"

	"github.com/strongdm/ai-agents-sdk/pkg/agents"
)

// WrapOption configures a WrappedRunner.
type WrapOption func(*WrappedRunner)

// WithLogger sets the logger for the wrapper and its hooks.
func WithLogger(logger *slog.Logger) WrapOption {
	return func(w *WrappedRunner) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithEnrichmentStore sets the enrichment store for the wrapper.
// The store is used to correlate hook data with failures reported at the runner boundary.
func WithEnrichmentStore(store EnrichmentStore) WrapOption {
	return func(w *WrappedRunner) {
		if store != nil {
			w.enrichments = store
		}
	}
}

// WithHistorySize bounds the operation history attached to notices.
func WithHistorySize(n int) WrapOption {
	return func(w *WrappedRunner) {
		if n > 0 {
			w.historySize = n
		}
	}
}

// Instrument wraps a Runner with error and panic reporting.
//
// Example:
//
//	client := brake.NewClient(cfg)
//	runner := agents.NewRunner(llmClient)
//	wrapped := agentssdk.Instrument(runner, client)
//	result, err := wrapped.Run(ctx, agent, input, session, nil)
func Instrument(baseRunner *agents.Runner, reporter Reporter, opts ...WrapOption) *WrappedRunner {
	wrapper := NewWrappedRunner(baseRunner, reporter, nil, nil)
	for _, opt := range opts {
		opt(wrapper)
	}
	return wrapper
}

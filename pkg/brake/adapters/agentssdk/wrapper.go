// wrapper.go implements WrappedRunner that wraps agents.Runner to report errors and panics.
// This is the PRIMARY failure capture mechanism - hooks provide enrichment only.

package agentssdk

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/strongdm/ai-agents-sdk/pkg/agents"

	"github.com/strongdm/ai-airbrake-notifier/pkg/brake"
)

// Reporter sends a notice for a failed run. *brake.Client satisfies it.
type Reporter interface {
	SendError(ctx context.Context, err error) error
}

// WrappedRunner wraps an agents.Runner to report errors and panics.
type WrappedRunner struct {
	inner       *agents.Runner
	reporter    Reporter
	enrichments EnrichmentStore
	logger      *slog.Logger
	historySize int
}

// NewWrappedRunner creates a new WrappedRunner that wraps the given Runner.
// A nil store gets a fresh in-memory one; a nil logger discards output.
func NewWrappedRunner(inner *agents.Runner, reporter Reporter, store EnrichmentStore, logger *slog.Logger) *WrappedRunner {
	if store == nil {
		store = NewEnrichmentStore()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WrappedRunner{
		inner:       inner,
		reporter:    reporter,
		enrichments: store,
		logger:      logger,
		historySize: DefaultHistorySize,
	}
}

// Run executes the agent with the given input and session, reporting any errors or panics.
func (w *WrappedRunner) Run(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (agents.RunResult, error) {
	runID := uuid.NewString()
	ctx = brake.WithRunID(ctx, runID)
	defer w.enrichments.Delete(runID)

	contextID := w.extractContextID(ctx, session)
	wrappedCfg := w.wrapRunConfig(cfg)

	defer w.capturePanic(ctx, runID, contextID)

	result, err := w.inner.Run(ctx, agent, input, session, wrappedCfg)
	if err != nil {
		w.captureError(ctx, runID, contextID, brake.WithStack(err))
	}
	return result, err
}

// RunOnce executes a single turn of the agent, reporting any errors or panics.
func (w *WrappedRunner) RunOnce(ctx context.Context, agent *agents.Agent, input string, cfg *agents.RunConfig) (agents.RunResult, error) {
	runID := uuid.NewString()
	ctx = brake.WithRunID(ctx, runID)
	defer w.enrichments.Delete(runID)

	// No session in RunOnce; only the context can link a cxdb context.
	contextID := w.extractContextID(ctx, nil)
	wrappedCfg := w.wrapRunConfig(cfg)

	defer w.capturePanic(ctx, runID, contextID)

	result, err := w.inner.RunOnce(ctx, agent, input, wrappedCfg)
	if err != nil {
		w.captureError(ctx, runID, contextID, brake.WithStack(err))
	}
	return result, err
}

// RunStream starts a streaming run, reporting any errors at the start.
// Errors during streaming are not reported by this wrapper.
func (w *WrappedRunner) RunStream(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (*agents.StreamingRun, error) {
	runID := uuid.NewString()
	ctx = brake.WithRunID(ctx, runID)
	// The stream may outlive this call, so enrichment is only deleted on failure.

	contextID := w.extractContextID(ctx, session)
	wrappedCfg := w.wrapRunConfig(cfg)

	defer w.capturePanic(ctx, runID, contextID)

	stream, err := w.inner.RunStream(ctx, agent, input, session, wrappedCfg)
	if err != nil {
		w.captureError(ctx, runID, contextID, brake.WithStack(err))
		w.enrichments.Delete(runID)
	}
	return stream, err
}

// extractContextID extracts the context ID from a session if it implements ContextIDProvider.
func (w *WrappedRunner) extractContextID(ctx context.Context, session any) uint64 {
	if provider, ok := session.(brake.ContextIDProvider); ok {
		if id, err := provider.ContextID(ctx); err == nil {
			return id
		}
	}
	// Fallback to context propagation when session cannot provide a context ID.
	if id, ok := brake.ContextIDFromContext(ctx); ok {
		return id
	}
	return 0
}

// wrapRunConfig clones cfg and wraps hooks with HookAdapter for enrichment capture.
func (w *WrappedRunner) wrapRunConfig(cfg *agents.RunConfig) *agents.RunConfig {
	var cloned agents.RunConfig
	if cfg != nil {
		cloned = *cfg
	}
	cloned.Hooks = newHookAdapter(w.enrichments, cloned.Hooks, w.logger, w.historySize)
	return &cloned
}

// captureError reports err with enrichment data.
func (w *WrappedRunner) captureError(ctx context.Context, runID string, contextID uint64, err error) {
	enrichment, _ := w.enrichments.Get(runID)
	ctx = reportContext(ctx, runID, contextID, classifyError(err), enrichment)
	w.safeReport(ctx, err)
}

// capturePanic recovers from a panic, reports it, and re-panics.
func (w *WrappedRunner) capturePanic(ctx context.Context, runID string, contextID uint64) {
	if r := recover(); r != nil {
		enrichment, _ := w.enrichments.Get(runID)
		ctx = reportContext(ctx, runID, contextID, ErrorTypePanic, enrichment)
		w.safeReport(ctx, brake.NewPanicError(r))
		panic(r)
	}
}

// safeReport sends a notice, logging any errors rather than propagating them.
func (w *WrappedRunner) safeReport(ctx context.Context, err error) {
	if w.reporter == nil {
		return
	}
	if sendErr := w.reporter.SendError(ctx, err); sendErr != nil {
		w.logger.Warn("failed to report run failure", "error", sendErr)
	}
}

// Inner returns the underlying Runner for advanced usage.
func (w *WrappedRunner) Inner() *agents.Runner {
	return w.inner
}

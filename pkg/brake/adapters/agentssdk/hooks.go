// hooks.go implements RunHooks for capturing operation context for enrichment.
// This adapter provides ENRICHMENT only - failure detection is done by WrappedRunner.

package agentssdk

import (
	"context"
	"log/slog"
	"time"

	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	llmsdk "github.com/strongdm/ai-llm-sdk/pkg/llm"

	"github.com/strongdm/ai-airbrake-notifier/pkg/brake"
)

// HookAdapter implements agents.RunHooks to capture operation context.
// It delegates to an inner RunHooks and captures enrichment data for correlation.
type HookAdapter struct {
	store       EnrichmentStore
	inner       agents.RunHooks
	logger      *slog.Logger
	historySize int
	now         func() time.Time
}

// NewHookAdapter wraps an existing RunHooks and captures operation context.
//
// The store is used to correlate hook data with failures reported at the runner boundary.
// The inner hooks (if non-nil) are called for all hook methods; only their errors are returned.
// A nil logger discards output.
func NewHookAdapter(store EnrichmentStore, inner agents.RunHooks, logger *slog.Logger) agents.RunHooks {
	return newHookAdapter(store, inner, logger, DefaultHistorySize)
}

func newHookAdapter(store EnrichmentStore, inner agents.RunHooks, logger *slog.Logger, historySize int) *HookAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HookAdapter{
		store:       store,
		inner:       inner,
		logger:      logger,
		historySize: historySize,
		now:         time.Now,
	}
}

// OnAgentStart captures the agent name for enrichment.
func (h *HookAdapter) OnAgentStart(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent) error {
	h.update(ctx, func(e *Enrichment) {
		if agent != nil {
			e.AgentName = agent.Name()
		}
	})

	if h.inner != nil {
		return h.inner.OnAgentStart(ctx, runCtx, agent)
	}
	return nil
}

// OnAgentEnd delegates to inner hooks.
func (h *HookAdapter) OnAgentEnd(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent, result agents.RunResult) error {
	if h.inner != nil {
		return h.inner.OnAgentEnd(ctx, runCtx, agent, result)
	}
	return nil
}

// OnHandoff records the receiving agent.
func (h *HookAdapter) OnHandoff(ctx context.Context, runCtx *agents.RunContext, from *agents.Agent, to *agents.Agent) error {
	h.update(ctx, func(e *Enrichment) {
		if to != nil {
			e.AgentName = to.Name()
		}
	})

	if h.inner != nil {
		return h.inner.OnHandoff(ctx, runCtx, from, to)
	}
	return nil
}

// OnToolStart captures tool context for enrichment.
func (h *HookAdapter) OnToolStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, call llmsdk.ToolCall) error {
	now := h.now()
	h.update(ctx, func(e *Enrichment) {
		if agent != nil {
			e.AgentName = agent.Name()
		}
		e.Operation = OperationTool
		e.ToolName = tool.Name
		e.ToolCallID = call.ID
		e.OperationID = call.ID
		e.appendHistory(OperationRecord{
			Kind:      OperationTool,
			Timestamp: now,
			AgentName: e.AgentName,
			Tool: &ToolOperation{
				Name:      tool.Name,
				CallID:    call.ID,
				InputSize: len(call.Arguments),
			},
		}, h.historySize)
	})

	if h.inner != nil {
		return h.inner.OnToolStart(ctx, runCtx, agent, tool, call)
	}
	return nil
}

// OnToolEnd records the tool's output size and duration.
func (h *HookAdapter) OnToolEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, output string) error {
	now := h.now()
	h.update(ctx, func(e *Enrichment) {
		e.updateLast(OperationTool, func(r *OperationRecord) {
			r.DurationMs = now.Sub(r.Timestamp).Milliseconds()
			if r.Tool != nil {
				r.Tool.OutputSize = len(output)
			}
		})
	})

	if h.inner != nil {
		return h.inner.OnToolEnd(ctx, runCtx, agent, tool, output)
	}
	return nil
}

// OnLLMStart captures LLM context for enrichment.
func (h *HookAdapter) OnLLMStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, req llmsdk.Request) error {
	now := h.now()
	h.update(ctx, func(e *Enrichment) {
		if agent != nil {
			e.AgentName = agent.Name()
		}
		e.Operation = OperationLLM
		e.Model = req.Model
		e.Provider = string(req.Provider)
		e.appendHistory(OperationRecord{
			Kind:      OperationLLM,
			Timestamp: now,
			AgentName: e.AgentName,
			LLM:       buildLLMOperation(req),
		}, h.historySize)
	})

	if h.inner != nil {
		return h.inner.OnLLMStart(ctx, runCtx, agent, req)
	}
	return nil
}

// OnLLMEnd records response metadata.
func (h *HookAdapter) OnLLMEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, resp llmsdk.Response) error {
	now := h.now()
	h.update(ctx, func(e *Enrichment) {
		e.updateLast(OperationLLM, func(r *OperationRecord) {
			r.DurationMs = now.Sub(r.Timestamp).Milliseconds()
			updateLLMOperationWithResponse(r.LLM, resp)
		})
	})

	if h.inner != nil {
		return h.inner.OnLLMEnd(ctx, runCtx, agent, resp)
	}
	return nil
}

// update applies fn to the enrichment of the run in ctx, if any.
func (h *HookAdapter) update(ctx context.Context, fn func(e *Enrichment)) {
	runID, ok := brake.RunIDFromContext(ctx)
	if !ok {
		h.logger.Debug("hook called outside an instrumented run")
		return
	}
	h.store.Update(runID, fn)
}

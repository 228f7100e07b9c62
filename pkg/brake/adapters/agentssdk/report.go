// report.go turns run enrichment into notice vars.

package agentssdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/strongdm/ai-airbrake-notifier/pkg/brake"
)

// Error types reported as the agent.error_type param.
const (
	ErrorTypeError     = "error"
	ErrorTypePanic     = "panic"
	ErrorTypeTimeout   = "timeout"
	ErrorTypeCanceled  = "canceled"
	ErrorTypeGuardrail = "guardrail"
)

// reportContext attaches enrichment for the run to ctx as notice vars.
func reportContext(ctx context.Context, runID string, contextID uint64, errorType string, e Enrichment) context.Context {
	if contextID != 0 {
		ctx = brake.WithContextID(ctx, contextID)
	}
	ctx = brake.WithVars(ctx, brake.GroupParams, enrichmentParams(runID, errorType, e)...)
	ctx = brake.WithVars(ctx, brake.GroupSession, historyVars(e.History)...)
	return ctx
}

// enrichmentParams reports what the run was doing. Empty values are
// dropped by the builder.
func enrichmentParams(runID, errorType string, e Enrichment) []brake.Var {
	return []brake.Var{
		{Key: "agent.run_id", Value: runID},
		{Key: "agent.error_type", Value: errorType},
		{Key: "agent.name", Value: e.AgentName},
		{Key: "agent.operation", Value: e.Operation},
		{Key: "agent.operation_id", Value: e.OperationID},
		{Key: "agent.tool_name", Value: e.ToolName},
		{Key: "agent.tool_call_id", Value: e.ToolCallID},
		{Key: "agent.model", Value: e.Model},
		{Key: "agent.provider", Value: e.Provider},
	}
}

// historyVars encodes each history record as JSON, oldest first.
func historyVars(history []OperationRecord) []brake.Var {
	vars := make([]brake.Var, 0, len(history))
	for i, rec := range history {
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		vars = append(vars, brake.Var{Key: fmt.Sprintf("history.%d", i), Value: string(data)})
	}
	return vars
}

// classifyError determines the error type based on the error.
func classifyError(err error) string {
	if err == nil {
		return ErrorTypeError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorTypeCanceled
	}

	// Guardrail errors are only recognizable by message.
	if containsGuardrailPattern(err.Error()) {
		return ErrorTypeGuardrail
	}

	return ErrorTypeError
}

var guardrailPatterns = []string{
	"guardrail",
	"content policy",
	"safety filter",
	"blocked by policy",
}

// containsGuardrailPattern checks if an error message indicates a guardrail violation.
func containsGuardrailPattern(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range guardrailPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

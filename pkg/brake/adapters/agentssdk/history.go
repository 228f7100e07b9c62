// history.go records a bounded history of LLM and tool operations per run.

package agentssdk

import (
	"time"

	llmsdk "github.com/strongdm/ai-llm-sdk/pkg/llm"
)

// Operation kinds.
const (
	OperationLLM  = "llm"
	OperationTool = "tool"
)

// OperationRecord captures a single LLM or tool call.
type OperationRecord struct {
	Kind       string    `json:"kind"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	AgentName  string    `json:"agent_name,omitempty"`

	LLM  *LLMOperation  `json:"llm,omitempty"`
	Tool *ToolOperation `json:"tool,omitempty"`
}

// LLMOperation captures metadata from an LLM call.
// Message text is never stored.
type LLMOperation struct {
	Model        string   `json:"model"`
	Provider     string   `json:"provider,omitempty"`
	MessageCount int      `json:"message_count"`
	ToolNames    []string `json:"tool_names,omitempty"`

	ResponseID       string   `json:"response_id,omitempty"`
	FinishReason     string   `json:"finish_reason,omitempty"`
	ToolCallNames    []string `json:"tool_call_names,omitempty"`
	PromptTokens     int      `json:"prompt_tokens,omitempty"`
	CompletionTokens int      `json:"completion_tokens,omitempty"`
	TotalTokens      int      `json:"total_tokens,omitempty"`
}

// ToolOperation captures metadata from a tool call. Arguments and output are
// recorded by size only.
type ToolOperation struct {
	Name       string `json:"name"`
	CallID     string `json:"call_id"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size,omitempty"`
}

// appendHistory adds rec, evicting the oldest records beyond limit.
func (e *Enrichment) appendHistory(rec OperationRecord, limit int) {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	e.History = append(e.History, rec)
	if over := len(e.History) - limit; over > 0 {
		e.History = append([]OperationRecord(nil), e.History[over:]...)
	}
}

// updateLast applies fn to the most recent record of kind.
// Returns false if there is none.
func (e *Enrichment) updateLast(kind string, fn func(*OperationRecord)) bool {
	for i := len(e.History) - 1; i >= 0; i-- {
		if e.History[i].Kind == kind {
			fn(&e.History[i])
			return true
		}
	}
	return false
}

// buildLLMOperation extracts metadata from an LLM request.
func buildLLMOperation(req llmsdk.Request) *LLMOperation {
	op := &LLMOperation{
		Model:        req.Model,
		Provider:     string(req.Provider),
		MessageCount: len(req.Messages),
	}
	if len(req.Tools) > 0 {
		op.ToolNames = make([]string, len(req.Tools))
		for i, tool := range req.Tools {
			op.ToolNames[i] = tool.Name
		}
	}
	return op
}

// updateLLMOperationWithResponse updates op with response metadata.
func updateLLMOperationWithResponse(op *LLMOperation, resp llmsdk.Response) {
	if op == nil {
		return
	}

	op.ResponseID = resp.ID
	op.FinishReason = string(resp.FinishReason)
	op.PromptTokens = resp.Usage.PromptTokens
	op.CompletionTokens = resp.Usage.CompletionTokens
	op.TotalTokens = resp.Usage.TotalTokens

	if len(resp.ToolCalls) > 0 {
		op.ToolCallNames = make([]string, len(resp.ToolCalls))
		for i, tc := range resp.ToolCalls {
			op.ToolCallNames[i] = tc.Name
		}
	}
}

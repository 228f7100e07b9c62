package agentssdk

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	llmsdk "github.com/strongdm/ai-llm-sdk/pkg/llm"
	llmmock "github.com/strongdm/ai-llm-sdk/pkg/llm/mock"

	"github.com/strongdm/ai-airbrake-notifier/pkg/brake"
)

func newMockClient(adapter *llmmock.Adapter) *llmsdk.Client {
	return llmsdk.NewClient(
		map[llmsdk.Provider]llmsdk.ProviderAdapter{llmsdk.ProviderOpenAI: adapter},
		llmsdk.WithDefaultProvider(llmsdk.ProviderOpenAI),
	)
}

func enqueueToolCall(adapter *llmmock.Adapter, toolName, callID string) {
	call := llmsdk.ToolCall{
		ID:        callID,
		Name:      toolName,
		Arguments: json.RawMessage(`{"query":"hi"}`),
	}
	resp := llmsdk.Response{
		Model:        "test-model",
		Message:      llmsdk.Message{Role: llmsdk.RoleAssistant},
		ToolCalls:    []llmsdk.ToolCall{call},
		FinishReason: llmsdk.FinishReasonToolCalls,
	}
	adapter.EnqueueComplete(resp, nil)
}

// report is one captured SendError call.
type report struct {
	ctx    context.Context
	err    error
	notice *brake.Notice
}

// recordingReporter builds notices the way brake.Client does, without sending.
type recordingReporter struct {
	builder *brake.Builder
	sendErr error

	mu      sync.Mutex
	reports []report
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{
		builder: brake.NewBuilder(brake.Config{APIKey: "k", EnvironmentName: "test", ProjectRoot: "/srv"}),
	}
}

func (r *recordingReporter) SendError(ctx context.Context, err error) error {
	notice, buildErr := r.builder.Notice(ctx, err)
	if buildErr != nil {
		return buildErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report{ctx: ctx, err: err, notice: notice})
	return r.sendErr
}

func (r *recordingReporter) get() []report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]report, len(r.reports))
	copy(out, r.reports)
	return out
}

// params indexes the notice params by key.
func (rp report) params() map[string]string {
	out := map[string]string{}
	if rp.notice.Request == nil {
		return out
	}
	for _, v := range rp.notice.Request.Params {
		out[v.Key] = v.Value
	}
	return out
}

func (rp report) session() map[string]string {
	out := map[string]string{}
	if rp.notice.Request == nil {
		return out
	}
	for _, v := range rp.notice.Request.Session {
		out[v.Key] = v.Value
	}
	return out
}

// mockRunHooks implements agents.RunHooks for testing.
type mockRunHooks struct {
	mu        sync.Mutex
	calls     map[string]int
	returnErr error
}

func newMockRunHooks() *mockRunHooks {
	return &mockRunHooks{calls: map[string]int{}}
}

func (m *mockRunHooks) record(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
	return m.returnErr
}

func (m *mockRunHooks) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockRunHooks) OnAgentStart(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent) error {
	return m.record("agent_start")
}

func (m *mockRunHooks) OnAgentEnd(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent, result agents.RunResult) error {
	return m.record("agent_end")
}

func (m *mockRunHooks) OnHandoff(ctx context.Context, runCtx *agents.RunContext, from *agents.Agent, to *agents.Agent) error {
	return m.record("handoff")
}

func (m *mockRunHooks) OnToolStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, call llmsdk.ToolCall) error {
	return m.record("tool_start")
}

func (m *mockRunHooks) OnToolEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, output string) error {
	return m.record("tool_end")
}

func (m *mockRunHooks) OnLLMStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, req llmsdk.Request) error {
	return m.record("llm_start")
}

func (m *mockRunHooks) OnLLMEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, resp llmsdk.Response) error {
	return m.record("llm_end")
}

// contextIDSession provides a cxdb context ID like a cxdb-backed session.
type contextIDSession struct {
	id  uint64
	err error
}

func (s contextIDSession) ContextID(ctx context.Context) (uint64, error) {
	return s.id, s.err
}

var errNoContext = errors.New("no context ID")

func requireReports(t *testing.T, r *recordingReporter, n int) []report {
	t.Helper()
	reports := r.get()
	if len(reports) != n {
		t.Fatalf("expected %d reports, got %d", n, len(reports))
	}
	return reports
}

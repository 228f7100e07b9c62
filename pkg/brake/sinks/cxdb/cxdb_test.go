package cxdb

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/strongdm/ai-airbrake-notifier/pkg/brake"
	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"
)

// mockCXDBClient is a test double for the cxdb client.
type mockCXDBClient struct {
	mu             sync.Mutex
	createContexts []uint64
	appendRequests []*cxdbclient.AppendRequest
	nextContextID  uint64
	createErr      error
	appendErr      error
}

func (m *mockCXDBClient) CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createContexts = append(m.createContexts, baseTurnID)
	m.nextContextID++
	return &cxdbclient.ContextHead{ContextID: m.nextContextID}, nil
}

func (m *mockCXDBClient) AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	m.appendRequests = append(m.appendRequests, req)
	return &cxdbclient.AppendResult{ContextID: req.ContextID, TurnID: 1, Depth: 1}, nil
}

func (m *mockCXDBClient) getAppendRequests() []*cxdbclient.AppendRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*cxdbclient.AppendRequest, len(m.appendRequests))
	copy(result, m.appendRequests)
	return result
}

func (m *mockCXDBClient) createCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.createContexts)
}

func decodeConversationItem(t *testing.T, payload []byte) cxdtypes.ConversationItem {
	t.Helper()
	var item cxdtypes.ConversationItem
	if err := cxdbclient.DecodeMsgpackInto(payload, &item); err != nil {
		t.Fatalf("DecodeMsgpackInto failed: %v", err)
	}
	return item
}

func decodeDetailsJSON(t *testing.T, content string) map[string]any {
	t.Helper()
	var details map[string]any
	if err := json.Unmarshal([]byte(content), &details); err != nil {
		t.Fatalf("details JSON unmarshal failed: %v", err)
	}
	return details
}

func testNotice() *brake.Notice {
	return &brake.Notice{
		Error: brake.NoticeError{
			Class:          "*fs.PathError",
			Message:        "*fs.PathError: open /etc/app.toml: no such file or directory",
			CatchingMethod: "acme/app.loadConfig",
			Backtrace:      []brake.TraceLine{{Method: "loadConfig", File: "/srv/app/config.go", Number: 12}},
		},
		Request: &brake.Request{
			URL:       "https://app.example.com/reload",
			Component: "/srv/app/config.go",
			Action:    "loadConfig",
			Params:    []brake.Var{{Key: "tag", Value: "a"}, {Key: "tag", Value: "b"}},
			Session:   []brake.Var{{Key: "user", Value: "42"}},
		},
		ServerEnvironment: brake.ServerEnvironment{EnvironmentName: "production", AppVersion: "1.2.3"},
	}
}

func TestCXDBSink_ImplementsSinkInterface(t *testing.T) {
	var _ brake.Sink = NewCXDBSink(&mockCXDBClient{})
}

func TestCXDBSink_Write_WithContextID_AppendsTurn(t *testing.T) {
	client := &mockCXDBClient{}
	sink := NewCXDBSink(client)

	ctx := brake.WithContextID(context.Background(), 12345)
	if err := sink.Write(ctx, testNotice()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	if client.createCount() != 0 {
		t.Errorf("should not create a context when one is linked, got %d", client.createCount())
	}
	reqs := client.getAppendRequests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 append request, got %d", len(reqs))
	}
	req := reqs[0]
	if req.ContextID != 12345 {
		t.Errorf("ContextID = %d, want 12345", req.ContextID)
	}
	if req.TypeID != cxdtypes.TypeIDConversationItem {
		t.Errorf("TypeID = %q, want %q", req.TypeID, cxdtypes.TypeIDConversationItem)
	}
	if req.IdempotencyKey == "" {
		t.Error("IdempotencyKey should be set")
	}

	item := decodeConversationItem(t, req.Payload)
	if item.ContextMetadata != nil {
		t.Error("ContextMetadata should be nil for linked contexts")
	}
	if item.ID != req.IdempotencyKey {
		t.Errorf("item ID = %q, want idempotency key %q", item.ID, req.IdempotencyKey)
	}
}

func TestCXDBSink_Write_WithoutContextID_CreatesOrphan(t *testing.T) {
	client := &mockCXDBClient{}
	sink := NewCXDBSink(client, WithOrphanLabels([]string{"error", "critical"}), WithClientTag("brake-e2e"))

	if err := sink.Write(context.Background(), testNotice()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	if client.createCount() != 1 {
		t.Fatalf("expected 1 orphan context, got %d", client.createCount())
	}
	reqs := client.getAppendRequests()
	if len(reqs) != 1 || reqs[0].ContextID != 1 {
		t.Fatalf("expected one append to context 1, got %+v", reqs)
	}

	item := decodeConversationItem(t, reqs[0].Payload)
	if item.ContextMetadata == nil {
		t.Fatalf("ContextMetadata should be set for orphan contexts")
	}
	if item.ContextMetadata.ClientTag != "brake-e2e" {
		t.Errorf("ClientTag = %q, want %q", item.ContextMetadata.ClientTag, "brake-e2e")
	}
	if len(item.ContextMetadata.Labels) != 2 || item.ContextMetadata.Labels[1] != "critical" {
		t.Errorf("Labels = %v, want [error critical]", item.ContextMetadata.Labels)
	}
}

func TestCXDBSink_Write_SystemMessage(t *testing.T) {
	client := &mockCXDBClient{}
	sink := NewCXDBSink(client)

	ctx := brake.WithRunID(brake.WithContextID(context.Background(), 7), "run-9")
	notice := testNotice()
	if err := sink.Write(ctx, notice); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	item := decodeConversationItem(t, client.getAppendRequests()[0].Payload)
	if item.ItemType != cxdtypes.ItemTypeSystem {
		t.Errorf("ItemType = %q, want %q", item.ItemType, cxdtypes.ItemTypeSystem)
	}
	if item.Status != cxdtypes.ItemStatusComplete {
		t.Errorf("Status = %q, want %q", item.Status, cxdtypes.ItemStatusComplete)
	}
	if item.System == nil {
		t.Fatal("System should be set")
	}
	if item.System.Kind != cxdtypes.SystemKindError {
		t.Errorf("System.Kind = %q, want %q", item.System.Kind, cxdtypes.SystemKindError)
	}
	if item.System.Title != notice.Error.Message {
		t.Errorf("Title = %q, want %q", item.System.Title, notice.Error.Message)
	}

	details := decodeDetailsJSON(t, item.System.Content)
	checks := map[string]any{
		"class":           "*fs.PathError",
		"environment":     "production",
		"app_version":     "1.2.3",
		"catching_method": "acme/app.loadConfig",
		"run_id":          "run-9",
		"url":             "https://app.example.com/reload",
		"action":          "loadConfig",
		"fingerprint":     brake.Fingerprint(notice),
	}
	for key, want := range checks {
		if details[key] != want {
			t.Errorf("details[%q] = %v, want %v", key, details[key], want)
		}
	}

	params, ok := details["params"].(map[string]any)
	if !ok || params["tag"] != "a,b" {
		t.Errorf("params = %v, want tag=a,b", details["params"])
	}
	if _, ok := details["cgi_data"]; ok {
		t.Error("empty cgi_data should be omitted")
	}
	backtrace, ok := details["backtrace"].([]any)
	if !ok || len(backtrace) != 1 {
		t.Fatalf("backtrace = %v", details["backtrace"])
	}
	frame := backtrace[0].(map[string]any)
	if frame["method"] != "loadConfig" || frame["number"] != float64(12) {
		t.Errorf("frame = %v", frame)
	}
}

func TestCXDBSink_Write_TitleFallsBackToClassAndTruncates(t *testing.T) {
	client := &mockCXDBClient{}
	sink := NewCXDBSink(client)
	ctx := brake.WithContextID(context.Background(), 1)

	notice := testNotice()
	notice.Error.Message = ""
	if err := sink.Write(ctx, notice); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	notice.Error.Message = strings.Repeat("m", 150)
	if err := sink.Write(ctx, notice); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	reqs := client.getAppendRequests()
	if title := decodeConversationItem(t, reqs[0].Payload).System.Title; title != "*fs.PathError" {
		t.Errorf("Title = %q, want class", title)
	}
	title := decodeConversationItem(t, reqs[1].Payload).System.Title
	if len(title) != 100 || !strings.HasSuffix(title, "...") {
		t.Errorf("Title = %q (len %d), want 100 chars ending in ...", title, len(title))
	}
}

func TestCXDBSink_Write_Timestamp(t *testing.T) {
	client := &mockCXDBClient{}
	s := NewCXDBSink(client).(*cxdbSink)
	fixed := time.Date(2025, 1, 26, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if err := s.Write(brake.WithContextID(context.Background(), 1), testNotice()); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	item := decodeConversationItem(t, client.getAppendRequests()[0].Payload)
	if item.Timestamp != fixed.UnixMilli() {
		t.Errorf("Timestamp = %d, want %d", item.Timestamp, fixed.UnixMilli())
	}
}

func TestCXDBSink_Write_Errors(t *testing.T) {
	errCreate := errors.New("create failed")
	errAppend := errors.New("append failed")

	sink := NewCXDBSink(&mockCXDBClient{createErr: errCreate})
	if err := sink.Write(context.Background(), testNotice()); !errors.Is(err, errCreate) {
		t.Errorf("Write error = %v, want %v", err, errCreate)
	}

	sink = NewCXDBSink(&mockCXDBClient{appendErr: errAppend})
	if err := sink.Write(brake.WithContextID(context.Background(), 1), testNotice()); !errors.Is(err, errAppend) {
		t.Errorf("Write error = %v, want %v", err, errAppend)
	}

	if err := sink.Write(context.Background(), nil); !errors.Is(err, brake.ErrInvalidArgument) {
		t.Errorf("Write(nil) error = %v, want ErrInvalidArgument", err)
	}
}

func TestCXDBSink_FlushAndClose(t *testing.T) {
	sink := NewCXDBSink(&mockCXDBClient{})
	if err := sink.Flush(context.Background()); err != nil {
		t.Errorf("Flush returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}

// Package cxdb provides a mirror that persists notices to cxdb as SystemMessage items.
package cxdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/strongdm/ai-airbrake-notifier/pkg/brake"
	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// CXDBSinkOption configures the CXDB sink.
type CXDBSinkOption func(*cxdbSinkConfig)

type cxdbSinkConfig struct {
	orphanLabels []string
	clientTag    string
	now          func() time.Time
}

// WithOrphanLabels sets labels for contexts created for unlinked notices.
func WithOrphanLabels(labels []string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.orphanLabels = labels
	}
}

// WithClientTag sets the client tag for orphan contexts.
func WithClientTag(tag string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.clientTag = tag
	}
}

type cxdbSink struct {
	client       CXDBClient
	orphanLabels []string
	clientTag    string
	now          func() time.Time
}

// NewCXDBSink creates a sink that appends one turn per notice. Notices sent
// with brake.WithContextID land in that context; others get a new one.
func NewCXDBSink(client CXDBClient, opts ...CXDBSinkOption) brake.Sink {
	cfg := &cxdbSinkConfig{
		orphanLabels: []string{"error", "airbrake"},
		clientTag:    "brake",
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &cxdbSink{
		client:       client,
		orphanLabels: cfg.orphanLabels,
		clientTag:    cfg.clientTag,
		now:          cfg.now,
	}
}

// Write persists a notice to cxdb.
func (s *cxdbSink) Write(ctx context.Context, notice *brake.Notice) error {
	if notice == nil {
		return fmt.Errorf("%w: notice is nil", brake.ErrInvalidArgument)
	}

	contextID, linked := brake.ContextIDFromContext(ctx)
	if !linked {
		head, err := s.client.CreateContext(ctx, 0)
		if err != nil {
			return fmt.Errorf("create orphan context: %w", err)
		}
		contextID = head.ContextID
	}

	id := uuid.NewString()
	item := s.buildConversationItem(ctx, id, notice, !linked)

	payload, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      contextID,
		ParentTurnID:   0,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: id,
	}

	if _, err := s.client.AppendTurn(ctx, req); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *cxdbSink) buildConversationItem(ctx context.Context, id string, notice *brake.Notice, isOrphan bool) *cxdtypes.ConversationItem {
	title := notice.Error.Message
	if title == "" {
		title = notice.Error.Class
	}
	if len(title) > 100 {
		title = title[:97] + "..."
	}

	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: s.now().UnixMilli(),
		ID:        id,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   title,
			Content: buildNoticeDetails(ctx, notice),
		},
	}

	// cxdb expects context metadata on the first turn of a context.
	if isOrphan {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    s.orphanLabels,
			ClientTag: s.clientTag,
		}
	}
	return item
}

// buildNoticeDetails encodes the notice as JSON for SystemMessage.Content.
func buildNoticeDetails(ctx context.Context, notice *brake.Notice) string {
	details := map[string]any{
		"class":       notice.Error.Class,
		"message":     notice.Error.Message,
		"fingerprint": brake.Fingerprint(notice),
		"environment": notice.ServerEnvironment.EnvironmentName,
		"backtrace":   notice.Error.Backtrace,
	}
	if notice.Error.CatchingMethod != "" {
		details["catching_method"] = notice.Error.CatchingMethod
	}
	if v := notice.ServerEnvironment.AppVersion; v != "" {
		details["app_version"] = v
	}
	if runID, ok := brake.RunIDFromContext(ctx); ok {
		details["run_id"] = runID
	}
	if r := notice.Request; r != nil {
		details["url"] = r.URL
		details["component"] = r.Component
		if r.Action != "" {
			details["action"] = r.Action
		}
		addVars(details, "params", r.Params)
		addVars(details, "session", r.Session)
		addVars(details, "cgi_data", r.CgiData)
	}

	jsonBytes, err := json.Marshal(details)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to encode details: %s"}`, err)
	}
	return string(jsonBytes)
}

func addVars(details map[string]any, key string, vars []brake.Var) {
	if len(vars) == 0 {
		return
	}
	m := make(map[string]string, len(vars))
	for _, v := range vars {
		if prev, ok := m[v.Key]; ok {
			m[v.Key] = prev + "," + v.Value
			continue
		}
		m[v.Key] = v.Value
	}
	details[key] = m
}

// Flush is a no-op for the cxdb sink (writes are synchronous).
func (s *cxdbSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the cxdb sink.
func (s *cxdbSink) Close() error {
	return nil
}

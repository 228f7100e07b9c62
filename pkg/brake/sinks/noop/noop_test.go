package noop

import (
	"context"
	"testing"

	"github.com/strongdm/ai-airbrake-notifier/pkg/brake"
)

func TestNoopSink(t *testing.T) {
	var sink brake.Sink = NewNoopSink()
	ctx := context.Background()

	if err := sink.Write(ctx, &brake.Notice{}); err != nil {
		t.Errorf("Write returned error: %v", err)
	}
	if err := sink.Write(ctx, nil); err != nil {
		t.Errorf("Write(nil) returned error: %v", err)
	}
	if err := sink.Flush(ctx); err != nil {
		t.Errorf("Flush returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}

// Package noop provides a sink that discards all notices.
// Useful for tests and for disabling mirroring explicitly.
package noop

import (
	"context"

	"github.com/strongdm/ai-airbrake-notifier/pkg/brake"
)

type noopSink struct{}

// NewNoopSink creates a sink that discards all notices.
func NewNoopSink() brake.Sink {
	return noopSink{}
}

func (noopSink) Write(context.Context, *brake.Notice) error { return nil }

func (noopSink) Flush(context.Context) error { return nil }

func (noopSink) Close() error { return nil }

// sink.go defines the Sink interface for notice mirrors.

package brake

import "context"

// Sink receives a copy of every notice the client sends.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Write persists a notice. Called after scrubbing.
	Write(ctx context.Context, notice *Notice) error

	// Flush ensures any buffered notices are persisted.
	// For synchronous sinks, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	Close() error
}

// noopSink is the default mirror.
type noopSink struct{}

func (noopSink) Write(context.Context, *Notice) error { return nil }
func (noopSink) Flush(context.Context) error          { return nil }
func (noopSink) Close() error                         { return nil }

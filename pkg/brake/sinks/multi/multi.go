// Package multi mirrors notices to several sinks at once.
package multi

import (
	"context"
	"errors"

	"github.com/strongdm/ai-airbrake-notifier/pkg/brake"
)

type multiSink []brake.Sink

// NewMultiSink returns a sink that forwards every call to each non-nil sink
// in order. A failing sink does not stop the others; their errors are joined.
func NewMultiSink(sinks ...brake.Sink) brake.Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) each(fn func(brake.Sink) error) error {
	var errs []error
	for _, s := range m {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiSink) Write(ctx context.Context, notice *brake.Notice) error {
	return m.each(func(s brake.Sink) error { return s.Write(ctx, notice) })
}

func (m multiSink) Flush(ctx context.Context) error {
	return m.each(func(s brake.Sink) error { return s.Flush(ctx) })
}

func (m multiSink) Close() error {
	return m.each(brake.Sink.Close)
}

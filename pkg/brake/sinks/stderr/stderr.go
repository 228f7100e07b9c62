// Package stderr provides a mirror that prints notices to stderr in human-readable format.
// Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/strongdm/ai-airbrake-notifier/pkg/brake"
)

// StderrSinkOption configures the stderr sink.
type StderrSinkOption func(*stderrSinkConfig)

type stderrSinkConfig struct {
	verbose bool
	out     io.Writer
	now     func() time.Time
}

// WithVerbose enables the full backtrace and request vars.
func WithVerbose() StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.verbose = true
	}
}

// WithOutput redirects output away from os.Stderr.
func WithOutput(w io.Writer) StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.out = w
	}
}

// stderrSink writes notices in human-readable format.
type stderrSink struct {
	verbose bool
	now     func() time.Time

	mu  sync.Mutex
	out io.Writer
}

// NewStderrSink creates a sink that writes to stderr.
func NewStderrSink(opts ...StderrSinkOption) brake.Sink {
	cfg := &stderrSinkConfig{out: os.Stderr, now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrSink{
		verbose: cfg.verbose,
		out:     cfg.out,
		now:     cfg.now,
	}
}

// Write formats and outputs the notice.
func (s *stderrSink) Write(ctx context.Context, notice *brake.Notice) error {
	if notice == nil {
		return nil
	}

	var b strings.Builder

	// Format: [BRAKE] <timestamp> <class> in <catching method> (env: <environment>)
	parts := []string{fmt.Sprintf("[BRAKE] %s %s", s.now().Format(time.RFC3339), notice.Error.Class)}
	if notice.Error.CatchingMethod != "" {
		parts = append(parts, fmt.Sprintf("in %s", notice.Error.CatchingMethod))
	}
	if env := notice.ServerEnvironment.EnvironmentName; env != "" {
		parts = append(parts, fmt.Sprintf("(env: %s)", env))
	}
	b.WriteString(strings.Join(parts, " "))
	b.WriteString("\n")

	if notice.Error.Message != "" {
		fmt.Fprintf(&b, "        Message: %s\n", notice.Error.Message)
	}
	fmt.Fprintf(&b, "        Fingerprint: %s\n", brake.Fingerprint(notice))
	if notice.Request != nil && notice.Request.URL != "" {
		fmt.Fprintf(&b, "        URL: %s\n", notice.Request.URL)
	}

	if s.verbose {
		writeBacktrace(&b, notice.Error.Backtrace)
		if notice.Request != nil {
			writeVars(&b, "Params", notice.Request.Params)
			writeVars(&b, "Session", notice.Request.Session)
			writeVars(&b, "CGI data", notice.Request.CgiData)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, b.String())
	return err
}

func writeBacktrace(b *strings.Builder, lines []brake.TraceLine) {
	if len(lines) == 0 {
		return
	}
	b.WriteString("        Backtrace:\n")
	for _, line := range lines {
		if line == brake.EmptyTraceLine {
			b.WriteString("          (no frames)\n")
			continue
		}
		fmt.Fprintf(b, "          %s (%s:%d)\n", line.Method, line.File, line.Number)
	}
}

func writeVars(b *strings.Builder, title string, vars []brake.Var) {
	if len(vars) == 0 {
		return
	}
	fmt.Fprintf(b, "        %s:\n", title)
	for _, v := range vars {
		fmt.Fprintf(b, "          %s=%s\n", v.Key, v.Value)
	}
}

// Flush is a no-op for stderr sink.
func (s *stderrSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for stderr sink.
func (s *stderrSink) Close() error {
	return nil
}

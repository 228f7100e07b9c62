package brake

import (
	"context"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// simulateFailure returns an error whose stack starts in this function.
//
//go:noinline
func simulateFailure() error {
	return pkgerrors.New("simulated failure")
}

type failer struct{}

//go:noinline
func (failer) fail() error {
	return pkgerrors.New("method failure")
}

type testError struct {
	msg string
}

func (e *testError) Error() string { return e.msg }

// recordingSink captures mirrored notices.
type recordingSink struct {
	mu      sync.Mutex
	notices []*Notice
	flushed int
	closed  bool
	err     error
}

func (s *recordingSink) Write(ctx context.Context, n *Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
	return s.err
}

func (s *recordingSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed++
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notices)
}

func testConfig() Config {
	return Config{
		APIKey:          "123456",
		EnvironmentName: "test",
		ProjectRoot:     "/srv/app",
	}
}

// varMap indexes vars by key; later duplicates win.
func varMap(vars []Var) map[string]string {
	m := make(map[string]string, len(vars))
	for _, v := range vars {
		m[v.Key] = v.Value
	}
	return m
}

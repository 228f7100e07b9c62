// exception.go summarizes a single failure for notice construction.

package brake

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// ExceptionInfo is a read-only summary of one failure.
// It is built once per reported error and discarded after the notice is built.
type ExceptionInfo struct {
	// Err is the reported error.
	Err error

	// ClassName is the package-qualified runtime type of Err.
	ClassName string

	// Message is "<TypeName>: <Err.Error()>".
	Message string

	// TraceLines is the backtrace, innermost frame first. Never empty.
	TraceLines []TraceLine

	// CatchingMethod is the topmost function of the trace, or the process
	// entry point when no frames were captured.
	CatchingMethod Method

	// CatchingFile is the catching method's declaring type, or its source
	// file when the method has no receiver.
	CatchingFile string
}

// classNamer lets an error report its own class instead of its Go type.
type classNamer interface {
	ErrorClass() string
}

// NewExceptionInfo builds the summary for err using source for frame extraction.
// A nil source falls back to RuntimeStackSource.
func NewExceptionInfo(err error, source StackSource) (*ExceptionInfo, error) {
	if err == nil {
		return nil, fmt.Errorf("%w: nil error", ErrInvalidArgument)
	}
	if source == nil {
		source = RuntimeStackSource{}
	}

	full, short := className(err)
	method, file := source.CatchingContext(err)

	return &ExceptionInfo{
		Err:            err,
		ClassName:      full,
		Message:        short + ": " + err.Error(),
		TraceLines:     source.CaptureTrace(err),
		CatchingMethod: method,
		CatchingFile:   file,
	}, nil
}

// className returns the package-qualified and the bare type name of err.
func className(err error) (string, string) {
	if cn, ok := err.(classNamer); ok {
		if name := cn.ErrorClass(); name != "" {
			short := name
			if i := strings.LastIndex(name, "."); i >= 0 {
				short = name[i+1:]
			}
			return name, short
		}
	}

	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String(), t.String()
	}
	if t.PkgPath() == "" {
		return t.Name(), t.Name()
	}
	return t.PkgPath() + "." + t.Name(), t.Name()
}

// panicError carries a recovered panic value and the stack it unwound.
type panicError struct {
	value any
	pcs   []uintptr
}

// maxStackDepth bounds the number of frames recorded by NewPanicError and WithStack.
const maxStackDepth = 64

// NewPanicError converts a recovered panic value into an error carrying the
// panicking goroutine's stack. It must be called from the deferred function
// that recovered the panic.
func NewPanicError(recovered any) error {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(2, pcs)
	return &panicError{value: recovered, pcs: trimPanicFrames(pcs[:n])}
}

func (e *panicError) Error() string {
	return formatRecovered(e.value)
}

// ErrorClass reports panics under a fixed class name.
func (e *panicError) ErrorClass() string {
	return "runtime.Panic"
}

// Callers returns the stack starting at the function that panicked.
func (e *panicError) Callers() []uintptr {
	return e.pcs
}

// Unwrap exposes a panicked error value.
func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}

// tracedError attaches a call stack to an error that was created without one.
type tracedError struct {
	err error
	pcs []uintptr
}

// WithStack records the caller's stack on err so its notice has a backtrace.
// The notice class stays that of err, and a stack already carried by err
// takes precedence. WithStack(nil) returns nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(2, pcs)
	return &tracedError{err: err, pcs: pcs[:n]}
}

// withCallerStack records the stack of the function that called the caller
// of withCallerStack, unless err already carries frames.
func withCallerStack(err error) error {
	if err == nil || len(programCounters(err)) > 0 {
		return err
	}
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(3, pcs)
	return &tracedError{err: err, pcs: pcs[:n]}
}

func (e *tracedError) Error() string { return e.err.Error() }

func (e *tracedError) ErrorClass() string {
	full, _ := className(e.err)
	return full
}

func (e *tracedError) Callers() []uintptr { return e.pcs }

func (e *tracedError) Unwrap() error { return e.err }

// trimPanicFrames drops the recovery machinery above the panicking function:
// everything up to runtime.gopanic and any runtime frames that follow it.
func trimPanicFrames(pcs []uintptr) []uintptr {
	start := -1
	for i, pc := range pcs {
		if fn := runtime.FuncForPC(pc - 1); fn != nil && fn.Name() == "runtime.gopanic" {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return pcs
	}
	for start < len(pcs) {
		fn := runtime.FuncForPC(pcs[start] - 1)
		if fn == nil || !strings.HasPrefix(fn.Name(), "runtime.") {
			break
		}
		start++
	}
	return pcs[start:]
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}

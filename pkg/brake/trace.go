// trace.go extracts portable stack traces from errors.

package brake

import (
	"errors"
	"runtime"
	"runtime/debug"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// TraceLine is one stack frame in a notice backtrace.
// The zero value is EmptyTraceLine and stands for an unavailable stack.
type TraceLine struct {
	Method string `xml:"method,attr" json:"method"`
	File   string `xml:"file,attr" json:"file"`
	Number int    `xml:"number,attr" json:"number"`
}

// EmptyTraceLine marks a failure for which no frames were captured.
var EmptyTraceLine = TraceLine{}

// unknownFile is reported when neither a source file nor a package is known.
const unknownFile = "(unknown)"

// Method is the portable form of a Go function name.
type Method struct {
	// Package is the import path, e.g. "github.com/acme/app/store".
	Package string

	// Type is the receiver type without pointer decoration; empty for plain functions.
	Type string

	// Name is the function or method name. Closures report their enclosing function.
	Name string
}

// DeclaringType returns the package-qualified receiver type, or "" for plain functions.
func (m Method) DeclaringType() string {
	if m.Type == "" {
		return ""
	}
	return m.Package + "." + m.Type
}

// String returns the display form of the method.
func (m Method) String() string {
	switch {
	case m.Name == "":
		return ""
	case m.Type != "":
		return m.DeclaringType() + "." + m.Name
	case m.Package != "":
		return m.Package + "." + m.Name
	default:
		return m.Name
	}
}

// StackSource extracts trace information from an error.
// Implementations must be safe for concurrent use.
type StackSource interface {
	// CaptureTrace returns the error's frames, innermost first.
	// It returns []TraceLine{EmptyTraceLine} when no frames are available.
	CaptureTrace(err error) []TraceLine

	// CatchingContext returns the topmost function of the error's stack and
	// the file it is reported under.
	CatchingContext(err error) (Method, string)
}

// stackTracer is implemented by errors created or wrapped with github.com/pkg/errors.
type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// callersCarrier is implemented by errors that record raw program counters.
type callersCarrier interface {
	Callers() []uintptr
}

// RuntimeStackSource reads program counters recorded on errors and resolves
// them through the Go runtime. The innermost stack-carrying error in the
// Unwrap chain wins, since it is closest to where the failure started.
type RuntimeStackSource struct{}

// CaptureTrace implements StackSource.
func (RuntimeStackSource) CaptureTrace(err error) []TraceLine {
	frames := resolveFrames(programCounters(err))
	if len(frames) == 0 {
		return []TraceLine{EmptyTraceLine}
	}

	lines := make([]TraceLine, 0, len(frames))
	for _, fr := range frames {
		lines = append(lines, traceLineForFrame(fr))
	}
	return lines
}

// CatchingContext implements StackSource.
func (RuntimeStackSource) CatchingContext(err error) (Method, string) {
	frames := resolveFrames(programCounters(err))
	if len(frames) == 0 {
		entry := entryPoint()
		return entry, entry.DeclaringType()
	}

	top := frames[0]
	method := parseFunction(top.Function)
	if t := method.DeclaringType(); t != "" {
		return method, t
	}
	return method, top.File
}

// programCounters returns the program counters of the innermost error in the
// chain that carries any.
func programCounters(err error) []uintptr {
	var pcs []uintptr
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch st := e.(type) {
		case stackTracer:
			trace := st.StackTrace()
			if len(trace) == 0 {
				continue
			}
			pcs = make([]uintptr, len(trace))
			for i, f := range trace {
				pcs[i] = uintptr(f)
			}
		case callersCarrier:
			if c := st.Callers(); len(c) > 0 {
				pcs = c
			}
		}
	}
	return pcs
}

// resolveFrames expands program counters into frames, including inlined calls.
func resolveFrames(pcs []uintptr) []runtime.Frame {
	if len(pcs) == 0 {
		return nil
	}

	iter := runtime.CallersFrames(pcs)
	frames := make([]runtime.Frame, 0, len(pcs))
	for {
		fr, more := iter.Next()
		if fr.Function != "" || fr.File != "" {
			frames = append(frames, fr)
		}
		if !more {
			break
		}
	}
	return frames
}

// traceLineForFrame converts a runtime frame into a TraceLine.
func traceLineForFrame(fr runtime.Frame) TraceLine {
	method := parseFunction(fr.Function)

	number := fr.Line
	if number == 0 && fr.Entry != 0 && fr.PC >= fr.Entry {
		number = int(fr.PC - fr.Entry)
	}

	file := fr.File
	if file == "" {
		switch {
		case method.DeclaringType() != "":
			file = method.DeclaringType()
		case method.Package != "":
			file = method.Package
		default:
			file = unknownFile
		}
	}

	return TraceLine{File: file, Number: number, Method: method.Name}
}

// parseFunction splits a runtime function name such as
// "github.com/acme/app/store.(*DB).Get.func1" into its parts.
func parseFunction(name string) Method {
	if name == "" {
		return Method{}
	}
	name = strings.ReplaceAll(name, "[...]", "")

	pkgEnd := 0
	if i := strings.LastIndex(name, "/"); i >= 0 {
		pkgEnd = i + 1
	}
	dot := strings.Index(name[pkgEnd:], ".")
	if dot < 0 {
		return Method{Name: name}
	}

	// The linker escapes dots in the last import path element.
	m := Method{Package: strings.ReplaceAll(name[:pkgEnd+dot], "%2e", ".")}
	parts := strings.Split(name[pkgEnd+dot+1:], ".")

	switch {
	case strings.HasPrefix(parts[0], "(") && len(parts) > 1:
		recv := strings.TrimSuffix(strings.TrimPrefix(parts[0], "("), ")")
		m.Type = strings.TrimPrefix(recv, "*")
		m.Name = parts[1]
	case len(parts) > 1 && !isClosureSegment(parts[1]):
		m.Type = parts[0]
		m.Name = parts[1]
	default:
		m.Name = parts[0]
	}
	return m
}

// isClosureSegment reports whether a name segment is compiler-generated
// ("func1", "gowrap2", "deferwrap1", or a bare number for nested closures).
func isClosureSegment(s string) bool {
	for _, prefix := range []string{"func", "gowrap", "deferwrap"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok && isDigits(rest) {
			return true
		}
	}
	return isDigits(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// entryPoint describes the process entry function, used when an error
// carries no frames.
func entryPoint() Method {
	pkg := "main"
	if info, ok := debug.ReadBuildInfo(); ok && info.Path != "" {
		pkg = info.Path
	}
	return Method{Package: pkg, Name: "main"}
}

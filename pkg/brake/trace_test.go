package brake

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureTrace_FirstMethodIsCatchingFunction(t *testing.T) {
	err := simulateFailure()

	lines := RuntimeStackSource{}.CaptureTrace(err)
	require.NotEmpty(t, lines)
	assert.Equal(t, "simulateFailure", lines[0].Method)
	assert.True(t, strings.HasSuffix(lines[0].File, "helpers_test.go"), "file = %q", lines[0].File)
	assert.Greater(t, lines[0].Number, 0)
}

func TestCaptureTrace_NoFrames(t *testing.T) {
	err := errors.New("no stack")

	lines := RuntimeStackSource{}.CaptureTrace(err)
	assert.Equal(t, []TraceLine{EmptyTraceLine}, lines)

	method, file := RuntimeStackSource{}.CatchingContext(err)
	assert.Equal(t, "main", method.Name)
	assert.Equal(t, "", file)
}

func TestCaptureTrace_WrappedErrorKeepsInnerStack(t *testing.T) {
	err := fmt.Errorf("outer: %w", simulateFailure())

	lines := RuntimeStackSource{}.CaptureTrace(err)
	require.NotEmpty(t, lines)
	assert.Equal(t, "simulateFailure", lines[0].Method)
}

func TestCaptureTrace_InnermostStackWins(t *testing.T) {
	inner := simulateFailure()
	outer := WithStack(fmt.Errorf("outer: %w", inner))

	lines := RuntimeStackSource{}.CaptureTrace(outer)
	require.NotEmpty(t, lines)
	assert.Equal(t, "simulateFailure", lines[0].Method)
}

func TestCatchingContext_PlainFunctionReportsFile(t *testing.T) {
	method, file := RuntimeStackSource{}.CatchingContext(simulateFailure())

	assert.Equal(t, "simulateFailure", method.Name)
	assert.Equal(t, "", method.Type)
	assert.Equal(t, "github.com/strongdm/ai-airbrake-notifier/pkg/brake", method.Package)
	assert.True(t, strings.HasSuffix(file, "helpers_test.go"), "file = %q", file)
}

func TestCatchingContext_MethodReportsDeclaringType(t *testing.T) {
	method, file := RuntimeStackSource{}.CatchingContext(failer{}.fail())

	assert.Equal(t, "fail", method.Name)
	assert.Equal(t, "failer", method.Type)
	assert.Equal(t, "github.com/strongdm/ai-airbrake-notifier/pkg/brake.failer", file)
}

func TestCaptureTrace_WithStackStartsAtCaller(t *testing.T) {
	err := WithStack(errors.New("plain"))

	lines := RuntimeStackSource{}.CaptureTrace(err)
	require.NotEmpty(t, lines)
	assert.Equal(t, "TestCaptureTrace_WithStackStartsAtCaller", lines[0].Method)
}

func TestParseFunction(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Method
	}{
		{"pointer receiver", "github.com/acme/app/store.(*DB).Get", Method{"github.com/acme/app/store", "DB", "Get"}},
		{"value receiver", "github.com/acme/app/store.DB.Get", Method{"github.com/acme/app/store", "DB", "Get"}},
		{"plain function", "github.com/acme/app/store.Open", Method{"github.com/acme/app/store", "", "Open"}},
		{"closure", "github.com/acme/app/store.Open.func1", Method{"github.com/acme/app/store", "", "Open"}},
		{"nested closure in method", "github.com/acme/app/store.(*DB).Get.func1.2", Method{"github.com/acme/app/store", "DB", "Get"}},
		{"generic receiver", "github.com/acme/app/store.Map[...].Get", Method{"github.com/acme/app/store", "Map", "Get"}},
		{"dotted package", "gopkg.in/yaml%2ev3.Unmarshal", Method{"gopkg.in/yaml.v3", "", "Unmarshal"}},
		{"main", "main.main", Method{"main", "", "main"}},
		{"no package", "orphan", Method{Name: "orphan"}},
		{"empty", "", Method{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseFunction(tt.in))
		})
	}
}

func TestMethod_String(t *testing.T) {
	assert.Equal(t, "pkg/a.T.M", Method{Package: "pkg/a", Type: "T", Name: "M"}.String())
	assert.Equal(t, "pkg/a.F", Method{Package: "pkg/a", Name: "F"}.String())
	assert.Equal(t, "F", Method{Name: "F"}.String())
	assert.Equal(t, "", Method{}.String())
}

func TestTraceLineForFrame(t *testing.T) {
	t.Run("known line", func(t *testing.T) {
		line := traceLineForFrame(runtime.Frame{Function: "pkg/a.(*T).M", File: "/src/a/t.go", Line: 12})
		assert.Equal(t, TraceLine{Method: "M", File: "/src/a/t.go", Number: 12}, line)
	})

	t.Run("missing line falls back to offset", func(t *testing.T) {
		line := traceLineForFrame(runtime.Frame{Function: "pkg/a.F", File: "/src/a/f.go", PC: 0x1010, Entry: 0x1000})
		assert.Equal(t, 16, line.Number)
	})

	t.Run("missing file falls back to declaring type", func(t *testing.T) {
		line := traceLineForFrame(runtime.Frame{Function: "pkg/a.(*T).M", Line: 3})
		assert.Equal(t, "pkg/a.T", line.File)
	})

	t.Run("missing file falls back to package", func(t *testing.T) {
		line := traceLineForFrame(runtime.Frame{Function: "pkg/a.F", Line: 3})
		assert.Equal(t, "pkg/a", line.File)
	})

	t.Run("nothing known", func(t *testing.T) {
		line := traceLineForFrame(runtime.Frame{})
		assert.Equal(t, unknownFile, line.File)
		assert.Equal(t, 0, line.Number)
	})
}

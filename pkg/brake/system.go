// system.go captures host state as cgi-data vars.

package brake

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"time"
)

// processStart approximates process start for uptime reporting.
var processStart = time.Now()

// EnvironmentVars captures host and runtime state at the current moment.
func EnvironmentVars() []Var {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hostname, _ := os.Hostname() // empty hostname is dropped by BuildVars

	uptimeMs := time.Since(processStart).Milliseconds()
	if uptimeMs < 0 {
		uptimeMs = 0
	}

	return BuildVars([]Var{
		{Key: "Environment.MachineName", Value: hostname},
		{Key: "Environment.OSVersion", Value: runtime.GOOS + "/" + runtime.GOARCH},
		{Key: "Environment.Version", Value: runtime.Version()},
		{Key: "Environment.ProcessorCount", Value: strconv.Itoa(runtime.NumCPU())},
		{Key: "Runtime.NumGoroutine", Value: strconv.Itoa(runtime.NumGoroutine())},
		{Key: "Runtime.MemoryBytes", Value: strconv.FormatUint(memStats.Alloc, 10)},
		{Key: "Runtime.UptimeMs", Value: strconv.FormatInt(uptimeMs, 10)},
	})
}

// EnvironmentCgiData is a Hooks.CgiData function reporting EnvironmentVars.
func EnvironmentCgiData(context.Context, *ExceptionInfo) []Var {
	return EnvironmentVars()
}

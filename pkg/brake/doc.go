// Package brake reports Go errors and recovered panics to an Airbrake-compatible
// error tracking endpoint.
//
// A failure flows through a short, synchronous construction pipeline and a
// single asynchronous delivery:
//
//	error -> StackSource -> ExceptionInfo -> Builder -> *Notice
//	      -> MarshalNotice -> Client (HTTP POST) -> DeliveryResult -> RequestEnd handlers
//
// # Core Components
//
//   - StackSource: extracts portable TraceLines and the catching function from an error
//   - ExceptionInfo: read-only summary of one failure (class, message, trace)
//   - Builder: assembles a Notice; Hooks are the seam for request context (URL, params, session, cgi-data)
//   - MarshalNotice / ParseResponse: canonical XML for the Airbrake 2.2 notice schema
//   - Client: non-blocking delivery with completion handlers and optional mirror Sinks
//
// # Quick Start
//
//	client := brake.NewClient(brake.Config{
//	    APIKey:          os.Getenv("AIRBRAKE_API_KEY"),
//	    EnvironmentName: "production",
//	}, brake.WithRequestEndHandler(func(e brake.RequestEnd) {
//	    if e.Result.Notice != nil {
//	        log.Printf("reported as %s", e.Result.Notice.URL)
//	    }
//	}))
//	defer client.Flush(ctx)
//
//	if err := doWork(); err != nil {
//	    _ = client.SendError(ctx, brake.WithStack(err))
//	}
//
// For goroutines and handlers that may panic:
//
//	defer brake.Recover(ctx, client)
//
// # Design Principles
//
//   - Reporting never crashes the reporter: every send-path failure is logged and swallowed
//   - One failure, one delivery attempt: no queueing, batching, or retries
//   - Nil errors are programmer mistakes and fail synchronously with ErrInvalidArgument
package brake

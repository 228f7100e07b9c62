// recover.go provides the Recover helper for standalone panic recovery.
// Use this in HTTP handlers, goroutines, or other code that should report
// panics without crashing.

package brake

import "context"

// Recover captures a panic, sends it as a notice, and returns the recovered
// value. Recover does NOT re-panic after sending.
//
// Use in defer:
//
//	func handler(ctx context.Context) {
//	    defer brake.Recover(ctx, client)
//	    // code that might panic
//	}
//
// Recover must itself be the deferred call; recover() returns nil when
// Recover is called from inside another deferred function.
func Recover(ctx context.Context, client *Client) any {
	r := recover()
	if r == nil {
		return nil
	}

	// Sending must not affect the caller.
	_ = client.SendError(ctx, NewPanicError(r))

	return r
}

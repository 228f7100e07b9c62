// errors.go defines the failure taxonomy of the notice pipeline.

package brake

import "errors"

var (
	// ErrInvalidArgument is returned synchronously when a nil error or notice
	// is handed to the builder or client.
	ErrInvalidArgument = errors.New("brake: invalid argument")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("brake: invalid configuration")

	// ErrRequestConstruction marks a send abandoned because no HTTP request
	// could be built for the configured server URI.
	ErrRequestConstruction = errors.New("brake: request construction failed")

	// ErrTransport marks a send that produced no usable HTTP response.
	ErrTransport = errors.New("brake: transport failure")

	// ErrResponseRead marks a response whose body could not be read or decoded.
	ErrResponseRead = errors.New("brake: response read failure")
)

package supervisor

import "fmt"

// modelNotConfiguredError signals a request without a primary model path.
type modelNotConfiguredError struct{}

func (modelNotConfiguredError) Error() string { return "no model path configured" }

// ErrModelNotConfigured returns an error for a request without a model path.
func ErrModelNotConfigured() error { return modelNotConfiguredError{} }

// IsModelNotConfigured reports whether err indicates a missing model path.
func IsModelNotConfigured(err error) bool {
	_, ok := err.(modelNotConfiguredError)
	return ok
}

// auxiliaryModelMissingError signals an image request without a projector model.
type auxiliaryModelMissingError struct{}

func (auxiliaryModelMissingError) Error() string {
	return "image input requires a multimodal projector path"
}

// ErrAuxiliaryModelMissing returns an error for an image request without a projector.
func ErrAuxiliaryModelMissing() error { return auxiliaryModelMissingError{} }

// IsAuxiliaryModelMissing reports whether err indicates a missing projector.
func IsAuxiliaryModelMissing(err error) bool {
	_, ok := err.(auxiliaryModelMissingError)
	return ok
}

// runtimeExitedError signals the server process exiting before health was confirmed.
type runtimeExitedError struct {
	cause error
	tail  string
}

func (e runtimeExitedError) Error() string {
	msg := "server exited during startup"
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	if e.tail != "" {
		msg += "; stderr tail: " + e.tail
	}
	return msg
}

// ErrRuntimeExited returns an error for a process that exited before health.
func ErrRuntimeExited(cause error, tail string) error {
	return runtimeExitedError{cause: cause, tail: tail}
}

// IsRuntimeExited reports whether err indicates a startup-time process exit.
func IsRuntimeExited(err error) bool {
	_, ok := err.(runtimeExitedError)
	return ok
}

// startupTimeoutError signals the health gate timing out.
type startupTimeoutError struct{ port int }

func (e startupTimeoutError) Error() string {
	return fmt.Sprintf("server on port %d not healthy within startup timeout", e.port)
}

// IsStartupTimeout reports whether err indicates a health-gate timeout.
func IsStartupTimeout(err error) bool {
	_, ok := err.(startupTimeoutError)
	return ok
}

// serverNotRunningError signals the post-ensure race: the process died between
// ensure returning and the request being issued. Callers may retry.
type serverNotRunningError struct{}

func (serverNotRunningError) Error() string { return "server is not running" }

// ErrServerNotRunning returns the post-ensure liveness error.
func ErrServerNotRunning() error { return serverNotRunningError{} }

// IsServerNotRunning reports whether err indicates a dead post-ensure process.
func IsServerNotRunning(err error) bool {
	_, ok := err.(serverNotRunningError)
	return ok
}

// emptyResponseError signals a completion response with no content.
type emptyResponseError struct{}

func (emptyResponseError) Error() string { return "empty inference response" }

// IsEmptyResponse reports whether err indicates a contentless completion.
func IsEmptyResponse(err error) bool {
	_, ok := err.(emptyResponseError)
	return ok
}

// responseTooLargeError signals a response body exceeding the size ceiling.
type responseTooLargeError struct{ limit int64 }

func (e responseTooLargeError) Error() string {
	return fmt.Sprintf("inference response exceeds %d byte ceiling", e.limit)
}

// IsResponseTooLarge reports whether err indicates an oversized response body.
func IsResponseTooLarge(err error) bool {
	_, ok := err.(responseTooLargeError)
	return ok
}

package provision

// tooManyRedirectsError signals a download exceeding the redirect bound.
type tooManyRedirectsError struct{ url string }

func (e tooManyRedirectsError) Error() string {
	return "too many redirects fetching " + e.url
}

// IsTooManyRedirects reports whether err indicates an unbounded redirect chain.
func IsTooManyRedirects(err error) bool {
	_, ok := err.(tooManyRedirectsError)
	return ok
}

// downloadFailedError signals a failed archive fetch (network or HTTP status).
type downloadFailedError struct {
	url    string
	detail string
}

func (e downloadFailedError) Error() string {
	return "download failed: " + e.url + ": " + e.detail
}

// IsDownloadFailed reports whether err indicates a failed archive fetch.
func IsDownloadFailed(err error) bool {
	_, ok := err.(downloadFailedError)
	return ok
}

// binaryNotFoundError signals a successful extraction that yielded no server executable.
type binaryNotFoundError struct{ name string }

func (e binaryNotFoundError) Error() string {
	return "binary not found after extraction: " + e.name
}

// IsBinaryNotFound reports whether err indicates a missing executable post-extract.
func IsBinaryNotFound(err error) bool {
	_, ok := err.(binaryNotFoundError)
	return ok
}

// runtimeNotFoundError is terminal: provisioning failed and no fallback exists.
type runtimeNotFoundError struct{ detail string }

func (e runtimeNotFoundError) Error() string {
	return "server runtime not found: " + e.detail
}

// IsRuntimeNotFound reports whether err indicates no usable server binary.
func IsRuntimeNotFound(err error) bool {
	_, ok := err.(runtimeNotFoundError)
	return ok
}

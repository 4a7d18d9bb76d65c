package httpapi

import (
	"encoding/json"
	"net/http"

	"visiond/internal/assets"
	"visiond/internal/provision"
	"visiond/internal/supervisor"
	"visiond/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps well-known service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case supervisor.IsModelNotConfigured(err), supervisor.IsAuxiliaryModelMissing(err):
		return http.StatusBadRequest
	case supervisor.IsServerNotRunning(err), provision.IsRuntimeNotFound(err):
		return http.StatusServiceUnavailable
	case assets.IsUnsupportedPlatform(err):
		return http.StatusNotImplemented
	case supervisor.IsRuntimeExited(err), supervisor.IsStartupTimeout(err),
		supervisor.IsEmptyResponse(err), supervisor.IsResponseTooLarge(err):
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

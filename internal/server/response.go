package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/spx/internal/shared"
)

type errorResponse struct {
	Error    string         `json:"error"`
	Upstream *upstreamError `json:"upstream,omitempty"`
}

type upstreamError struct {
	Status int    `json:"status"`
	URL    string `json:"url,omitempty"`
	Body   string `json:"body,omitempty"`
}

// StatusFor maps an error kind to the HTTP status web mode answers with.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrConfigMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrPlaylistNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout
	case shared.IsSecurityError(err),
		errors.Is(err, shared.ErrNoCode),
		errors.Is(err, shared.ErrMissingCredentials),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrTokenExchange),
		errors.Is(err, shared.ErrProfileFetch),
		errors.Is(err, shared.ErrPageFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newErrorResponse(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}
	if httpErr, ok := shared.AsHTTPError(err); ok {
		resp.Upstream = &upstreamError{Status: httpErr.Status, URL: httpErr.URL, Body: httpErr.Body}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, newErrorResponse(err))
}

func writeText(w http.ResponseWriter, status int, format string, args ...any) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, format, args...)
}

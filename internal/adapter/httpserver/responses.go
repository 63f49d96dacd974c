// Package httpserver contains HTTP handlers and middleware.
//
// Handlers translate requests into usecase calls and map domain errors onto
// the {"error":{"code","message","details"}} envelope.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/vericv/internal/domain"
)

// savedWithErrors marks a 200 response whose content could not be persisted.
const savedWithErrors = "saved with errors"

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	writeJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: msg, Details: details}})
}

// errorStatus maps err onto an HTTP status and envelope code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		return http.StatusServiceUnavailable, "UPSTREAM_TIMEOUT"
	case errors.Is(err, domain.ErrUpstreamRateLimit):
		return http.StatusServiceUnavailable, "UPSTREAM_RATE_LIMIT"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// writeError renders err. Unclassified errors keep their message unless
// hideInternal is set, in which case a generic text is sent.
func writeError(w http.ResponseWriter, r *http.Request, err error, details interface{}, hideInternal bool) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		LoggerFrom(r).Error("request failed", "error", err)
		if hideInternal {
			msg = http.StatusText(http.StatusInternalServerError)
		}
	}
	writeStatus(w, status, code, msg, details)
}

// fail writes err with the server's production policy.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, details interface{}) {
	writeError(w, r, err, details, s.Cfg.IsProd())
}

// NotFound renders unknown routes in the error envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path, nil)
}

// MethodNotAllowed renders a known route hit with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed on "+r.URL.Path, nil)
}

// TooManyRequests renders a per-IP or per-user request-rate rejection.
// httprate has already set Retry-After.
func TooManyRequests(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
}

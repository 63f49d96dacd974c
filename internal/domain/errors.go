package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels. Adapters wrap them with fmt.Errorf("op=...: %w", ...) and the
// HTTP layer maps them onto status codes.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	// ErrConflict reports a state transition that is no longer allowed,
	// such as answering a completed interview.
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal")

	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamRateLimit   = errors.New("upstream rate limit")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// UpstreamError is a non-2xx answer from the model provider, Supabase or
// Tika. Body keeps the provider's error text so feedback can quote it.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.Status, e.Body)
}

// Unwrap classifies the status: 429 is a rate limit, 408 and 504 are
// timeouts, other 5xx are outages. 4xx answers stay unclassified.
func (e *UpstreamError) Unwrap() error {
	switch {
	case e.Status == http.StatusTooManyRequests:
		return ErrUpstreamRateLimit
	case e.Status == http.StatusGatewayTimeout, e.Status == http.StatusRequestTimeout:
		return ErrUpstreamTimeout
	case e.Status >= 500:
		return ErrUpstreamUnavailable
	default:
		return nil
	}
}

// IsUpstream reports whether err came from an external provider.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) ||
		errors.Is(err, ErrUpstreamTimeout) ||
		errors.Is(err, ErrUpstreamRateLimit) ||
		errors.Is(err, ErrUpstreamUnavailable)
}

package marketplace

import (
	"fmt"
	"net/http"

	apperrors "github.com/allisson/marketsync/internal/errors"
)

var (
	// ErrRemoteUnreachable covers transport failures, timeouts, throttling and 5xx answers.
	ErrRemoteUnreachable = apperrors.Wrap(apperrors.ErrUnavailable, "marketplace unreachable")

	// ErrRemoteRejected covers 4xx answers other than throttling.
	ErrRemoteRejected = apperrors.Wrap(apperrors.ErrInvalidInput, "marketplace rejected request")

	// ErrRemoteNotFound is matched in addition to ErrRemoteRejected for 404 answers.
	ErrRemoteNotFound = apperrors.Wrap(apperrors.ErrNotFound, "marketplace resource not found")
)

// APIError is a non-2xx answer from the marketplace.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Unwrap exposes the sentinel errors matching the status code.
func (e *APIError) Unwrap() []error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return []error{ErrRemoteRejected, ErrRemoteNotFound}
	case e.retryable():
		return []error{ErrRemoteUnreachable}
	default:
		return []error{ErrRemoteRejected}
	}
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode >= 500
}

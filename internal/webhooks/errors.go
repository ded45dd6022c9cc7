package webhooks

import (
	"errors"
	"net/http"
)

// Boundary errors for webhook ingestion. All are terminal per-request
// outcomes; the external service may redeliver, but nothing here is retried
// by this side.
var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
	ErrMissingField     = errors.New("missing required field")
	ErrTaskMismatch     = errors.New("task_id does not match document")
	ErrUnknownStatus    = errors.New("unknown webhook status")
)

// MapHTTPStatus maps webhook boundary errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrMissingSignature) || errors.Is(err, ErrInvalidSignature) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrTaskMismatch) ||
		errors.Is(err, ErrUnknownStatus) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

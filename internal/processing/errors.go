package processing

import (
	"errors"
	"net/http"

	"github.com/private-doc-vault/docvault/internal/documents"
)

// Domain errors for processing operations.
var (
	// ErrServiceUnavailable is surfaced when the circuit to the OCR service is
	// open. Distinct from transport failures so operators can tell "the
	// dependency is flapping" apart from "one request failed".
	ErrServiceUnavailable = errors.New("OCR service temporarily unavailable")
	// ErrInvalidProgress rejects progress values outside [0,100].
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
	// ErrNotRetryable rejects retry requests for documents that have not failed.
	ErrNotRetryable = errors.New("document is not in a failed state")
)

// MapHTTPStatus maps processing domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrServiceUnavailable) {
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, ErrInvalidProgress) || errors.Is(err, ErrNotRetryable) {
		return http.StatusBadRequest
	}
	if errors.Is(err, documents.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

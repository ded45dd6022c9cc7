package ocr

import (
	"fmt"

	"github.com/private-doc-vault/docvault/pkg/errclass"
)

// Kind tags the structural failure mode of an OCR service call, so retry
// decisions do not depend on error-message wording.
type Kind string

// Failure modes for OCR service calls.
const (
	KindTimeout           Kind = "timeout"
	KindConnectionRefused Kind = "connection_refused"
	KindRateLimited       Kind = "rate_limited"
	KindServerError       Kind = "server_error"
	KindClientError       Kind = "client_error"
	KindUnknown           Kind = "unknown"
)

// Error is a tagged OCR client failure.
type Error struct {
	Kind   Kind
	Status int
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("ocr %s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("ocr %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCategory implements errclass.Categorized. Unknown defers to message
// matching by returning an empty category.
func (e *Error) ErrorCategory() errclass.Category {
	switch e.Kind {
	case KindTimeout, KindConnectionRefused, KindRateLimited, KindServerError:
		return errclass.Transient
	case KindClientError:
		return errclass.Permanent
	default:
		return ""
	}
}

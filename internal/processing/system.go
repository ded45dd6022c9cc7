package processing

import (
	"context"

	"github.com/google/uuid"

	"github.com/private-doc-vault/docvault/internal/documents"
	"github.com/private-doc-vault/docvault/pkg/breaker"
)

// System defines the public contract for document processing orchestration.
// Dispatch and Retry drive the outbound side of the pipeline; the Apply
// methods are invoked by the webhook boundary when asynchronous callbacks
// arrive. All mutations run under a per-document lock and an optimistic
// version check.
type System interface {
	Handler() *Handler

	// Dispatch submits the document to the OCR service through the circuit
	// breaker and records the returned task id. No automatic retry is
	// scheduled on failure.
	Dispatch(ctx context.Context, doc *documents.Document) (*documents.Document, error)

	// ApplyResult applies a completed OCR result: text, normalized
	// confidence, detected language, flat metadata merge, extracted date and
	// amount, category assignment, searchable content, and exactly one index
	// dispatch.
	ApplyResult(ctx context.Context, doc *documents.Document, result Result) (*documents.Document, error)

	// ApplyFailure marks the document failed with the given message.
	ApplyFailure(ctx context.Context, doc *documents.Document, message string) (*documents.Document, error)

	// ApplyProgress updates progress and current operation, forcing the
	// status to processing. Progress outside [0,100] is rejected without
	// mutation.
	ApplyProgress(ctx context.Context, doc *documents.Document, progress int, currentOperation string) (*documents.Document, error)

	// Retry resets a failed document to queued, clears the failure and task
	// correlation, and re-dispatches. Explicit operator action only.
	Retry(ctx context.Context, id uuid.UUID) (*documents.Document, error)

	// BreakerSnapshot exposes circuit state for operator inspection.
	BreakerSnapshot(ctx context.Context) (breaker.Snapshot, error)

	// ResetBreaker forces the circuit closed.
	ResetBreaker(ctx context.Context) error
}

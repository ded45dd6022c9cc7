package documents

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/private-doc-vault/docvault/pkg/pagination"
)

// System defines the public contract for document domain operations.
// SaveProcessing is the single mutation path for the OCR pipeline: it writes
// the processing fields of a loaded document under an optimistic version
// check and returns the stored row with its bumped version.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Download(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SaveProcessing(ctx context.Context, doc *Document) (*Document, error)
}

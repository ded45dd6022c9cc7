package indexing

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/private-doc-vault/docvault/pkg/repository"
)

// EventTypeIndex requests that a document's search representation be upserted.
const EventTypeIndex = "document.index"

// System enqueues index dispatches for the relay to publish.
type System interface {
	// Dispatch records a pending index event for the given document
	// representation. The write is transactional with nothing else; callers
	// needing atomicity with their own writes use DispatchTx.
	Dispatch(ctx context.Context, req Request) error
	// DispatchTx records the event inside the caller's transaction so the
	// dispatch commits or rolls back with the document mutation.
	DispatchTx(ctx context.Context, tx *sql.Tx, req Request) error
}

type outbox struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an outbox-backed indexing publisher.
func New(db *sql.DB, logger *slog.Logger) System {
	return &outbox{
		db:     db,
		logger: logger.With("system", "indexing"),
	}
}

func (o *outbox) Dispatch(ctx context.Context, req Request) error {
	return o.insert(ctx, o.db, req)
}

func (o *outbox) DispatchTx(ctx context.Context, tx *sql.Tx, req Request) error {
	return o.insert(ctx, tx, req)
}

func (o *outbox) insert(ctx context.Context, e repository.Executor, req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal index payload: %w", err)
	}

	q := `
		INSERT INTO index_outbox(id, event_type, payload, status)
		VALUES ($1, $2, $3, $4)`

	if _, err := e.ExecContext(ctx, q, uuid.New(), EventTypeIndex, payload, StatusPending); err != nil {
		return fmt.Errorf("enqueue index event: %w", err)
	}

	o.logger.Info("index dispatch queued", "document_id", req.DocumentID)
	return nil
}

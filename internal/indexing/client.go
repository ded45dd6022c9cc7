package indexing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Client is the opaque search-engine collaborator. Implementations upsert or
// remove a document's search representation; the relay only cares about
// success or failure.
type Client interface {
	Index(ctx context.Context, req Request) error
	Remove(ctx context.Context, documentID uuid.UUID) error
}

type logClient struct {
	logger *slog.Logger
}

// NewLogClient returns a Client that records dispatches without a search
// engine attached. Used in deployments that run the pipeline before search
// is provisioned, and in tests.
func NewLogClient(logger *slog.Logger) Client {
	return &logClient{logger: logger.With("system", "index-client")}
}

func (c *logClient) Index(_ context.Context, req Request) error {
	c.logger.Info("index upsert", "document_id", req.DocumentID, "category", req.Category)
	return nil
}

func (c *logClient) Remove(_ context.Context, documentID uuid.UUID) error {
	c.logger.Info("index remove", "document_id", documentID)
	return nil
}

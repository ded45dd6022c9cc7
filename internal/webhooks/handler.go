package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/private-doc-vault/docvault/internal/documents"
	"github.com/private-doc-vault/docvault/internal/processing"
	"github.com/private-doc-vault/docvault/pkg/handlers"
	"github.com/private-doc-vault/docvault/pkg/idempotency"
	"github.com/private-doc-vault/docvault/pkg/routes"
)

// Handler authenticates, validates, and routes inbound OCR callbacks to the
// processing orchestrator.
type Handler struct {
	processing  processing.System
	docs        documents.System
	guard       *idempotency.Guard
	secret      string
	maxBodySize int64
	logger      *slog.Logger
}

// NewHandler creates a webhook Handler.
func NewHandler(
	proc processing.System,
	docs documents.System,
	guard *idempotency.Guard,
	cfg *Config,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		processing:  proc,
		docs:        docs,
		guard:       guard,
		secret:      cfg.Secret,
		maxBodySize: cfg.MaxBodySizeBytes(),
		logger:      logger.With("handler", "webhooks"),
	}
}

// Routes returns the route group definition for webhook endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/webhooks",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/ocr", Handler: h.Ingest},
		},
	}
}

// Ingest processes one OCR callback delivery. Gates run in order and each
// failure short-circuits with no document mutation: signature, payload shape,
// required fields, document lookup, task-id correlation, status routing.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodySize))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMalformedPayload)
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, ErrMissingSignature)
		return
	}
	if !VerifySignature(h.secret, body, signature) {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, ErrInvalidSignature)
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrMalformedPayload)
		return
	}

	if err := validateRequired(event); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	docID, err := uuid.Parse(event.DocumentID)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusNotFound, documents.ErrNotFound)
		return
	}

	doc, err := h.docs.Find(r.Context(), docID)
	if err != nil {
		handlers.RespondError(w, h.logger, documents.MapHTTPStatus(err), err)
		return
	}

	if doc.OCRTaskID != nil && *doc.OCRTaskID != event.TaskID {
		h.logger.Warn(
			"task correlation mismatch",
			"document_id", doc.ID,
			"expected", *doc.OCRTaskID,
			"received", event.TaskID,
		)
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrTaskMismatch)
		return
	}

	executed, err := h.route(r.Context(), doc, event)
	if err != nil {
		status := MapHTTPStatus(err)
		if status == http.StatusInternalServerError {
			status = processing.MapHTTPStatus(err)
		}
		handlers.RespondError(w, h.logger, status, err)
		return
	}

	h.logger.Info(
		"webhook applied",
		"document_id", doc.ID,
		"task_id", event.TaskID,
		"status", event.Status,
		"duplicate", !executed,
	)

	handlers.RespondJSON(w, http.StatusOK, Response{
		DocumentID: doc.ID.String(),
		Status:     event.Status,
		Duplicate:  !executed,
	})
}

// route dispatches the event to the orchestrator step for its status, wrapped
// in the idempotency guard keyed by (task_id, status) so redelivered
// callbacks apply their side effects at most once.
func (h *Handler) route(ctx context.Context, doc *documents.Document, event Event) (bool, error) {
	var apply func(ctx context.Context) error

	switch event.Status {
	case StatusCompleted:
		apply = func(ctx context.Context) error {
			var result processing.Result
			if event.Result != nil {
				result = *event.Result
			}
			_, err := h.processing.ApplyResult(ctx, doc, result)
			return err
		}
	case StatusFailed:
		apply = func(ctx context.Context) error {
			message := "processing failed"
			if event.Error != nil && *event.Error != "" {
				message = *event.Error
			}
			_, err := h.processing.ApplyFailure(ctx, doc, message)
			return err
		}
	case StatusProcessing:
		apply = func(ctx context.Context) error {
			progress := doc.Progress
			if event.Progress != nil {
				progress = *event.Progress
			}

			var operation string
			if event.CurrentOperation != nil {
				operation = *event.CurrentOperation
			}

			_, err := h.processing.ApplyProgress(ctx, doc, progress, operation)
			return err
		}
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownStatus, event.Status)
	}

	tokenContext := map[string]string{
		"task_id": event.TaskID,
		"status":  event.Status,
	}

	// distinct progress updates for one task are not redeliveries; only an
	// identical delivery counts as a duplicate
	if event.Status == StatusProcessing {
		if event.Progress != nil {
			tokenContext["progress"] = fmt.Sprintf("%d", *event.Progress)
		}
		if event.CurrentOperation != nil {
			tokenContext["current_operation"] = *event.CurrentOperation
		}
	}

	token := h.guard.GenerateTokenFromContext(tokenContext)
	return h.guard.ProcessOnce(ctx, token, apply)
}

func validateRequired(event Event) error {
	if event.TaskID == "" {
		return fmt.Errorf("%w: task_id", ErrMissingField)
	}
	if event.DocumentID == "" {
		return fmt.Errorf("%w: document_id", ErrMissingField)
	}
	if event.Status == "" {
		return fmt.Errorf("%w: status", ErrMissingField)
	}
	return nil
}

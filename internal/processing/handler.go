package processing

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/private-doc-vault/docvault/internal/documents"
	"github.com/private-doc-vault/docvault/pkg/handlers"
	"github.com/private-doc-vault/docvault/pkg/routes"
)

// Handler provides HTTP endpoints for operator-driven processing actions.
type Handler struct {
	sys    System
	docs   documents.System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given processing system and document system.
func NewHandler(sys System, docs documents.System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		docs:   docs,
		logger: logger.With("handler", "processing"),
	}
}

// Routes returns the route group definition for processing endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/processing",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/documents/{id}/dispatch", Handler: h.Dispatch},
			{Method: "POST", Pattern: "/documents/{id}/retry", Handler: h.Retry},
			{Method: "GET", Pattern: "/breaker", Handler: h.Breaker},
			{Method: "POST", Pattern: "/breaker/reset", Handler: h.ResetBreaker},
		},
	}
}

// Dispatch submits a registered document to the OCR pipeline.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	}

	doc, err := h.docs.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, documents.MapHTTPStatus(err), err)
		return
	}

	dispatched, err := h.sys.Dispatch(r.Context(), doc)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, dispatched)
}

// Retry resets a failed document and re-dispatches it. Explicit operator
// action; failures are never retried automatically.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, documents.ErrInvalidFile)
		return
	}

	doc, err := h.sys.Retry(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, doc)
}

// Breaker reports the OCR circuit breaker state.
func (h *Handler) Breaker(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sys.BreakerSnapshot(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, snap)
}

// ResetBreaker forces the OCR circuit closed.
func (h *Handler) ResetBreaker(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.ResetBreaker(r.Context()); err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package categories

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/private-doc-vault/docvault/pkg/handlers"
	"github.com/private-doc-vault/docvault/pkg/routes"
)

// Handler provides HTTP endpoints for category operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "categories"),
	}
}

// Routes returns the route group definition for category endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/categories",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
	}
}

// List returns all categories sorted by name.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.sys.List(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, cats)
}

// Find returns a single category by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidName)
		return
	}

	cat, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, cat)
}

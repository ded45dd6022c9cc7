package api

import (
	"net/http"

	"github.com/private-doc-vault/docvault/internal/config"
	"github.com/private-doc-vault/docvault/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Categories.Handler().Routes(),
		domain.Processing.Handler().Routes(),
		domain.Webhooks.Routes(),
	)

	mux.HandleFunc("GET /events", domain.Events.Serve)
}

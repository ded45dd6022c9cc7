// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/private-doc-vault/docvault/internal/config"
	"github.com/private-doc-vault/docvault/internal/infrastructure"
	"github.com/private-doc-vault/docvault/pkg/middleware"
	"github.com/private-doc-vault/docvault/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	if err := domain.Start(runtime); err != nil {
		return nil, fmt.Errorf("start domain systems: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}

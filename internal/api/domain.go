package api

import (
	"github.com/private-doc-vault/docvault/internal/categories"
	"github.com/private-doc-vault/docvault/internal/config"
	"github.com/private-doc-vault/docvault/internal/documents"
	"github.com/private-doc-vault/docvault/internal/events"
	"github.com/private-doc-vault/docvault/internal/indexing"
	"github.com/private-doc-vault/docvault/internal/ocr"
	"github.com/private-doc-vault/docvault/internal/processing"
	"github.com/private-doc-vault/docvault/internal/webhooks"
	"github.com/private-doc-vault/docvault/pkg/breaker"
	"github.com/private-doc-vault/docvault/pkg/idempotency"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Categories categories.System
	Documents  documents.System
	Events     *events.Hub
	Indexing   indexing.System
	Processing processing.System
	Relay      *indexing.Relay
	Webhooks   *webhooks.Handler
}

// NewDomain wires all domain systems from the API runtime. Breaker and
// idempotency state live in Postgres so every worker process sharing the
// database observes the same circuit position and delivery history.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	docsSystem := documents.New(
		db,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	catsSystem := categories.New(db, runtime.Logger)

	indexSystem := indexing.New(db, runtime.Logger)

	hub := events.NewHub(runtime.Logger)

	ocrClient := ocr.New(&cfg.OCR, runtime.Logger)

	brk := breaker.New(
		"ocr",
		breaker.Config{
			FailureThreshold: cfg.OCR.FailureThreshold,
			ResetTimeout:     cfg.OCR.ResetTimeoutDuration(),
		},
		breaker.NewPostgresStore(db),
		runtime.Logger,
	)

	procSystem := processing.New(
		docsSystem,
		runtime.Storage,
		ocrClient,
		brk,
		catsSystem,
		indexSystem,
		hub,
		cfg.OCR.CallbackURL,
		runtime.Logger,
	)

	guard := idempotency.New(
		idempotency.NewPostgresStore(db),
		cfg.Webhook.IdempotencyTTLDuration(),
		runtime.Logger,
	)

	webhookHandler := webhooks.NewHandler(
		procSystem,
		docsSystem,
		guard,
		&cfg.Webhook,
		runtime.Logger,
	)

	relay := indexing.NewRelay(
		db,
		indexing.NewLogClient(runtime.Logger),
		0,
		runtime.Logger,
	)

	return &Domain{
		Categories: catsSystem,
		Documents:  docsSystem,
		Events:     hub,
		Indexing:   indexSystem,
		Processing: procSystem,
		Relay:      relay,
		Webhooks:   webhookHandler,
	}
}

// Start registers lifecycle-managed domain systems with the coordinator.
func (d *Domain) Start(runtime *Runtime) error {
	if err := d.Events.Start(runtime.Lifecycle); err != nil {
		return err
	}
	return d.Relay.Start(runtime.Lifecycle)
}

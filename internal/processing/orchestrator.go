// Package processing implements the document processing orchestrator. It
// drives documents through the external OCR service behind a circuit breaker
// and applies asynchronous results, failures, and progress updates to the
// document state machine: queued → processing → {completed, failed}, with
// failed → queued only through an explicit retry.
package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/private-doc-vault/docvault/internal/categories"
	"github.com/private-doc-vault/docvault/internal/documents"
	"github.com/private-doc-vault/docvault/internal/events"
	"github.com/private-doc-vault/docvault/internal/indexing"
	"github.com/private-doc-vault/docvault/internal/ocr"
	"github.com/private-doc-vault/docvault/pkg/breaker"
	"github.com/private-doc-vault/docvault/pkg/errclass"
	"github.com/private-doc-vault/docvault/pkg/formatting"
	"github.com/private-doc-vault/docvault/pkg/storage"
)

// saveAttempts bounds optimistic-concurrency retries per mutation.
const saveAttempts = 3

type orchestrator struct {
	docs        documents.System
	storage     storage.System
	ocr         ocr.System
	breaker     *breaker.Breaker
	categories  categories.System
	indexing    indexing.System
	hub         *events.Hub
	callbackURL string
	logger      *slog.Logger
	locks       *keyedLocks
}

// New creates the processing orchestrator.
func New(
	docs documents.System,
	store storage.System,
	ocrClient ocr.System,
	brk *breaker.Breaker,
	cats categories.System,
	idx indexing.System,
	hub *events.Hub,
	callbackURL string,
	logger *slog.Logger,
) System {
	return &orchestrator{
		docs:        docs,
		storage:     store,
		ocr:         ocrClient,
		breaker:     brk,
		categories:  cats,
		indexing:    idx,
		hub:         hub,
		callbackURL: callbackURL,
		logger:      logger.With("system", "processing"),
		locks:       newKeyedLocks(),
	}
}

func (o *orchestrator) Handler() *Handler {
	return NewHandler(o, o.docs, o.logger)
}

func (o *orchestrator) Dispatch(ctx context.Context, doc *documents.Document) (*documents.Document, error) {
	unlock := o.locks.lock(doc.ID)
	defer unlock()

	queued, err := o.save(ctx, doc, func(d *documents.Document) error {
		d.ProcessingStatus = documents.StatusQueued
		d.ProcessingError = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	fileURL, err := o.storage.Resolve(ctx, queued.StorageKey)
	if err != nil {
		return o.fail(ctx, queued, fmt.Sprintf("resolve document file: %v", err))
	}

	req := ocr.SubmitRequest{
		FileURL:     fileURL,
		Language:    ocr.MapLanguage(queued.Language),
		DocumentID:  queued.ID.String(),
		CallbackURL: o.callbackURL,
	}

	var resp *ocr.SubmitResponse
	err = o.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = o.ocr.Submit(ctx, req)
		return callErr
	})
	if err != nil {
		o.logger.Warn(
			"ocr dispatch failed",
			"document_id", queued.ID,
			"classification", errclass.Describe(err),
		)

		if errors.Is(err, breaker.ErrOpen) {
			return o.fail(ctx, queued, ErrServiceUnavailable.Error())
		}
		return o.fail(ctx, queued, err.Error())
	}

	dispatched, err := o.save(ctx, queued, func(d *documents.Document) error {
		taskID := resp.TaskID
		d.OCRTaskID = &taskID
		d.SetMetadata("ocr_status", resp.Status)
		d.SetMetadata("ocr_queued_at", time.Now().UTC().Format(time.RFC3339))
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info(
		"document dispatched",
		"document_id", dispatched.ID,
		"task_id", resp.TaskID,
	)

	o.publish(dispatched)
	return dispatched, nil
}

func (o *orchestrator) ApplyResult(ctx context.Context, doc *documents.Document, result Result) (*documents.Document, error) {
	unlock := o.locks.lock(doc.ID)
	defer unlock()

	var category *categories.Category
	if result.Category.PrimaryCategory != "" {
		c, err := o.categories.LookupOrCreate(ctx, result.Category.PrimaryCategory)
		if err != nil {
			return nil, fmt.Errorf("assign category: %w", err)
		}
		category = c
	}

	completed, err := o.save(ctx, doc, func(d *documents.Document) error {
		text := result.Text
		confidence := normalizeConfidence(result.Confidence)
		searchable := buildSearchableContent(result.Text, d.Filename, result.Metadata)

		d.OCRText = &text
		d.ConfidenceScore = &confidence
		if result.Language != "" {
			language := result.Language
			d.DetectedLanguage = &language
		}

		d.MergeMetadata(result.Metadata.flatten())
		d.SetMetadata("ocr_completed_at", time.Now().UTC().Format(time.RFC3339))

		if len(result.Metadata.Dates) > 0 {
			if parsed, err := formatting.ParseDate(result.Metadata.Dates[0]); err != nil {
				o.logger.Warn(
					"extracted date unparseable, skipping",
					"document_id", d.ID,
					"value", result.Metadata.Dates[0],
					"error", err,
				)
			} else {
				d.ExtractedDate = &parsed
			}
		}

		if amount := largestAmount(result.Metadata.Amounts); amount != nil {
			d.ExtractedAmount = amount
		}

		if category != nil {
			id := category.ID
			d.CategoryID = &id
		}

		d.SearchableContent = &searchable
		d.ProcessingStatus = documents.StatusCompleted
		d.ProcessingError = nil
		d.Progress = 100
		d.CurrentOperation = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	indexReq := indexing.Request{
		DocumentID:        completed.ID,
		Filename:          completed.Filename,
		SearchableContent: derefString(completed.SearchableContent),
		Language:          derefString(completed.DetectedLanguage),
	}
	if category != nil {
		indexReq.Category = category.Name
	}

	if err := o.indexing.Dispatch(ctx, indexReq); err != nil {
		// the document is already completed; indexing is eventually repaired
		// by re-dispatching, never by failing the completion
		o.logger.Error("index dispatch failed", "document_id", completed.ID, "error", err)
	}

	o.logger.Info(
		"document completed",
		"document_id", completed.ID,
		"confidence", derefFloat(completed.ConfidenceScore),
	)

	o.publish(completed)
	return completed, nil
}

func (o *orchestrator) ApplyFailure(ctx context.Context, doc *documents.Document, message string) (*documents.Document, error) {
	unlock := o.locks.lock(doc.ID)
	defer unlock()

	return o.fail(ctx, doc, message)
}

func (o *orchestrator) ApplyProgress(ctx context.Context, doc *documents.Document, progress int, currentOperation string) (*documents.Document, error) {
	if progress < 0 || progress > 100 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidProgress, progress)
	}

	unlock := o.locks.lock(doc.ID)
	defer unlock()

	updated, err := o.save(ctx, doc, func(d *documents.Document) error {
		d.Progress = progress
		if currentOperation != "" {
			op := currentOperation
			d.CurrentOperation = &op
		}
		d.ProcessingStatus = documents.StatusProcessing
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.publish(updated)
	return updated, nil
}

func (o *orchestrator) Retry(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	doc, err := o.docs.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.ProcessingStatus != documents.StatusFailed {
		return nil, fmt.Errorf("%w: %s", ErrNotRetryable, doc.ProcessingStatus)
	}

	unlock := o.locks.lock(doc.ID)
	reset, err := o.save(ctx, doc, func(d *documents.Document) error {
		d.ProcessingStatus = documents.StatusQueued
		d.ProcessingError = nil
		d.OCRTaskID = nil
		d.Progress = 0
		d.CurrentOperation = nil
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}

	o.logger.Info("document retry requested", "document_id", id)
	return o.Dispatch(ctx, reset)
}

func (o *orchestrator) BreakerSnapshot(ctx context.Context) (breaker.Snapshot, error) {
	return o.breaker.Snapshot(ctx)
}

func (o *orchestrator) ResetBreaker(ctx context.Context) error {
	return o.breaker.Reset(ctx)
}

// fail marks doc failed with message and stamps the failure time. The caller
// must hold the document lock.
func (o *orchestrator) fail(ctx context.Context, doc *documents.Document, message string) (*documents.Document, error) {
	failed, err := o.save(ctx, doc, func(d *documents.Document) error {
		d.ProcessingStatus = documents.StatusFailed
		d.ProcessingError = &message
		d.SetMetadata("ocr_failed_at", time.Now().UTC().Format(time.RFC3339))
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Warn("document failed", "document_id", failed.ID, "error", message)

	o.publish(failed)
	return failed, nil
}

// save applies mutate to doc and persists it under the optimistic version
// check, re-reading and re-applying on conflict. Conflicts only occur across
// processes; in-process callers are serialized by the keyed lock.
func (o *orchestrator) save(
	ctx context.Context,
	doc *documents.Document,
	mutate func(*documents.Document) error,
) (*documents.Document, error) {
	current := doc

	for attempt := 0; attempt < saveAttempts; attempt++ {
		if err := mutate(current); err != nil {
			return nil, err
		}

		updated, err := o.docs.SaveProcessing(ctx, current)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, documents.ErrVersionConflict) {
			return nil, err
		}

		o.logger.Warn(
			"concurrent document mutation, re-applying",
			"document_id", doc.ID,
			"attempt", attempt+1,
		)

		current, err = o.docs.Find(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
	}

	return nil, documents.ErrVersionConflict
}

func (o *orchestrator) publish(doc *documents.Document) {
	if o.hub == nil {
		return
	}

	o.hub.Publish(events.Update{
		DocumentID:       doc.ID,
		Status:           doc.ProcessingStatus,
		Progress:         doc.Progress,
		CurrentOperation: derefString(doc.CurrentOperation),
		Error:            derefString(doc.ProcessingError),
	})
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

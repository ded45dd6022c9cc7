package webhooks_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/private-doc-vault/docvault/internal/documents"
	"github.com/private-doc-vault/docvault/internal/processing"
	"github.com/private-doc-vault/docvault/internal/webhooks"
	"github.com/private-doc-vault/docvault/pkg/breaker"
	"github.com/private-doc-vault/docvault/pkg/idempotency"
	"github.com/private-doc-vault/docvault/pkg/pagination"
)

const testSecret = "test-webhook-secret"

func ptr[T any](v T) *T { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockProcessing records orchestrator invocations.
type mockProcessing struct {
	results  []processing.Result
	failures []string
	progress []int
	applyErr error
}

func (m *mockProcessing) Handler() *processing.Handler { return nil }

func (m *mockProcessing) Dispatch(_ context.Context, doc *documents.Document) (*documents.Document, error) {
	return doc, nil
}

func (m *mockProcessing) ApplyResult(_ context.Context, doc *documents.Document, result processing.Result) (*documents.Document, error) {
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	m.results = append(m.results, result)
	return doc, nil
}

func (m *mockProcessing) ApplyFailure(_ context.Context, doc *documents.Document, message string) (*documents.Document, error) {
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	m.failures = append(m.failures, message)
	return doc, nil
}

func (m *mockProcessing) ApplyProgress(_ context.Context, doc *documents.Document, progress int, _ string) (*documents.Document, error) {
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	if progress < 0 || progress > 100 {
		return nil, processing.ErrInvalidProgress
	}
	m.progress = append(m.progress, progress)
	return doc, nil
}

func (m *mockProcessing) Retry(_ context.Context, _ uuid.UUID) (*documents.Document, error) {
	return nil, nil
}

func (m *mockProcessing) BreakerSnapshot(_ context.Context) (breaker.Snapshot, error) {
	return breaker.Snapshot{State: breaker.StateClosed}, nil
}

func (m *mockProcessing) ResetBreaker(_ context.Context) error { return nil }

// mockDocs serves a single document by id.
type mockDocs struct {
	doc *documents.Document
}

func (m *mockDocs) Handler(int64) *documents.Handler { return nil }

func (m *mockDocs) List(_ context.Context, _ pagination.PageRequest, _ documents.Filters) (*pagination.PageResult[documents.Document], error) {
	return nil, nil
}

func (m *mockDocs) Find(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	if m.doc != nil && m.doc.ID == id {
		return m.doc, nil
	}
	return nil, documents.ErrNotFound
}

func (m *mockDocs) Create(_ context.Context, _ documents.CreateCommand) (*documents.Document, error) {
	return nil, nil
}

func (m *mockDocs) Download(_ context.Context, _ uuid.UUID) (*documents.Document, io.ReadCloser, error) {
	return nil, nil, documents.ErrNotFound
}

func (m *mockDocs) Delete(_ context.Context, _ uuid.UUID) error { return nil }

func (m *mockDocs) SaveProcessing(_ context.Context, doc *documents.Document) (*documents.Document, error) {
	return doc, nil
}

func queuedDoc() *documents.Document {
	return &documents.Document{
		ID:               uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		Filename:         "invoice.pdf",
		ContentType:      "application/pdf",
		Language:         "en",
		ProcessingStatus: documents.StatusProcessing,
		OCRTaskID:        ptr("task-abc-123"),
		Version:          2,
		UploadedAt:       time.Now().UTC(),
	}
}

func newHandler(proc processing.System, docs documents.System) *webhooks.Handler {
	cfg := &webhooks.Config{
		Secret:         testSecret,
		IdempotencyTTL: "1h",
		MaxBodySize:    "10MB",
	}
	guard := idempotency.New(idempotency.NewMemoryStore(), time.Hour, discardLogger())
	return webhooks.NewHandler(proc, docs, guard, cfg, discardLogger())
}

func deliver(t *testing.T, h *webhooks.Handler, body []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("POST", "/webhooks/ocr", bytes.NewReader(body))
	if sign {
		req.Header.Set(webhooks.SignatureHeader, webhooks.ComputeSignature(testSecret, body))
	}

	rec := httptest.NewRecorder()
	h.Ingest(rec, req)
	return rec
}

func marshalEvent(t *testing.T, event webhooks.Event) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return body
}

func TestIngestCompleted(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:     "task-abc-123",
		DocumentID: docs.doc.ID.String(),
		Status:     "completed",
		Result: &processing.Result{
			Text:       "Invoice total 500.00",
			Confidence: 0.87,
			Language:   "en",
		},
	})

	rec := deliver(t, h, body, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if len(proc.results) != 1 {
		t.Fatalf("ApplyResult called %d times, want 1", len(proc.results))
	}
	if proc.results[0].Text != "Invoice total 500.00" {
		t.Errorf("result text = %q", proc.results[0].Text)
	}

	var resp webhooks.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Duplicate {
		t.Error("first delivery should not be marked duplicate")
	}
}

func TestIngestMissingSignature(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:     "task-abc-123",
		DocumentID: docs.doc.ID.String(),
		Status:     "completed",
	})

	rec := deliver(t, h, body, false)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if len(proc.results) != 0 {
		t.Error("unsigned delivery must not reach the orchestrator")
	}
}

func TestIngestTamperedBody(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:     "task-abc-123",
		DocumentID: docs.doc.ID.String(),
		Status:     "completed",
	})

	req := httptest.NewRequest("POST", "/webhooks/ocr", bytes.NewReader(append(body, ' ')))
	req.Header.Set(webhooks.SignatureHeader, webhooks.ComputeSignature(testSecret, body))

	rec := httptest.NewRecorder()
	h.Ingest(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for tampered body", rec.Code)
	}
	if len(proc.results) != 0 {
		t.Error("tampered delivery must not reach the orchestrator")
	}
}

func TestIngestMalformedJSON(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	rec := deliver(t, h, []byte("{not json"), true)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIngestMissingFields(t *testing.T) {
	docID := queuedDoc().ID.String()

	tests := []struct {
		name  string
		event webhooks.Event
	}{
		{"missing task_id", webhooks.Event{DocumentID: docID, Status: "completed"}},
		{"missing document_id", webhooks.Event{TaskID: "task-abc-123", Status: "completed"}},
		{"missing status", webhooks.Event{TaskID: "task-abc-123", DocumentID: docID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &mockProcessing{}
			docs := &mockDocs{doc: queuedDoc()}
			h := newHandler(proc, docs)

			rec := deliver(t, h, marshalEvent(t, tt.event), true)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestIngestUnknownDocument(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:     "task-abc-123",
		DocumentID: uuid.New().String(),
		Status:     "completed",
	})

	rec := deliver(t, h, body, true)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestIngestNonUUIDDocumentID(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:     "task-abc-123",
		DocumentID: "not-a-uuid",
		Status:     "completed",
	})

	rec := deliver(t, h, body, true)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestIngestTaskMismatch(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:     "task-other-999",
		DocumentID: docs.doc.ID.String(),
		Status:     "completed",
	})

	rec := deliver(t, h, body, true)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(proc.results) != 0 {
		t.Error("mismatched task must not mutate the document")
	}
}

func TestIngestUnknownStatus(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:     "task-abc-123",
		DocumentID: docs.doc.ID.String(),
		Status:     "exploded",
	})

	rec := deliver(t, h, body, true)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIngestFailedStatus(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:     "task-abc-123",
		DocumentID: docs.doc.ID.String(),
		Status:     "failed",
		Error:      ptr("OCR engine crashed"),
	})

	rec := deliver(t, h, body, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(proc.failures) != 1 || proc.failures[0] != "OCR engine crashed" {
		t.Errorf("failures = %v, want [OCR engine crashed]", proc.failures)
	}
}

func TestIngestFailedStatusDefaultMessage(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:     "task-abc-123",
		DocumentID: docs.doc.ID.String(),
		Status:     "failed",
	})

	rec := deliver(t, h, body, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(proc.failures) != 1 || proc.failures[0] != "processing failed" {
		t.Errorf("failures = %v, want [processing failed]", proc.failures)
	}
}

func TestIngestProgress(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:           "task-abc-123",
		DocumentID:       docs.doc.ID.String(),
		Status:           "processing",
		Progress:         ptr(45),
		CurrentOperation: ptr("recognizing text"),
	})

	rec := deliver(t, h, body, true)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(proc.progress) != 1 || proc.progress[0] != 45 {
		t.Errorf("progress = %v, want [45]", proc.progress)
	}
}

func TestIngestProgressOutOfRange(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:     "task-abc-123",
		DocumentID: docs.doc.ID.String(),
		Status:     "processing",
		Progress:   ptr(150),
	})

	rec := deliver(t, h, body, true)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIngestDuplicateDelivery(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:     "task-abc-123",
		DocumentID: docs.doc.ID.String(),
		Status:     "completed",
		Result:     &processing.Result{Text: "hello", Confidence: 0.9},
	})

	first := deliver(t, h, body, true)
	second := deliver(t, h, body, true)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("statuses = %d, %d; want 200, 200", first.Code, second.Code)
	}
	if len(proc.results) != 1 {
		t.Errorf("ApplyResult called %d times, want 1 for redelivery", len(proc.results))
	}

	var resp webhooks.Response
	if err := json.NewDecoder(second.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Duplicate {
		t.Error("second delivery should be marked duplicate")
	}
}

func TestIngestDistinctProgressUpdatesAllApply(t *testing.T) {
	proc := &mockProcessing{}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	for _, p := range []int{10, 50, 90} {
		body := marshalEvent(t, webhooks.Event{
			TaskID:     "task-abc-123",
			DocumentID: docs.doc.ID.String(),
			Status:     "processing",
			Progress:   ptr(p),
		})
		rec := deliver(t, h, body, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("progress %d: status = %d, want 200", p, rec.Code)
		}
	}

	if len(proc.progress) != 3 {
		t.Errorf("progress updates applied = %d, want 3", len(proc.progress))
	}
}

func TestIngestFailedApplyNotMarkedUsed(t *testing.T) {
	proc := &mockProcessing{applyErr: documents.ErrVersionConflict}
	docs := &mockDocs{doc: queuedDoc()}
	h := newHandler(proc, docs)

	body := marshalEvent(t, webhooks.Event{
		TaskID:     "task-abc-123",
		DocumentID: docs.doc.ID.String(),
		Status:     "completed",
	})

	rec := deliver(t, h, body, true)
	if rec.Code == http.StatusOK {
		t.Fatal("failed apply should not return 200")
	}

	// token was not consumed, so the redelivery executes the operation
	proc.applyErr = nil
	rec = deliver(t, h, body, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, want 200", rec.Code)
	}
	if len(proc.results) != 1 {
		t.Errorf("ApplyResult called %d times after recovery, want 1", len(proc.results))
	}
}

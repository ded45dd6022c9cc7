// Package documents implements the document domain for the vault. It provides
// types, data access, and business logic for document registration, metadata
// management, blob storage integration, and the processing-state fields the
// OCR pipeline mutates.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Processing status values for a document's OCR pipeline position.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document represents a registered document with its metadata, blob storage
// reference, and OCR processing state. Processing fields are mutated only by
// the orchestrator and webhook pipeline; Version guards those mutations with
// optimistic concurrency so racing webhook deliveries cannot lose updates.
type Document struct {
	ID                uuid.UUID         `json:"id"`
	Filename          string            `json:"filename"`
	ContentType       string            `json:"content_type"`
	SizeBytes         int64             `json:"size_bytes"`
	PageCount         *int              `json:"page_count"`
	StorageKey        string            `json:"storage_key"`
	Language          string            `json:"language"`
	ProcessingStatus  string            `json:"processing_status"`
	ProcessingError   *string           `json:"processing_error"`
	OCRTaskID         *string           `json:"ocr_task_id"`
	Progress          int               `json:"progress"`
	CurrentOperation  *string           `json:"current_operation"`
	OCRText           *string           `json:"ocr_text"`
	ConfidenceScore   *float64          `json:"confidence_score"`
	DetectedLanguage  *string           `json:"detected_language"`
	ExtractedDate     *time.Time        `json:"extracted_date"`
	ExtractedAmount   *string           `json:"extracted_amount"`
	SearchableContent *string           `json:"searchable_content"`
	CategoryID        *uuid.UUID        `json:"category_id"`
	Metadata          map[string]string `json:"metadata"`
	Version           int               `json:"version"`
	UploadedAt        time.Time         `json:"uploaded_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// SetMetadata stores a key in the document's metadata map, initializing the
// map if needed. Metadata stays flat: every merged key lands at the top level.
func (d *Document) SetMetadata(key, value string) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]string)
	}
	d.Metadata[key] = value
}

// MergeMetadata merges all entries from m flatly into the document's metadata.
func (d *Document) MergeMetadata(m map[string]string) {
	for k, v := range m {
		d.SetMetadata(k, v)
	}
}

// CreateCommand carries the data needed to upload and register a new document.
// Data holds the raw file bytes. PageCount is optional and may be extracted
// by the caller via pdfcpu; nil values are stored as NULL.
type CreateCommand struct {
	Data        []byte
	Filename    string
	ContentType string
	Language    string
	PageCount   *int
}

package documents

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/private-doc-vault/docvault/pkg/query"
	"github.com/private-doc-vault/docvault/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("storage_key", "StorageKey").
	Project("language", "Language").
	Project("processing_status", "ProcessingStatus").
	Project("processing_error", "ProcessingError").
	Project("ocr_task_id", "OCRTaskID").
	Project("progress", "Progress").
	Project("current_operation", "CurrentOperation").
	Project("ocr_text", "OCRText").
	Project("confidence_score", "ConfidenceScore").
	Project("detected_language", "DetectedLanguage").
	Project("extracted_date", "ExtractedDate").
	Project("extracted_amount", "ExtractedAmount").
	Project("searchable_content", "SearchableContent").
	Project("category_id", "CategoryID").
	Project("metadata", "Metadata").
	Project("version", "Version").
	Project("uploaded_at", "UploadedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UploadedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. ProcessingStatus, ContentType, and Language use
// exact matching. Filename uses case-insensitive contains matching.
type Filters struct {
	ProcessingStatus *string `json:"processing_status,omitempty"`
	Filename         *string `json:"filename,omitempty"`
	ContentType      *string `json:"content_type,omitempty"`
	Language         *string `json:"language,omitempty"`
	OCRTaskID        *string `json:"ocr_task_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("ProcessingStatus", f.ProcessingStatus).
		WhereContains("Filename", f.Filename).
		WhereEquals("ContentType", f.ContentType).
		WhereEquals("Language", f.Language).
		WhereEquals("OCRTaskID", f.OCRTaskID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("processing_status"); s != "" {
		f.ProcessingStatus = &s
	}

	if fn := values.Get("filename"); fn != "" {
		f.Filename = &fn
	}

	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	if l := values.Get("language"); l != "" {
		f.Language = &l
	}

	if t := values.Get("ocr_task_id"); t != "" {
		f.OCRTaskID = &t
	}

	return f
}

// metadataMap adapts the flat metadata map to a JSONB column.
type metadataMap map[string]string

func (m metadataMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *metadataMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata source type %T", src)
	}

	return json.Unmarshal(data, m)
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.StorageKey,
		&d.Language,
		&d.ProcessingStatus,
		&d.ProcessingError,
		&d.OCRTaskID,
		&d.Progress,
		&d.CurrentOperation,
		&d.OCRText,
		&d.ConfidenceScore,
		&d.DetectedLanguage,
		&d.ExtractedDate,
		&d.ExtractedAmount,
		&d.SearchableContent,
		&d.CategoryID,
		(*metadataMap)(&d.Metadata),
		&d.Version,
		&d.UploadedAt,
		&d.UpdatedAt,
	)
	return d, err
}

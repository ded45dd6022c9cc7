// Package indexing dispatches search-index updates for processed documents.
// Dispatches go through a transactional outbox: the completion path inserts a
// pending event, and a background relay drains pending events to the index
// client. A crash between completion and publication never drops an event,
// and the relay marks events processed exactly once.
package indexing

import (
	"time"

	"github.com/google/uuid"
)

// Event statuses for outbox rows.
const (
	StatusPending    = "pending"
	StatusPublishing = "publishing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// Event is one queued index dispatch.
type Event struct {
	ID          uuid.UUID  `json:"id"`
	EventType   string     `json:"event_type"`
	Payload     Request    `json:"payload"`
	Status      string     `json:"status"`
	Retries     int        `json:"retries"`
	LastError   *string    `json:"last_error"`
	ProcessedAt *time.Time `json:"processed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Request is the search representation of a document handed to the index client.
type Request struct {
	DocumentID        uuid.UUID `json:"document_id"`
	Filename          string    `json:"filename"`
	SearchableContent string    `json:"searchable_content"`
	Category          string    `json:"category,omitempty"`
	Language          string    `json:"language,omitempty"`
}

// Package webhooks is the protocol boundary for inbound OCR callbacks. Every
// delivery passes a sequence of hard gates (signature, shape, correlation)
// before reaching the orchestrator, and deliveries are treated as
// at-least-once: the idempotency guard keyed by (task_id, status) makes
// redelivered callbacks safe to apply.
package webhooks

import (
	"github.com/private-doc-vault/docvault/internal/processing"
)

// Event statuses the OCR service delivers.
const (
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusProcessing = "processing"
)

// Event is one inbound OCR callback payload. Ephemeral: parsed, validated,
// applied, never persisted.
type Event struct {
	TaskID           string             `json:"task_id"`
	DocumentID       string             `json:"document_id"`
	Status           string             `json:"status"`
	Result           *processing.Result `json:"result,omitempty"`
	Error            *string            `json:"error,omitempty"`
	Progress         *int               `json:"progress,omitempty"`
	CurrentOperation *string            `json:"current_operation,omitempty"`
}

// Response acknowledges a processed delivery.
type Response struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Duplicate  bool   `json:"duplicate,omitempty"`
}

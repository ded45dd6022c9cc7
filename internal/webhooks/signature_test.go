package webhooks_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/private-doc-vault/docvault/internal/webhooks"
)

var errTest = errors.New("boom")

func TestComputeSignature(t *testing.T) {
	body := []byte(`{"task_id":"task-abc-123"}`)

	first := webhooks.ComputeSignature(testSecret, body)
	second := webhooks.ComputeSignature(testSecret, body)

	if first != second {
		t.Error("signature should be deterministic for identical input")
	}
	if len(first) != 64 {
		t.Errorf("signature length = %d, want 64 hex characters", len(first))
	}
	if other := webhooks.ComputeSignature("other-secret", body); other == first {
		t.Error("different secrets should produce different signatures")
	}
	if other := webhooks.ComputeSignature(testSecret, []byte("other body")); other == first {
		t.Error("different bodies should produce different signatures")
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"task_id":"task-abc-123"}`)
	signature := webhooks.ComputeSignature(testSecret, body)

	tests := []struct {
		name     string
		secret   string
		body     []byte
		provided string
		want     bool
	}{
		{"valid", testSecret, body, signature, true},
		{"wrong secret", "other-secret", body, signature, false},
		{"tampered body", testSecret, append([]byte(nil), append(body, ' ')...), signature, false},
		{"empty signature", testSecret, body, "", false},
		{"garbage signature", testSecret, body, "deadbeef", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := webhooks.VerifySignature(tt.secret, tt.body, tt.provided); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing signature", webhooks.ErrMissingSignature, 401},
		{"invalid signature", webhooks.ErrInvalidSignature, 401},
		{"malformed payload", webhooks.ErrMalformedPayload, 400},
		{"missing field", webhooks.ErrMissingField, 400},
		{"task mismatch", webhooks.ErrTaskMismatch, 400},
		{"unknown status", webhooks.ErrUnknownStatus, 400},
		{"wrapped", fmt.Errorf("gate: %w", webhooks.ErrTaskMismatch), 400},
		{"unmapped", errTest, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := webhooks.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

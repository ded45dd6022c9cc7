package errclass_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"

	"github.com/private-doc-vault/docvault/pkg/breaker"
	"github.com/private-doc-vault/docvault/pkg/errclass"
)

type taggedError struct {
	category errclass.Category
}

func (e taggedError) Error() string                    { return "tagged failure" }
func (e taggedError) ErrorCategory() errclass.Category { return e.category }

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errclass.Category
	}{
		{"nil", nil, errclass.Permanent},
		{"timeout message", errors.New("request timeout exceeded"), errclass.Transient},
		{"connection refused message", errors.New("dial tcp: connection refused"), errclass.Transient},
		{"connection reset message", errors.New("read: connection reset by peer"), errclass.Transient},
		{"rate limit message", errors.New("Rate Limit exceeded"), errclass.Transient},
		{"unavailable message", errors.New("service unavailable"), errclass.Transient},
		{"deadlock message", errors.New("deadlock detected"), errclass.Transient},
		{"not found message", errors.New("document not found"), errclass.Permanent},
		{"unauthorized message", errors.New("unauthorized access"), errclass.Permanent},
		{"forbidden message", errors.New("forbidden"), errclass.Permanent},
		{"authentication failed message", errors.New("authentication failed for user"), errclass.Permanent},
		{"bad request message", errors.New("bad request: missing field"), errclass.Permanent},
		{"invalid message", errors.New("invalid payload shape"), errclass.Permanent},
		{"mixed case marker", errors.New("Connection Refused"), errclass.Transient},
		{"unknown defaults to permanent", errors.New("mysterious failure"), errclass.Permanent},
		{"wrapped transient marker", fmt.Errorf("submit: %w", errors.New("timeout")), errclass.Transient},
		{"context deadline", context.DeadlineExceeded, errclass.Transient},
		{"wrapped context deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), errclass.Transient},
		{"econnrefused", syscall.ECONNREFUSED, errclass.Transient},
		{"econnreset", fmt.Errorf("read: %w", syscall.ECONNRESET), errclass.Transient},
		{"breaker open", breaker.ErrOpen, errclass.Transient},
		{"wrapped breaker open", fmt.Errorf("dispatch: %w", breaker.ErrOpen), errclass.Transient},
		{"tagged transient", taggedError{errclass.Transient}, errclass.Transient},
		{"tagged permanent", taggedError{errclass.Permanent}, errclass.Permanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errclass.Categorize(tt.err); got != tt.want {
				t.Errorf("Categorize(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestTaggedErrorWinsOverMessage(t *testing.T) {
	// message says transient, tag says permanent: tag wins
	err := fmt.Errorf("timeout: %w", taggedError{errclass.Permanent})
	if got := errclass.Categorize(err); got != errclass.Permanent {
		t.Errorf("Categorize = %s, want permanent (tag wins)", got)
	}
}

func TestShouldRetry(t *testing.T) {
	if !errclass.ShouldRetry(errors.New("timeout")) {
		t.Error("transient error should be retryable")
	}
	if errclass.ShouldRetry(errors.New("not found")) {
		t.Error("permanent error should not be retryable")
	}
}

func TestDescribe(t *testing.T) {
	got := errclass.Describe(errors.New("timeout"))
	if !strings.Contains(got, "transient") || !strings.Contains(got, "retry eligible") {
		t.Errorf("Describe transient = %q", got)
	}

	got = errclass.Describe(errors.New("not found"))
	if !strings.Contains(got, "permanent") || !strings.Contains(got, "will not retry") {
		t.Errorf("Describe permanent = %q", got)
	}
}

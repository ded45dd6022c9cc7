// Package errclass classifies errors as transient or permanent to decide
// retry eligibility. Classification is total and deterministic: every error
// maps to exactly one category, and unrecognized errors default to permanent
// so that failures nobody understands are never retried forever.
package errclass

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/private-doc-vault/docvault/pkg/breaker"
)

// Category is the retry classification of an error.
type Category string

const (
	// Transient failures are likely to succeed on retry.
	Transient Category = "transient"
	// Permanent failures will not succeed on retry.
	Permanent Category = "permanent"
)

// Categorized is implemented by errors that carry their own category,
// typically client boundaries that know the failure mode structurally.
// An empty category defers to message matching.
type Categorized interface {
	error
	ErrorCategory() Category
}

var transientMarkers = []string{
	"timeout",
	"connection refused",
	"connection reset",
	"rate limit",
	"unavailable",
	"deadlock",
}

var permanentMarkers = []string{
	"not found",
	"unauthorized",
	"forbidden",
	"authentication failed",
	"bad request",
	"invalid",
}

// Categorize returns the retry category for err. Tagged errors win, then
// known structural network conditions, then case-insensitive message
// markers; anything unmatched is permanent.
func Categorize(err error) Category {
	if err == nil {
		return Permanent
	}

	var tagged Categorized
	if errors.As(err, &tagged) {
		if c := tagged.ErrorCategory(); c == Transient || c == Permanent {
			return c
		}
	}

	if isTransientCondition(err) {
		return Transient
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return Transient
		}
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return Permanent
		}
	}

	return Permanent
}

// ShouldRetry reports whether err is worth retrying.
func ShouldRetry(err error) bool {
	return Categorize(err) == Transient
}

// Describe returns a human-readable summary of the category, retry intent,
// and concrete error type for logging.
func Describe(err error) string {
	category := Categorize(err)
	intent := "will not retry"
	if category == Transient {
		intent = "retry eligible"
	}
	return fmt.Sprintf("%s (%s): %T", category, intent, err)
}

func isTransientCondition(err error) bool {
	if errors.Is(err, breaker.ErrOpen) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

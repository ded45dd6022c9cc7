// Package idempotency provides a token-keyed, TTL-bounded guard ensuring an
// operation with a given token executes at most once within a time window.
//
// When the backing store is unavailable the guard fails open: the token is
// treated as unused and the operation proceeds. That trades strict
// exactly-once for availability; a store outage means duplicate work is
// possible, never lost work. Deployments needing the opposite trade should
// front the guard with their own availability gate.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Store persists used tokens with expiry.
type Store interface {
	// WasUsed reports whether token has been marked used and has not expired.
	WasUsed(ctx context.Context, token string) (bool, error)
	// MarkUsed records token as used until ttl elapses.
	MarkUsed(ctx context.Context, token string, ttl time.Duration) error
}

// Guard ensures at-most-once execution per token.
type Guard struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Guard with the given store and default TTL for marked tokens.
func New(store Store, ttl time.Duration, logger *slog.Logger) *Guard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Guard{
		store:  store,
		ttl:    ttl,
		logger: logger.With("system", "idempotency"),
	}
}

// GenerateToken returns a random, unguessable token.
func (g *Guard) GenerateToken() string {
	return uuid.NewString()
}

// GenerateTokenFromContext derives a deterministic token from an operation
// context: keys are canonicalized by sort order before hashing, so an
// equivalent map always yields the same token regardless of insertion order.
func (g *Guard) GenerateTokenFromContext(opContext map[string]string) string {
	keys := make([]string, 0, len(opContext))
	for k := range opContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\n", k, opContext[k])
	}

	return hex.EncodeToString(h.Sum(nil))
}

// WasUsed reports whether token was already used. Store errors fail open.
func (g *Guard) WasUsed(ctx context.Context, token string) bool {
	used, err := g.store.WasUsed(ctx, token)
	if err != nil {
		g.logger.Warn(
			"idempotency store unavailable, failing open",
			"token", token,
			"error", err,
		)
		return false
	}
	return used
}

// MarkUsed records token as consumed with the guard's default TTL.
func (g *Guard) MarkUsed(ctx context.Context, token string) {
	if err := g.store.MarkUsed(ctx, token, g.ttl); err != nil {
		g.logger.Warn(
			"failed to mark idempotency token, duplicates possible",
			"token", token,
			"error", err,
		)
	}
}

// ProcessOnce executes op unless token was already used. It returns true when
// op ran, false when the operation was skipped as a duplicate. The token is
// marked used only after op succeeds, so a failed operation may be retried
// with the same token.
func (g *Guard) ProcessOnce(ctx context.Context, token string, op func(ctx context.Context) error) (bool, error) {
	if g.WasUsed(ctx, token) {
		g.logger.Info("duplicate operation skipped", "token", token)
		return false, nil
	}

	if err := op(ctx); err != nil {
		return true, err
	}

	g.MarkUsed(ctx, token)
	return true, nil
}

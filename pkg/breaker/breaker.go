// Package breaker provides a circuit breaker for calls to flaky external
// dependencies. After a configured number of consecutive failures the circuit
// opens and calls fail fast without reaching the dependency; once the reset
// timeout elapses a single trial call probes for recovery.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned when the circuit is open and the call was not attempted.
// It is distinct from transport failures so callers can surface "dependency
// temporarily unavailable" rather than a generic error.
var ErrOpen = errors.New("circuit breaker is open")

// State is the current circuit position.
type State string

// Circuit states.
const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config holds circuit breaker tuning parameters.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before allowing a trial call.
	ResetTimeout time.Duration
}

// Breaker guards calls to a single named dependency. State lives in a Store
// so that multiple workers can share one breaker per dependency; in-process
// callers are serialized by a mutex.
type Breaker struct {
	name   string
	cfg    Config
	store  Store
	logger *slog.Logger

	mu    sync.Mutex
	trial bool
}

// New creates a Breaker for the named dependency backed by the given store.
func New(name string, cfg Config, store Store, logger *slog.Logger) *Breaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}

	return &Breaker{
		name:   name,
		cfg:    cfg,
		store:  store,
		logger: logger.With("system", "breaker", "name", name),
	}
}

// Call executes op if the circuit allows it. When the circuit is open and the
// reset timeout has not elapsed, Call returns ErrOpen without invoking op.
// The operation's own error always propagates to the caller after being
// recorded; the breaker never swallows it.
func (b *Breaker) Call(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()

	snap, err := b.store.Get(ctx, b.name)
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("read breaker state: %w", err)
	}

	if snap.State == StateOpen {
		if snap.OpenedAt == nil || time.Since(*snap.OpenedAt) < b.cfg.ResetTimeout {
			b.mu.Unlock()
			return ErrOpen
		}
		snap = b.transition(ctx, snap, StateHalfOpen)
	}

	if snap.State == StateHalfOpen {
		if b.trial {
			// a trial call is already probing the dependency
			b.mu.Unlock()
			return ErrOpen
		}
		b.trial = true
	}

	state := snap.State
	b.mu.Unlock()

	opErr := op(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()

	if state == StateHalfOpen {
		b.trial = false
	}

	// re-read: another worker may have moved the circuit while op ran
	snap, err = b.store.Get(ctx, b.name)
	if err != nil {
		b.logger.Warn("breaker state refresh failed", "error", err)
		return opErr
	}

	if opErr != nil {
		b.recordFailure(ctx, snap, state)
		return opErr
	}

	b.recordSuccess(ctx, snap, state)
	return nil
}

// IsOpen reports whether the circuit is currently open.
func (b *Breaker) IsOpen(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, err := b.store.Get(ctx, b.name)
	if err != nil {
		return false
	}
	return snap.State == StateOpen
}

// Snapshot returns the current breaker state for observability endpoints.
func (b *Breaker) Snapshot(ctx context.Context) (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Get(ctx, b.name)
}

// Reset forces the circuit closed and zeroes the failure count. Operator
// escape hatch; applies unconditionally.
func (b *Breaker) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trial = false
	snap := Snapshot{State: StateClosed}
	if err := b.store.Set(ctx, b.name, snap); err != nil {
		return fmt.Errorf("reset breaker state: %w", err)
	}

	b.logger.Info("circuit reset", "state", StateClosed)
	return nil
}

func (b *Breaker) recordFailure(ctx context.Context, snap Snapshot, callState State) {
	switch callState {
	case StateHalfOpen:
		// trial failed: back to open with a fresh window
		b.transition(ctx, snap, StateOpen)
	default:
		snap.FailureCount++
		if snap.FailureCount >= b.cfg.FailureThreshold {
			b.transition(ctx, snap, StateOpen)
			return
		}
		b.persist(ctx, snap)
	}
}

func (b *Breaker) recordSuccess(ctx context.Context, snap Snapshot, callState State) {
	if callState == StateHalfOpen {
		b.transition(ctx, snap, StateClosed)
		return
	}

	if snap.FailureCount != 0 {
		snap.FailureCount = 0
		b.persist(ctx, snap)
	}
}

func (b *Breaker) transition(ctx context.Context, snap Snapshot, to State) Snapshot {
	from := snap.State
	snap.State = to

	switch to {
	case StateOpen:
		now := time.Now()
		snap.OpenedAt = &now
	case StateClosed:
		snap.FailureCount = 0
		snap.OpenedAt = nil
	}

	b.persist(ctx, snap)
	b.logger.Info("circuit state change", "from", from, "to", to, "failures", snap.FailureCount)
	return snap
}

func (b *Breaker) persist(ctx context.Context, snap Snapshot) {
	if err := b.store.Set(ctx, b.name, snap); err != nil {
		b.logger.Error("persist breaker state failed", "error", err)
	}
}

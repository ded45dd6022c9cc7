package indexing

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/private-doc-vault/docvault/pkg/lifecycle"
	"github.com/private-doc-vault/docvault/pkg/repository"
)

const (
	relayBatchSize   = 25
	relayConcurrency = 4
	relayMaxRetries  = 5
)

// Relay drains pending outbox events to the index client in the background.
type Relay struct {
	db       *sql.DB
	client   Client
	logger   *slog.Logger
	interval time.Duration
}

// NewRelay creates a Relay that polls the outbox at the given interval.
func NewRelay(db *sql.DB, client Client, interval time.Duration, logger *slog.Logger) *Relay {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Relay{
		db:       db,
		client:   client,
		logger:   logger.With("system", "index-relay"),
		interval: interval,
	}
}

// Start registers the relay loop with the lifecycle coordinator. The loop
// runs until the coordinator's context is cancelled.
func (r *Relay) Start(lc *lifecycle.Coordinator) error {
	r.logger.Info("starting index relay", "interval", r.interval)

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-lc.Context().Done():
				r.logger.Info("index relay stopped")
				return
			case <-ticker.C:
				if err := r.drain(lc.Context()); err != nil {
					r.logger.Error("outbox drain failed", "error", err)
				}
			}
		}
	}()

	return nil
}

// drain claims a batch of pending events and publishes them concurrently.
// Claimed rows are locked with SKIP LOCKED so multiple relay instances never
// double-publish an event.
func (r *Relay) drain(ctx context.Context) error {
	events, err := r.claim(ctx)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(relayConcurrency)

	for _, event := range events {
		g.Go(func() error {
			r.publish(gctx, event)
			return nil
		})
	}

	return g.Wait()
}

// claim atomically flips a batch of pending events to publishing so that
// concurrent relay instances never pick up the same event.
func (r *Relay) claim(ctx context.Context) ([]Event, error) {
	q := `
		UPDATE index_outbox SET status = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM index_outbox
			WHERE status = $2
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, event_type, payload, status, retries, last_error, processed_at, created_at`

	return repository.QueryMany(ctx, r.db, q, []any{StatusPublishing, StatusPending, relayBatchSize}, scanEvent)
}

func (r *Relay) publish(ctx context.Context, event Event) {
	err := r.client.Index(ctx, event.Payload)
	if err == nil {
		r.mark(ctx, event.ID, StatusProcessed, nil)
		return
	}

	r.logger.Warn(
		"index publish failed",
		"event_id", event.ID,
		"retries", event.Retries,
		"error", err,
	)

	status := StatusPending
	if event.Retries+1 >= relayMaxRetries {
		status = StatusFailed
	}

	msg := err.Error()
	r.mark(ctx, event.ID, status, &msg)
}

func (r *Relay) mark(ctx context.Context, id uuid.UUID, status string, lastError *string) {
	q := `
		UPDATE index_outbox SET
			status = $1,
			retries = CASE WHEN $1 = 'processed' THEN retries ELSE retries + 1 END,
			last_error = $2,
			processed_at = CASE WHEN $1 = 'processed' THEN now() ELSE processed_at END,
			updated_at = now()
		WHERE id = $3`

	if _, err := r.db.ExecContext(ctx, q, status, lastError, id); err != nil {
		r.logger.Error("mark outbox event failed", "event_id", id, "error", err)
	}
}

func scanEvent(s repository.Scanner) (Event, error) {
	var (
		e       Event
		payload []byte
	)

	err := s.Scan(
		&e.ID,
		&e.EventType,
		&payload,
		&e.Status,
		&e.Retries,
		&e.LastError,
		&e.ProcessedAt,
		&e.CreatedAt,
	)
	if err != nil {
		return e, err
	}

	if err := json.Unmarshal(payload, &e.Payload); err != nil {
		return e, fmt.Errorf("decode event payload: %w", err)
	}

	return e, nil
}

package breaker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Store backed by the breaker_state table so that
// concurrent workers share one circuit per dependency instead of each
// computing failure thresholds independently.
func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) Get(ctx context.Context, name string) (Snapshot, error) {
	q := `
		SELECT state, failure_count, opened_at
		FROM breaker_state
		WHERE name = $1`

	var snap Snapshot
	err := s.db.QueryRowContext(ctx, q, name).Scan(
		&snap.State,
		&snap.FailureCount,
		&snap.OpenedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{State: StateClosed}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("query breaker state %s: %w", name, err)
	}

	return snap, nil
}

func (s *postgresStore) Set(ctx context.Context, name string, snap Snapshot) error {
	q := `
		INSERT INTO breaker_state(name, state, failure_count, opened_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (name) DO UPDATE
		SET state = EXCLUDED.state,
			failure_count = EXCLUDED.failure_count,
			opened_at = EXCLUDED.opened_at,
			updated_at = now()`

	if _, err := s.db.ExecContext(ctx, q, name, snap.State, snap.FailureCount, snap.OpenedAt); err != nil {
		return fmt.Errorf("persist breaker state %s: %w", name, err)
	}

	return nil
}

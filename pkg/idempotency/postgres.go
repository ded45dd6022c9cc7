package idempotency

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Store backed by the idempotency_tokens table,
// giving concurrent workers a shared view of consumed tokens.
func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db}
}

func (s *postgresStore) WasUsed(ctx context.Context, token string) (bool, error) {
	q := `
		SELECT EXISTS(
			SELECT 1 FROM idempotency_tokens
			WHERE token = $1 AND expires_at > now()
		)`

	var used bool
	if err := s.db.QueryRowContext(ctx, q, token).Scan(&used); err != nil {
		return false, fmt.Errorf("query idempotency token: %w", err)
	}

	return used, nil
}

func (s *postgresStore) MarkUsed(ctx context.Context, token string, ttl time.Duration) error {
	q := `
		INSERT INTO idempotency_tokens(token, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token) DO UPDATE SET expires_at = EXCLUDED.expires_at`

	expiresAt := time.Now().Add(ttl)
	if _, err := s.db.ExecContext(ctx, q, token, expiresAt); err != nil {
		return fmt.Errorf("mark idempotency token: %w", err)
	}

	return nil
}

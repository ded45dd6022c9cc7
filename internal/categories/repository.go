package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/private-doc-vault/docvault/pkg/repository"
)

// Domain errors for category operations.
var (
	ErrNotFound    = errors.New("category not found")
	ErrInvalidName = errors.New("invalid category name")
)

// MapHTTPStatus maps category domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidName) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// System defines the public contract for category operations.
type System interface {
	Handler() *Handler
	List(ctx context.Context) ([]Category, error)
	Find(ctx context.Context, id uuid.UUID) (*Category, error)
	// LookupOrCreate returns the category with the given name, creating it if
	// absent. Safe to call repeatedly with the same name; redelivered webhook
	// results never produce duplicate categories.
	LookupOrCreate(ctx context.Context, name string) (*Category, error)
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a category repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "categories"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) List(ctx context.Context) ([]Category, error) {
	q := `SELECT id, name, created_at FROM categories ORDER BY name`

	cats, err := repository.QueryMany(ctx, r.db, q, nil, scanCategory)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Category, error) {
	q := `SELECT id, name, created_at FROM categories WHERE id = $1`

	c, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanCategory)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &c, nil
}

func (r *repo) LookupOrCreate(ctx context.Context, name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	// the no-op update makes RETURNING yield the existing row on conflict
	q := `
		INSERT INTO categories(id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at`

	c, err := repository.QueryOne(ctx, r.db, q, []any{uuid.New(), name}, scanCategory)
	if err != nil {
		return nil, fmt.Errorf("lookup or create category %q: %w", name, err)
	}

	return &c, nil
}

func scanCategory(s repository.Scanner) (Category, error) {
	var c Category
	err := s.Scan(&c.ID, &c.Name, &c.CreatedAt)
	return c, err
}

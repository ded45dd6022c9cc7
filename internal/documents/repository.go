package documents

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/private-doc-vault/docvault/pkg/pagination"
	"github.com/private-doc-vault/docvault/pkg/query"
	"github.com/private-doc-vault/docvault/pkg/repository"
	"github.com/private-doc-vault/docvault/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename", "SearchableContent")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Download(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	body, err := r.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("download document blob: %w", err)
	}

	return doc, body, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	id := uuid.New()
	key := buildStorageKey(id, sanitizeFilename(cmd.Filename))

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload document blob: %w", err)
	}

	q := `
		INSERT INTO documents(id, filename, content_type, size_bytes, page_count, storage_key, language, processing_status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + documentColumns

	insertArgs := []any{
		id,
		cmd.Filename,
		cmd.ContentType,
		int64(len(cmd.Data)),
		cmd.PageCount,
		key,
		cmd.Language,
		StatusQueued,
		metadataMap{},
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanDocument)
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document created", "id", d.ID, "filename", d.Filename)
	return &d, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM documents WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if delErr := r.storage.Delete(ctx, doc.StorageKey); delErr != nil {
		r.logger.Warn(
			"blob delete failed after DB delete",
			"key", doc.StorageKey,
			"error", delErr,
		)
	}

	r.logger.Info("document deleted", "id", id)
	return nil
}

// SaveProcessing writes the processing fields of doc under an optimistic
// version check: the row is only updated when its stored version matches the
// version the caller loaded. A racing mutation surfaces as ErrVersionConflict
// so the caller can re-read and re-apply instead of silently losing updates.
func (r *repo) SaveProcessing(ctx context.Context, doc *Document) (*Document, error) {
	q := `
		UPDATE documents SET
			processing_status = $1,
			processing_error = $2,
			ocr_task_id = $3,
			progress = $4,
			current_operation = $5,
			ocr_text = $6,
			confidence_score = $7,
			detected_language = $8,
			extracted_date = $9,
			extracted_amount = $10,
			searchable_content = $11,
			category_id = $12,
			metadata = $13,
			version = version + 1,
			updated_at = now()
		WHERE id = $14 AND version = $15
		RETURNING ` + documentColumns

	args := []any{
		doc.ProcessingStatus,
		doc.ProcessingError,
		doc.OCRTaskID,
		doc.Progress,
		doc.CurrentOperation,
		doc.OCRText,
		doc.ConfidenceScore,
		doc.DetectedLanguage,
		doc.ExtractedDate,
		doc.ExtractedAmount,
		doc.SearchableContent,
		doc.CategoryID,
		metadataMap(doc.Metadata),
		doc.ID,
		doc.Version,
	}

	updated, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, findErr := r.Find(ctx, doc.ID); findErr != nil {
				return nil, findErr
			}
			return nil, ErrVersionConflict
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &updated, nil
}

const documentColumns = `id, filename, content_type, size_bytes, page_count, storage_key, language,
		processing_status, processing_error, ocr_task_id, progress, current_operation,
		ocr_text, confidence_score, detected_language, extracted_date, extracted_amount,
		searchable_content, category_id, metadata, version, uploaded_at, updated_at`

func buildStorageKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("documents/%s/%s", id, filename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "document"
	}
	return url.PathEscape(name)
}

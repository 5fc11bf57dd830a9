package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentanova-ai/mentanova/internal/domain"
)

const documentColumns = `id, title, original_filename, file_key, file_size_bytes, file_hash,
	 doc_type, department, total_pages, total_chunks, has_tables, status, processing_error,
	 uploaded_at, processed_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, title, original_filename, file_key, file_size_bytes, file_hash, doc_type, department, total_pages, total_chunks, has_tables, status, processing_error, uploaded_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		d.ID, d.Title, d.OriginalFilename, d.FileKey, d.FileSizeBytes, nullableString(d.FileHash),
		nullableString(d.DocType), nullableString(d.Department), d.TotalPages, d.TotalChunks,
		d.HasTables, d.Status, nullableString(d.ProcessingError), d.UploadedAt, d.ProcessedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`,
		id,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]*domain.Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ` + documentColumns + ` FROM documents ORDER BY uploaded_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateStatus moves a document through its processing lifecycle. Reaching a
// terminal status stamps processed_at.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, processingError string) error {
	if !status.IsValid() {
		return domain.ErrInvalidStatus
	}

	var processedAt *time.Time
	if status == domain.DocumentStatusCompleted || status == domain.DocumentStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, processing_error = $2, processed_at = COALESCE($3, processed_at) WHERE id = $4`,
		status, nullableString(processingError), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// UpdateChunkStats records what chunking produced for the document.
func (r *DocumentRepository) UpdateChunkStats(ctx context.Context, id string, totalChunks, totalPages int, hasTables bool) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET total_chunks = $1, total_pages = $2, has_tables = $3 WHERE id = $4`,
		totalChunks, totalPages, hasTables, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Delete removes a document; chunks and jobs go with it via ON DELETE CASCADE.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var fileHash, docType, department, processingError *string
	if err := row.Scan(
		&d.ID, &d.Title, &d.OriginalFilename, &d.FileKey, &d.FileSizeBytes, &fileHash,
		&docType, &department, &d.TotalPages, &d.TotalChunks, &d.HasTables, &d.Status,
		&processingError, &d.UploadedAt, &d.ProcessedAt,
	); err != nil {
		return nil, err
	}
	if fileHash != nil {
		d.FileHash = *fileHash
	}
	if docType != nil {
		d.DocType = *docType
	}
	if department != nil {
		d.Department = *department
	}
	if processingError != nil {
		d.ProcessingError = *processingError
	}
	return &d, nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/mentanova-ai/mentanova/internal/domain"
)

// chunkColumns is the select list shared by every chunk query. Document
// attributes ride along so retrieval never needs a second round trip.
const chunkColumns = `c.id, c.document_id, c.chunk_index, c.content, c.token_count, c.chunk_type,
	 c.page_numbers, c.section_title, c.metadata, c.created_at,
	 d.title, d.doc_type, d.department`

// ChunkRepository handles persistence and search of document chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

func (r *ChunkRepository) Create(ctx context.Context, c *domain.Chunk) error {
	if c.ID == "" || c.DocumentID == "" || c.Content == "" {
		return domain.ErrMissingRequiredData
	}
	chunkType := c.ChunkType
	if chunkType == "" {
		chunkType = domain.ChunkTypeText
	}
	if !chunkType.IsValid() {
		return domain.ErrInvalidChunkType
	}

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var embedding any
	if len(c.Embedding) > 0 {
		embedding = pgvector.NewVector(c.Embedding)
	}

	var metadata []byte
	if len(c.Metadata.Extra) > 0 {
		metadata, _ = json.Marshal(c.Metadata.Extra)
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO document_chunks (id, document_id, chunk_index, content, token_count, chunk_type, page_numbers, section_title, embedding, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.DocumentID, c.ChunkIndex, c.Content, c.TokenCount, chunkType,
		c.PageNumbers, nullableString(c.SectionTitle), embedding, metadata, createdAt,
	)
	return err
}

func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*domain.Chunk, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+chunkColumns+`
		 FROM document_chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE c.id = $1`,
		id,
	)
	chunk, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return chunk, nil
}

// SearchSemantic runs cosine similarity search over embedded chunks of
// completed documents. Similarity is 1 - cosine distance; rows below the
// threshold are excluded, not padded.
func (r *ChunkRepository) SearchSemantic(ctx context.Context, embedding []float32, limit int, threshold float64, filters domain.SearchFilters) ([]domain.ScoredChunk, error) {
	args := []any{pgvector.NewVector(embedding), threshold}
	where := []string{
		"d.status = 'completed'",
		"c.embedding IS NOT NULL",
		"1 - (c.embedding <=> $1) >= $2",
	}
	where, args = appendFilters(where, args, filters)
	args = append(args, limit)

	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+`, 1 - (c.embedding <=> $1) AS similarity
		 FROM document_chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY similarity DESC, c.id ASC
		 LIMIT $`+fmt.Sprint(len(args)),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScoredChunks(rows)
}

// SearchLexical runs full-text plus trigram search over chunks of completed
// documents. Ties on score are broken by upload recency so fresher documents
// win, then by chunk id for determinism.
func (r *ChunkRepository) SearchLexical(ctx context.Context, query string, limit int, filters domain.SearchFilters) ([]domain.ScoredChunk, error) {
	args := []any{query}
	where := []string{
		"d.status = 'completed'",
		"(c.content_tsv @@ plainto_tsquery('english', $1) OR c.content % $1)",
	}
	where, args = appendFilters(where, args, filters)
	args = append(args, limit)

	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+`,
		        ts_rank_cd(c.content_tsv, plainto_tsquery('english', $1)) + similarity(c.content, $1) AS score
		 FROM document_chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY score DESC, d.uploaded_at DESC, c.id ASC
		 LIMIT $`+fmt.Sprint(len(args)),
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScoredChunks(rows)
}

// GetNeighbors returns the chunks within [chunkIndex-before, chunkIndex+after]
// of a document, including the anchor position, ordered by index. A missing
// document yields ErrDocumentNotFound so callers can tell deletion apart from
// an empty window.
func (r *ChunkRepository) GetNeighbors(ctx context.Context, documentID string, chunkIndex, before, after int) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+`
		 FROM document_chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE c.document_id = $1 AND c.chunk_index BETWEEN $2 AND $3
		 ORDER BY c.chunk_index ASC`,
		documentID, chunkIndex-before, chunkIndex+after,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks, err := scanChunkRows(rows)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE id = $1)`, documentID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.ErrDocumentNotFound
		}
	}
	return chunks, nil
}

func (r *ChunkRepository) ListMissingEmbeddings(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+`
		 FROM document_chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE c.document_id = $1 AND c.embedding IS NULL
		 ORDER BY c.chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE document_chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`,
		documentID,
	).Scan(&count)
	return count, err
}

// appendFilters adds the optional search filters as WHERE clauses. Positional
// parameters continue from the current argument count.
func appendFilters(where []string, args []any, filters domain.SearchFilters) ([]string, []any) {
	if filters.DocType != "" {
		args = append(args, filters.DocType)
		where = append(where, fmt.Sprintf("d.doc_type = $%d", len(args)))
	}
	if filters.Department != "" {
		args = append(args, filters.Department)
		where = append(where, fmt.Sprintf("d.department = $%d", len(args)))
	}
	if len(filters.DocumentIDs) > 0 {
		args = append(args, filters.DocumentIDs)
		where = append(where, fmt.Sprintf("c.document_id = ANY($%d)", len(args)))
	}
	return where, args
}

func scanChunk(row pgx.Row) (*domain.Chunk, error) {
	var c domain.Chunk
	var sectionTitle *string
	var metadata []byte
	if err := row.Scan(
		&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.TokenCount, &c.ChunkType,
		&c.PageNumbers, &sectionTitle, &metadata, &c.CreatedAt,
		&c.Metadata.DocumentTitle, &c.Metadata.DocType, &c.Metadata.Department,
	); err != nil {
		return nil, err
	}
	if sectionTitle != nil {
		c.SectionTitle = *sectionTitle
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata.Extra); err != nil {
			return nil, fmt.Errorf("failed to decode chunk metadata: %w", err)
		}
	}
	return &c, nil
}

func scanChunkRows(rows pgx.Rows) ([]*domain.Chunk, error) {
	var chunks []*domain.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func scanScoredChunks(rows pgx.Rows) ([]domain.ScoredChunk, error) {
	var results []domain.ScoredChunk
	for rows.Next() {
		var c domain.Chunk
		var sectionTitle *string
		var metadata []byte
		var score float64
		if err := rows.Scan(
			&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.TokenCount, &c.ChunkType,
			&c.PageNumbers, &sectionTitle, &metadata, &c.CreatedAt,
			&c.Metadata.DocumentTitle, &c.Metadata.DocType, &c.Metadata.Department,
			&score,
		); err != nil {
			return nil, err
		}
		if sectionTitle != nil {
			c.SectionTitle = *sectionTitle
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &c.Metadata.Extra); err != nil {
				return nil, fmt.Errorf("failed to decode chunk metadata: %w", err)
			}
		}
		results = append(results, domain.ScoredChunk{Chunk: &c, Score: score})
	}
	return results, rows.Err()
}

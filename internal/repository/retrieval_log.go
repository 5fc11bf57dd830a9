package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentanova-ai/mentanova/internal/domain"
)

// RetrievalLogRepository stores retrieval logs for relevance tuning.
type RetrievalLogRepository struct {
	db dbtx
}

func NewRetrievalLogRepository(pool *pgxpool.Pool) *RetrievalLogRepository {
	return &RetrievalLogRepository{db: pool}
}

func (r *RetrievalLogRepository) Record(ctx context.Context, entry *domain.RetrievalLogEntry) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO retrieval_logs (query, intent, strategy, complexity, semantic_count, keyword_count, total_retrieved, final_chunks, total_tokens, rerank_applied, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		entry.Query, entry.Intent, entry.Strategy, entry.Complexity,
		entry.SemanticCount, entry.KeywordCount, entry.TotalRetrieved, entry.FinalChunks,
		entry.TotalTokens, entry.RerankApplied, entry.DurationMs,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// Recent returns the newest log entries, most recent first.
func (r *RetrievalLogRepository) Recent(ctx context.Context, limit int) ([]*domain.RetrievalLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, query, intent, strategy, complexity, semantic_count, keyword_count, total_retrieved, final_chunks, total_tokens, rerank_applied, duration_ms, created_at
		 FROM retrieval_logs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.RetrievalLogEntry
	for rows.Next() {
		var e domain.RetrievalLogEntry
		if err := rows.Scan(
			&e.ID, &e.Query, &e.Intent, &e.Strategy, &e.Complexity,
			&e.SemanticCount, &e.KeywordCount, &e.TotalRetrieved, &e.FinalChunks,
			&e.TotalTokens, &e.RerankApplied, &e.DurationMs, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

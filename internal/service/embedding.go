package service

import (
	"context"
	"fmt"
	"log"

	"github.com/mentanova-ai/mentanova/internal/domain"
)

// ChunkEmbeddingStore is the persistence surface the backfill needs.
type ChunkEmbeddingStore interface {
	ListMissingEmbeddings(ctx context.Context, documentID string) ([]*domain.Chunk, error)
	UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error
}

// DocumentStatusUpdater flips a document's processing status.
type DocumentStatusUpdater interface {
	UpdateStatus(ctx context.Context, documentID string, status domain.DocumentStatus, processingError string) error
}

// EmbeddingService backfills embeddings for a document's chunks. Once every
// chunk carries a vector the document is marked completed and enters the
// searchable set.
type EmbeddingService struct {
	chunks    ChunkEmbeddingStore
	documents DocumentStatusUpdater
	embedder  Embedder
}

// NewEmbeddingService creates the backfill service.
func NewEmbeddingService(chunks ChunkEmbeddingStore, documents DocumentStatusUpdater, embedder Embedder) *EmbeddingService {
	return &EmbeddingService{chunks: chunks, documents: documents, embedder: embedder}
}

// EmbedDocumentChunks embeds every chunk of the document that is still
// missing a vector, then marks the document completed. Chunks are processed
// sequentially; the embedding provider applies its own rate limits and a
// document rarely has more than a few hundred chunks.
func (s *EmbeddingService) EmbedDocumentChunks(ctx context.Context, documentID string) error {
	if documentID == "" {
		return domain.ErrInvalidDocumentID
	}

	chunks, err := s.chunks.ListMissingEmbeddings(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to list chunks missing embeddings: %w", err)
	}

	if len(chunks) > 0 {
		log.Printf("embedding: document %s has %d chunks to embed", documentID, len(chunks))
	}

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}

		embedding, err := s.embedder.GenerateEmbedding(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %s: %w", chunk.ID, err)
		}
		if len(embedding) != domain.EmbeddingDimensions {
			return domain.ErrWrongEmbeddingDims
		}
		if err := s.chunks.UpdateEmbedding(ctx, chunk.ID, embedding); err != nil {
			return fmt.Errorf("failed to store embedding for chunk %s: %w", chunk.ID, err)
		}
	}

	if err := s.documents.UpdateStatus(ctx, documentID, domain.DocumentStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}

	return nil
}

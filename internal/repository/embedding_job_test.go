//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentanova-ai/mentanova/internal/domain"
	"github.com/mentanova-ai/mentanova/internal/testutil"
)

func createTestJob(ctx context.Context, t *testing.T, repo *EmbeddingJobRepository, documentID string) *domain.EmbeddingJob {
	job := &domain.EmbeddingJob{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Status:     domain.EmbeddingJobStatusPending,
	}
	require.NoError(t, repo.Create(ctx, job))
	return job
}

func TestEmbeddingJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	doc := createTestDocument(ctx, t, docRepo, domain.DocumentStatusProcessing)
	job := createTestJob(ctx, t, jobRepo, doc.ID)

	claimed, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, job.ID, claimed[0].ID)
	assert.Equal(t, domain.EmbeddingJobStatusProcessing, claimed[0].Status)

	// A second claim finds nothing; the job is no longer pending.
	claimed, err = jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestEmbeddingJobRepository_StatusAndRetries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	doc := createTestDocument(ctx, t, docRepo, domain.DocumentStatusProcessing)
	job := createTestJob(ctx, t, jobRepo, doc.ID)

	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))
	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, "embedding API down"))

	got, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingJobStatusFailed, got.Status)
	assert.Equal(t, 1, got.Retries)
	assert.Equal(t, "embedding API down", got.ErrorMessage)

	err = jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatus("bogus"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidJobStatus)

	err = jobRepo.UpdateStatus(ctx, uuid.NewString(), domain.EmbeddingJobStatusCompleted, "")
	assert.ErrorIs(t, err, ErrEmbeddingJobNotFound)
}

func TestEmbeddingJobRepository_DeletedDocumentCascades(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	doc := createTestDocument(ctx, t, docRepo, domain.DocumentStatusPending)
	job := createTestJob(ctx, t, jobRepo, doc.ID)

	require.NoError(t, docRepo.Delete(ctx, doc.ID))

	_, err := jobRepo.GetByID(ctx, job.ID)
	assert.ErrorIs(t, err, ErrEmbeddingJobNotFound)
}

package domain

import "time"

// EmbeddingJobStatus represents the status of a chunk-embedding backfill job.
type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingJobStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingJobStatusCompleted  EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed     EmbeddingJobStatus = "failed"
)

// IsValid checks if the job status is one of the known values.
func (s EmbeddingJobStatus) IsValid() bool {
	switch s {
	case EmbeddingJobStatusPending, EmbeddingJobStatusProcessing, EmbeddingJobStatusCompleted, EmbeddingJobStatusFailed:
		return true
	}
	return false
}

// EmbeddingJob queues a document whose chunks still need embeddings. Jobs are
// claimed by the background worker; once every chunk carries an embedding the
// document flips to completed and becomes searchable.
type EmbeddingJob struct {
	ID           string
	DocumentID   string
	Status       EmbeddingJobStatus
	Retries      int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

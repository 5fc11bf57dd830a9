package domain

import "time"

// DocumentStatus represents the processing lifecycle of an uploaded document.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// IsValid checks if the document status is one of the known values.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing, DocumentStatusCompleted, DocumentStatusFailed:
		return true
	}
	return false
}

// Document owns an ordered set of chunks. Only completed documents are
// searchable by the retrieval pipeline.
type Document struct {
	ID               string
	Title            string
	OriginalFilename string
	FileKey          string
	FileSizeBytes    int64
	FileHash         string
	DocType          string
	Department       string
	TotalPages       int
	TotalChunks      int
	HasTables        bool
	Status           DocumentStatus
	ProcessingError  string
	UploadedAt       time.Time
	ProcessedAt      *time.Time
}

// Searchable reports whether the document's chunks are eligible for retrieval.
func (d *Document) Searchable() bool {
	return d.Status == DocumentStatusCompleted
}

package domain

import "time"

// ChunkType tags how a chunk's content should be treated during assembly.
type ChunkType string

const (
	ChunkTypeText    ChunkType = "text"
	ChunkTypeTable   ChunkType = "table"
	ChunkTypeSummary ChunkType = "summary"
	ChunkTypeHeader  ChunkType = "header"
)

// IsValid checks if the chunk type is one of the known values.
func (t ChunkType) IsValid() bool {
	switch t {
	case ChunkTypeText, ChunkTypeTable, ChunkTypeSummary, ChunkTypeHeader:
		return true
	}
	return false
}

// EmbeddingDimensions is the fixed dimension of chunk embeddings system-wide.
const EmbeddingDimensions = 1536

// ChunkMetadata carries denormalized document attributes alongside a chunk.
// Extra holds open-ended extension data (e.g. table headers) without giving up
// typed access to the known fields.
type ChunkMetadata struct {
	DocumentTitle string
	DocType       string
	Department    string
	Extra         map[string]string
}

// Chunk is the smallest retrievable unit of document text. Chunks are
// immutable once their document reaches completed status; sequence indexes
// are unique and contiguous per document.
type Chunk struct {
	ID           string
	DocumentID   string
	ChunkIndex   int
	Content      string
	TokenCount   int
	ChunkType    ChunkType
	PageNumbers  []int
	SectionTitle string
	Embedding    []float32
	Metadata     ChunkMetadata
	CreatedAt    time.Time
}

package domain

import "time"

// RetrievalLogEntry is one persisted record of a retrieval call, kept for
// relevance tuning and usage analysis.
type RetrievalLogEntry struct {
	ID             string
	Query          string
	Intent         string
	Strategy       string
	Complexity     string
	SemanticCount  int
	KeywordCount   int
	TotalRetrieved int
	FinalChunks    int
	TotalTokens    int
	RerankApplied  bool
	DurationMs     int64
	CreatedAt      time.Time
}

package domain

// SearchFilters narrows both search channels to a slice of the corpus. Zero
// values mean no filtering on that attribute.
type SearchFilters struct {
	DocType     string
	Department  string
	DocumentIDs []string
}

// ScoredChunk pairs a chunk with its channel-native relevance score: cosine
// similarity for the semantic channel, lexical rank score for keyword search.
// Channel scores are not comparable across channels; fusion works on ranks.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// RankedCandidate is the pipeline-internal view of a chunk as it moves through
// the search channels, fusion, expansion, and reranking. It is created when a
// chunk first appears in any channel's result list and discarded when the
// retrieval call returns.
type RankedCandidate struct {
	Chunk *Chunk

	// Per-channel observability. A rank of 0 means the chunk was absent from
	// that channel's result list.
	SemanticRank  int
	SemanticScore float64
	KeywordRank   int
	KeywordScore  float64

	FusedScore  float64
	RerankScore float64
	Reranked    bool

	// IsTarget distinguishes originally retrieved chunks from neighbors pulled
	// in by context expansion.
	IsTarget      bool
	ParentChunkID string
}

// Methods lists the channels that retrieved this candidate.
func (c *RankedCandidate) Methods() []string {
	var methods []string
	if c.SemanticRank > 0 {
		methods = append(methods, "semantic")
	}
	if c.KeywordRank > 0 {
		methods = append(methods, "keyword")
	}
	return methods
}

// Score returns the ordering score in effect: the rerank score once the
// reranker has run, otherwise the fused score.
func (c *RankedCandidate) Score() float64 {
	if c.Reranked {
		return c.RerankScore
	}
	return c.FusedScore
}

// Source identifies where a packed chunk came from, for attribution.
type Source struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
	Section  string `json:"section,omitempty"`
	ChunkID  string `json:"chunk_id"`
}

// RerankStats summarizes reranker scores for observability.
type RerankStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// RetrievalMetadata records what the pipeline did for one query.
type RetrievalMetadata struct {
	Strategy       string       `json:"search_strategy"`
	Intent         string       `json:"intent"`
	Complexity     string       `json:"complexity"`
	SemanticCount  int          `json:"semantic_count"`
	KeywordCount   int          `json:"keyword_count"`
	TotalRetrieved int          `json:"total_retrieved"`
	AfterRerank    int          `json:"after_reranking"`
	FinalChunks    int          `json:"final_chunks"`
	Expanded       bool         `json:"expanded"`
	RerankApplied  bool         `json:"rerank_applied"`
	RerankStats    *RerankStats `json:"rerank_stats,omitempty"`
	DurationMs     int64        `json:"duration_ms"`
}

// RetrievalResult is the pipeline's output: the final ordered chunk list, the
// assembled context string bounded by the token budget, and source
// attribution. Created fresh per query and owned by the caller.
type RetrievalResult struct {
	Query       string
	Chunks      []*RankedCandidate
	ContextText string
	TotalTokens int
	Sources     []Source
	Metadata    RetrievalMetadata
}

package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mentanova-ai/mentanova/internal/domain"
	"github.com/mentanova-ai/mentanova/internal/telemetry"
)

const (
	// DefaultTopK is the candidate cap applied after fusion.
	DefaultTopK = 20
	// MaxTopK bounds caller-supplied result caps.
	MaxTopK = 100
	// DefaultSimilarityThreshold is the minimum cosine similarity for the
	// semantic channel.
	DefaultSimilarityThreshold = 0.7
)

// Embedder turns query text into a vector for the semantic channel.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearcher runs the two search channels against the chunk store.
type ChunkSearcher interface {
	SearchSemantic(ctx context.Context, embedding []float32, limit int, threshold float64, filters domain.SearchFilters) ([]domain.ScoredChunk, error)
	SearchLexical(ctx context.Context, query string, limit int, filters domain.SearchFilters) ([]domain.ScoredChunk, error)
}

// RetrievalLogRecorder persists one log entry per retrieval call. Recording
// is best-effort; a failure never affects the retrieval result.
type RetrievalLogRecorder interface {
	Record(ctx context.Context, entry *domain.RetrievalLogEntry) error
}

// RetrieveInput is a single retrieval request.
type RetrieveInput struct {
	Query         string
	TopK          int
	Filters       domain.SearchFilters
	ExpandContext bool
}

// PipelineConfig tunes the retrieval pipeline.
type PipelineConfig struct {
	TopK                int
	SimilarityThreshold float64
}

// Pipeline runs the full retrieval flow: query analysis, the two search
// channels in parallel, rank fusion, neighbor expansion, reranking, and
// context assembly. One search channel failing is absorbed; only when every
// channel that ran has failed does the call error.
type Pipeline struct {
	processor *QueryProcessor
	embedder  Embedder
	searcher  ChunkSearcher
	fusion    *Fusion
	expander  *ContextExpander
	reranker  *Reranker
	assembler *ContextAssembler
	logs      RetrievalLogRecorder

	topK      int
	threshold float64
}

// NewPipeline wires the pipeline stages. logs may be nil to disable retrieval
// logging.
func NewPipeline(
	processor *QueryProcessor,
	embedder Embedder,
	searcher ChunkSearcher,
	fusion *Fusion,
	expander *ContextExpander,
	reranker *Reranker,
	assembler *ContextAssembler,
	logs RetrievalLogRecorder,
	cfg PipelineConfig,
) *Pipeline {
	if cfg.TopK <= 0 || cfg.TopK > MaxTopK {
		cfg.TopK = DefaultTopK
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold >= 1 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return &Pipeline{
		processor: processor,
		embedder:  embedder,
		searcher:  searcher,
		fusion:    fusion,
		expander:  expander,
		reranker:  reranker,
		assembler: assembler,
		logs:      logs,
		topK:      cfg.TopK,
		threshold: cfg.SimilarityThreshold,
	}
}

// Retrieve runs the pipeline for one query.
func (p *Pipeline) Retrieve(ctx context.Context, input RetrieveInput) (*domain.RetrievalResult, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if input.TopK < 0 || input.TopK > MaxTopK {
		return nil, domain.ErrInvalidResultCap
	}
	if input.TopK == 0 {
		input.TopK = p.topK
	}

	processed := p.processor.Process(input.Query)
	return p.run(ctx, input, processed, processed.Strategy)
}

// RetrieveFromDocument runs a semantic-only retrieval scoped to a single
// document, regardless of what strategy the query text suggests.
func (p *Pipeline) RetrieveFromDocument(ctx context.Context, documentID string, input RetrieveInput) (*domain.RetrievalResult, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.ErrInvalidDocumentID
	}
	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if input.TopK < 0 || input.TopK > MaxTopK {
		return nil, domain.ErrInvalidResultCap
	}
	if input.TopK == 0 {
		input.TopK = p.topK
	}
	input.Filters.DocumentIDs = []string{documentID}

	processed := p.processor.Process(input.Query)
	return p.run(ctx, input, processed, StrategySemantic)
}

func (p *Pipeline) run(ctx context.Context, input RetrieveInput, processed ProcessedQuery, strategy SearchStrategy) (*domain.RetrievalResult, error) {
	started := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "retrieval.pipeline", telemetry.SpanAttributes{
		Strategy: string(strategy),
		Intent:   string(processed.Intent),
	})
	defer span.End()

	semantic, keyword, err := p.search(ctx, input, strategy)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	fused := p.fusion.Fuse(semantic, keyword)
	totalRetrieved := len(fused)
	if len(fused) > input.TopK {
		fused = fused[:input.TopK]
	}

	candidates := fused
	expanded := false
	if input.ExpandContext && p.expander != nil {
		candidates, err = p.expander.Expand(ctx, fused)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		expanded = true
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcome := p.reranker.Rerank(ctx, processed.Raw, candidates)

	assembled := p.assembler.Assemble(processed, outcome.Candidates)

	result := &domain.RetrievalResult{
		Query:       input.Query,
		Chunks:      assembled.Chunks,
		ContextText: assembled.Text,
		TotalTokens: assembled.TotalTokens,
		Sources:     assembled.Sources,
		Metadata: domain.RetrievalMetadata{
			Strategy:       string(strategy),
			Intent:         string(processed.Intent),
			Complexity:     string(processed.Complexity),
			SemanticCount:  len(semantic),
			KeywordCount:   len(keyword),
			TotalRetrieved: totalRetrieved,
			AfterRerank:    len(outcome.Candidates),
			FinalChunks:    len(assembled.Chunks),
			Expanded:       expanded,
			RerankApplied:  outcome.Applied,
			RerankStats:    outcome.Stats,
			DurationMs:     time.Since(started).Milliseconds(),
		},
	}

	p.recordLog(ctx, result)

	return result, nil
}

// search runs the channels the strategy calls for. A single channel failing
// is logged and absorbed; the call errors only when nothing succeeded.
func (p *Pipeline) search(ctx context.Context, input RetrieveInput, strategy SearchStrategy) (semantic, keyword []domain.ScoredChunk, err error) {
	runSemantic := strategy != StrategyKeyword
	runKeyword := strategy != StrategySemantic

	var semanticErr, keywordErr error

	g, gctx := errgroup.WithContext(ctx)
	if runSemantic {
		g.Go(func() error {
			embedding, embErr := p.embedder.GenerateEmbedding(gctx, input.Query)
			if embErr != nil {
				semanticErr = fmt.Errorf("embed query: %w", embErr)
				return nil
			}
			// Over-fetch so fusion has a deeper pool to overlap with the
			// keyword channel; the result cap is applied after fusion.
			semantic, semanticErr = p.searcher.SearchSemantic(gctx, embedding, input.TopK*2, p.threshold, input.Filters)
			return nil
		})
	}
	if runKeyword {
		g.Go(func() error {
			keyword, keywordErr = p.searcher.SearchLexical(gctx, input.Query, input.TopK, input.Filters)
			return nil
		})
	}
	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, waitErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, nil, ctxErr
	}

	if semanticErr != nil {
		log.Printf("retrieval: semantic channel failed: %v", semanticErr)
		telemetry.CaptureError(ctx, semanticErr)
	}
	if keywordErr != nil {
		log.Printf("retrieval: keyword channel failed: %v", keywordErr)
		telemetry.CaptureError(ctx, keywordErr)
	}

	semanticFailed := runSemantic && semanticErr != nil
	keywordFailed := runKeyword && keywordErr != nil
	if (semanticFailed || !runSemantic) && (keywordFailed || !runKeyword) {
		return nil, nil, domain.ErrSearchUnavailable
	}

	return semantic, keyword, nil
}

func (p *Pipeline) recordLog(ctx context.Context, result *domain.RetrievalResult) {
	if p.logs == nil {
		return
	}
	entry := &domain.RetrievalLogEntry{
		Query:          result.Query,
		Intent:         result.Metadata.Intent,
		Strategy:       result.Metadata.Strategy,
		Complexity:     result.Metadata.Complexity,
		SemanticCount:  result.Metadata.SemanticCount,
		KeywordCount:   result.Metadata.KeywordCount,
		TotalRetrieved: result.Metadata.TotalRetrieved,
		FinalChunks:    result.Metadata.FinalChunks,
		TotalTokens:    result.TotalTokens,
		RerankApplied:  result.Metadata.RerankApplied,
		DurationMs:     result.Metadata.DurationMs,
	}
	if err := p.logs.Record(ctx, entry); err != nil {
		log.Printf("retrieval: failed to record retrieval log: %v", err)
	}
}

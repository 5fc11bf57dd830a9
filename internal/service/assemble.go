package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mentanova-ai/mentanova/internal/domain"
	"github.com/mentanova-ai/mentanova/internal/tokens"
)

const (
	// DefaultMaxContextTokens bounds the assembled context string.
	DefaultMaxContextTokens = 12000

	// tableBoost lifts table chunks above every rank-based score when the
	// query looks numeric. Rerank and fused scores both live well below 1000.
	tableBoost = 1000.0

	blockSeparator = "\n\n---\n\n"
)

// AssembledContext is the assembler's output: the packed context string, the
// chunks that made it in (in packed order), and source attribution.
type AssembledContext struct {
	Text        string
	TotalTokens int
	Chunks      []*domain.RankedCandidate
	Sources     []domain.Source
}

// ContextAssembler turns ranked candidates into a single prompt-ready context
// string bounded by a token budget. Chunks are packed greedily in priority
// order; packing stops at the first chunk that would overflow the budget, a
// chunk is never truncated mid-text.
type ContextAssembler struct {
	counter   tokens.Counter
	maxTokens int
}

// NewContextAssembler builds an assembler. A nil counter falls back to the
// character estimator; a non-positive budget falls back to the default.
func NewContextAssembler(counter tokens.Counter, maxTokens int) *ContextAssembler {
	if counter == nil {
		counter = tokens.EstimateCounter{}
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	return &ContextAssembler{counter: counter, maxTokens: maxTokens}
}

// Assemble packs candidates into the token budget. Table chunks are boosted
// to the front when the query is financial or analytical in nature or carries
// a monetary amount, since tables answer numeric questions better than prose.
func (a *ContextAssembler) Assemble(query ProcessedQuery, candidates []*domain.RankedCandidate) AssembledContext {
	prioritized := make([]*domain.RankedCandidate, len(candidates))
	copy(prioritized, candidates)

	boostTables := query.Intent == IntentFinancial || query.Intent == IntentAnalytical || query.Entities.HasAmount()
	priority := func(cand *domain.RankedCandidate) float64 {
		p := cand.Score()
		if boostTables && cand.Chunk.ChunkType == domain.ChunkTypeTable {
			p += tableBoost
		}
		return p
	}
	sort.SliceStable(prioritized, func(i, j int) bool {
		return priority(prioritized[i]) > priority(prioritized[j])
	})

	var (
		blocks  []string
		packed  []*domain.RankedCandidate
		total   int
		sources []domain.Source
		seen    = make(map[domain.Source]bool)
	)
	for _, cand := range prioritized {
		block := formatBlock(cand.Chunk)
		cost := a.counter.Count(block)
		if len(blocks) > 0 {
			cost += a.counter.Count(blockSeparator)
		}
		if total+cost > a.maxTokens {
			break
		}
		total += cost
		blocks = append(blocks, block)
		packed = append(packed, cand)

		src := sourceOf(cand.Chunk)
		if !seen[src] {
			seen[src] = true
			sources = append(sources, src)
		}
	}

	return AssembledContext{
		Text:        strings.Join(blocks, blockSeparator),
		TotalTokens: total,
		Chunks:      packed,
		Sources:     sources,
	}
}

func formatBlock(chunk *domain.Chunk) string {
	var parts []string
	if chunk.Metadata.DocumentTitle != "" {
		parts = append(parts, fmt.Sprintf("Document: %s", chunk.Metadata.DocumentTitle))
	}
	if chunk.SectionTitle != "" {
		parts = append(parts, fmt.Sprintf("Section: %s", chunk.SectionTitle))
	}
	switch pages := chunk.PageNumbers; len(pages) {
	case 0:
	case 1:
		parts = append(parts, fmt.Sprintf("Page: %d", pages[0]))
	default:
		parts = append(parts, fmt.Sprintf("Pages: %d-%d", pages[0], pages[len(pages)-1]))
	}
	if chunk.ChunkType != "" && chunk.ChunkType != domain.ChunkTypeText {
		parts = append(parts, "Type: "+typeLabel(chunk.ChunkType))
	}
	if len(parts) == 0 {
		return chunk.Content
	}
	return "[" + strings.Join(parts, " | ") + "]\n" + chunk.Content
}

func typeLabel(t domain.ChunkType) string {
	s := string(t)
	return strings.ToUpper(s[:1]) + s[1:]
}

func sourceOf(chunk *domain.Chunk) domain.Source {
	page := 0
	if len(chunk.PageNumbers) > 0 {
		page = chunk.PageNumbers[0]
	}
	return domain.Source{
		Document: chunk.Metadata.DocumentTitle,
		Page:     page,
		Section:  chunk.SectionTitle,
		ChunkID:  chunk.ID,
	}
}

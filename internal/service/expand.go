package service

import (
	"context"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/mentanova-ai/mentanova/internal/domain"
)

const (
	// DefaultExpandTopN is how many fused candidates get neighbor expansion.
	DefaultExpandTopN = 5
	// DefaultExpandWorkers bounds concurrent neighbor fetches.
	DefaultExpandWorkers = 4
)

// NeighborFetcher loads the chunks adjacent to a position within a document.
type NeighborFetcher interface {
	GetNeighbors(ctx context.Context, documentID string, chunkIndex, before, after int) ([]*domain.Chunk, error)
}

// ContextExpander widens the top fused candidates with their document
// neighbors so the assembled context does not cut off mid-thought. Neighbor
// fetches run concurrently with a bounded worker count; a fetch failure (for
// example the document was deleted mid-flight) is absorbed and the candidate
// passes through unexpanded.
type ContextExpander struct {
	neighbors NeighborFetcher

	topN    int
	before  int
	after   int
	workers int
}

// NewContextExpander wires an expander over the given fetcher. Non-positive
// tuning values fall back to defaults; before/after may be zero.
func NewContextExpander(neighbors NeighborFetcher, topN, before, after, workers int) *ContextExpander {
	if topN <= 0 {
		topN = DefaultExpandTopN
	}
	if before < 0 {
		before = 0
	}
	if after < 0 {
		after = 0
	}
	if workers <= 0 {
		workers = DefaultExpandWorkers
	}
	return &ContextExpander{
		neighbors: neighbors,
		topN:      topN,
		before:    before,
		after:     after,
		workers:   workers,
	}
}

// Expand returns a new candidate list where each of the top-N candidates is
// replaced by its neighbor group ordered by chunk index, followed by the
// remaining candidates unchanged. A chunk already present in the list is never
// added again, first appearance wins.
func (e *ContextExpander) Expand(ctx context.Context, candidates []*domain.RankedCandidate) ([]*domain.RankedCandidate, error) {
	n := e.topN
	if n > len(candidates) {
		n = len(candidates)
	}
	if n == 0 || (e.before == 0 && e.after == 0) {
		return candidates, nil
	}

	// One result slot per expanded candidate keeps the output order
	// independent of goroutine scheduling.
	groups := make([][]*domain.Chunk, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			target := candidates[i].Chunk
			chunks, err := e.neighbors.GetNeighbors(gctx, target.DocumentID, target.ChunkIndex, e.before, e.after)
			if err != nil {
				log.Printf("expand: neighbor fetch failed for chunk %s (document %s): %v", target.ID, target.DocumentID, err)
				return nil
			}
			groups[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		seen[cand.Chunk.ID] = true
	}

	expanded := make([]*domain.RankedCandidate, 0, len(candidates)+n*(e.before+e.after))
	for i := 0; i < n; i++ {
		target := candidates[i]
		group := []*domain.RankedCandidate{target}
		for _, chunk := range groups[i] {
			if chunk.ID == target.Chunk.ID || seen[chunk.ID] {
				continue
			}
			seen[chunk.ID] = true
			group = append(group, &domain.RankedCandidate{
				Chunk:         chunk,
				FusedScore:    target.FusedScore,
				IsTarget:      false,
				ParentChunkID: target.Chunk.ID,
			})
		}
		sort.SliceStable(group, func(a, b int) bool {
			return group[a].Chunk.ChunkIndex < group[b].Chunk.ChunkIndex
		})
		expanded = append(expanded, group...)
	}
	expanded = append(expanded, candidates[n:]...)

	return expanded, nil
}

package service

import (
	"sort"

	"github.com/mentanova-ai/mentanova/internal/domain"
)

const (
	// DefaultRRFK is the standard rank smoothing constant for reciprocal
	// rank fusion.
	DefaultRRFK = 60
	// DefaultHybridAlpha weights the semantic channel over the keyword one.
	DefaultHybridAlpha = 0.7
)

// Fusion merges per-channel result lists into a single ranking with
// reciprocal rank fusion. Each chunk contributes alpha/(k+rank) from the
// semantic list and (1-alpha)/(k+rank) from the keyword list; absence from a
// channel simply contributes nothing. Channel-native scores never enter the
// fused score, they are kept on the candidate for observability only.
type Fusion struct {
	Alpha float64
	K     int
}

// NewFusion creates a fusion stage with the given weight and smoothing
// constant, substituting defaults for out-of-range values.
func NewFusion(alpha float64, k int) *Fusion {
	if alpha < 0 || alpha > 1 {
		alpha = DefaultHybridAlpha
	}
	if k <= 0 {
		k = DefaultRRFK
	}
	return &Fusion{Alpha: alpha, K: k}
}

// Fuse combines both channels' results into one deduplicated candidate list
// ordered by fused score descending, ties broken by chunk ID ascending so the
// ordering is deterministic. The returned list is never truncated; callers
// apply their own cap.
func (f *Fusion) Fuse(semantic, keyword []domain.ScoredChunk) []*domain.RankedCandidate {
	byID := make(map[string]*domain.RankedCandidate, len(semantic)+len(keyword))
	order := make([]string, 0, len(semantic)+len(keyword))

	get := func(chunk *domain.Chunk) *domain.RankedCandidate {
		if cand, ok := byID[chunk.ID]; ok {
			return cand
		}
		cand := &domain.RankedCandidate{Chunk: chunk, IsTarget: true}
		byID[chunk.ID] = cand
		order = append(order, chunk.ID)
		return cand
	}

	for i, hit := range semantic {
		cand := get(hit.Chunk)
		cand.SemanticRank = i + 1
		cand.SemanticScore = hit.Score
		cand.FusedScore += f.Alpha / float64(f.K+i+1)
	}
	for i, hit := range keyword {
		cand := get(hit.Chunk)
		cand.KeywordRank = i + 1
		cand.KeywordScore = hit.Score
		cand.FusedScore += (1 - f.Alpha) / float64(f.K+i+1)
	}

	fused := make([]*domain.RankedCandidate, 0, len(order))
	for _, id := range order {
		fused = append(fused, byID[id])
	}
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		return fused[i].Chunk.ID < fused[j].Chunk.ID
	})
	return fused
}

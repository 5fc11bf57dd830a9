package service

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mentanova-ai/mentanova/internal/domain"
)

const (
	// DefaultRerankTopN caps how many candidates survive reranking.
	DefaultRerankTopN = 8
	// DefaultRerankAttempts is the total number of tries per rerank call.
	DefaultRerankAttempts = 3

	rerankInitialInterval = 500 * time.Millisecond
	rerankMaxInterval     = 5 * time.Second
)

// RerankClient scores documents against a query, one score per document in
// input order.
type RerankClient interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
}

// RerankOutcome reports what the reranker did alongside the surviving
// candidates.
type RerankOutcome struct {
	Candidates []*domain.RankedCandidate
	Applied    bool
	Stats      *domain.RerankStats
}

// Reranker reorders fused candidates with a cross-encoder relevance model.
// The stage is strictly best-effort: when disabled, when there are fewer than
// two candidates, or when the provider keeps failing after retries, the fused
// order stands and the pipeline continues.
type Reranker struct {
	client   RerankClient
	enabled  bool
	topN     int
	attempts int
}

// NewReranker builds a reranker. A nil client behaves as disabled.
func NewReranker(client RerankClient, enabled bool, topN, attempts int) *Reranker {
	if topN <= 0 {
		topN = DefaultRerankTopN
	}
	if attempts <= 0 {
		attempts = DefaultRerankAttempts
	}
	if client == nil {
		enabled = false
	}
	return &Reranker{client: client, enabled: enabled, topN: topN, attempts: attempts}
}

// Rerank scores every candidate against the query, orders by relevance
// descending, and keeps the top N. When the stage is skipped or degrades, the
// input order is preserved and truncated to the same cap.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []*domain.RankedCandidate) RerankOutcome {
	if !r.enabled || len(candidates) < 2 {
		return RerankOutcome{Candidates: truncate(candidates, r.topN)}
	}

	documents := make([]string, len(candidates))
	for i, cand := range candidates {
		documents[i] = cand.Chunk.Content
	}

	scores, err := r.callWithRetry(ctx, query, documents)
	if err != nil {
		log.Printf("rerank: degraded to fused order after %d attempts: %v", r.attempts, err)
		return RerankOutcome{Candidates: truncate(candidates, r.topN)}
	}

	reranked := make([]*domain.RankedCandidate, len(candidates))
	copy(reranked, candidates)
	for i, cand := range reranked {
		cand.RerankScore = scores[i]
		cand.Reranked = true
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		if reranked[i].RerankScore != reranked[j].RerankScore {
			return reranked[i].RerankScore > reranked[j].RerankScore
		}
		return reranked[i].Chunk.ID < reranked[j].Chunk.ID
	})
	reranked = truncate(reranked, r.topN)

	return RerankOutcome{
		Candidates: reranked,
		Applied:    true,
		Stats:      scoreStats(reranked),
	}
}

func (r *Reranker) callWithRetry(ctx context.Context, query string, documents []string) ([]float64, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = rerankInitialInterval
	policy.MaxInterval = rerankMaxInterval

	var scores []float64
	operation := func() error {
		var err error
		scores, err = r.client.Rerank(ctx, query, documents)
		if err != nil {
			return err
		}
		if len(scores) != len(documents) {
			return backoff.Permanent(domain.ErrSearchUnavailable)
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.attempts-1)), ctx))
	if err != nil {
		return nil, err
	}
	return scores, nil
}

func truncate(candidates []*domain.RankedCandidate, n int) []*domain.RankedCandidate {
	if len(candidates) > n {
		return candidates[:n]
	}
	return candidates
}

func scoreStats(candidates []*domain.RankedCandidate) *domain.RerankStats {
	if len(candidates) == 0 {
		return nil
	}
	stats := &domain.RerankStats{Min: candidates[0].RerankScore, Max: candidates[0].RerankScore}
	var sum float64
	for _, cand := range candidates {
		score := cand.RerankScore
		if score < stats.Min {
			stats.Min = score
		}
		if score > stats.Max {
			stats.Max = score
		}
		sum += score
	}
	stats.Avg = sum / float64(len(candidates))
	return stats
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mentanova-ai/mentanova/internal/domain"
)

// MockNeighborFetcher is a mock implementation of NeighborFetcher
type MockNeighborFetcher struct {
	mock.Mock
}

func (m *MockNeighborFetcher) GetNeighbors(ctx context.Context, documentID string, chunkIndex, before, after int) ([]*domain.Chunk, error) {
	args := m.Called(ctx, documentID, chunkIndex, before, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

func indexedChunk(id, docID string, index int) *domain.Chunk {
	return &domain.Chunk{ID: id, DocumentID: docID, ChunkIndex: index, Content: "content " + id}
}

func target(c *domain.Chunk, fused float64) *domain.RankedCandidate {
	return &domain.RankedCandidate{Chunk: c, FusedScore: fused, IsTarget: true}
}

func TestContextExpander_Expand(t *testing.T) {
	ctx := context.Background()

	t.Run("neighbors are grouped around the target in index order", func(t *testing.T) {
		fetcher := new(MockNeighborFetcher)
		expander := NewContextExpander(fetcher, 5, 1, 1, 4)

		anchor := indexedChunk("c-5", "doc-1", 5)
		fetcher.On("GetNeighbors", mock.Anything, "doc-1", 5, 1, 1).Return([]*domain.Chunk{
			indexedChunk("c-4", "doc-1", 4),
			anchor,
			indexedChunk("c-6", "doc-1", 6),
		}, nil)

		out, err := expander.Expand(ctx, []*domain.RankedCandidate{target(anchor, 0.5)})
		require.NoError(t, err)
		require.Len(t, out, 3)

		assert.Equal(t, []string{"c-4", "c-5", "c-6"}, []string{out[0].Chunk.ID, out[1].Chunk.ID, out[2].Chunk.ID})
		assert.False(t, out[0].IsTarget)
		assert.True(t, out[1].IsTarget)
		assert.Equal(t, "c-5", out[0].ParentChunkID)
		assert.Equal(t, 0.5, out[0].FusedScore)
		fetcher.AssertExpectations(t)
	})

	t.Run("only the top N candidates are expanded", func(t *testing.T) {
		fetcher := new(MockNeighborFetcher)
		expander := NewContextExpander(fetcher, 1, 1, 1, 4)

		first := indexedChunk("a-1", "doc-a", 1)
		second := indexedChunk("b-1", "doc-b", 1)
		fetcher.On("GetNeighbors", mock.Anything, "doc-a", 1, 1, 1).Return([]*domain.Chunk{
			indexedChunk("a-0", "doc-a", 0),
			first,
		}, nil)

		out, err := expander.Expand(ctx, []*domain.RankedCandidate{target(first, 0.9), target(second, 0.1)})
		require.NoError(t, err)
		require.Len(t, out, 3)

		// Second candidate passes through untouched, after the expanded group.
		assert.Equal(t, "b-1", out[2].Chunk.ID)
		assert.True(t, out[2].IsTarget)
		fetcher.AssertNotCalled(t, "GetNeighbors", mock.Anything, "doc-b", 1, 1, 1)
	})

	t.Run("a neighbor that is already a candidate is not duplicated", func(t *testing.T) {
		fetcher := new(MockNeighborFetcher)
		expander := NewContextExpander(fetcher, 2, 1, 1, 4)

		c1 := indexedChunk("c-1", "doc-1", 1)
		c2 := indexedChunk("c-2", "doc-1", 2)
		fetcher.On("GetNeighbors", mock.Anything, "doc-1", 1, 1, 1).Return([]*domain.Chunk{
			indexedChunk("c-0", "doc-1", 0), c1, c2,
		}, nil)
		fetcher.On("GetNeighbors", mock.Anything, "doc-1", 2, 1, 1).Return([]*domain.Chunk{
			c1, c2, indexedChunk("c-3", "doc-1", 3),
		}, nil)

		out, err := expander.Expand(ctx, []*domain.RankedCandidate{target(c1, 0.9), target(c2, 0.8)})
		require.NoError(t, err)

		seen := map[string]int{}
		for _, cand := range out {
			seen[cand.Chunk.ID]++
		}
		for id, count := range seen {
			assert.Equal(t, 1, count, "chunk %s appears %d times", id, count)
		}
		assert.Len(t, out, 4)

		// Targets keep IsTarget even when another group reaches them.
		for _, cand := range out {
			if cand.Chunk.ID == "c-2" {
				assert.True(t, cand.IsTarget)
			}
		}
	})

	t.Run("fetch failure passes the candidate through unexpanded", func(t *testing.T) {
		fetcher := new(MockNeighborFetcher)
		expander := NewContextExpander(fetcher, 5, 1, 1, 4)

		orphan := indexedChunk("gone-3", "doc-gone", 3)
		fetcher.On("GetNeighbors", mock.Anything, "doc-gone", 3, 1, 1).Return(nil, domain.ErrDocumentNotFound)

		out, err := expander.Expand(ctx, []*domain.RankedCandidate{target(orphan, 0.4)})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "gone-3", out[0].Chunk.ID)
		assert.True(t, out[0].IsTarget)
	})

	t.Run("zero window is a no-op", func(t *testing.T) {
		fetcher := new(MockNeighborFetcher)
		expander := NewContextExpander(fetcher, 5, 0, 0, 4)

		c := indexedChunk("c-1", "doc-1", 1)
		out, err := expander.Expand(ctx, []*domain.RankedCandidate{target(c, 0.4)})
		require.NoError(t, err)
		assert.Len(t, out, 1)
		fetcher.AssertNotCalled(t, "GetNeighbors")
	})

	t.Run("cancelled context aborts expansion", func(t *testing.T) {
		fetcher := new(MockNeighborFetcher)
		expander := NewContextExpander(fetcher, 5, 1, 1, 4)

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		c := indexedChunk("c-1", "doc-1", 1)
		fetcher.On("GetNeighbors", mock.Anything, "doc-1", 1, 1, 1).Return(nil, context.Canceled)

		_, err := expander.Expand(cancelled, []*domain.RankedCandidate{target(c, 0.4)})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mentanova-ai/mentanova/internal/domain"
	"github.com/mentanova-ai/mentanova/internal/service"
)

type MockRetrievalService struct {
	mock.Mock
}

func (m *MockRetrievalService) Retrieve(ctx context.Context, input service.RetrieveInput) (*domain.RetrievalResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RetrievalResult), args.Error(1)
}

func (m *MockRetrievalService) RetrieveFromDocument(ctx context.Context, documentID string, input service.RetrieveInput) (*domain.RetrievalResult, error) {
	args := m.Called(ctx, documentID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RetrievalResult), args.Error(1)
}

func newTestResult(query string) *domain.RetrievalResult {
	chunk := &domain.Chunk{
		ID:         "chunk-1",
		DocumentID: "doc-1",
		ChunkIndex: 3,
		Content:    "Casual leave accrues at 1 day per month.",
		ChunkType:  domain.ChunkTypeText,
		Metadata:   domain.ChunkMetadata{DocumentTitle: "Leave Policy"},
	}
	return &domain.RetrievalResult{
		Query:       query,
		ContextText: "[Document: Leave Policy]\nCasual leave accrues at 1 day per month.",
		TotalTokens: 42,
		Chunks: []*domain.RankedCandidate{
			{Chunk: chunk, FusedScore: 0.011, SemanticRank: 1, SemanticScore: 0.91, IsTarget: true},
		},
		Sources: []domain.Source{{Document: "Leave Policy", ChunkID: "chunk-1"}},
		Metadata: domain.RetrievalMetadata{
			Strategy:       "hybrid",
			Intent:         "general",
			SemanticCount:  1,
			TotalRetrieved: 1,
			FinalChunks:    1,
		},
	}
}

func postJSON(url, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRetrievalHandler_Retrieve_Success(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewRetrievalHandler(mockSvc)

	mockSvc.On("Retrieve", mock.Anything, mock.MatchedBy(func(input service.RetrieveInput) bool {
		return input.Query == "how many casual leaves" && input.TopK == 5 && input.ExpandContext
	})).Return(newTestResult("how many casual leaves"), nil)

	req := postJSON("/retrieve", `{"query":"how many casual leaves","top_k":5}`)
	w := httptest.NewRecorder()

	handler.Retrieve(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data RetrieveResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "how many casual leaves", resp.Data.Query)
	assert.Equal(t, 42, resp.Data.TotalTokens)
	require.Len(t, resp.Data.Chunks, 1)
	assert.Equal(t, "chunk-1", resp.Data.Chunks[0].ID)
	assert.Equal(t, []string{"semantic"}, resp.Data.Chunks[0].Methods)
	assert.False(t, resp.Data.Chunks[0].IsExpansion)
	mockSvc.AssertExpectations(t)
}

func TestRetrievalHandler_Retrieve_ExpandContextDisabled(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewRetrievalHandler(mockSvc)

	mockSvc.On("Retrieve", mock.Anything, mock.MatchedBy(func(input service.RetrieveInput) bool {
		return !input.ExpandContext
	})).Return(newTestResult("q"), nil)

	req := postJSON("/retrieve", `{"query":"q","expand_context":false}`)
	w := httptest.NewRecorder()

	handler.Retrieve(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestRetrievalHandler_Retrieve_FiltersPassedThrough(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewRetrievalHandler(mockSvc)

	mockSvc.On("Retrieve", mock.Anything, mock.MatchedBy(func(input service.RetrieveInput) bool {
		return input.Filters.DocType == "policy" && input.Filters.Department == "hr"
	})).Return(newTestResult("q"), nil)

	req := postJSON("/retrieve", `{"query":"q","filters":{"doc_type":"policy","department":"hr"}}`)
	w := httptest.NewRecorder()

	handler.Retrieve(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestRetrievalHandler_Retrieve_InvalidBody(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewRetrievalHandler(mockSvc)

	req := postJSON("/retrieve", `{not json`)
	w := httptest.NewRecorder()

	handler.Retrieve(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything)
}

func TestRetrievalHandler_Retrieve_EmptyQuery(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewRetrievalHandler(mockSvc)

	mockSvc.On("Retrieve", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyQuery)

	req := postJSON("/retrieve", `{"query":""}`)
	w := httptest.NewRecorder()

	handler.Retrieve(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetrievalHandler_Retrieve_SearchUnavailable(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewRetrievalHandler(mockSvc)

	mockSvc.On("Retrieve", mock.Anything, mock.Anything).Return(nil, domain.ErrSearchUnavailable)

	req := postJSON("/retrieve", `{"query":"anything"}`)
	w := httptest.NewRecorder()

	handler.Retrieve(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRetrievalHandler_RetrieveFromDocument(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewRetrievalHandler(mockSvc)

	mockSvc.On("RetrieveFromDocument", mock.Anything, "doc-1", mock.MatchedBy(func(input service.RetrieveInput) bool {
		return input.Query == "notice period"
	})).Return(newTestResult("notice period"), nil)

	req := postJSON("/documents/doc-1/retrieve", `{"query":"notice period"}`)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "doc-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.RetrieveFromDocument(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestRetrievalHandler_RetrieveFromDocument_NotFound(t *testing.T) {
	mockSvc := new(MockRetrievalService)
	handler := NewRetrievalHandler(mockSvc)

	mockSvc.On("RetrieveFromDocument", mock.Anything, "missing", mock.Anything).
		Return(nil, domain.ErrDocumentNotFound)

	req := postJSON("/documents/missing/retrieve", `{"query":"anything"}`)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "missing")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.RetrieveFromDocument(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

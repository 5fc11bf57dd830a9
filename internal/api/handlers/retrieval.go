package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mentanova-ai/mentanova/internal/api"
	"github.com/mentanova-ai/mentanova/internal/domain"
	"github.com/mentanova-ai/mentanova/internal/service"
)

type RetrievalService interface {
	Retrieve(ctx context.Context, input service.RetrieveInput) (*domain.RetrievalResult, error)
	RetrieveFromDocument(ctx context.Context, documentID string, input service.RetrieveInput) (*domain.RetrievalResult, error)
}

type RetrievalHandler struct {
	svc RetrievalService
}

func NewRetrievalHandler(svc RetrievalService) *RetrievalHandler {
	return &RetrievalHandler{svc: svc}
}

type RetrieveRequest struct {
	Query         string          `json:"query"`
	TopK          int             `json:"top_k,omitempty"`
	ExpandContext *bool           `json:"expand_context,omitempty"`
	Filters       *RequestFilters `json:"filters,omitempty"`
}

type RequestFilters struct {
	DocType     string   `json:"doc_type,omitempty"`
	Department  string   `json:"department,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

type ChunkResponse struct {
	ID            string   `json:"id"`
	DocumentID    string   `json:"document_id"`
	ChunkIndex    int      `json:"chunk_index"`
	Content       string   `json:"content"`
	ChunkType     string   `json:"chunk_type"`
	SectionTitle  string   `json:"section_title,omitempty"`
	PageNumbers   []int    `json:"page_numbers,omitempty"`
	Methods       []string `json:"retrieval_methods,omitempty"`
	SemanticScore float64  `json:"semantic_score,omitempty"`
	KeywordScore  float64  `json:"keyword_score,omitempty"`
	FusedScore    float64  `json:"fused_score"`
	RerankScore   float64  `json:"rerank_score,omitempty"`
	IsExpansion   bool     `json:"is_expansion,omitempty"`
}

type RetrieveResponse struct {
	Query       string                   `json:"query"`
	Context     string                   `json:"context"`
	TotalTokens int                      `json:"total_tokens"`
	Chunks      []*ChunkResponse         `json:"chunks"`
	Sources     []domain.Source          `json:"sources"`
	Metadata    domain.RetrievalMetadata `json:"metadata"`
}

// Retrieve runs the full retrieval pipeline for a query.
func (h *RetrievalHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeRetrieveRequest(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Retrieve(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, toRetrieveResponse(result))
}

// RetrieveFromDocument runs a retrieval scoped to one document.
func (h *RetrievalHandler) RetrieveFromDocument(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")

	input, ok := decodeRetrieveRequest(w, r)
	if !ok {
		return
	}

	result, err := h.svc.RetrieveFromDocument(r.Context(), documentID, input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, toRetrieveResponse(result))
}

func decodeRetrieveRequest(w http.ResponseWriter, r *http.Request) (service.RetrieveInput, bool) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return service.RetrieveInput{}, false
	}

	input := service.RetrieveInput{
		Query:         req.Query,
		TopK:          req.TopK,
		ExpandContext: true,
	}
	if req.ExpandContext != nil {
		input.ExpandContext = *req.ExpandContext
	}
	if req.Filters != nil {
		input.Filters = domain.SearchFilters{
			DocType:     req.Filters.DocType,
			Department:  req.Filters.Department,
			DocumentIDs: req.Filters.DocumentIDs,
		}
	}
	return input, true
}

func toRetrieveResponse(result *domain.RetrievalResult) RetrieveResponse {
	chunks := make([]*ChunkResponse, len(result.Chunks))
	for i, cand := range result.Chunks {
		chunks[i] = &ChunkResponse{
			ID:            cand.Chunk.ID,
			DocumentID:    cand.Chunk.DocumentID,
			ChunkIndex:    cand.Chunk.ChunkIndex,
			Content:       cand.Chunk.Content,
			ChunkType:     string(cand.Chunk.ChunkType),
			SectionTitle:  cand.Chunk.SectionTitle,
			PageNumbers:   cand.Chunk.PageNumbers,
			Methods:       cand.Methods(),
			SemanticScore: cand.SemanticScore,
			KeywordScore:  cand.KeywordScore,
			FusedScore:    cand.FusedScore,
			RerankScore:   cand.RerankScore,
			IsExpansion:   !cand.IsTarget,
		}
	}

	return RetrieveResponse{
		Query:       result.Query,
		Context:     result.ContextText,
		TotalTokens: result.TotalTokens,
		Chunks:      chunks,
		Sources:     result.Sources,
		Metadata:    result.Metadata,
	}
}

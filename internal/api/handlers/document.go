package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mentanova-ai/mentanova/internal/api"
	"github.com/mentanova-ai/mentanova/internal/domain"
)

type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]*domain.Document, error)
	Delete(ctx context.Context, id string) error
}

type FileDownloader interface {
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

type DocumentHandler struct {
	store      DocumentStore
	downloader FileDownloader
}

// NewDocumentHandler creates a document handler. downloader may be nil when
// object storage is not configured; downloads then return 501.
func NewDocumentHandler(store DocumentStore, downloader FileDownloader) *DocumentHandler {
	return &DocumentHandler{store: store, downloader: downloader}
}

type DocumentResponse struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	OriginalFilename string `json:"original_filename"`
	DocType          string `json:"doc_type,omitempty"`
	Department       string `json:"department,omitempty"`
	TotalPages       int    `json:"total_pages"`
	TotalChunks      int    `json:"total_chunks"`
	HasTables        bool   `json:"has_tables"`
	Status           string `json:"status"`
	ProcessingError  string `json:"processing_error,omitempty"`
	UploadedAt       string `json:"uploaded_at"`
	ProcessedAt      string `json:"processed_at,omitempty"`
}

type DocumentListResponse struct {
	Documents []*DocumentResponse `json:"documents"`
}

type DownloadURLResponse struct {
	URL string `json:"url"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(docs))
	for i, doc := range docs {
		responses[i] = toDocumentResponse(doc)
	}
	api.Success(w, http.StatusOK, DocumentListResponse{Documents: responses})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetDownloadURL returns a presigned URL for the original document file.
func (h *DocumentHandler) GetDownloadURL(w http.ResponseWriter, r *http.Request) {
	if h.downloader == nil {
		api.Error(w, http.StatusNotImplemented, "file storage not configured")
		return
	}

	doc, err := h.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	url, err := h.downloader.GenerateDownloadURL(r.Context(), doc.FileKey)
	if err != nil {
		log.Printf("documents: presign download for %s failed: %v", doc.ID, err)
		api.HandleError(w, domain.ErrStorageUnavailable)
		return
	}

	api.Success(w, http.StatusOK, DownloadURLResponse{URL: url})
}

func toDocumentResponse(doc *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:               doc.ID,
		Title:            doc.Title,
		OriginalFilename: doc.OriginalFilename,
		DocType:          doc.DocType,
		Department:       doc.Department,
		TotalPages:       doc.TotalPages,
		TotalChunks:      doc.TotalChunks,
		HasTables:        doc.HasTables,
		Status:           string(doc.Status),
		ProcessingError:  doc.ProcessingError,
		UploadedAt:       doc.UploadedAt.UTC().Format(time.RFC3339Nano),
	}
	if doc.ProcessedAt != nil {
		resp.ProcessedAt = doc.ProcessedAt.UTC().Format(time.RFC3339Nano)
	}
	return resp
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mentanova-ai/mentanova/internal/api/handlers"
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

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) List(ctx context.Context) ([]*domain.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupRouter() (http.Handler, *MockRetrievalService, *MockDocumentStore) {
	retrievalSvc := new(MockRetrievalService)
	docStore := new(MockDocumentStore)

	cfg := RouterConfig{
		RetrievalHandler: handlers.NewRetrievalHandler(retrievalSvc),
		DocumentHandler:  handlers.NewDocumentHandler(docStore, nil),
	}

	return NewRouter(cfg), retrievalSvc, docStore
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_Retrieve(t *testing.T) {
	router, retrievalSvc, _ := setupRouter()

	retrievalSvc.On("Retrieve", mock.Anything, mock.MatchedBy(func(input service.RetrieveInput) bool {
		return input.Query == "leave policy"
	})).Return(&domain.RetrievalResult{Query: "leave policy"}, nil)

	body := []byte(`{"query":"leave policy"}`)
	req := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	retrievalSvc.AssertExpectations(t)
}

func TestRouter_DocumentRoutes(t *testing.T) {
	router, retrievalSvc, docStore := setupRouter()

	doc := &domain.Document{
		ID:         "doc-1",
		Title:      "Handbook",
		Status:     domain.DocumentStatusCompleted,
		UploadedAt: time.Now().UTC(),
	}
	docStore.On("List", mock.Anything).Return([]*domain.Document{doc}, nil)
	docStore.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
	retrievalSvc.On("RetrieveFromDocument", mock.Anything, "doc-1", mock.Anything).
		Return(&domain.RetrievalResult{Query: "q"}, nil)

	t.Run("list documents", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents/", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("get document", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("document-scoped retrieval", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/retrieve", bytes.NewReader([]byte(`{"query":"q"}`)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("download without storage configured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/documents/doc-1/download", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotImplemented, w.Code)
	})
}

func TestRouter_BodyLimit(t *testing.T) {
	router, retrievalSvc, _ := setupRouter()

	// Anything over 1 MiB must be rejected before reaching the handler.
	oversized := bytes.Repeat([]byte("a"), 2*1024*1024)
	body := append([]byte(`{"query":"`), oversized...)
	body = append(body, []byte(`"}`)...)

	req := httptest.NewRequest(http.MethodPost, "/retrieve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.NotEqual(t, http.StatusOK, w.Code)
	retrievalSvc.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything)
}

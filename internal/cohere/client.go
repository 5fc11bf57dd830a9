// Package cohere provides a minimal client for the Cohere rerank API.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	// DefaultRerankModel is the cross-encoder model used for relevance scoring
	DefaultRerankModel = "rerank-english-v3.0"
	// DefaultBaseURL is the Cohere API endpoint
	DefaultBaseURL = "https://api.cohere.com"

	requestTimeout = 30 * time.Second
)

var (
	// ErrNoAPIKey is returned when the Cohere API key is not set
	ErrNoAPIKey = errors.New("COHERE_API_KEY environment variable not set")
	// ErrNoDocuments is returned when there is nothing to rerank
	ErrNoDocuments = errors.New("documents cannot be empty")
	// ErrScoreMismatch is returned when the API returns a different number of scores than documents sent
	ErrScoreMismatch = errors.New("rerank response does not cover all documents")
)

// RerankAPI defines the interface for relevance scoring calls
type RerankAPI interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float64, error)
}

// Client wraps the Cohere rerank API
type Client struct {
	api RerankAPI
}

// HTTPAdapter performs rerank calls against the Cohere v2 HTTP API
type HTTPAdapter struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func NewHTTPAdapter(apiKey, model, baseURL string) *HTTPAdapter {
	if model == "" {
		model = DefaultRerankModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPAdapter{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Rerank calls the Cohere API and returns one relevance score per document,
// in the same order as the input.
func (a *HTTPAdapter) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	body, err := json.Marshal(rerankRequest{
		Model:     a.model,
		Query:     query,
		Documents: documents,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v2/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank request failed with status %d: %s", resp.StatusCode, payload)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	// The API returns results sorted by score; map back to input order.
	scores := make([]float64, len(documents))
	seen := 0
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank response index %d out of range", r.Index)
		}
		scores[r.Index] = r.RelevanceScore
		seen++
	}
	if seen != len(documents) {
		return nil, ErrScoreMismatch
	}

	return scores, nil
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewClient creates a new Cohere client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new Cohere client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	return &Client{
		api: NewHTTPAdapter(cfg.APIKey, cfg.Model, cfg.BaseURL),
	}
}

// NewClientFromEnv creates a new Cohere client using COHERE_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("COHERE_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Rerank scores each document's relevance to the query. Scores come back in
// input order.
func (c *Client) Rerank(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return nil, ErrNoDocuments
	}
	scores, err := c.api.Rerank(ctx, query, documents)
	if err != nil {
		return nil, fmt.Errorf("failed to rerank: %w", err)
	}
	return scores, nil
}

// Package qdrant is a minimal REST client to Qdrant implementing the
// vectorstore.Storage contract. It assumes cosine distance.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"docgraph/internal/domain"
	"docgraph/internal/vectorstore"
)

// Storage talks to one Qdrant collection over HTTP.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// Config contains connection details for a Qdrant vector store.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewStorage creates a client. The collection is created lazily by
// EnsureCollection.
func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

type pointBody struct {
	ID      uint64             `json:"id"`
	Vector  []float32          `json:"vector,omitempty"`
	Payload domain.NodePayload `json:"payload"`
}

// EnsureCollection creates the collection if it does not already exist.
func (s *Storage) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrVectorStore, dimension)
	}
	// Qdrant rejects PUT on an existing collection, so probe first.
	ok, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

func (s *Storage) collectionExists(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
	}
	s.auth(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// Upsert writes points, waiting for them to be durable before returning.
func (s *Storage) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	bodies := make([]pointBody, len(points))
	for i, p := range points {
		bodies[i] = pointBody{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	body := map[string]any{"points": bodies}
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

// Search returns the limit nearest points with score >= scoreThreshold.
func (s *Storage) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float32) ([]vectorstore.ScoredPoint, error) {
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if scoreThreshold > 0 {
		req["score_threshold"] = scoreThreshold
	}
	var resp struct {
		Result []struct {
			ID      uint64             `json:"id"`
			Score   float32            `json:"score"`
			Payload domain.NodePayload `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	results := make([]vectorstore.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, vectorstore.ScoredPoint{
			Point: vectorstore.Point{ID: r.ID, Payload: r.Payload},
			Score: r.Score,
		})
	}
	return results, nil
}

// Retrieve fetches points by id, payload only. Missing ids are skipped.
func (s *Storage) Retrieve(ctx context.Context, ids []uint64) ([]vectorstore.Point, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	req := map[string]any{
		"ids":          ids,
		"with_payload": true,
		"with_vector":  false,
	}
	var resp struct {
		Result []struct {
			ID      uint64             `json:"id"`
			Payload domain.NodePayload `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	points := make([]vectorstore.Point, 0, len(resp.Result))
	for _, r := range resp.Result {
		points = append(points, vectorstore.Point{ID: r.ID, Payload: r.Payload})
	}
	return points, nil
}

// Scroll pages through stored points via next_page_offset. A limit of zero
// or less walks the whole collection.
func (s *Storage) Scroll(ctx context.Context, limit int) ([]vectorstore.Point, error) {
	const pageSize = 100
	var points []vectorstore.Point
	var offset any
	for {
		page := pageSize
		if limit > 0 && limit-len(points) < page {
			page = limit - len(points)
		}
		req := map[string]any{
			"limit":        page,
			"with_payload": true,
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points []struct {
					ID      uint64             `json:"id"`
					Payload domain.NodePayload `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/scroll", s.url, s.collection), req, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Result.Points {
			points = append(points, vectorstore.Point{ID: r.ID, Payload: r.Payload})
		}
		if resp.Result.NextPageOffset == nil || (limit > 0 && len(points) >= limit) {
			return points, nil
		}
		offset = resp.Result.NextPageOffset
	}
}

func (s *Storage) auth(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func (s *Storage) putJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.auth(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: PUT %s: %s", domain.ErrVectorStore, url, resp.Status)
	}
	return nil
}

func (s *Storage) postJSON(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.auth(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: POST %s: %s", domain.ErrVectorStore, url, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", domain.ErrVectorStore, err)
		}
	}
	return nil
}

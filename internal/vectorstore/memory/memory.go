// Package memory is an in-memory vector store using brute-force cosine
// similarity. It backs tests and small local corpora.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docgraph/internal/domain"
	"docgraph/internal/vectorstore"
)

// Storage keeps points keyed by id, so re-upserting a node replaces it the
// way Qdrant does.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	points    map[uint64]vectorstore.Point
	order     []uint64
}

func NewStorage() *Storage {
	return &Storage{points: make(map[uint64]vectorstore.Point)}
}

func (s *Storage) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrVectorStore, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: collection exists with dimension %d, requested %d", domain.ErrVectorStore, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(_ context.Context, points []vectorstore.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		if len(p.Vector) != s.dimension {
			return fmt.Errorf("%w: vector dimension mismatch", domain.ErrVectorStore)
		}
		if _, exists := s.points[p.ID]; !exists {
			s.order = append(s.order, p.ID)
		}
		s.points[p.ID] = p
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float32, limit int, scoreThreshold float32) ([]vectorstore.ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	results := make([]vectorstore.ScoredPoint, 0, len(s.points))
	for _, id := range s.order {
		p := s.points[id]
		score := cosine(p.Vector, vector)
		if score < scoreThreshold {
			continue
		}
		results = append(results, vectorstore.ScoredPoint{Point: p, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (s *Storage) Retrieve(_ context.Context, ids []uint64) ([]vectorstore.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	points := make([]vectorstore.Point, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.points[id]; ok {
			points = append(points, p)
		}
	}
	return points, nil
}

func (s *Storage) Scroll(_ context.Context, limit int) ([]vectorstore.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	points := make([]vectorstore.Point, 0, limit)
	for _, id := range s.order[:limit] {
		points = append(points, s.points[id])
	}
	return points, nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

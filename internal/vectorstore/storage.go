package vectorstore

import (
	"context"

	"docgraph/internal/domain"
)

// Point is one node record in the store: a deterministic id, its embedding
// and the full node payload.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload domain.NodePayload
}

// ScoredPoint is a search hit with its similarity score.
type ScoredPoint struct {
	Point
	Score float32
}

// Storage persists node vectors and supports similarity search plus direct
// retrieval by id, which context-window expansion depends on.
type Storage interface {
	// EnsureCollection creates the collection if missing. It must be
	// idempotent: an existing collection with the same dimension is fine.
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float32) ([]ScoredPoint, error)
	// Retrieve fetches points by id. Unknown ids are skipped, not errors.
	Retrieve(ctx context.Context, ids []uint64) ([]Point, error)
	// Scroll pages through stored points for index inspection. A limit of
	// zero or less returns every stored point.
	Scroll(ctx context.Context, limit int) ([]Point, error)
}

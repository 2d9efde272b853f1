// Package engine orchestrates ingestion and retrieval: documents are
// summarized, placed in the hierarchy graph, chunked into nodes, embedded
// and upserted into the vector store; queries run similarity search,
// expand each hit with neighboring nodes and synthesize an answer.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"docgraph/internal/domain"
	"docgraph/internal/hierarchy"
	"docgraph/internal/state"
	"docgraph/internal/summarizer"
	"docgraph/internal/vectorstore"
)

// DefaultUpsertBatchSize bounds how many points go into one upsert call.
const DefaultUpsertBatchSize = 100

// Config carries the engine's own knobs. Collaborator configuration lives
// with the collaborators.
type Config struct {
	// StatePath is where the summaries+hierarchy snapshot is persisted.
	StatePath string
	// UpsertBatchSize caps points per vector-store upsert request.
	UpsertBatchSize int
	// RelationshipThreshold is the minimum proposed similarity score that
	// becomes a hierarchy relationship.
	RelationshipThreshold float64
}

// Engine is the ingestion-and-retrieval core. Ingestion calls are
// serialized by a single writer lock; queries read hierarchy snapshots and
// run concurrently with ingestion.
type Engine struct {
	cfg       Config
	chunker   domain.Chunker
	embedder  domain.Embedder
	completer domain.Completer
	store     vectorstore.Storage
	summaries *summarizer.Memoized
	hierarchy *hierarchy.Store
	logger    *slog.Logger

	// ingestMu serializes all mutations of hierarchy, memo and the state
	// file. It is never held while serving queries.
	ingestMu sync.Mutex

	collMu    sync.Mutex
	collReady bool
}

// New assembles an engine, recovering persisted state from cfg.StatePath.
// A missing or corrupt state file starts the engine empty.
func New(cfg Config, chunker domain.Chunker, embedder domain.Embedder, completer domain.Completer, store vectorstore.Storage, inner domain.Summarizer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = DefaultUpsertBatchSize
	}

	st := state.Load(cfg.StatePath, logger)
	hier := hierarchy.NewStore(cfg.RelationshipThreshold)
	hier.Replace(st.Hierarchy)

	return &Engine{
		cfg:       cfg,
		chunker:   chunker,
		embedder:  embedder,
		completer: completer,
		store:     store,
		summaries: summarizer.NewMemoized(inner, st.Summaries),
		hierarchy: hier,
		logger:    logger,
	}
}

// HierarchySnapshot returns the current hierarchy and summary memo as one
// JSON document, for callers outside the engine.
func (e *Engine) HierarchySnapshot() ([]byte, error) {
	return json.MarshalIndent(map[string]any{
		"hierarchy": e.hierarchy.Snapshot(),
		"summaries": e.summaries.Memo(),
	}, "", "  ")
}

// DocumentEntry describes one indexed document as observed in the store.
type DocumentEntry struct {
	Metadata     domain.DocumentMetadata `json:"metadata"`
	HasEmbedding bool                    `json:"has_embedding"`
	TextLength   int                     `json:"text_length"`
	Hierarchy    *domain.HierarchyEntry  `json:"hierarchy,omitempty"`
	Summary      string                  `json:"summary"`
}

// IndexInfo summarizes the indexed corpus.
type IndexInfo struct {
	TotalDocuments int                      `json:"total_documents"`
	Documents      map[string]DocumentEntry `json:"documents"`
}

// DocumentInfo inspects the vector store and reports the indexed
// documents. Node text lengths are summed per document.
func (e *Engine) DocumentInfo(ctx context.Context) (*IndexInfo, error) {
	points, err := e.store.Scroll(ctx, 0)
	if err != nil {
		return nil, err
	}
	docs := make(map[string]DocumentEntry)
	for _, p := range points {
		entry := docs[p.Payload.DocID]
		entry.Metadata = p.Payload.Metadata
		entry.HasEmbedding = true
		entry.TextLength += len(p.Payload.Text)
		entry.Hierarchy = p.Payload.Hierarchy
		entry.Summary = p.Payload.Summary
		docs[p.Payload.DocID] = entry
	}
	return &IndexInfo{TotalDocuments: len(docs), Documents: docs}, nil
}

// ensureCollection creates the vector collection once per process.
func (e *Engine) ensureCollection(ctx context.Context) error {
	e.collMu.Lock()
	defer e.collMu.Unlock()
	if e.collReady {
		return nil
	}
	if err := e.store.EnsureCollection(ctx, e.embedder.Dimension()); err != nil {
		return err
	}
	e.collReady = true
	return nil
}

// persist writes the current memo and hierarchy to the state file.
func (e *Engine) persist() error {
	st := state.Empty()
	st.Summaries = e.summaries.Memo()
	st.Hierarchy = e.hierarchy.Snapshot()
	return state.Save(e.cfg.StatePath, st)
}

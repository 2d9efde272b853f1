package engine

import (
	"context"
	"fmt"

	"docgraph/internal/address"
	"docgraph/internal/domain"
	"docgraph/internal/hierarchy"
	"docgraph/internal/loader"
	"docgraph/internal/vectorstore"
)

// IngestDocument loads, summarizes, places, chunks, embeds and indexes a
// single file, then persists state.
//
// Summary and hierarchy failures degrade: the document is still indexed
// and searchable, just with an empty summary or no hierarchy entry.
// Embedding, upsert and state persistence failures are fatal to the call
// and surface as typed errors so the caller can retry the whole document.
func (e *Engine) IngestDocument(ctx context.Context, path string) (domain.Document, error) {
	doc, err := loader.LoadFile(path)
	if err != nil {
		return domain.Document{}, err
	}

	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	summary := e.summarizeSoft(ctx, doc)
	e.placeSoft(ctx, doc, summary)

	if err := e.indexDocument(ctx, doc, summary); err != nil {
		return domain.Document{}, err
	}
	if err := e.persist(); err != nil {
		return domain.Document{}, err
	}
	e.logger.Info("document ingested", "doc_id", doc.ID, "path", path)
	return doc, nil
}

// IngestDirectory bulk-ingests every supported file under dir. Summaries
// are generated per document and the whole hierarchy is inferred in one
// model call, replacing the current graph, before nodes are indexed.
func (e *Engine) IngestDirectory(ctx context.Context, dir string) ([]domain.Document, error) {
	docs, err := loader.LoadDirectory(dir)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		e.logger.Warn("no supported documents found", "dir", dir)
		return nil, nil
	}

	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	summaries := make(map[string]string, len(docs))
	for _, doc := range docs {
		summaries[doc.ID] = e.summarizeSoft(ctx, doc)
	}

	entries, err := hierarchy.BatchAnalyze(ctx, e.completer, summaries)
	if err != nil {
		e.logger.Warn("bulk hierarchy analysis failed, documents stay unplaced", "error", err)
	} else {
		e.hierarchy.Replace(entries)
	}

	for _, doc := range docs {
		if err := e.indexDocument(ctx, doc, summaries[doc.ID]); err != nil {
			return nil, err
		}
	}
	if err := e.persist(); err != nil {
		return nil, err
	}
	e.logger.Info("corpus ingested", "dir", dir, "documents", len(docs))
	return docs, nil
}

// summarizeSoft returns the memoized summary, or empty on failure. The
// failure is logged, never equated with an empty document.
func (e *Engine) summarizeSoft(ctx context.Context, doc domain.Document) string {
	summary, err := e.summaries.Summarize(ctx, doc)
	if err != nil {
		e.logger.Warn("summary generation failed, continuing with empty summary",
			"doc_id", doc.ID, "error", err)
		return ""
	}
	return summary
}

// placeSoft proposes and applies a hierarchy placement for doc. Failure
// leaves the document unplaced; it remains searchable.
func (e *Engine) placeSoft(ctx context.Context, doc domain.Document, summary string) {
	proposed, err := hierarchy.ProposePlacement(ctx, e.completer, doc.ID, summary,
		e.summaries.Memo(), e.hierarchy.Snapshot())
	if err != nil {
		e.logger.Warn("hierarchy placement failed, document stays unplaced",
			"doc_id", doc.ID, "error", err)
		return
	}
	e.hierarchy.Apply(doc.ID, proposed)
}

// indexDocument chunks doc, embeds every node and upserts the points in
// batches. Node payloads carry the document metadata, position info with
// neighbor markers, the current hierarchy entry and the summary.
func (e *Engine) indexDocument(ctx context.Context, doc domain.Document, summary string) error {
	if err := e.ensureCollection(ctx); err != nil {
		return err
	}

	nodes, err := e.chunker.Chunk(doc)
	if err != nil {
		return fmt.Errorf("chunking %s: %w", doc.ID, err)
	}
	hierEntry := e.hierarchy.Get(doc.ID)

	points := make([]vectorstore.Point, 0, len(nodes))
	for _, node := range nodes {
		vector, err := e.embedder.Embed(ctx, node.Text)
		if err != nil {
			return fmt.Errorf("%w: node %d of %s: %v", domain.ErrEmbedding, node.Index, doc.ID, err)
		}

		var adjacency []domain.NodeAdjacency
		if node.Index > 0 {
			adjacency = append(adjacency, domain.NodeAdjacency{
				Type:   "previous",
				NodeID: address.NodeName(doc.ID, node.Index-1),
			})
		}
		if node.Index < node.TotalNodes-1 {
			adjacency = append(adjacency, domain.NodeAdjacency{
				Type:   "next",
				NodeID: address.NodeName(doc.ID, node.Index+1),
			})
		}

		points = append(points, vectorstore.Point{
			ID:     address.NodeID(doc.ID, node.Index),
			Vector: vector,
			Payload: domain.NodePayload{
				DocID:    doc.ID,
				NodeID:   address.NodeName(doc.ID, node.Index),
				Text:     node.Text,
				Metadata: doc.Metadata,
				NodeInfo: domain.NodeInfo{
					Index:         node.Index,
					TotalNodes:    node.TotalNodes,
					Relationships: adjacency,
					StartChar:     node.StartChar,
					EndChar:       node.EndChar,
				},
				Hierarchy: hierEntry,
				Summary:   summary,
			},
		})
	}

	for start := 0; start < len(points); start += e.cfg.UpsertBatchSize {
		end := start + e.cfg.UpsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		if err := e.store.Upsert(ctx, points[start:end]); err != nil {
			return err
		}
	}
	e.logger.Debug("document indexed", "doc_id", doc.ID, "nodes", len(points))
	return nil
}

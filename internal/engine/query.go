package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"docgraph/internal/address"
	"docgraph/internal/domain"
	"docgraph/internal/vectorstore"
)

const answerPromptTemplate = `Based on the following context, answer the question: %s

Context:
%s
`

// QueryOptions parameterizes retrieval. The similarity threshold is an
// explicit parameter on purpose: the engine embeds no default.
type QueryOptions struct {
	// SimilarityThreshold drops hits scoring below it; 0 disables filtering.
	SimilarityThreshold float32
	// ContextWindow is how many neighboring nodes to pull in on each side
	// of a hit.
	ContextWindow int
	// Limit caps the number of search hits.
	Limit int
	// IncludeHierarchy attaches each hit's hierarchy entry to its source.
	IncludeHierarchy bool
}

// Query retrieves the nodes most similar to text, expands each with its
// neighboring nodes in document order and synthesizes an answer.
//
// Zero hits return an empty result and a nil error. Collaborator failures
// also return an empty result, with a non-nil typed error so callers and
// logs can tell the two apart.
func (e *Engine) Query(ctx context.Context, text string, opts QueryOptions) (domain.QueryResult, error) {
	var empty domain.QueryResult

	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		e.logger.Warn("query embedding failed", "error", err)
		return empty, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}

	hits, err := e.store.Search(ctx, vector, opts.Limit, opts.SimilarityThreshold)
	if err != nil {
		e.logger.Warn("similarity search failed", "error", err)
		return empty, err
	}
	if len(hits) == 0 {
		e.logger.Debug("query matched no nodes", "query", text)
		return empty, nil
	}

	sources := make([]domain.Source, 0, len(hits))
	contexts := make([]string, 0, len(hits))
	for _, hit := range hits {
		expanded, err := e.expandContext(ctx, hit, opts.ContextWindow)
		if err != nil {
			e.logger.Warn("context expansion failed", "node_id", hit.Payload.NodeID, "error", err)
			return empty, err
		}
		src := domain.Source{
			Text:     hit.Payload.Text,
			Context:  expanded,
			Score:    hit.Score,
			Metadata: hit.Payload.Metadata,
			NodeInfo: hit.Payload.NodeInfo,
		}
		if opts.IncludeHierarchy {
			src.Hierarchy = hit.Payload.Hierarchy
		}
		sources = append(sources, src)
		contexts = append(contexts, expanded)
	}

	prompt := fmt.Sprintf(answerPromptTemplate, text, strings.Join(contexts, " "))
	answer, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		e.logger.Warn("answer synthesis failed", "error", err)
		return empty, fmt.Errorf("answer synthesis: %w", err)
	}

	return domain.QueryResult{
		Answer:      answer,
		Sources:     sources,
		SourceCount: len(sources),
	}, nil
}

// expandContext re-derives the addresses of up to window nodes on each
// side of the hit, clamped to the document's node count, fetches them and
// concatenates all texts in ascending index order. Order matters: the
// expanded text feeds the answer-synthesis prompt.
func (e *Engine) expandContext(ctx context.Context, hit vectorstore.ScoredPoint, window int) (string, error) {
	docID := hit.Payload.DocID
	k := hit.Payload.NodeInfo.Index
	total := hit.Payload.NodeInfo.TotalNodes

	lo := k - window
	if lo < 0 {
		lo = 0
	}
	hi := k + window
	if hi > total-1 {
		hi = total - 1
	}

	var ids []uint64
	for i := lo; i <= hi; i++ {
		if i == k {
			continue
		}
		ids = append(ids, address.NodeID(docID, i))
	}

	texts := map[int]string{k: hit.Payload.Text}
	if len(ids) > 0 {
		neighbors, err := e.store.Retrieve(ctx, ids)
		if err != nil {
			return "", err
		}
		for _, n := range neighbors {
			texts[n.Payload.NodeInfo.Index] = n.Payload.Text
		}
	}

	indices := make([]int, 0, len(texts))
	for i := range texts {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	parts := make([]string, 0, len(indices))
	for _, i := range indices {
		parts = append(parts, texts[i])
	}
	return strings.Join(parts, "\n"), nil
}

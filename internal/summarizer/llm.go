// Package summarizer produces per-document summaries, memoized by
// document id so each document costs at most one model call.
package summarizer

import (
	"context"
	"fmt"
	"sync"

	"docgraph/internal/domain"
)

// previewLimit caps how much document text goes into the summary prompt.
const previewLimit = 2000

const summaryPromptTemplate = `Please provide a concise summary of this document, focusing on:
1. Main topic and key points in two sentences
2. Any hierarchical relationships or subtopics
3. Connections to other potential topics

Document content:
%s...
`

// LLM summarizes documents through the completion collaborator.
type LLM struct {
	completer domain.Completer
}

func NewLLM(completer domain.Completer) *LLM {
	return &LLM{completer: completer}
}

// Summarize returns a short natural-language summary of the document.
func (s *LLM) Summarize(ctx context.Context, doc domain.Document) (string, error) {
	preview := doc.Text
	if runes := []rune(preview); len(runes) > previewLimit {
		preview = string(runes[:previewLimit])
	}
	out, err := s.completer.Complete(ctx, fmt.Sprintf(summaryPromptTemplate, preview))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSummaryGeneration, err)
	}
	return out, nil
}

// Memoized caches summaries per document id around any inner summarizer.
// The memo is seeded from persisted state at startup and exported back for
// persistence after each ingestion.
type Memoized struct {
	inner domain.Summarizer

	mu   sync.RWMutex
	memo map[string]string
}

// NewMemoized wraps inner with a memo seeded from initial (may be nil).
func NewMemoized(inner domain.Summarizer, initial map[string]string) *Memoized {
	memo := make(map[string]string, len(initial))
	for id, s := range initial {
		memo[id] = s
	}
	return &Memoized{inner: inner, memo: memo}
}

// Summarize returns the cached summary for doc.ID if present, otherwise
// calls the inner summarizer exactly once and caches the result. Failures
// are not cached.
func (m *Memoized) Summarize(ctx context.Context, doc domain.Document) (string, error) {
	m.mu.RLock()
	cached, ok := m.memo[doc.ID]
	m.mu.RUnlock()
	if ok {
		return cached, nil
	}
	out, err := m.inner.Summarize(ctx, doc)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.memo[doc.ID] = out
	m.mu.Unlock()
	return out, nil
}

// Memo returns a copy of the current memo for persistence.
func (m *Memoized) Memo() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.memo))
	for id, s := range m.memo {
		out[id] = s
	}
	return out
}

// Evict drops the cached summary for a document id, forcing regeneration
// on the next Summarize call.
func (m *Memoized) Evict(docID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.memo, docID)
}

package domain

import "context"

// Embedder converts free text into a fixed-length numeric vector.
// Dimension reports the vector length produced by this embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Completer is the language-model completion collaborator. It is used for
// document summaries, hierarchy inference and answer synthesis.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Chunker splits a document into an ordered node sequence covering its
// full text.
type Chunker interface {
	Chunk(doc Document) ([]Node, error)
}

// Summarizer produces a short summary of a document, memoized per
// document id.
type Summarizer interface {
	Summarize(ctx context.Context, doc Document) (string, error)
}

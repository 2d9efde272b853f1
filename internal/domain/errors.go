package domain

import "errors"

// Failure kinds surfaced by the engine. Wrap with fmt.Errorf("...: %w", Err...)
// and discriminate with errors.Is.
var (
	// ErrLoad: source document unreadable or unsupported.
	ErrLoad = errors.New("document load failed")
	// ErrSummaryGeneration: the model call backing Summarize failed.
	ErrSummaryGeneration = errors.New("summary generation failed")
	// ErrHierarchyInference: model response held no single well-formed
	// hierarchy JSON object.
	ErrHierarchyInference = errors.New("hierarchy inference failed")
	// ErrEmbedding: embedding collaborator call failed.
	ErrEmbedding = errors.New("embedding failed")
	// ErrVectorStore: vector store upsert/search/retrieve call failed.
	ErrVectorStore = errors.New("vector store operation failed")
	// ErrStatePersistence: durable state snapshot could not be written.
	ErrStatePersistence = errors.New("state persistence failed")
)

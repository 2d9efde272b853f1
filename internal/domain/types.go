package domain

import "time"

// Document represents a single source file loaded into the system.
// ID is derived from the filename stem and is stable across re-ingestion.
type Document struct {
	ID       string
	Path     string
	Text     string
	Metadata DocumentMetadata
}

// DocumentMetadata carries the descriptive fields stored alongside every
// node of a document.
type DocumentMetadata struct {
	FileName     string    `json:"file_name"`
	FilePath     string    `json:"file_path"`
	FileType     string    `json:"file_type"`
	DocType      string    `json:"doc_type"`
	LastModified time.Time `json:"last_modified_date"`
	ProcessedAt  time.Time `json:"processed_date"`
}

// Node is a contiguous chunk of a document's text. Nodes are never mutated
// after creation; a changed document produces a fresh node sequence.
type Node struct {
	DocumentID string
	Index      int
	TotalNodes int
	StartChar  int
	EndChar    int
	Text       string
}

// HierarchyEntry is the parent/child/relationship/level record associated
// with one document id. An empty ParentID marks a root entry.
type HierarchyEntry struct {
	Title            string             `json:"title"`
	Summary          string             `json:"summary"`
	ParentID         string             `json:"parent_id"`
	Children         []string           `json:"children"`
	Level            int                `json:"level"`
	Relationships    []string           `json:"relationships"`
	RelationshipType string             `json:"relationship_type"`
	KeyConcepts      []string           `json:"key_concepts"`
	SimilarityScores map[string]float64 `json:"similarity_scores,omitempty"`
}

// Clone returns a deep copy of the entry.
func (e *HierarchyEntry) Clone() *HierarchyEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Children = append([]string(nil), e.Children...)
	c.Relationships = append([]string(nil), e.Relationships...)
	c.KeyConcepts = append([]string(nil), e.KeyConcepts...)
	if e.SimilarityScores != nil {
		c.SimilarityScores = make(map[string]float64, len(e.SimilarityScores))
		for k, v := range e.SimilarityScores {
			c.SimilarityScores[k] = v
		}
	}
	return &c
}

// NodeAdjacency names an immediate neighbor of a node within its document.
// Type is "previous" or "next".
type NodeAdjacency struct {
	Type   string `json:"type"`
	NodeID string `json:"node_id"`
}

// NodeInfo is the positional record stored in a node's payload. Spans are
// rune offsets into the source text.
type NodeInfo struct {
	Index         int             `json:"index"`
	TotalNodes    int             `json:"total_nodes"`
	Relationships []NodeAdjacency `json:"relationships"`
	StartChar     int             `json:"start_char_idx"`
	EndChar       int             `json:"end_char_idx"`
}

// NodePayload is the full payload persisted with each vector point.
type NodePayload struct {
	DocID     string           `json:"doc_id"`
	NodeID    string           `json:"node_id"`
	Text      string           `json:"text"`
	Metadata  DocumentMetadata `json:"metadata"`
	NodeInfo  NodeInfo         `json:"node_info"`
	Hierarchy *HierarchyEntry  `json:"hierarchy,omitempty"`
	Summary   string           `json:"summary"`
}

// Source is one retrieved node together with its expanded context.
type Source struct {
	Text      string           `json:"text"`
	Context   string           `json:"context"`
	Score     float32          `json:"similarity"`
	Metadata  DocumentMetadata `json:"metadata"`
	NodeInfo  NodeInfo         `json:"node_info"`
	Hierarchy *HierarchyEntry  `json:"hierarchy_info,omitempty"`
}

// QueryResult is the synthesized answer plus the sources that produced it.
// A zero-hit query yields an empty answer and SourceCount == 0.
type QueryResult struct {
	Answer      string   `json:"response"`
	Sources     []Source `json:"sources"`
	SourceCount int      `json:"total_sources"`
}

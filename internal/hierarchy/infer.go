package hierarchy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"docgraph/internal/domain"
)

// validate checks decoded model output. Struct-level tags keep the schema
// strict without hand-rolled field checks.
var validate = validator.New()

// proposal mirrors the JSON object the model is asked to produce. It is
// decoded strictly and validated before it becomes a domain.HierarchyEntry.
type proposal struct {
	Title            string             `json:"title"`
	Summary          string             `json:"summary"`
	ParentID         string             `json:"parent_id"`
	Children         []string           `json:"children"`
	Level            int                `json:"level" validate:"gte=0"`
	Relationships    []string           `json:"relationships"`
	RelationshipType string             `json:"relationship_type"`
	KeyConcepts      []string           `json:"key_concepts"`
	SimilarityScores map[string]float64 `json:"similarity_scores,omitempty" validate:"dive,gte=0,lte=1"`
}

func (p *proposal) entry() *domain.HierarchyEntry {
	return &domain.HierarchyEntry{
		Title:            p.Title,
		Summary:          p.Summary,
		ParentID:         p.ParentID,
		Children:         dropEmpty(p.Children),
		Level:            p.Level,
		Relationships:    dropEmpty(p.Relationships),
		RelationshipType: p.RelationshipType,
		KeyConcepts:      dropEmpty(p.KeyConcepts),
		SimilarityScores: p.SimilarityScores,
	}
}

const placementPromptTemplate = `You are a document analysis expert. A new document is being added to an existing document collection.

New document id: %q
New document summary:
%s

Existing documents (id -> summary):
%s

Existing hierarchy:
%s

Decide where the new document belongs in the hierarchy and which existing documents it relates to.

IMPORTANT: Respond ONLY with a valid JSON object. Do not include any explanations or additional text.
The JSON must follow this exact structure:
{
    "title": "clear title",
    "summary": "brief summary",
    "parent_id": "id of parent document or null if root",
    "children": ["child_doc_ids"],
    "level": 0,
    "relationships": ["related_doc_ids"],
    "relationship_type": "parent/child/sibling/related",
    "key_concepts": ["main concepts"],
    "similarity_scores": {"other_doc_id": 0.0}
}`

const batchPromptTemplate = `You are a document analysis expert. Create a hierarchical structure for these documents.

Documents to analyze:
%s

IMPORTANT: Respond ONLY with a valid JSON object. Do not include any explanations or additional text.
The JSON should follow this exact structure for each document:
{
    "doc_id": {
        "title": "clear title",
        "summary": "brief summary",
        "parent_id": "id of parent document or null if root",
        "children": ["child_doc_ids"],
        "level": 0,
        "relationships": ["related_doc_ids"],
        "relationship_type": "parent/child/sibling/related",
        "key_concepts": ["main concepts"]
    }
}`

// ProposePlacement asks the model for a hierarchy entry for one new
// document given the current summaries and graph. A response without
// exactly one well-formed JSON object yields domain.ErrHierarchyInference
// and no entry, never a partial guess.
func ProposePlacement(ctx context.Context, completer domain.Completer, docID, summary string, existingSummaries map[string]string, existingHierarchy map[string]*domain.HierarchyEntry) (*domain.HierarchyEntry, error) {
	summariesJSON, err := json.MarshalIndent(existingSummaries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHierarchyInference, err)
	}
	hierarchyJSON, err := json.MarshalIndent(existingHierarchy, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHierarchyInference, err)
	}
	prompt := fmt.Sprintf(placementPromptTemplate, docID, summary, summariesJSON, hierarchyJSON)

	response, err := completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHierarchyInference, err)
	}

	var p proposal
	if err := decodeStrict(response, &p); err != nil {
		return nil, err
	}
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHierarchyInference, err)
	}
	return p.entry(), nil
}

// BatchAnalyze asks the model for the full hierarchy of a corpus in one
// call and returns one entry per document id.
func BatchAnalyze(ctx context.Context, completer domain.Completer, summaries map[string]string) (map[string]*domain.HierarchyEntry, error) {
	docs := make(map[string]map[string]string, len(summaries))
	for id, s := range summaries {
		docs[id] = map[string]string{"summary": s}
	}
	docsJSON, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHierarchyInference, err)
	}
	prompt := fmt.Sprintf(batchPromptTemplate, docsJSON)

	response, err := completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHierarchyInference, err)
	}

	var decoded map[string]proposal
	if err := decodeStrict(response, &decoded); err != nil {
		return nil, err
	}
	entries := make(map[string]*domain.HierarchyEntry, len(decoded))
	for id, p := range decoded {
		if err := validate.Struct(&p); err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", domain.ErrHierarchyInference, id, err)
		}
		entries[id] = p.entry()
	}
	return entries, nil
}

// decodeStrict extracts the JSON object embedded in free text (first "{"
// to last "}") and decodes it, rejecting trailing garbage.
func decodeStrict(response string, out any) error {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("%w: no JSON object in response", domain.ErrHierarchyInference)
	}
	raw := response[start : end+1]

	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHierarchyInference, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", domain.ErrHierarchyInference)
	}
	return nil
}

func dropEmpty(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

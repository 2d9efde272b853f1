package hierarchy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgraph/internal/domain"
)

// scriptedCompleter returns canned responses in order.
type scriptedCompleter struct {
	responses []string
	err       error
	prompts   []string
}

func (c *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	if len(c.responses) == 0 {
		return "", errors.New("no scripted response left")
	}
	r := c.responses[0]
	c.responses = c.responses[1:]
	return r, nil
}

func TestProposePlacementParsesSurroundedJSON(t *testing.T) {
	c := &scriptedCompleter{responses: []string{
		"Sure! Here is the placement:\n" +
			`{"title":"B paper","summary":"s","parent_id":"a","children":[],"level":1,` +
			`"relationships":["a"],"relationship_type":"child","key_concepts":["graphs"]}` +
			"\nLet me know if you need anything else.",
	}}

	got, err := ProposePlacement(context.Background(), c, "b", "summary of b",
		map[string]string{"a": "summary of a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "B paper", got.Title)
	assert.Equal(t, "a", got.ParentID)
	assert.Equal(t, []string{"a"}, got.Relationships)
	assert.Equal(t, []string{"graphs"}, got.KeyConcepts)
}

func TestProposePlacementNullParent(t *testing.T) {
	c := &scriptedCompleter{responses: []string{
		`{"title":"t","summary":"s","parent_id":null,"children":[],"level":0,` +
			`"relationships":[],"relationship_type":"root","key_concepts":[]}`,
	}}

	got, err := ProposePlacement(context.Background(), c, "a", "s", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "", got.ParentID)
	assert.Equal(t, 0, got.Level)
}

func TestProposePlacementNoJSON(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"I cannot determine a placement for this document."}}

	_, err := ProposePlacement(context.Background(), c, "a", "s", nil, nil)
	assert.True(t, errors.Is(err, domain.ErrHierarchyInference))
}

func TestProposePlacementMalformedJSON(t *testing.T) {
	c := &scriptedCompleter{responses: []string{`{"title": "unterminated`}}

	_, err := ProposePlacement(context.Background(), c, "a", "s", nil, nil)
	assert.True(t, errors.Is(err, domain.ErrHierarchyInference))
}

func TestProposePlacementInvalidLevel(t *testing.T) {
	c := &scriptedCompleter{responses: []string{
		`{"title":"t","summary":"s","parent_id":null,"children":[],"level":-2,` +
			`"relationships":[],"relationship_type":"root","key_concepts":[]}`,
	}}

	_, err := ProposePlacement(context.Background(), c, "a", "s", nil, nil)
	assert.True(t, errors.Is(err, domain.ErrHierarchyInference))
}

func TestProposePlacementCompleterError(t *testing.T) {
	c := &scriptedCompleter{err: errors.New("model unavailable")}

	_, err := ProposePlacement(context.Background(), c, "a", "s", nil, nil)
	assert.True(t, errors.Is(err, domain.ErrHierarchyInference))
}

func TestBatchAnalyze(t *testing.T) {
	c := &scriptedCompleter{responses: []string{
		"Here is the hierarchy:\n" +
			`{
  "intro": {"title":"Intro","summary":"s","parent_id":null,"children":["details"],"level":0,"relationships":[],"relationship_type":"root","key_concepts":["overview"]},
  "details": {"title":"Details","summary":"s","parent_id":"intro","children":[],"level":1,"relationships":[],"relationship_type":"child","key_concepts":[]}
}`,
	}}

	entries, err := BatchAnalyze(context.Background(), c,
		map[string]string{"intro": "si", "details": "sd"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "intro", entries["details"].ParentID)
	assert.Equal(t, []string{"details"}, entries["intro"].Children)
	// prompt embeds the summaries it was given
	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], "si")
	assert.Contains(t, c.prompts[0], "sd")
}

func TestBatchAnalyzeMalformed(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"not json at all"}}

	_, err := BatchAnalyze(context.Background(), c, map[string]string{"a": "s"})
	assert.True(t, errors.Is(err, domain.ErrHierarchyInference))
}

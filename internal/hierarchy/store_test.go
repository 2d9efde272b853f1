package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgraph/internal/domain"
)

func entry(parent string, level int) *domain.HierarchyEntry {
	return &domain.HierarchyEntry{ParentID: parent, Level: level}
}

func TestApplyLinksParentAndChild(t *testing.T) {
	s := NewStore(0)
	s.Apply("a", entry("", 0))
	s.Apply("b", entry("a", 0))

	a := s.Get("a")
	b := s.Get("b")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, []string{"b"}, a.Children)
	assert.Equal(t, 1, b.Level)
	assert.Equal(t, "a", b.ParentID)
	assert.Equal(t, 0, a.Level)
}

func TestApplyOverwritesExistingEntry(t *testing.T) {
	s := NewStore(0)
	s.Apply("a", &domain.HierarchyEntry{Title: "first"})
	s.Apply("a", &domain.HierarchyEntry{Title: "second"})
	assert.Equal(t, "second", s.Get("a").Title)
	assert.Equal(t, 1, s.Len())
}

func TestApplySimilarityScoresBecomeRelationships(t *testing.T) {
	s := NewStore(0.7)
	s.Apply("a", entry("", 0))
	s.Apply("b", entry("", 0))
	s.Apply("c", &domain.HierarchyEntry{
		SimilarityScores: map[string]float64{
			"a":       0.9,  // above threshold
			"b":       0.5,  // below threshold
			"ghost":   0.99, // unknown peer
			"c":       1.0,  // self
		},
	})

	c := s.Get("c")
	assert.Equal(t, []string{"a"}, c.Relationships)
	// symmetric edge added on the peer
	assert.Equal(t, []string{"c"}, s.Get("a").Relationships)
	assert.Empty(t, s.Get("b").Relationships)
}

func TestRepairResetsDanglingParent(t *testing.T) {
	s := NewStore(0)
	s.Apply("c", &domain.HierarchyEntry{ParentID: "nonexistent", Level: 3})

	c := s.Get("c")
	assert.Equal(t, "", c.ParentID)
	assert.Equal(t, 0, c.Level)
}

func TestRepairClearsSelfReferences(t *testing.T) {
	s := NewStore(0)
	s.Apply("a", &domain.HierarchyEntry{ParentID: "a", Relationships: []string{"a"}})

	a := s.Get("a")
	assert.Equal(t, "", a.ParentID)
	assert.Equal(t, 0, a.Level)
	assert.NotContains(t, a.Relationships, "a")
}

func TestRepairRecomputesLevelsTopDown(t *testing.T) {
	s := NewStore(0)
	s.Replace(map[string]*domain.HierarchyEntry{
		"root":  entry("", 5),
		"mid":   entry("root", 0),
		"leaf":  entry("mid", 9),
		"leaf2": entry("mid", 0),
	})

	assert.Equal(t, 0, s.Get("root").Level)
	assert.Equal(t, 1, s.Get("mid").Level)
	assert.Equal(t, 2, s.Get("leaf").Level)
	assert.Equal(t, 2, s.Get("leaf2").Level)
	assert.ElementsMatch(t, []string{"leaf", "leaf2"}, s.Get("mid").Children)
}

func TestRepairBreaksParentCycle(t *testing.T) {
	s := NewStore(0)
	s.Replace(map[string]*domain.HierarchyEntry{
		"a": entry("b", 1),
		"b": entry("c", 2),
		"c": entry("a", 3),
	})

	// the smallest cycle member becomes a root; the rest hang off it
	a := s.Get("a")
	assert.Equal(t, "", a.ParentID)
	assert.Equal(t, 0, a.Level)
	assert.Equal(t, "a", s.Get("c").ParentID)
	assert.Equal(t, 1, s.Get("c").Level)
	assert.Equal(t, 2, s.Get("b").Level)
}

func TestRepairSymmetrizesRelationships(t *testing.T) {
	s := NewStore(0)
	s.Replace(map[string]*domain.HierarchyEntry{
		"a": {Relationships: []string{"b", "missing"}},
		"b": {},
	})

	assert.Equal(t, []string{"b"}, s.Get("a").Relationships)
	assert.Equal(t, []string{"a"}, s.Get("b").Relationships)
}

func TestRepairIdempotent(t *testing.T) {
	s := NewStore(0)
	s.Replace(map[string]*domain.HierarchyEntry{
		"a": {ParentID: "b", Level: 7, Relationships: []string{"c", "c", "a"}},
		"b": {ParentID: "missing"},
		"c": {ParentID: "a"},
		"d": {ParentID: "d"},
	})

	first := s.Snapshot()
	s.ValidateAndRepair()
	second := s.Snapshot()
	assert.Equal(t, first, second)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := NewStore(0)
	s.Apply("a", &domain.HierarchyEntry{KeyConcepts: []string{"x"}})

	snap := s.Snapshot()
	snap["a"].KeyConcepts[0] = "mutated"
	snap["a"].Title = "mutated"

	assert.Equal(t, "x", s.Get("a").KeyConcepts[0])
	assert.Equal(t, "", s.Get("a").Title)
}

func TestInvariantsAfterRepair(t *testing.T) {
	s := NewStore(0)
	s.Replace(map[string]*domain.HierarchyEntry{
		"a": {ParentID: "b", Relationships: []string{"b"}},
		"b": {ParentID: "a"},
		"c": {ParentID: "gone", Relationships: []string{"c", "a"}},
	})

	snap := s.Snapshot()
	for id, e := range snap {
		assert.NotEqual(t, id, e.ParentID, "entry %s is its own parent", id)
		assert.NotContains(t, e.Relationships, id, "entry %s relates to itself", id)
		if e.ParentID == "" {
			assert.Equal(t, 0, e.Level, "root %s must be level 0", id)
		} else {
			parent := snap[e.ParentID]
			require.NotNil(t, parent)
			assert.Equal(t, parent.Level+1, e.Level, "entry %s level", id)
			assert.Contains(t, parent.Children, id)
		}
		for _, rel := range e.Relationships {
			assert.Contains(t, snap[rel].Relationships, id, "relationship %s<->%s not symmetric", id, rel)
		}
		for _, child := range e.Children {
			assert.Equal(t, id, snap[child].ParentID)
		}
	}
}

// Package hierarchy maintains the per-document relational graph: parent
// links, child sets, relationship edges and tree levels. Model-driven
// updates arrive in any shape; ValidateAndRepair restores the invariants
// after every change.
package hierarchy

import (
	"sort"
	"sync"

	"docgraph/internal/domain"
)

// DefaultRelationshipThreshold is the minimum similarity score at which a
// proposed peer becomes a symmetric relationship.
const DefaultRelationshipThreshold = 0.7

// Store is the in-memory hierarchy graph. All mutation goes through the
// write lock; Snapshot hands out deep copies for lock-free reads.
type Store struct {
	mu                    sync.RWMutex
	entries               map[string]*domain.HierarchyEntry
	relationshipThreshold float64
}

// NewStore creates an empty store. A non-positive threshold falls back to
// the default.
func NewStore(relationshipThreshold float64) *Store {
	if relationshipThreshold <= 0 {
		relationshipThreshold = DefaultRelationshipThreshold
	}
	return &Store{
		entries:               make(map[string]*domain.HierarchyEntry),
		relationshipThreshold: relationshipThreshold,
	}
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns a copy of the entry for docID, or nil if absent.
func (s *Store) Get(docID string) *domain.HierarchyEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[docID].Clone()
}

// Snapshot returns a deep copy of the whole graph, safe to read while
// ingestion keeps mutating the store.
func (s *Store) Snapshot() map[string]*domain.HierarchyEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*domain.HierarchyEntry, len(s.entries))
	for id, e := range s.entries {
		out[id] = e.Clone()
	}
	return out
}

// Replace swaps in a full entry map, e.g. from persisted state or a batch
// analysis, then repairs it.
func (s *Store) Replace(entries map[string]*domain.HierarchyEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*domain.HierarchyEntry, len(entries))
	for id, e := range entries {
		if e == nil {
			continue
		}
		s.entries[id] = e.Clone()
	}
	s.repairLocked()
}

// Apply merges a proposed placement for docID into the graph: the entry is
// stored, the parent link resolved, similarity scores at or above the
// threshold become symmetric relationships, and the graph is repaired.
// A duplicate docID overwrites the previous entry (last write wins).
func (s *Store) Apply(docID string, proposed *domain.HierarchyEntry) {
	if proposed == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := proposed.Clone()
	s.entries[docID] = entry

	for peer, score := range entry.SimilarityScores {
		if peer == docID || score < s.relationshipThreshold {
			continue
		}
		if _, ok := s.entries[peer]; !ok {
			continue
		}
		entry.Relationships = append(entry.Relationships, peer)
	}
	s.repairLocked()
}

// ValidateAndRepair enforces the graph invariants. It is idempotent:
// running it twice in a row produces no further change.
func (s *Store) ValidateAndRepair() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repairLocked()
}

// repairLocked runs the five repair passes. Caller holds the write lock.
func (s *Store) repairLocked() {
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// No entry may be its own parent or its own relationship.
	for _, id := range ids {
		e := s.entries[id]
		if e.ParentID == id {
			e.ParentID = ""
			e.Level = 0
		}
	}

	// Parent references to unknown entries reset to root.
	for _, id := range ids {
		e := s.entries[id]
		if e.ParentID == "" {
			continue
		}
		if _, ok := s.entries[e.ParentID]; !ok {
			e.ParentID = ""
			e.Level = 0
		}
	}

	s.breakParentCycles(ids)

	// Children become exactly the set of entries whose parent points here.
	children := make(map[string][]string, len(s.entries))
	for _, id := range ids {
		if p := s.entries[id].ParentID; p != "" {
			children[p] = append(children[p], id)
		}
	}
	for _, id := range ids {
		s.entries[id].Children = children[id]
	}

	// Levels recomputed top-down: roots at 0, each child one below its
	// parent. Cycles were broken above so every entry is reachable.
	var walk func(id string, level int)
	walk = func(id string, level int) {
		s.entries[id].Level = level
		for _, child := range children[id] {
			walk(child, level+1)
		}
	}
	for _, id := range ids {
		if s.entries[id].ParentID == "" {
			walk(id, 0)
		}
	}

	// Relationships: drop self and unknown ids, then symmetrize.
	for _, id := range ids {
		e := s.entries[id]
		kept := e.Relationships[:0]
		for _, rel := range e.Relationships {
			if rel == id {
				continue
			}
			if _, ok := s.entries[rel]; !ok {
				continue
			}
			kept = append(kept, rel)
		}
		e.Relationships = kept
	}
	for _, id := range ids {
		for _, rel := range s.entries[id].Relationships {
			peer := s.entries[rel]
			if !contains(peer.Relationships, id) {
				peer.Relationships = append(peer.Relationships, id)
			}
		}
	}
	for _, id := range ids {
		e := s.entries[id]
		e.Relationships = sortedUnique(e.Relationships)
		e.Children = sortedUnique(e.Children)
	}
}

// breakParentCycles clears the parent link of the lexicographically
// smallest member of each parent cycle, turning it into a root.
func (s *Store) breakParentCycles(ids []string) {
	reachable := make(map[string]bool, len(s.entries))
	var mark func(id string)
	mark = func(id string) {
		if reachable[id] {
			return
		}
		reachable[id] = true
		for _, child := range ids {
			if s.entries[child].ParentID == id {
				mark(child)
			}
		}
	}
	for _, id := range ids {
		if s.entries[id].ParentID == "" {
			mark(id)
		}
	}
	// ids is sorted, so the first unreachable entry is the smallest member
	// of some cycle. Breaking it frees its whole subtree; repeat until all
	// entries hang off a root.
	for {
		broken := false
		for _, id := range ids {
			if !reachable[id] {
				s.entries[id].ParentID = ""
				s.entries[id].Level = 0
				mark(id)
				broken = true
				break
			}
		}
		if !broken {
			return
		}
	}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func sortedUnique(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	sort.Strings(list)
	out := list[:1]
	for _, v := range list[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

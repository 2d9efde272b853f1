// Package state persists the engine's summary memo and hierarchy graph as
// a single JSON snapshot, rewritten after every successful ingestion.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"docgraph/internal/domain"
)

// State is the durable record loaded at startup.
type State struct {
	Summaries   map[string]string                 `json:"summaries"`
	Hierarchy   map[string]*domain.HierarchyEntry `json:"hierarchy"`
	LastUpdated time.Time                         `json:"last_updated"`
}

// Empty returns a State with allocated, empty maps.
func Empty() *State {
	return &State{
		Summaries: make(map[string]string),
		Hierarchy: make(map[string]*domain.HierarchyEntry),
	}
}

// Load reads the snapshot at path. A missing, unreadable or corrupt file
// yields empty state, never an error: the engine starts fresh and rebuilds
// as documents are ingested.
func Load(path string, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("state file unreadable, starting empty", "path", path, "error", err)
		}
		return Empty()
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		logger.Warn("state file corrupt, starting empty", "path", path, "error", err)
		return Empty()
	}
	if st.Summaries == nil {
		st.Summaries = make(map[string]string)
	}
	if st.Hierarchy == nil {
		st.Hierarchy = make(map[string]*domain.HierarchyEntry)
	}
	return &st
}

// Save writes the snapshot atomically: to a temp file in the same
// directory, then renamed over path, so a crash mid-write never leaves a
// corrupt file behind.
func Save(path string, st *State) error {
	st.LastUpdated = time.Now().UTC()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStatePersistence, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStatePersistence, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStatePersistence, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrStatePersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrStatePersistence, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrStatePersistence, err)
	}
	return nil
}

// Package loader reads source documents from the filesystem and derives
// their stable identifiers and metadata.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docgraph/internal/domain"
)

// DefaultDocType is the free-form classification tag attached to every
// ingested document.
const DefaultDocType = "research_paper"

var supportedExts = map[string]struct{}{
	".txt": {},
	".md":  {},
}

// Supported reports whether the file extension is one the loader accepts.
func Supported(path string) bool {
	_, ok := supportedExts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// DocID derives the document identifier from the filename stem. It is the
// corpus-wide key for summaries, hierarchy entries and node addresses.
func DocID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadFile reads one document. Unreadable or unsupported files return an
// error wrapping domain.ErrLoad.
func LoadFile(path string) (domain.Document, error) {
	if !Supported(path) {
		return domain.Document{}, fmt.Errorf("%w: unsupported file type %q", domain.ErrLoad, filepath.Ext(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrLoad, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrLoad, err)
	}
	return domain.Document{
		ID:   DocID(path),
		Path: path,
		Text: string(data),
		Metadata: domain.DocumentMetadata{
			FileName:     filepath.Base(path),
			FilePath:     path,
			FileType:     strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
			DocType:      DefaultDocType,
			LastModified: info.ModTime().UTC(),
			ProcessedAt:  time.Now().UTC(),
		},
	}, nil
}

// LoadDirectory walks dir recursively and loads every supported file.
// An empty result is not an error; callers decide whether that matters.
func LoadDirectory(dir string) ([]domain.Document, error) {
	var docs []domain.Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		doc, err := LoadFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLoad, err)
	}
	return docs, nil
}

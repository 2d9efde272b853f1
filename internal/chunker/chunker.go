package chunker

import (
	"fmt"

	"docgraph/internal/domain"
)

// TextChunker splits documents into fixed-size nodes with overlap between
// consecutive nodes. Sizes are in runes so multi-byte text chunks evenly.
type TextChunker struct {
	chunkSize int
	overlap   int
}

// New creates a chunker. overlap must be smaller than chunkSize or
// consecutive nodes would never advance.
func New(chunkSize, overlap int) (*TextChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be non-negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", overlap, chunkSize)
	}
	return &TextChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Chunk splits the document text into an ordered node sequence covering it
// end to end. A document shorter than the chunk size yields exactly one
// node. Each node records its absolute [start, end) rune span.
func (c *TextChunker) Chunk(doc domain.Document) ([]domain.Node, error) {
	runes := []rune(doc.Text)
	stride := c.chunkSize - c.overlap

	var spans [][2]int
	for start := 0; ; start += stride {
		end := start + c.chunkSize
		if end >= len(runes) {
			spans = append(spans, [2]int{start, len(runes)})
			break
		}
		spans = append(spans, [2]int{start, end})
	}

	nodes := make([]domain.Node, len(spans))
	for i, span := range spans {
		nodes[i] = domain.Node{
			DocumentID: doc.ID,
			Index:      i,
			TotalNodes: len(spans),
			StartChar:  span[0],
			EndChar:    span[1],
			Text:       string(runes[span[0]:span[1]]),
		}
	}
	return nodes, nil
}

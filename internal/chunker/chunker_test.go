package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgraph/internal/domain"
)

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		overlap   int
		wantError bool
	}{
		{"valid", 100, 20, false},
		{"zero overlap", 100, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 150, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChunkShortDocumentSingleNode(t *testing.T) {
	c, err := New(1024, 20)
	require.NoError(t, err)

	nodes, err := c.Chunk(domain.Document{ID: "d", Text: "tiny"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, 0, nodes[0].Index)
	assert.Equal(t, 1, nodes[0].TotalNodes)
	assert.Equal(t, 0, nodes[0].StartChar)
	assert.Equal(t, 4, nodes[0].EndChar)
	assert.Equal(t, "tiny", nodes[0].Text)
}

func TestChunkCoversDocumentWithOverlap(t *testing.T) {
	c, err := New(10, 3)
	require.NoError(t, err)

	text := strings.Repeat("abcdefghij", 5) // 50 runes
	nodes, err := c.Chunk(domain.Document{ID: "d", Text: text})
	require.NoError(t, err)
	require.NotEmpty(t, nodes)

	runes := []rune(text)
	for i, n := range nodes {
		assert.Equal(t, i, n.Index)
		assert.Equal(t, len(nodes), n.TotalNodes)
		assert.Equal(t, string(runes[n.StartChar:n.EndChar]), n.Text)
		if i > 0 {
			// consecutive nodes share exactly the overlap
			assert.Equal(t, nodes[i-1].EndChar-3, n.StartChar)
		}
	}
	// no gap at either end
	assert.Equal(t, 0, nodes[0].StartChar)
	assert.Equal(t, len(runes), nodes[len(nodes)-1].EndChar)
}

func TestChunkMultiByteRunes(t *testing.T) {
	c, err := New(4, 1)
	require.NoError(t, err)

	nodes, err := c.Chunk(domain.Document{ID: "d", Text: "日本語のテキストです"})
	require.NoError(t, err)
	for _, n := range nodes {
		assert.LessOrEqual(t, n.EndChar-n.StartChar, 4)
	}
	assert.Equal(t, 10, nodes[len(nodes)-1].EndChar)
}

func TestChunkEmptyDocument(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	nodes, err := c.Chunk(domain.Document{ID: "d", Text: ""})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "", nodes[0].Text)
}

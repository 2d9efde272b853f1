package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgraph/internal/domain"
)

type countingCompleter struct {
	calls int
	reply string
	err   error
}

func (c *countingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func TestLLMSummarizeTruncatesPreview(t *testing.T) {
	c := &countingCompleter{reply: "short summary"}
	s := NewLLM(c)

	long := strings.Repeat("x", 5000)
	out, err := s.Summarize(context.Background(), domain.Document{ID: "d", Text: long})
	require.NoError(t, err)
	assert.Equal(t, "short summary", out)
	assert.Equal(t, 1, c.calls)
}

func TestLLMSummarizeError(t *testing.T) {
	c := &countingCompleter{err: errors.New("model down")}
	s := NewLLM(c)

	_, err := s.Summarize(context.Background(), domain.Document{ID: "d", Text: "text"})
	assert.True(t, errors.Is(err, domain.ErrSummaryGeneration))
}

func TestMemoizedCallsInnerOnce(t *testing.T) {
	c := &countingCompleter{reply: "cached"}
	m := NewMemoized(NewLLM(c), nil)
	doc := domain.Document{ID: "d", Text: "text"}

	for i := 0; i < 3; i++ {
		out, err := m.Summarize(context.Background(), doc)
		require.NoError(t, err)
		assert.Equal(t, "cached", out)
	}
	assert.Equal(t, 1, c.calls)
}

func TestMemoizedSeededFromState(t *testing.T) {
	c := &countingCompleter{reply: "fresh"}
	m := NewMemoized(NewLLM(c), map[string]string{"d": "from disk"})

	out, err := m.Summarize(context.Background(), domain.Document{ID: "d", Text: "text"})
	require.NoError(t, err)
	assert.Equal(t, "from disk", out)
	assert.Equal(t, 0, c.calls)
}

func TestMemoizedDoesNotCacheFailures(t *testing.T) {
	c := &countingCompleter{err: errors.New("down")}
	m := NewMemoized(NewLLM(c), nil)
	doc := domain.Document{ID: "d", Text: "text"}

	_, err := m.Summarize(context.Background(), doc)
	require.Error(t, err)

	c.err = nil
	c.reply = "recovered"
	out, err := m.Summarize(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 2, c.calls)
}

func TestMemoizedEvict(t *testing.T) {
	c := &countingCompleter{reply: "v"}
	m := NewMemoized(NewLLM(c), map[string]string{"d": "old"})
	m.Evict("d")

	out, err := m.Summarize(context.Background(), domain.Document{ID: "d", Text: "text"})
	require.NoError(t, err)
	assert.Equal(t, "v", out)
	assert.Equal(t, 1, c.calls)
}

func TestFrequencyPicksTopSentences(t *testing.T) {
	s := NewFrequency(1)
	doc := domain.Document{Text: "Vectors measure similarity. Vectors and similarity drive vector search ranking. Weather is unrelated."}
	out, err := s.Summarize(context.Background(), doc)
	require.NoError(t, err)
	assert.Contains(t, out, "similarity")
}

func TestFrequencyNoSentences(t *testing.T) {
	s := NewFrequency(3)
	out, err := s.Summarize(context.Background(), domain.Document{Text: "  just a fragment  "})
	require.NoError(t, err)
	assert.Equal(t, "just a fragment", out)
}

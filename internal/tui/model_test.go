package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgraph/internal/domain"
	"docgraph/internal/engine"
)

type stubPort struct {
	result domain.QueryResult
	err    error
	calls  int
}

func (s *stubPort) Query(context.Context, string, engine.QueryOptions) (domain.QueryResult, error) {
	s.calls++
	return s.result, s.err
}

func enterKey() tea.Msg { return tea.KeyMsg{Type: tea.KeyEnter} }

// runBatch executes the commands returned by Update and returns the first
// query completion message among their results.
func runBatch(t *testing.T, cmd tea.Cmd) queryDoneMsg {
	t.Helper()
	require.NotNil(t, cmd)
	batch, ok := cmd().(tea.BatchMsg)
	require.True(t, ok)
	for _, c := range batch {
		if done, ok := c().(queryDoneMsg); ok {
			return done
		}
	}
	t.Fatal("no query completion message in batch")
	return queryDoneMsg{}
}

func TestEnterRunsQueryOffTheEventLoop(t *testing.T) {
	port := &stubPort{result: domain.QueryResult{
		Answer:      "because",
		Sources:     []domain.Source{{Text: "why it works."}},
		SourceCount: 1,
	}}
	m := New(port, engine.QueryOptions{Limit: 5})
	m.input.SetValue("why")

	updated, cmd := m.Update(enterKey())
	m = updated.(Model)
	assert.True(t, m.busy)
	assert.Zero(t, port.calls, "query must not run inside Update")

	done := runBatch(t, cmd)
	assert.Equal(t, 1, port.calls)

	updated, _ = m.Update(done)
	m = updated.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, "because", m.result.Answer)
	assert.Contains(t, m.status, `1 sources for "why"`)
}

func TestEnterIgnoredWhileQueryInFlight(t *testing.T) {
	m := New(&stubPort{}, engine.QueryOptions{})
	m.input.SetValue("first")
	updated, _ := m.Update(enterKey())
	m = updated.(Model)
	require.True(t, m.busy)

	m.input.SetValue("second")
	updated, cmd := m.Update(enterKey())
	m = updated.(Model)
	assert.True(t, m.busy)
	if cmd != nil {
		_, isBatch := cmd().(tea.BatchMsg)
		assert.False(t, isBatch, "second enter must not start another query")
	}
}

func TestQueryErrorClearsResult(t *testing.T) {
	m := New(&stubPort{}, engine.QueryOptions{})
	m.result = domain.QueryResult{Answer: "stale", SourceCount: 1}
	m.busy = true

	updated, _ := m.Update(queryDoneMsg{query: "boom", err: errors.New("embed failed")})
	m = updated.(Model)
	assert.False(t, m.busy)
	assert.Empty(t, m.result.Answer)
	assert.Contains(t, m.status, "embed failed")
}

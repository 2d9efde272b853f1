package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docgraph/internal/domain"
	"docgraph/internal/engine"
)

// QueryPort is the TUI-facing subset of the engine.
type QueryPort interface {
	Query(ctx context.Context, text string, opts engine.QueryOptions) (domain.QueryResult, error)
}

// queryDoneMsg carries a finished query round-trip back into Update.
type queryDoneMsg struct {
	query  string
	result domain.QueryResult
	err    error
}

// Model is the Bubble Tea model for the interactive query session.
type Model struct {
	engine    QueryPort
	opts      engine.QueryOptions
	input     textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	result    domain.QueryResult
	status    string
	cursor    int
	ready     bool
	busy      bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(eng QueryPort, opts engine.QueryOptions) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	return Model{engine: eng, opts: opts, input: ti, viewport: vp, spinner: sp, status: "Index ready. Type to query."}
}

// runQuery issues the engine round-trip as a command so the event loop
// stays responsive while embed, search and synthesis run.
func (m Model) runQuery(q string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.engine.Query(context.Background(), q, m.opts)
		return queryDoneMsg{query: q, result: res, err: err}
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and query boxes
		_, rh := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + qh + 1 // header + status + query box + spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResult())
		return m, nil
	case queryDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.result = domain.QueryResult{}
		} else if msg.result.SourceCount == 0 {
			m.status = fmt.Sprintf("No matches for %q", msg.query)
			m.result = msg.result
		} else {
			m.status = fmt.Sprintf("%d sources for %q", msg.result.SourceCount, msg.query)
			m.result = msg.result
			m.cursor = 0
			m.lastQuery = msg.query
		}
		m.viewport.SetContent(m.renderResult())
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = "Searching..."
				return m, tea.Batch(m.spinner.Tick, m.runQuery(q))
			}
		case "down":
			if m.result.SourceCount > 0 {
				m.cursor = (m.cursor + 1) % m.result.SourceCount
				m.viewport.SetContent(m.renderResult())
				return m, nil
			}
		case "up":
			if m.result.SourceCount > 0 {
				m.cursor = (m.cursor - 1 + m.result.SourceCount) % m.result.SourceCount
				m.viewport.SetContent(m.renderResult())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docgraph")
	body := answerBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderResult() string {
	if m.result.SourceCount == 0 && m.result.Answer == "" {
		return "No results yet."
	}
	answer := answerStyle.Render("Answer") + "\n" + m.result.Answer
	if m.result.SourceCount == 0 {
		return answer
	}
	src := m.result.Sources[m.cursor]
	title := fmt.Sprintf("Source %d/%d  score=%.3f  %s (node %d/%d)",
		m.cursor+1, m.result.SourceCount, src.Score,
		src.Metadata.FileName, src.NodeInfo.Index+1, src.NodeInfo.TotalNodes)
	body := highlightBestSentence(src.Context, m.lastQuery)
	parts := []string{answer, "", answerStyle.Render(title), body}
	if src.Hierarchy != nil && src.Hierarchy.Title != "" {
		parts = append(parts, "", fmt.Sprintf("Hierarchy: %s (level %d)", src.Hierarchy.Title, src.Hierarchy.Level))
	}
	return strings.Join(parts, "\n")
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerStyle    = lipgloss.NewStyle().Bold(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"reimburse/internal/service"
)

// Pipeline is the TUI-facing subset of the session.
type Pipeline interface {
	ProcessFile(ctx context.Context, path string) (int, error)
	Ask(ctx context.Context, question string) (*service.Reply, error)
}

type mode int

const (
	modePath mode = iota
	modeQuestion
)

type processedMsg struct {
	path    string
	records int
	err     error
}

type answeredMsg struct {
	question string
	reply    *service.Reply
	err      error
}

type loadMsg struct{ path string }

type fileChangedMsg struct{ path string }

type watchClosedMsg struct{}

// Option configures a Model.
type Option func(*Model)

// WithDocument processes path as soon as the program starts.
func WithDocument(path string) Option {
	return func(m *Model) { m.initialPath = path }
}

// WithChanges re-processes the current document whenever its path is
// received on changes.
func WithChanges(changes <-chan string) Option {
	return func(m *Model) { m.changes = changes }
}

// Model is the Bubble Tea model for the reimbursement assistant.
type Model struct {
	ctx      context.Context
	pipeline Pipeline

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	mode        mode
	busy        bool
	ready       bool
	showContext bool
	status      string

	source        string
	records       int
	reply         *service.Reply
	lastQuestion  string
	initialPath   string
	changes       <-chan string
	pendingReload bool
}

// New creates a new TUI model instance.
func New(ctx context.Context, pipeline Pipeline, opts ...Option) Model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:      ctx,
		pipeline: pipeline,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.setMode(modePath)
	m.status = "Enter the path to a CSV or JSON tariff document."
	m.viewport.SetContent(m.renderBody())
	return m
}

// Init starts the cursor blink, the initial document load and the watch loop.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.initialPath != "" {
		cmds = append(cmds, func() tea.Msg { return loadMsg{path: m.initialPath} })
	}
	if m.changes != nil {
		cmds = append(cmds, waitForChange(m.changes))
	}
	return tea.Batch(cmds...)
}

// Update handles key, window and pipeline events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := bodyBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + document, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.viewport.SetContent(m.renderBody())
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case processedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.source = msg.path
			m.records = msg.records
			m.reply = nil
			m.showContext = false
			m.setMode(modeQuestion)
			if msg.records == 0 {
				m.status = fmt.Sprintf("%s contains no records.", filepath.Base(msg.path))
			} else {
				m.status = fmt.Sprintf("Indexed %d records from %s. Ask a question.", msg.records, filepath.Base(msg.path))
			}
		}
		m.viewport.SetContent(m.renderBody())
		return m, m.reloadIfPending()

	case answeredMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.reply = msg.reply
			m.lastQuestion = msg.question
			m.status = "tab: toggle context  ctrl+o: load another document"
			m.input.Reset()
		}
		m.viewport.SetContent(m.renderBody())
		m.viewport.GotoTop()
		return m, m.reloadIfPending()

	case loadMsg:
		if m.busy {
			return m, nil
		}
		return m, m.startProcessing(msg.path)

	case fileChangedMsg:
		cmd := waitForChange(m.changes)
		if m.source == "" || !samePath(msg.path, m.source) {
			return m, cmd
		}
		if m.busy {
			m.pendingReload = true
			return m, cmd
		}
		return m, tea.Batch(cmd, m.startProcessing(m.source))

	case watchClosedMsg:
		m.changes = nil
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if m.busy {
				return m, nil
			}
			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				return m, nil
			}
			if m.mode == modePath {
				return m, m.startProcessing(value)
			}
			return m, m.startAsking(value)
		case "tab":
			if m.reply != nil {
				m.showContext = !m.showContext
				m.viewport.SetContent(m.renderBody())
				m.viewport.GotoTop()
			}
			return m, nil
		case "ctrl+o":
			if !m.busy {
				m.setMode(modePath)
				m.status = "Enter the path to a CSV or JSON tariff document."
			}
			return m, nil
		case "esc":
			if !m.busy && m.mode == modePath && m.source != "" {
				m.setMode(modeQuestion)
			}
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	if m.busy {
		return m, nil
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
	header := lipgloss.NewStyle().Bold(true).Render("Hospital Reimbursement Assistant")
	doc := "No document loaded"
	if m.source != "" {
		doc = fmt.Sprintf("%s (%d records)", filepath.Base(m.source), m.records)
	}
	doc = dimStyle.Render(doc)
	body := bodyBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + doc + "\n" + body + "\n" + input + "\n" + status
}

func (m *Model) setMode(md mode) {
	m.mode = md
	m.input.Reset()
	if md == modePath {
		m.input.Prompt = "Document: "
		m.input.Placeholder = "path/to/tariff.csv and press Enter"
		return
	}
	m.input.Prompt = "Question: "
	m.input.Placeholder = "Ask about a procedure and press Enter"
}

func (m *Model) startProcessing(path string) tea.Cmd {
	m.busy = true
	m.pendingReload = false
	m.status = fmt.Sprintf("Processing %s...", filepath.Base(path))
	ctx, pipeline := m.ctx, m.pipeline
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		n, err := pipeline.ProcessFile(ctx, path)
		return processedMsg{path: absPath(path), records: n, err: err}
	})
}

func (m *Model) startAsking(question string) tea.Cmd {
	m.busy = true
	m.status = "Generating answer..."
	ctx, pipeline := m.ctx, m.pipeline
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		reply, err := pipeline.Ask(ctx, question)
		return answeredMsg{question: question, reply: reply, err: err}
	})
}

func (m *Model) reloadIfPending() tea.Cmd {
	if !m.pendingReload || m.source == "" {
		m.pendingReload = false
		return nil
	}
	return m.startProcessing(m.source)
}

func waitForChange(changes <-chan string) tea.Cmd {
	return func() tea.Msg {
		path, ok := <-changes
		if !ok {
			return watchClosedMsg{}
		}
		return fileChangedMsg{path: path}
	}
}

func (m Model) renderBody() string {
	if m.reply == nil {
		if m.source == "" {
			return "Load a tariff document to begin."
		}
		return "Ask a question about the loaded tariff."
	}
	if !m.showContext {
		return m.reply.Display()
	}
	results := m.reply.Context
	if len(results) == 0 {
		return "No records were retrieved."
	}
	parts := make([]string, len(results))
	for i, r := range results {
		title := fmt.Sprintf("Record %d/%d  score=%.3f", i+1, len(results), r.Score)
		parts[i] = title + "\n" + highlightBestSentence(r.Record.Content, m.lastQuestion)
	}
	return strings.Join(parts, "\n\n")
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func samePath(a, b string) bool {
	return absPath(a) == absPath(b)
}

var (
	bodyBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	unicodeWordRe  = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?\n]+[.!?]?`)
)

// highlightBestSentence marks the line or sentence sharing the most words
// with the query. Records are rendered one field per line, so line breaks
// split sentences too.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return text
	}

	type loc struct{ line, start, end int }
	var (
		best      loc
		bestScore = 0
	)
	for li, line := range lines {
		for _, span := range sentenceRe.FindAllStringIndex(line, -1) {
			score := tokenOverlapScore(qTokens, line[span[0]:span[1]])
			if score > bestScore {
				bestScore = score
				best = loc{line: li, start: span[0], end: span[1]}
			}
		}
	}
	if bestScore == 0 {
		return text
	}
	line := lines[best.line]
	lines[best.line] = line[:best.start] + highlightStyle.Render(line[best.start:best.end]) + line[best.end:]
	return strings.Join(lines, "\n")
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

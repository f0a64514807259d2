package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docchat/internal/domain"
	"docchat/internal/session"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusPicker
)

// Model is the Bubble Tea model for the document chat application.
type Model struct {
	svc *session.Session

	input    textinput.Model
	viewport viewport.Model

	available []string
	checked   map[int]bool
	cursor    int
	focus     focusArea

	question string // question of the in-flight turn
	pending  string // answer text streamed so far
	busy     bool
	status  string
	ready   bool
	width   int
}

// Messages produced by the background commands.
type (
	buildDoneMsg struct {
		report session.BuildReport
		err    error
	}
	askStartedMsg struct {
		stream *session.AnswerStream
		err    error
	}
	tokenMsg struct {
		stream *session.AnswerStream
		token  string
	}
	turnDoneMsg struct {
		turn domain.Turn
	}
)

// New creates the TUI model over an assembled session.
func New(svc *session.Session, available []string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask me anything about the selected documents"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		svc:       svc,
		input:     ti,
		viewport:  vp,
		available: available,
		checked:   make(map[int]bool),
		focus:     focusPicker,
		status:    "Select documents (space to toggle, enter to load).",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, ch := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + settings, status, input frame, spacer
		vh := msg.Height - reserved - ch
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width-pickerWidth-4)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		return m.handleKey(msg)

	case buildDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("%d documents loaded (%d chunks).", msg.report.Documents, msg.report.Chunks)
		if msg.report.Truncated > 0 {
			m.status += fmt.Sprintf(" %d extra selections ignored.", msg.report.Truncated)
		}
		m.focus = focusInput
		m.input.Focus()
		return m, nil

	case askStartedMsg:
		if msg.err != nil {
			m.busy = false
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		return m, waitForToken(msg.stream)

	case tokenMsg:
		m.pending += msg.token
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, waitForToken(msg.stream)

	case turnDoneMsg:
		m.busy = false
		m.question = ""
		m.pending = ""
		m.status = "Ready."
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		if m.focus == focusInput {
			m.focus = focusPicker
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil
	case "ctrl+p":
		return m.cycleModel()
	case "ctrl+t":
		return m.cycleTemperature()
	case "ctrl+e":
		on := !m.svc.Settings().Evaluate
		m.svc.SetEvaluation(on)
		if on {
			m.status = "Evaluation enabled."
		} else {
			m.status = "Evaluation disabled."
		}
		return m, nil
	case "ctrl+l":
		if m.busy {
			return m, nil
		}
		m.svc.Clear()
		m.question = ""
		m.pending = ""
		m.checked = make(map[int]bool)
		m.focus = focusPicker
		m.input.Blur()
		m.status = "Conversation cleared. Select documents to start again."
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	}

	if m.focus == focusPicker {
		switch msg.String() {
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down":
			if m.cursor < len(m.available)-1 {
				m.cursor++
			}
			return m, nil
		case " ":
			if len(m.available) > 0 {
				m.checked[m.cursor] = !m.checked[m.cursor]
			}
			return m, nil
		case "enter":
			return m.applySelection()
		}
		return m, nil
	}

	if msg.String() == "enter" {
		return m.submitQuestion()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) applySelection() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	var names []string
	for i, name := range m.available {
		if m.checked[i] {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		m.status = "Please select at least one document."
		return m, nil
	}
	m.busy = true
	m.status = "Indexing documents..."
	svc := m.svc
	return m, func() tea.Msg {
		report, err := svc.SelectDocuments(context.Background(), names)
		return buildDoneMsg{report: report, err: err}
	}
}

func (m Model) submitQuestion() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	question := strings.TrimSpace(m.input.Value())
	if question == "" {
		return m, nil
	}
	m.input.Reset()
	m.busy = true
	m.question = question
	m.pending = ""
	m.status = "Thinking..."
	m.viewport.SetContent(m.renderTranscript())
	svc := m.svc
	return m, func() tea.Msg {
		stream, err := svc.Ask(context.Background(), question)
		return askStartedMsg{stream: stream, err: err}
	}
}

func (m Model) cycleModel() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	models := m.svc.Models()
	current := m.svc.Settings().Model
	next := models[0]
	for i, name := range models {
		if name == current {
			next = models[(i+1)%len(models)]
			break
		}
	}
	m.busy = true
	m.status = "Switching to " + next + "..."
	svc := m.svc
	return m, func() tea.Msg {
		err := svc.SetModel(context.Background(), next)
		return buildDoneMsg{
			report: session.BuildReport{Chunks: svc.IndexSize()},
			err:    err,
		}
	}
}

func (m Model) cycleTemperature() (tea.Model, tea.Cmd) {
	t := m.svc.Settings().Temperature + 0.1
	if t > 1.0 {
		t = 0.0
	}
	if err := m.svc.SetTemperature(t); err != nil {
		m.status = "Error: " + err.Error()
		return m, nil
	}
	m.status = fmt.Sprintf("Temperature set to %.1f", t)
	return m, nil
}

// waitForToken pulls the next streamed token; once the token channel closes
// it waits on Done for the finished turn.
func waitForToken(stream *session.AnswerStream) tea.Cmd {
	return func() tea.Msg {
		token, ok := <-stream.Tokens
		if ok {
			return tokenMsg{stream: stream, token: token}
		}
		return turnDoneMsg{turn: <-stream.Done}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	settings := m.svc.Settings()
	header := titleStyle.Render("Document Chat")
	evalLabel := "off"
	if settings.Evaluate {
		evalLabel = "on"
	}
	info := infoStyle.Render(fmt.Sprintf(
		"model %s | temp %.1f | eval %s | %s | ^P model ^T temp ^E eval ^L clear",
		settings.Model, settings.Temperature, evalLabel, m.svc.State(),
	))
	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		pickerBoxStyle.Width(pickerWidth).Render(m.renderPicker()),
		chatBoxStyle.Render(m.viewport.View()),
	)
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + info + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderPicker() string {
	if len(m.available) == 0 {
		return "No .txt documents found."
	}
	var b strings.Builder
	b.WriteString("Documents (max 4):\n")
	for i, name := range m.available {
		cursor := "  "
		if m.focus == focusPicker && i == m.cursor {
			cursor = "> "
		}
		mark := "[ ]"
		if m.checked[i] {
			mark = "[x]"
		}
		line := cursor + mark + " " + name
		if m.checked[i] {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderTranscript() string {
	turns := m.svc.Turns()
	if len(turns) == 0 && m.question == "" {
		return "No messages yet. Load documents and ask a question."
	}
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(userStyle.Render("You: ") + turn.Question + "\n\n")
		b.WriteString(assistantStyle.Render("Assistant: ") + turn.Answer + "\n\n")
		if turn.Report != "" {
			b.WriteString(reportStyle.Render("Evaluation:\n"+turn.Report) + "\n\n")
		}
	}
	if m.question != "" {
		b.WriteString(userStyle.Render("You: ") + m.question + "\n\n")
		b.WriteString(assistantStyle.Render("Assistant: ") + m.pending)
	}
	return strings.TrimRight(b.String(), "\n")
}

const pickerWidth = 34

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	pickerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	reportStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

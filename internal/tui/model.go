package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Asker is the chat-facing side of the query orchestrator.
type Asker interface {
	Ask(ctx context.Context, question string) string
}

type role int

const (
	roleUser role = iota
	roleBot
)

type turn struct {
	role role
	text string
}

// answerMsg carries a finished answer back into the update loop.
type answerMsg struct {
	answer string
}

// Model is the Bubble Tea model for the chat UI. The conversation history
// lives here only; every question is sent to the Asker on its own.
type Model struct {
	asker    Asker
	ctx      context.Context
	title    string
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	history  []turn
	pending  bool
	ready    bool
	status   string
}

const greeting = "안녕하세요! 기업 리뷰와 면접 후기에 대해 무엇이든 물어보세요."

// New creates a chat model. ctx bounds every Ask call.
func New(ctx context.Context, asker Asker, title string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "질문을 입력하고 Enter를 누르세요"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(userColor))

	return Model{
		asker:    asker,
		ctx:      ctx,
		title:    title,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		history:  []turn{{role: roleBot, text: greeting}},
		status:   "Enter: 전송 · Ctrl+C: 종료",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, qh := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + 1 + qh // header, spacer, status, input frame
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-1)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.Type {
		case tea.KeyEnter:
			if m.pending {
				return m, nil
			}
			q := m.input.Value()
			m.input.Reset()
			// Blank input gets no user bubble; the orchestrator still replies.
			if text := strings.TrimSpace(q); text != "" {
				m.history = append(m.history, turn{role: roleUser, text: text})
			}
			m.pending = true
			m.refresh()
			return m, tea.Batch(m.ask(q), m.spinner.Tick)
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m.pending = false
		m.history = append(m.history, turn{role: roleBot, text: msg.answer})
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(m.title)
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + m.viewport.View() + "\n" + input + "\n" + status
}

func (m Model) ask(q string) tea.Cmd {
	asker, ctx := m.asker, m.ctx
	return func() tea.Msg {
		return answerMsg{answer: asker.Ask(ctx, q)}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m Model) renderHistory() string {
	width := m.viewport.Width
	bubbleWidth := max(10, width*3/4)
	var rows []string
	for _, t := range m.history {
		switch t.role {
		case roleUser:
			b := userBubble.MaxWidth(bubbleWidth).Render(wrap(t.text, bubbleWidth-2))
			rows = append(rows, lipgloss.PlaceHorizontal(width, lipgloss.Right, b))
		default:
			b := botBubble.MaxWidth(bubbleWidth).Render(wrap(t.text, bubbleWidth-2))
			rows = append(rows, lipgloss.PlaceHorizontal(width, lipgloss.Left, b))
		}
	}
	if m.pending {
		rows = append(rows, m.spinner.View()+" 답변을 생성하는 중...")
	}
	return strings.Join(rows, "\n\n")
}

func wrap(text string, width int) string {
	return lipgloss.NewStyle().Width(max(1, width)).Render(text)
}

const (
	userColor = "#33DA6E"
	botColor  = "#E8E8E8"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(userColor))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	inputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userBubble    = lipgloss.NewStyle().Background(lipgloss.Color(userColor)).Foreground(lipgloss.Color("#000000")).Padding(0, 1)
	botBubble     = lipgloss.NewStyle().Background(lipgloss.Color(botColor)).Foreground(lipgloss.Color("#000000")).Padding(0, 1)
)

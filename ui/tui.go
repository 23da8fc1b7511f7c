// Package ui provides the terminal front end for the board.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskmaster/board"
	"taskmaster/domain"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	columnStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(28)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle  = lipgloss.NewStyle().Reverse(true)
	pendingStyle   = lipgloss.NewStyle().Faint(true)
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle      = lipgloss.NewStyle().Faint(true)
	highPriStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	mediumPriStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("221"))
	lowPriStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("115"))
)

var columnTitles = map[domain.Status]string{
	domain.StatusBacklog:    "Backlog",
	domain.StatusInProgress: "In Progress",
	domain.StatusReview:     "Review",
	domain.StatusDone:       "Done",
}

type loadedMsg struct {
	err error
}

type settledMsg struct {
	completion board.Completion
}

type createdMsg struct {
	completion board.CreateCompletion
}

// Model is the bubbletea model for the board. All board state lives in the
// controller and is only touched from Update, which bubbletea runs on a
// single goroutine.
type Model struct {
	ctrl *board.Controller

	column int
	row    int

	adding    bool
	input     string
	lastInput string

	loading bool
	errText string
	width   int
}

// NewModel creates the board model around an initialized controller.
func NewModel(ctrl *board.Controller) Model {
	return Model{ctrl: ctrl, loading: true}
}

// Run starts the TUI and blocks until it exits.
func Run(ctx context.Context, ctrl *board.Controller) error {
	program := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.ctrl.Load(context.Background())}
	}
}

func mutationCmd(run func(context.Context) board.Completion) tea.Cmd {
	return func() tea.Msg {
		return settledMsg{completion: run(context.Background())}
	}
}

func createCmd(run func(context.Context) board.CreateCompletion) tea.Cmd {
	return func() tea.Msg {
		return createdMsg{completion: run(context.Background())}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.errText = "Could not reach the server; showing an empty board. Press r to retry."
		} else {
			m.errText = ""
		}
		m.clampCursor()
		return m, nil

	case settledMsg:
		if m.ctrl.Resolve(msg.completion) == board.SettleRolledBack {
			m.errText = "Update failed; change reverted."
		}
		m.clampCursor()
		return m, nil

	case createdMsg:
		if !m.ctrl.AcceptCreate(msg.completion) {
			// Reopen the form with what the user typed so nothing is lost.
			m.adding = true
			m.input = m.lastInput
			m.errText = "Could not create task; edit and press enter to retry."
		}
		return m, nil

	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		return m.updateBoard(msg)
	}
	return m, nil
}

func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.adding = false
		m.input = ""
		return m, nil
	case tea.KeyEnter:
		title := strings.TrimSpace(m.input)
		if title == "" {
			return m, nil
		}
		m.adding = false
		m.lastInput = m.input
		m.input = ""
		m.errText = ""
		return m, createCmd(m.ctrl.CreateTask(board.CreateInput{Title: title}))
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	case tea.KeySpace:
		m.input += " "
		return m, nil
	}
	return m, nil
}

func (m Model) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	statuses := domain.Statuses()

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r":
		m.loading = true
		return m, m.loadCmd()
	case "a":
		m.adding = true
		m.input = ""
		return m, nil
	case "left", "h":
		if m.column > 0 {
			m.column--
			m.clampCursor()
		}
		return m, nil
	case "right", "l":
		if m.column < len(statuses)-1 {
			m.column++
			m.clampCursor()
		}
		return m, nil
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
		return m, nil
	case "down", "j":
		m.row++
		m.clampCursor()
		return m, nil
	case "[", "]":
		task, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		idx := statusIndex(domain.NormalizeStatus(task.Status))
		if msg.String() == "[" {
			idx--
		} else {
			idx++
		}
		if idx < 0 || idx >= len(statuses) {
			return m, nil
		}
		run, started := m.ctrl.MoveTask(task.ID, statuses[idx])
		if !started {
			return m, nil
		}
		m.errText = ""
		return m, mutationCmd(run)
	case "s":
		task, ok := m.selectedTask()
		if !ok {
			return m, nil
		}
		run, started := m.ctrl.ToggleStar(task.ID)
		if !started {
			return m, nil
		}
		m.errText = ""
		return m, mutationCmd(run)
	}
	return m, nil
}

func statusIndex(s domain.Status) int {
	for i, st := range domain.Statuses() {
		if st == s {
			return i
		}
	}
	return 0
}

func (m *Model) clampCursor() {
	cols := m.ctrl.State().Columns()
	col := cols[domain.Statuses()[m.column]]
	if m.row >= len(col) {
		m.row = len(col) - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

func (m Model) selectedTask() (domain.Task, bool) {
	cols := m.ctrl.State().Columns()
	col := cols[domain.Statuses()[m.column]]
	if m.row < 0 || m.row >= len(col) {
		return domain.Task{}, false
	}
	return col[m.row], true
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Taskmaster"))
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString("Loading board...\n")
		return b.String()
	}

	state := m.ctrl.State()
	widget := state.StatusWidget()
	b.WriteString(fmt.Sprintf("Backlog %d%%  In Progress %d%%  Review %d%%  Done %d%%\n\n",
		widget.Backlog, widget.InProgress, widget.Review, widget.Done))

	cols := state.Columns()
	counts := state.ColumnCounts()
	rendered := make([]string, 0, len(domain.Statuses()))
	for i, st := range domain.Statuses() {
		rendered = append(rendered, m.renderColumn(st, cols[st], counts[st], i == m.column))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteString("\n")

	m.renderSidebars(&b, state)

	if m.adding {
		b.WriteString("\nNew task: " + m.input + "█  (enter to create, esc to cancel)\n")
	}
	if m.errText != "" {
		b.WriteString("\n" + errStyle.Render(m.errText) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("←/→ column  ↑/↓ card  [ ] move  s star  a add  r refresh  q quit") + "\n")
	return b.String()
}

func (m Model) renderColumn(st domain.Status, tasks []domain.Task, count int, active bool) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d)", columnTitles[st], count)))
	b.WriteString("\n")

	if len(tasks) == 0 {
		b.WriteString(helpStyle.Render("empty"))
	}
	for i, t := range tasks {
		line := cardLine(t, m.ctrl.State().Pending(t.ID))
		if active && i == m.row {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return columnStyle.Render(b.String())
}

func cardLine(t domain.Task, pending bool) string {
	star := " "
	if t.Starred {
		star = "*"
	}
	pri := priorityStyle(t.Priority).Render(priorityGlyph(t.Priority))
	title := t.Title
	if len(title) > 20 {
		title = title[:17] + "..."
	}
	line := fmt.Sprintf("%s%s %s", star, pri, title)
	if pending {
		return pendingStyle.Render(line + " …")
	}
	return line
}

func priorityGlyph(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return "!"
	case domain.PriorityLow:
		return "-"
	default:
		return "·"
	}
}

func priorityStyle(p domain.Priority) lipgloss.Style {
	switch p {
	case domain.PriorityHigh:
		return highPriStyle
	case domain.PriorityLow:
		return lowPriStyle
	default:
		return mediumPriStyle
	}
}

func (m Model) renderSidebars(b *strings.Builder, state *board.State) {
	pinned := state.PinnedTasks()
	if len(pinned) > 0 {
		b.WriteString("\n" + headerStyle.Render("Pinned") + "\n")
		for _, t := range pinned {
			b.WriteString("  * " + t.Title + "\n")
		}
	}

	recent := state.RecentActivity()
	if len(recent) > 0 {
		b.WriteString("\n" + headerStyle.Render("Recent") + "\n")
		now := time.Now()
		for _, t := range recent {
			b.WriteString(fmt.Sprintf("  %s (%s)\n", t.Title, board.TimeAgo(t.CreatedAt, now)))
		}
	}
}

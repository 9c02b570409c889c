package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/memorymatch/internal/board"
	"github.com/lox/memorymatch/internal/game"
	"github.com/lox/memorymatch/internal/palette"
	"github.com/lox/memorymatch/internal/session"
)

// Controller is the session surface the terminal UI drives.
type Controller interface {
	StartStandard(ctx context.Context) error
	StartRandom(ctx context.Context) error
	ShowLedger(ctx context.Context) error
	ClearLedger(ctx context.Context) error
	ResetToMenu()
	Select(id board.TileID) error
	Snapshot() session.Snapshot
	EventBus() game.EventBus
}

// actionDoneMsg reports a finished menu action.
type actionDoneMsg struct {
	status string
	err    error
}

type menuItem struct {
	key    string
	label  string
	status string
	run    func(ctx context.Context) error
}

// Model is the Bubble Tea model for the game.
type Model struct {
	controller Controller
	bridge     *Bridge
	logger     *log.Logger
	ctx        context.Context
	cancel     context.CancelFunc

	snap       session.Snapshot
	menu       []menuItem
	menuCursor int
	tileCursor int
	busy       bool
	status     string

	// Modal requests; active is shown, queue waits behind it
	active tea.Msg
	queue  []tea.Msg
	input  textinput.Model

	width    int
	height   int
	quitting bool
}

// NewModel creates the model and subscribes the bridge to controller
// events.
func NewModel(ctx context.Context, controller Controller, bridge *Bridge, logger *log.Logger) *Model {
	ti := textinput.New()
	ti.CharLimit = 32
	ti.Width = 32
	ti.Prompt = "> "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))

	ctx, cancel := context.WithCancel(ctx)
	m := &Model{
		controller: controller,
		bridge:     bridge,
		logger:     logger.WithPrefix("tui"),
		ctx:        ctx,
		cancel:     cancel,
		input:      ti,
	}
	m.menu = []menuItem{
		{key: "s", label: "Start standard game", run: controller.StartStandard},
		{key: "r", label: "Start random game", run: controller.StartRandom},
		{key: "c", label: "Clear high scores", status: "High scores cleared.", run: controller.ClearLedger},
		{key: "h", label: "Show high scores", run: controller.ShowLedger},
	}

	controller.EventBus().Subscribe(bridge)
	m.refresh()
	return m
}

// Init starts listening for bridge requests.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bridge.Listen())
}

func (m *Model) refresh() {
	m.snap = m.controller.Snapshot()
	if n := len(m.snap.Tiles); n == 0 {
		m.tileCursor = 0
	} else if m.tileCursor >= n {
		m.tileCursor = n - 1
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshMsg:
		m.logger.Debug("Refreshing", "event", msg.event)
		m.refresh()
		return m, m.bridge.Listen()

	case promptRequestMsg, announceRequestMsg:
		m.queue = append(m.queue, msg)
		return m, tea.Batch(m.bridge.Listen(), m.openNext())

	case actionDoneMsg:
		m.busy = false
		switch {
		case msg.err != nil:
			m.logger.Error("Action failed", "error", msg.err)
			m.status = ErrorStyle.Render(msg.err.Error())
		case msg.status != "":
			m.status = SuccessStyle.Render(msg.status)
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		switch {
		case m.active != nil:
			return m.updateModal(msg)
		case m.snap.View == session.ViewBoard:
			return m.updateBoard(msg)
		default:
			return m.updateMenu(msg)
		}
	}

	if _, ok := m.active.(promptRequestMsg); ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	m.cancel()
	m.bridge.Close()
	return tea.Quit
}

// openNext shows the next queued modal if none is open.
func (m *Model) openNext() tea.Cmd {
	if m.active != nil || len(m.queue) == 0 {
		return nil
	}
	m.active = m.queue[0]
	m.queue = m.queue[1:]

	if _, ok := m.active.(promptRequestMsg); ok {
		m.input.SetValue("")
		return m.input.Focus()
	}
	return nil
}

func (m *Model) closeModal() tea.Cmd {
	m.active = nil
	m.input.Blur()
	m.refresh()
	return m.openNext()
}

func (m *Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch req := m.active.(type) {
	case promptRequestMsg:
		switch msg.String() {
		case "enter":
			req.reply <- promptReply{value: m.input.Value(), ok: true}
			return m, m.closeModal()
		case "esc":
			req.reply <- promptReply{}
			return m, m.closeModal()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case announceRequestMsg:
		switch msg.String() {
		case "enter", "esc", " ":
			req.ack <- struct{}{}
			return m, m.closeModal()
		}
	}
	return m, nil
}

func (m *Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, m.quit()
	case "up", "k":
		if m.menuCursor > 0 {
			m.menuCursor--
		}
	case "down", "j":
		if m.menuCursor < len(m.menu)-1 {
			m.menuCursor++
		}
	case "enter":
		return m, m.runMenu(m.menuCursor)
	default:
		for i, item := range m.menu {
			if msg.String() == item.key {
				m.menuCursor = i
				return m, m.runMenu(i)
			}
		}
	}
	return m, nil
}

// runMenu runs a menu action off the event loop since it may block on
// the bridge.
func (m *Model) runMenu(i int) tea.Cmd {
	if m.busy {
		return nil
	}
	m.busy = true
	m.status = ""
	item := m.menu[i]
	ctx := m.ctx
	m.logger.Debug("Menu action", "action", item.label)
	return func() tea.Msg {
		err := item.run(ctx)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: item.status}
	}
}

// columns is the grid width for n tiles.
func columns(n int) int {
	if n <= 0 {
		return 1
	}
	return int(math.Ceil(math.Sqrt(float64(n))))
}

func (m *Model) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.snap.Tiles)
	cols := columns(n)

	switch msg.String() {
	case "q":
		return m, m.quit()
	case "m", "esc":
		m.controller.ResetToMenu()
		m.refresh()
		return m, nil
	case "left", "h":
		if m.tileCursor%cols > 0 {
			m.tileCursor--
		}
	case "right", "l":
		if m.tileCursor%cols < cols-1 && m.tileCursor+1 < n {
			m.tileCursor++
		}
	case "up", "k":
		if m.tileCursor-cols >= 0 {
			m.tileCursor -= cols
		}
	case "down", "j":
		if m.tileCursor+cols < n {
			m.tileCursor += cols
		}
	case "enter", " ":
		if n == 0 {
			return m, nil
		}
		id := m.snap.Tiles[m.tileCursor].ID
		if err := m.controller.Select(id); err != nil {
			m.status = ErrorStyle.Render(err.Error())
		}
		m.refresh()
	}
	return m, nil
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Memory Match"))
	b.WriteString("\n\n")

	if m.snap.View == session.ViewBoard {
		b.WriteString(m.renderBoard())
	} else {
		b.WriteString(m.renderMenu())
	}
	b.WriteString("\n")

	if m.active != nil {
		b.WriteString("\n")
		b.WriteString(m.renderModal())
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(m.helpText()))
	return b.String()
}

func (m *Model) renderMenu() string {
	lines := make([]string, len(m.menu))
	for i, item := range m.menu {
		label := fmt.Sprintf("[%s] %s", item.key, item.label)
		if i == m.menuCursor {
			lines[i] = MenuCursorStyle.Render("> " + label)
		} else {
			lines[i] = MenuItemStyle.Render("  " + label)
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBoard() string {
	if !m.snap.Active {
		return InfoStyle.Render("Dealing...")
	}

	s := m.snap.Session
	status := StatusStyle.Render(fmt.Sprintf("Score: %d   Pairs: %d/%d", s.Score, s.MatchedPairs, s.TotalPairs))

	cols := columns(len(m.snap.Tiles))
	var rows []string
	for start := 0; start < len(m.snap.Tiles); start += cols {
		end := min(start+cols, len(m.snap.Tiles))
		cells := make([]string, 0, cols)
		for i := start; i < end; i++ {
			cells = append(cells, renderTile(m.snap.Tiles[i], i == m.tileCursor))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	return status + "\n\n" + lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderTile(t board.Tile, cursor bool) string {
	style := hiddenTileStyle
	label := "?"
	if t.Revealed {
		style = tileStyle.Background(lipgloss.Color(palette.Hex(t.Token)))
		label = ""
	}
	if t.Matched {
		label = "✓"
	}
	if cursor {
		style = style.BorderForeground(cursorBorderColor).BorderStyle(lipgloss.ThickBorder())
	}
	return style.Render(label)
}

func (m *Model) renderModal() string {
	switch req := m.active.(type) {
	case promptRequestMsg:
		return ModalStyle.Render(req.message + "\n\n" + m.input.View())
	case announceRequestMsg:
		return ModalStyle.Render(req.message)
	}
	return ""
}

func (m *Model) helpText() string {
	switch {
	case m.active != nil:
		if _, ok := m.active.(promptRequestMsg); ok {
			return "Enter to submit • Esc to cancel"
		}
		return "Enter to continue"
	case m.snap.View == session.ViewBoard:
		return "Arrows to move • Enter to flip • m for menu • q to quit"
	default:
		return "↑↓ to choose • Enter to select • q to quit"
	}
}

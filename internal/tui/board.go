// Package tui is the interactive terminal board. It renders a board's lists
// side by side, moves cards with the keyboard through the reorder
// coordinator and refetches whenever the query cache invalidates the board.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmynk/travelboard/internal/cache"
	"github.com/mmynk/travelboard/internal/calculator"
	"github.com/mmynk/travelboard/internal/models"
	"github.com/mmynk/travelboard/internal/reorder"
	"github.com/mmynk/travelboard/internal/state"
)

// BoardSource loads a board. *service.Service satisfies it.
type BoardSource interface {
	GetBoard(ctx context.Context, id int64) (*models.Board, error)
}

type boardLoadedMsg struct {
	board *models.Board
	err   error
}

type moveDoneMsg struct {
	cardID int64
	err    error
}

type invalidatedMsg struct{ key cache.Key }

// Model is the bubbletea model of one board.
type Model struct {
	ctx     context.Context
	boardID int64
	source  BoardSource
	coord   *reorder.Coordinator
	ui      *state.UI
	events  <-chan cache.Key

	board  *models.Board
	cards  map[int64]models.Card
	layout reorder.Layout

	col, row      int
	width, height int
	sized         bool

	loading bool
	status  string
	err     error

	keys    keyMap
	help    help.Model
	spinner spinner.Model
}

// New creates the board model. events, when set, is a cache subscription
// used to refetch after invalidations; ui may be nil.
func New(ctx context.Context, boardID int64, source BoardSource, coord *reorder.Coordinator, ui *state.UI, events <-chan cache.Key) Model {
	if ui == nil {
		ui = state.NewUI(nil, nil)
	}
	return Model{
		ctx:     ctx,
		boardID: boardID,
		source:  source,
		coord:   coord,
		ui:      ui,
		events:  events,
		cards:   map[int64]models.Card{},
		loading: true,
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// Run starts the program in the alternate screen until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.err != nil && fm.board == nil {
		return fm.err
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(), m.waitInvalidation())
}

func (m Model) fetch() tea.Cmd {
	ctx, id, src := m.ctx, m.boardID, m.source
	return func() tea.Msg {
		b, err := src.GetBoard(ctx, id)
		return boardLoadedMsg{board: b, err: err}
	}
}

func (m Model) waitInvalidation() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		k, ok := <-ch
		if !ok {
			return nil
		}
		return invalidatedMsg{key: k}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		mobile := msg.Width < MobileWidth
		if !m.sized || m.ui.Snapshot().IsMobile != mobile {
			m.ui.SetIsMobile(m.ctx, mobile)
		}
		m.sized = true
		return m, nil

	case boardLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.setBoard(msg.board)
		return m, nil

	case moveDoneMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("move failed: %w", msg.err)
			if l, ok := m.coord.Layout(m.boardID); ok {
				m.layout = l
			}
			m.follow(msg.cardID)
			return m, nil
		}
		m.status = "Card moved"
		return m, nil

	case invalidatedMsg:
		var cmd tea.Cmd
		if cache.Board(m.boardID).HasPrefix(msg.key) {
			cmd = m.fetch()
		}
		return m, tea.Batch(cmd, m.waitInvalidation())

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Left):
		m.setCursor(m.col-1, m.row)
	case key.Matches(msg, m.keys.Right):
		m.setCursor(m.col+1, m.row)
	case key.Matches(msg, m.keys.Up):
		m.setCursor(m.col, m.row-1)
	case key.Matches(msg, m.keys.Down):
		m.setCursor(m.col, m.row+1)
	case key.Matches(msg, m.keys.MoveLeft):
		return m.move(-1, 0)
	case key.Matches(msg, m.keys.MoveRight):
		return m.move(1, 0)
	case key.Matches(msg, m.keys.MoveUp):
		return m.move(0, -1)
	case key.Matches(msg, m.keys.MoveDown):
		return m.move(0, 1)
	case key.Matches(msg, m.keys.Sidebar):
		m.ui.ToggleSidebar(m.ctx)
	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		m.status = ""
		return m, tea.Batch(m.spinner.Tick, m.fetch())
	}
	return m, nil
}

// move drops the selected card one list sideways or one slot vertically.
func (m Model) move(dCol, dRow int) (tea.Model, tea.Cmd) {
	cardID, ok := m.selected()
	if !ok {
		return m, nil
	}
	src := reorder.Position{ListID: m.layout.Columns[m.col].ListID, Index: m.row}

	dstCol := m.col + dCol
	if dstCol < 0 || dstCol >= len(m.layout.Columns) {
		return m, nil
	}
	dst := reorder.Position{ListID: m.layout.Columns[dstCol].ListID, Index: m.row + dRow}
	if dCol == 0 && (dst.Index < 0 || dst.Index >= len(m.layout.Columns[m.col].Cards)) {
		return m, nil
	}
	if dCol != 0 {
		dst.Index = min(m.row, len(m.layout.Columns[dstCol].Cards))
	}

	d := reorder.Drop{CardID: cardID, Source: src, Destination: &dst}
	if err := m.layout.Apply(d); err != nil {
		m.err = err
		return m, nil
	}
	m.follow(cardID)
	m.err = nil
	m.status = "Moving…"

	ctx, coord, boardID := m.ctx, m.coord, m.boardID
	return m, func() tea.Msg {
		return moveDoneMsg{cardID: cardID, err: coord.Drop(ctx, boardID, d)}
	}
}

func (m *Model) setBoard(b *models.Board) {
	selected, hadSelection := m.selected()
	m.board = b
	m.cards = map[int64]models.Card{}
	for _, l := range b.Lists {
		for _, c := range l.Cards {
			m.cards[c.ID] = c
		}
	}
	m.layout = m.coord.Load(*b)
	if hadSelection && m.follow(selected) {
		return
	}
	m.setCursor(m.col, m.row)
}

// follow puts the cursor on cardID and reports whether it was found.
func (m *Model) follow(cardID int64) bool {
	pos, ok := m.layout.Locate(cardID)
	if !ok {
		return false
	}
	for i, c := range m.layout.Columns {
		if c.ListID == pos.ListID {
			m.col, m.row = i, pos.Index
			return true
		}
	}
	return false
}

func (m *Model) setCursor(col, row int) {
	n := len(m.layout.Columns)
	if n == 0 {
		m.col, m.row = 0, 0
		return
	}
	m.col = max(0, min(col, n-1))
	cards := len(m.layout.Columns[m.col].Cards)
	m.row = max(0, min(row, cards-1))
}

func (m Model) selected() (int64, bool) {
	if m.col >= len(m.layout.Columns) {
		return 0, false
	}
	cards := m.layout.Columns[m.col].Cards
	if m.row < 0 || m.row >= len(cards) {
		return 0, false
	}
	return cards[m.row], true
}

func (m Model) View() string {
	if m.board == nil {
		if m.err != nil {
			return errorStyle.Render("✖ "+m.err.Error()) + "\n" + mutedStyle.Render("r to retry, q to quit") + "\n"
		}
		return m.spinner.View() + " Loading board…\n"
	}

	var b strings.Builder
	header := titleStyle.Render(m.board.Title)
	if m.board.IsFavorite {
		header += " " + accentStyle.Render("★")
	}
	if m.loading {
		header += " " + m.spinner.View()
	}
	b.WriteString(header + "\n\n")

	columns := make([]string, 0, len(m.layout.Columns))
	for i, c := range m.layout.Columns {
		columns = append(columns, m.renderColumn(i, c))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, columns...)

	ui := m.ui.Snapshot()
	if ui.SidebarOpen && !ui.IsMobile {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), body)
	}
	b.WriteString(body + "\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("✖ "+m.err.Error()) + "\n")
	case m.status != "":
		b.WriteString(successStyle.Render(m.status) + "\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderColumn(i int, c reorder.Column) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(c.Title))
	b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%d)", len(c.Cards))))
	b.WriteString("\n")
	if len(c.Cards) == 0 {
		b.WriteString(mutedStyle.Render("no cards"))
	}
	for j, id := range c.Cards {
		line := truncate(m.cards[id].Title, columnWidth-2)
		if i == m.col && j == m.row {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	style := columnStyle
	if i == m.col {
		style = activeColumnStyle
	}
	return style.Width(columnWidth).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderSidebar() string {
	bd := m.board
	lines := []string{
		titleStyle.Render("Trip"),
		fmt.Sprintf("Status: %s", bd.Status),
	}
	if bd.StartDate != "" || bd.EndDate != "" {
		lines = append(lines, fmt.Sprintf("Dates: %s → %s", bd.StartDate, bd.EndDate))
	}
	lines = append(lines,
		fmt.Sprintf("Budget: %s %s", bd.Budget.StringFixed(2), bd.Currency),
		fmt.Sprintf("Planned: %s", calculator.TotalCardBudget(bd).StringFixed(2)),
		fmt.Sprintf("Cards: %d", calculator.CardCount(bd)),
		fmt.Sprintf("Progress: %d%%", calculator.Progress(bd)),
		fmt.Sprintf("Members: %d", len(bd.Members)+1),
	)
	return sidebarStyle.Render(strings.Join(lines, "\n"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// Package tui implements the interactive review screen for a processed
// upload: confirm or reject match candidates and clear duplicate flags.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/reconcile/internal/model"
	"github.com/Veraticus/reconcile/internal/pipeline"
	"github.com/Veraticus/reconcile/internal/tui/themes"
)

// View is one of the review tabs.
type View int

// Review tabs, in tab order.
const (
	ViewMatches View = iota
	ViewDuplicates
	ViewUnmatched
	viewCount
)

func (v View) String() string {
	switch v {
	case ViewMatches:
		return "Matches"
	case ViewDuplicates:
		return "Duplicates"
	case ViewUnmatched:
		return "Unmatched"
	default:
		return "Unknown"
	}
}

// Model holds the review state. Every decision is applied to result
// through the pipeline, so the summary stays current.
type Model struct {
	ctx      context.Context
	pipeline *pipeline.Pipeline
	result   *model.SessionResult
	lastErr  error
	theme    themes.Theme
	keymap   KeyMap
	help     help.Model
	status   string
	view     View
	cursor   int
	width    int
	height   int
	changed  bool
	quitting bool
}

// New creates a review model over result.
func New(ctx context.Context, p *pipeline.Pipeline, result *model.SessionResult, theme themes.Theme) Model {
	return Model{
		ctx:      ctx,
		pipeline: p,
		result:   result,
		theme:    theme,
		keymap:   DefaultKeyMap(),
		help:     help.New(),
		width:    100,
		height:   30,
	}
}

// Result returns the reviewed session result.
func (m Model) Result() *model.SessionResult {
	return m.result
}

// Changed reports whether any decision was made.
func (m Model) Changed() bool {
	return m.changed
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keymap.Down):
		if m.cursor < m.rowCount()-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keymap.Home):
		m.cursor = 0
	case key.Matches(msg, m.keymap.End):
		m.cursor = max(m.rowCount()-1, 0)
	case key.Matches(msg, m.keymap.NextTab):
		m.view = (m.view + 1) % viewCount
		m.cursor = 0
	case key.Matches(msg, m.keymap.PrevTab):
		m.view = (m.view + viewCount - 1) % viewCount
		m.cursor = 0
	case key.Matches(msg, m.keymap.Accept):
		m.acceptSelected()
	case key.Matches(msg, m.keymap.Reject):
		m.rejectSelected()
	case key.Matches(msg, m.keymap.Dismiss):
		m.dismissSelected()
	case key.Matches(msg, m.keymap.ClearAll):
		m.clearDuplicates()
	}
	return m, nil
}

func (m *Model) acceptSelected() {
	if m.view != ViewMatches || m.rowCount() == 0 {
		return
	}
	candidate := m.result.Matches[m.cursor]
	if _, err := m.pipeline.AcceptMatch(m.ctx, m.result, candidate.Bank.ID, candidate.Book.ID); err != nil {
		m.fail(err)
		return
	}
	m.done(fmt.Sprintf("Accepted %s ↔ %s", candidate.Bank.Description, candidate.Book.Description))
}

func (m *Model) rejectSelected() {
	if m.view != ViewMatches || m.rowCount() == 0 {
		return
	}
	candidate := m.result.Matches[m.cursor]
	if err := m.pipeline.RejectMatch(m.ctx, m.result, candidate.Bank.ID, candidate.Book.ID); err != nil {
		m.fail(err)
		return
	}
	m.done(fmt.Sprintf("Rejected %s ↔ %s", candidate.Bank.Description, candidate.Book.Description))
}

func (m *Model) dismissSelected() {
	if m.view != ViewDuplicates || m.rowCount() == 0 {
		return
	}
	txn := m.duplicateRows()[m.cursor]
	if err := m.pipeline.DismissDuplicate(m.ctx, m.result, txn.ID); err != nil {
		m.fail(err)
		return
	}
	m.done("Kept " + txn.Description)
}

func (m *Model) clearDuplicates() {
	if m.view != ViewDuplicates || m.rowCount() == 0 {
		return
	}
	if err := m.pipeline.ClearDuplicates(m.ctx, m.result); err != nil {
		m.fail(err)
		return
	}
	m.done("Cleared all duplicate flags")
}

func (m *Model) done(status string) {
	m.changed = true
	m.lastErr = nil
	m.status = status
	if m.cursor >= m.rowCount() {
		m.cursor = max(m.rowCount()-1, 0)
	}
}

func (m *Model) fail(err error) {
	m.lastErr = err
	m.status = ""
}

func (m Model) rowCount() int {
	switch m.view {
	case ViewMatches:
		return len(m.result.Matches)
	case ViewDuplicates:
		return len(m.duplicateRows())
	case ViewUnmatched:
		return len(m.result.Unmatched)
	}
	return 0
}

// duplicateRows flattens the flagged copies of every group.
func (m Model) duplicateRows() []model.Transaction {
	var rows []model.Transaction
	for _, g := range m.result.Duplicates {
		rows = append(rows, g.Duplicates...)
	}
	return rows
}

// View renders the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.theme.Title.Render(m.title()),
		m.renderTabs(),
		"",
		m.renderRows(),
		"",
		m.renderStatus(),
		m.help.View(m.keymap),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) title() string {
	s := m.result.Summary
	return fmt.Sprintf("Review %s  (%d transactions, %d matches, %d duplicates, %d unmatched)",
		m.result.FileName, s.TotalTransactions, s.MatchesFound, s.DuplicatesFound, s.UnmatchedCount)
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, viewCount)
	for v := ViewMatches; v < viewCount; v++ {
		style := m.theme.Tab
		if v == m.view {
			style = m.theme.ActiveTab
		}
		tabs = append(tabs, style.Render(v.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderRows() string {
	var lines []string
	switch m.view {
	case ViewMatches:
		for _, c := range m.result.Matches {
			score := m.theme.LowScore
			if c.Confidence >= 100 {
				score = m.theme.HighScore
			}
			lines = append(lines, fmt.Sprintf("%s %s  %s ↔ %s  %s",
				score.Render(fmt.Sprintf("%3d", c.Confidence)),
				m.amount(c.Bank),
				c.Bank.Description, c.Book.Description,
				m.theme.Status.Render(c.Reason)))
		}
	case ViewDuplicates:
		for _, txn := range m.duplicateRows() {
			lines = append(lines, m.transactionLine(txn))
		}
	case ViewUnmatched:
		for _, txn := range m.result.Unmatched {
			lines = append(lines, m.transactionLine(txn))
		}
	}

	if len(lines) == 0 {
		return m.theme.Status.Render("Nothing to review here.")
	}

	// Keep the cursor on screen.
	visible := max(m.height-10, 3)
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(lines))

	var b strings.Builder
	for i := start; i < end; i++ {
		if i == m.cursor {
			b.WriteString(m.theme.Selected.Render("▸ " + lines[i]))
		} else {
			b.WriteString(m.theme.Normal.Render("  " + lines[i]))
		}
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return m.theme.Box.Width(max(m.width-2, 20)).Render(b.String())
}

func (m Model) transactionLine(txn model.Transaction) string {
	return fmt.Sprintf("%s  %s  %s", txn.Date, m.amount(txn), txn.Description)
}

func (m Model) amount(txn model.Transaction) string {
	signed := txn.SignedAmount()
	style := m.theme.Credit
	if signed.IsNegative() {
		style = m.theme.Debit
	}
	return style.Render(fmt.Sprintf("%10s", signed.StringFixed(2)))
}

func (m Model) renderStatus() string {
	if m.lastErr != nil {
		return m.theme.Error.Render("Error: " + m.lastErr.Error())
	}
	return m.theme.Status.Render(m.status)
}

// Package tui provides the interactive approval view shown before
// uploads: the operator reviews each page's missing exams and
// deselects any that should not go up.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/betterinformatics/shtocker/internal/core/domain"
	"github.com/betterinformatics/shtocker/internal/core/ports/driving"
	"github.com/betterinformatics/shtocker/internal/core/services"
)

// ErrAborted indicates the operator quit the review instead of
// confirming, which cancels the rest of the run.
var ErrAborted = errors.New("tui: review aborted")

// KeyMap defines the approval view keybindings.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	All     key.Binding
	None    key.Binding
	Confirm key.Binding
	Abort   key.Binding
}

// DefaultKeyMap returns the default approval keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		All: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select all"),
		),
		None: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "select none"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "upload selected"),
		),
		Abort: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "abort run"),
		),
	}
}

// Model is the bubbletea model for one page's review.
type Model struct {
	candidates []domain.Candidate
	selected   map[int]bool
	cursor     int
	keys       KeyMap
	styles     Styles

	confirmed bool
	aborted   bool
}

// NewModel creates a review model with every candidate selected.
func NewModel(candidates []domain.Candidate) Model {
	selected := make(map[int]bool, len(candidates))
	for i := range candidates {
		selected[i] = true
	}
	return Model{
		candidates: candidates,
		selected:   selected,
		keys:       DefaultKeyMap(),
		styles:     DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.candidates)-1 {
			m.cursor++
		}

	case key.Matches(keyMsg, m.keys.Toggle):
		m.selected[m.cursor] = !m.selected[m.cursor]

	case key.Matches(keyMsg, m.keys.All):
		for i := range m.candidates {
			m.selected[i] = true
		}

	case key.Matches(keyMsg, m.keys.None):
		for i := range m.candidates {
			m.selected[i] = false
		}

	case key.Matches(keyMsg, m.keys.Confirm):
		m.confirmed = true
		return m, tea.Quit

	case key.Matches(keyMsg, m.keys.Abort):
		m.aborted = true
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render(fmt.Sprintf("Review %d missing exams", len(m.candidates))))
	b.WriteString("\n\n")

	for i, cand := range m.candidates {
		cursor := "  "
		if i == m.cursor {
			cursor = m.styles.Cursor.Render("> ")
		}

		check := "[ ]"
		line := fmt.Sprintf("%s %s (%s)", cand.Exam.Code, cand.Label, cand.Exam.YearLabel())
		if m.selected[i] {
			check = m.styles.Selected.Render("[x]")
		} else {
			line = m.styles.Rejected.Render(line)
		}

		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, check, line))
	}

	b.WriteString(m.styles.Help.Render(
		"↑/↓ move · space toggle · a all · n none · enter upload · q abort"))
	b.WriteString("\n")

	return b.String()
}

// Approved returns the selected candidates in listing order.
func (m Model) Approved() []domain.Candidate {
	return services.SelectApproved(m.candidates, m.selected)
}

// Gate runs the review TUI, implementing the candidate gate.
type Gate struct{}

// Ensure Gate implements the interface.
var _ driving.CandidateGate = (*Gate)(nil)

// Review shows the page's candidates and returns the ones the
// operator confirmed. Quitting the view aborts the run.
func (Gate) Review(ctx context.Context, candidates []domain.Candidate) ([]domain.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	p := tea.NewProgram(NewModel(candidates), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("run review: %w", err)
	}

	m, ok := final.(Model)
	if !ok || m.aborted || !m.confirmed {
		return nil, ErrAborted
	}
	return m.Approved(), nil
}

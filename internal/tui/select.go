// Package tui provides interactive terminal UI components.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/bookcase/internal/catalog"
	"github.com/lepinkainen/bookcase/internal/search"
)

const (
	defaultListWidth  = 72
	defaultListHeight = 14
)

// program is the part of *tea.Program the finder uses.
type program interface {
	Run() (tea.Model, error)
	Send(msg tea.Msg)
}

var newProgram = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// Suggester is the suggestion pipeline driven by the finder.
type Suggester interface {
	Type(query string)
	Dismiss()
	Select(index int) (catalog.Suggestion, bool)
	Close()
	Snapshot() search.Snapshot
}

// SelectionAction represents the user's action in the selection UI.
type SelectionAction int

const (
	// ActionNone indicates no action was taken.
	ActionNone SelectionAction = iota
	// ActionSelected indicates the user selected a suggestion.
	ActionSelected
	// ActionStopped indicates the user quit without selecting.
	ActionStopped
)

// SelectionResult holds the result of a TUI selection.
type SelectionResult struct {
	Action    SelectionAction
	Query     string
	Selection *catalog.Suggestion
}

// refreshMsg tells the model the suggestion pipeline changed state.
type refreshMsg struct{}

type suggestionItem struct {
	catalog.Suggestion
}

func (i suggestionItem) FilterValue() string {
	return i.Title
}

type itemStyles struct {
	normal      lipgloss.Style
	selected    lipgloss.Style
	titleStyle  lipgloss.Style
	authorStyle lipgloss.Style
}

func newItemStyles() itemStyles {
	container := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(lipgloss.Color("252"))

	selected := container.Copy().
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("237"))

	return itemStyles{
		normal:   container,
		selected: selected,
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("254")),
		authorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("247")).
			Faint(true),
	}
}

type suggestionDelegate struct {
	styles itemStyles
}

func newDelegate() suggestionDelegate {
	return suggestionDelegate{styles: newItemStyles()}
}

func (d suggestionDelegate) Height() int                         { return 2 }
func (d suggestionDelegate) Spacing() int                        { return 0 }
func (d suggestionDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d suggestionDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	s, ok := item.(suggestionItem)
	if !ok {
		return
	}

	titleLine := d.styles.titleStyle.Render(truncate(s.Title, m.Width()-4))
	authorLine := d.styles.authorStyle.Render(truncate(s.Author, m.Width()-4))
	content := lipgloss.JoinVertical(lipgloss.Left, titleLine, authorLine)

	container := d.styles.normal
	if idx == m.Index() {
		container = d.styles.selected
	}
	_, _ = fmt.Fprint(w, container.Render(content))
}

type model struct {
	input     textinput.Model
	list      list.Model
	suggester Suggester
	snapshot  search.Snapshot
	result    SelectionResult
}

func newModel(suggester Suggester, initial string) *model {
	input := textinput.New()
	input.Placeholder = "Search by title or author"
	input.Prompt = "> "
	input.CharLimit = 120
	input.SetValue(initial)
	input.Focus()

	l := list.New(nil, newDelegate(), defaultListWidth, defaultListHeight)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowPagination(false)
	l.DisableQuitKeybindings()
	l.Styles.NoItems = lipgloss.NewStyle()

	return &model{
		input:     input,
		list:      l,
		suggester: suggester,
		result:    SelectionResult{Action: ActionNone},
	}
}

func (m *model) Init() tea.Cmd {
	if strings.TrimSpace(m.input.Value()) != "" {
		m.suggester.Type(m.input.Value())
	}
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		return m, m.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.result = SelectionResult{Action: ActionStopped, Query: m.input.Value()}
			return m, tea.Quit
		case "esc":
			if len(m.list.Items()) > 0 {
				m.suggester.Dismiss()
				return m, m.refresh()
			}
			m.result = SelectionResult{Action: ActionStopped, Query: m.input.Value()}
			return m, tea.Quit
		case "enter":
			if len(m.list.Items()) == 0 {
				return m, nil
			}
			picked, ok := m.suggester.Select(m.list.Index())
			if !ok {
				return m, nil
			}
			m.result = SelectionResult{Action: ActionSelected, Query: m.input.Value(), Selection: &picked}
			return m, tea.Quit
		case "up", "down":
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			m.suggester.Type(m.input.Value())
			return m, tea.Batch(cmd, m.refresh())
		}
		return m, cmd

	case tea.WindowSizeMsg:
		width := clamp(defaultListWidth, msg.Width-4, 40)
		height := clamp(defaultListHeight, msg.Height-8, 4)
		m.list.SetSize(width, height)
		m.input.Width = width - 4
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// refresh pulls the current snapshot; refreshes can arrive out of order
// so the suggester is the source of truth.
func (m *model) refresh() tea.Cmd {
	snap := m.suggester.Snapshot()
	if snap.Seq < m.snapshot.Seq {
		return nil
	}
	m.snapshot = snap
	items := make([]list.Item, len(snap.Suggestions))
	for i, s := range snap.Suggestions {
		items[i] = suggestionItem{Suggestion: s}
	}
	return m.list.SetItems(items)
}

func (m *model) View() string {
	header := headerStyle.Render("Find a book")
	status := statusStyle.Render(m.statusLine())
	help := helpStyle.Render("Type to search | Up/Down navigate | Enter select | Esc dismiss | Ctrl+C quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.input.View(), status, m.list.View(), help)
}

func (m *model) statusLine() string {
	switch {
	case m.snapshot.Loading:
		return "Searching..."
	case m.snapshot.State == search.StatePending:
		return "..."
	case m.snapshot.State == search.StateResolved && len(m.snapshot.Suggestions) == 0:
		return "No matches"
	case m.snapshot.State == search.StateResolved:
		return fmt.Sprintf("%d suggestions", len(m.snapshot.Suggestions))
	default:
		return ""
	}
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("110"))

	helpStyle = lipgloss.NewStyle().
			MarginTop(1).
			Foreground(lipgloss.Color("244"))
)

// Find runs the interactive finder. newSuggester is called with the
// callback that forwards pipeline updates into the running program.
func Find(initial string, newSuggester func(onChange func(search.Snapshot)) Suggester) (SelectionResult, error) {
	var p program
	suggester := newSuggester(func(search.Snapshot) {
		// the suggester notifies from inside Update, Send must not block it
		if p != nil {
			go p.Send(refreshMsg{})
		}
	})
	defer suggester.Close()

	m := newModel(suggester, initial)
	p = newProgram(m)
	finalModel, err := p.Run()
	if err != nil {
		return SelectionResult{}, err
	}

	if typed, ok := finalModel.(*model); ok {
		return typed.result, nil
	}

	return SelectionResult{}, fmt.Errorf("unexpected program result")
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	if width <= 0 || len(value) <= width {
		return value
	}
	if width <= 3 {
		return value[:width]
	}
	return value[:width-3] + "..."
}

func clamp(defaultValue, available, minimum int) int {
	width := defaultValue
	if available > 0 && available < defaultValue {
		width = available
	}
	if width < minimum {
		width = minimum
	}
	return width
}

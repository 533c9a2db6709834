// Package selector is an interactive terminal picker for ambiguous host
// matches.
//
// Keys: up/down (or k/j) move, space toggles, a toggles every visible host,
// / filters by name or address, enter confirms and esc cancels. In single
// mode enter picks the host under the cursor.
package selector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hopper/internal/domain"
)

// ErrCancelled is returned when the operator leaves the picker without choosing
var ErrCancelled = errors.New("selection cancelled")

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Model holds the picker state
type Model struct {
	title    string
	hosts    []domain.HostRecord
	multi    bool
	visible  []int
	cursor   int
	selected map[int]bool

	filtering bool
	filter    textinput.Model

	done      bool
	cancelled bool
}

// New creates a picker over hosts. multi allows choosing several.
func New(title string, hosts []domain.HostRecord, multi bool) Model {
	ti := textinput.New()
	ti.Placeholder = "name or address"
	ti.Prompt = "/ "
	ti.CharLimit = 64

	m := Model{
		title:    title,
		hosts:    hosts,
		multi:    multi,
		selected: make(map[int]bool),
		filter:   ti,
	}
	m.refilter()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m *Model) refilter() {
	needle := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = make([]int, 0, len(m.hosts))
	for i, h := range m.hosts {
		if needle == "" ||
			strings.Contains(strings.ToLower(h.Name), needle) ||
			strings.Contains(strings.ToLower(h.Address), needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

// Update handles key presses
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.filtering {
		switch key.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.filtering = false
			m.filter.Blur()
			if key.Type == tea.KeyEsc {
				m.filter.SetValue("")
			}
			m.refilter()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.refilter()
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}

	case "/":
		m.filtering = true
		return m, m.filter.Focus()

	case " ":
		if m.multi && len(m.visible) > 0 {
			i := m.visible[m.cursor]
			m.selected[i] = !m.selected[i]
		}

	case "a":
		if m.multi {
			all := true
			for _, i := range m.visible {
				all = all && m.selected[i]
			}
			for _, i := range m.visible {
				m.selected[i] = !all
			}
		}

	case "enter":
		if len(m.visible) == 0 {
			return m, nil
		}
		if !m.multi || m.countSelected() == 0 {
			m.selected = map[int]bool{m.visible[m.cursor]: true}
		}
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) countSelected() int {
	n := 0
	for _, v := range m.selected {
		if v {
			n++
		}
	}
	return n
}

// View renders the picker
func (m Model) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}

	if len(m.visible) == 0 {
		b.WriteString(dimStyle.Render("  no hosts match the filter"))
		b.WriteString("\n")
	}

	for pos, i := range m.visible {
		h := m.hosts[i]
		box := "[ ]"
		if m.selected[i] {
			box = "[x]"
		}
		if !m.multi {
			box = ""
		}
		line := fmt.Sprintf("%s %s %s", box, h.Name, dimStyle.Render(h.Address))
		if pos == m.cursor {
			b.WriteString(cursorStyle.Render("> " + strings.TrimSpace(line)))
		} else {
			b.WriteString(itemStyle.Render("  " + strings.TrimSpace(line)))
		}
		b.WriteString("\n")
	}

	help := "enter confirm, esc cancel, / filter"
	if m.multi {
		help = "space toggle, a all, " + help
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(help))
	b.WriteString("\n")
	return b.String()
}

// Cancelled reports whether the operator aborted
func (m Model) Cancelled() bool {
	return m.cancelled
}

// Selected returns the chosen hosts in their original order
func (m Model) Selected() []domain.HostRecord {
	if !m.done {
		return nil
	}
	var out []domain.HostRecord
	for i, h := range m.hosts {
		if m.selected[i] {
			out = append(out, h)
		}
	}
	return out
}

// Run shows the picker and returns the chosen hosts
func Run(title string, hosts []domain.HostRecord, multi bool, opts ...tea.ProgramOption) ([]domain.HostRecord, error) {
	final, err := tea.NewProgram(New(title, hosts, multi), opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("host picker: %w", err)
	}
	m, ok := final.(Model)
	if !ok || m.Cancelled() {
		return nil, ErrCancelled
	}
	return m.Selected(), nil
}

package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PickerItem represents an item in a picker.
type PickerItem struct {
	ID          string
	Title       string
	Description string
}

// FilterValue returns the string to filter on.
func (i PickerItem) FilterValue() string {
	return i.ID + " " + i.Title + " " + i.Description
}

// pickerModel is the bubbletea model for a filterable picker.
type pickerModel struct {
	items        []PickerItem
	filtered     []PickerItem
	textInput    textinput.Model
	cursor       int
	selected     *PickerItem
	quitting     bool
	styles       *Styles
	title        string
	maxVisible   int
	scrollOffset int
	emptyMessage string
}

// PickerOption configures a picker.
type PickerOption func(*pickerModel)

// WithPickerTitle sets the picker title.
func WithPickerTitle(title string) PickerOption {
	return func(m *pickerModel) { m.title = title }
}

// WithMaxVisible sets the maximum number of visible items.
func WithMaxVisible(n int) PickerOption {
	return func(m *pickerModel) {
		if n > 0 {
			m.maxVisible = n
		}
	}
}

// WithInitialID places the cursor on the item with id.
func WithInitialID(id string) PickerOption {
	return func(m *pickerModel) {
		for i, item := range m.items {
			if item.ID == id {
				m.cursor = i
				return
			}
		}
	}
}

// WithPickerStyles sets the styles used to render the picker.
func WithPickerStyles(styles *Styles) PickerOption {
	return func(m *pickerModel) { m.styles = styles }
}

// WithEmptyMessage sets the message shown when nothing matches.
func WithEmptyMessage(msg string) PickerOption {
	return func(m *pickerModel) { m.emptyMessage = msg }
}

func newPickerModel(items []PickerItem, opts ...PickerOption) pickerModel {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.Width = 40
	ti.Focus()

	m := pickerModel{
		items:        items,
		filtered:     items,
		textInput:    ti,
		styles:       NewStyles(),
		title:        "Select an item",
		maxVisible:   10,
		emptyMessage: "No items found",
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.cursor >= m.maxVisible {
		m.scrollOffset = m.cursor - m.maxVisible + 1
	}
	return m
}

func (m pickerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		if m.cursor < len(m.filtered) {
			item := m.filtered[m.cursor]
			m.selected = &item
		}
		return m, tea.Quit
	case "up", "ctrl+p":
		if m.cursor > 0 {
			m.cursor--
			if m.cursor < m.scrollOffset {
				m.scrollOffset = m.cursor
			}
		}
	case "down", "ctrl+n":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			if m.cursor >= m.scrollOffset+m.maxVisible {
				m.scrollOffset = m.cursor - m.maxVisible + 1
			}
		}
	default:
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(key)
		m.filtered = m.filter(m.textInput.Value())
		m.cursor = 0
		m.scrollOffset = 0
		return m, cmd
	}
	return m, nil
}

func (m pickerModel) filter(query string) []PickerItem {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return m.items
	}
	var result []PickerItem
	for _, item := range m.items {
		if strings.Contains(strings.ToLower(item.FilterValue()), query) {
			result = append(result, item)
		}
	}
	return result
}

func (m pickerModel) View() string {
	if m.quitting || m.selected != nil {
		return ""
	}

	var b strings.Builder
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(m.styles.theme.Primary).
		MarginBottom(1)
	b.WriteString(titleStyle.Render(m.title) + "\n\n")
	b.WriteString(m.textInput.View() + "\n\n")

	if len(m.filtered) == 0 {
		b.WriteString(m.styles.Muted.Render(m.emptyMessage) + "\n")
		return b.String()
	}

	end := min(m.scrollOffset+m.maxVisible, len(m.filtered))
	for i := m.scrollOffset; i < end; i++ {
		item := m.filtered[i]
		cursor := "  "
		style := m.styles.Body
		if i == m.cursor {
			cursor = m.styles.Selected.Render("> ")
			style = m.styles.Selected
		}
		line := cursor + style.Render(item.Title)
		if item.Description != "" {
			line += m.styles.Muted.Render(" - " + item.Description)
		}
		b.WriteString(line + "\n")
	}
	if len(m.filtered) > m.maxVisible {
		b.WriteString(m.styles.Muted.Render(
			fmt.Sprintf("Showing %d-%d of %d", m.scrollOffset+1, end, len(m.filtered)),
		) + "\n")
	}
	b.WriteString("\n" + m.styles.Muted.Render("↑↓ navigate • enter select • esc cancel"))
	return b.String()
}

// Picker shows a filterable list and returns the chosen item.
type Picker struct {
	items  []PickerItem
	opts   []PickerOption
	output io.Writer
}

// NewPicker creates a new picker.
func NewPicker(items []PickerItem, opts ...PickerOption) *Picker {
	return &Picker{items: items, opts: opts}
}

// WithOutput sets where the picker is drawn. Defaults to the terminal.
func (p *Picker) WithOutput(w io.Writer) *Picker {
	p.output = w
	return p
}

// Run shows the picker and returns the selected item, or nil if the user
// cancelled.
func (p *Picker) Run() (*PickerItem, error) {
	var opts []tea.ProgramOption
	if p.output != nil {
		opts = append(opts, tea.WithOutput(p.output))
	}
	final, err := tea.NewProgram(newPickerModel(p.items, p.opts...), opts...).Run()
	if err != nil {
		return nil, err
	}
	m := final.(pickerModel) //nolint:errcheck // type assertion always succeeds here
	if m.quitting {
		return nil, nil
	}
	return m.selected, nil
}

// Package browse is a terminal view over one site resource. It keeps the
// resource synchronized with the active locale and offers a debounced
// search box.
package browse

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/campusweb/sitedata/internal/fetch"
	"github.com/campusweb/sitedata/internal/i18n"
	"github.com/campusweb/sitedata/internal/locale"
	"github.com/campusweb/sitedata/internal/query"
	"github.com/campusweb/sitedata/internal/tui"
)

// LocaleSetter is implemented by locale sources the view may change.
type LocaleSetter interface {
	Set(code string) string
}

// Options configures a Model.
type Options struct {
	Context context.Context
	Title   string

	List    *query.Query[any]
	Filters fetch.Filters
	Search  *query.Search[any] // optional

	Locales *locale.Set
	// Source drives the active locale. When it also implements
	// LocaleSetter, the language key writes to it.
	Source  locale.Source
	Catalog *i18n.Catalog
	Styles  *tui.Styles
}

// Model is the Bubble Tea model of the browse view.
type Model struct {
	title   string
	list    *query.Query[any]
	filters fetch.Filters
	search  *query.Search[any]

	scope   *query.Scope
	locales *locale.Set
	source  locale.Source
	watcher *query.LocaleWatcher
	catalog *i18n.Catalog
	styles  *tui.Styles
	keys    keyMap

	input   textinput.Model
	typing  bool
	spinner spinner.Model

	width, height int
	closed        bool
}

// New creates the view. The initial locale is taken from the source.
func New(opts Options) *Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	styles := opts.Styles
	if styles == nil {
		styles = tui.NewStyles()
	}
	locales := opts.Locales
	if locales == nil {
		locales = locale.DefaultSet()
	}
	source := opts.Source
	if source == nil {
		source = locale.NewStore(locales, locales.Default())
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = i18n.MustCatalog()
	}

	current := source.Current()
	scope := query.NewScope(ctx, "browse", current)
	scope.Register(opts.List)
	if opts.Search != nil {
		scope.Register(opts.Search)
	}

	ti := textinput.New()
	ti.Placeholder = catalog.T(current, i18n.MsgSearchPlaceholder, nil)
	ti.CharLimit = 256

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Theme().Primary)

	title := opts.Title
	if title == "" {
		title = opts.List.Name()
	}

	return &Model{
		title:   title,
		list:    opts.List,
		filters: opts.Filters,
		search:  opts.Search,
		scope:   scope,
		locales: locales,
		source:  source,
		watcher: query.WatchLocale(source),
		catalog: catalog,
		styles:  styles,
		keys:    defaultKeyMap(),
		input:   ti,
		spinner: s,
	}
}

// Locale returns the locale the view is synchronized with.
func (m *Model) Locale() string {
	return m.scope.Locale()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.syncList(), m.watcher.Next(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(0, msg.Width-6)
		return m, nil

	case query.LocaleChangedMsg:
		return m, tea.Batch(m.applyLocale(msg.Locale), m.watcher.Next(), m.spinner.Tick)

	case query.DebounceMsg:
		if m.search == nil {
			return m, nil
		}
		return m, tea.Batch(m.search.Update(msg), m.spinner.Tick)

	case query.UpdatedMsg:
		return m, nil

	case spinner.TickMsg:
		if m.active().Loading() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}
	if m.typing {
		return m.handleInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Locale):
		return m.cycleLocale()
	case key.Matches(msg, m.keys.Refresh):
		return tea.Batch(m.refetch(), m.spinner.Tick)
	case key.Matches(msg, m.keys.Search):
		if m.search == nil {
			return nil
		}
		m.typing = true
		return m.input.Focus()
	}
	return nil
}

func (m *Model) handleInput(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Submit):
		m.typing = false
		m.input.Blur()
		return nil
	case key.Matches(msg, m.keys.Cancel):
		m.typing = false
		m.input.Blur()
		m.input.SetValue("")
		m.search.Reset()
		return nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return cmd
	}
	return tea.Batch(cmd, m.setQuery(m.input.Value()))
}

// setQuery hands the search text to the debounced search.
func (m *Model) setQuery(text string) tea.Cmd {
	return m.search.SetQuery(m.scope.Context(), m.scope.Locale(), text)
}

// syncList issues the list query for the current locale.
func (m *Model) syncList() tea.Cmd {
	return m.list.Sync(m.scope.Context(), m.scope.Locale(), m.filters)
}

// cycleLocale moves to the next supported locale. Writable sources are
// updated and the change arrives back through the watcher; otherwise the
// scope is re-synced directly.
func (m *Model) cycleLocale() tea.Cmd {
	next := m.locales.Next(m.scope.Locale())
	if setter, ok := m.source.(LocaleSetter); ok {
		setter.Set(next)
		return nil
	}
	return tea.Batch(m.applyLocale(next), m.spinner.Tick)
}

// applyLocale re-syncs every query of the view in code.
func (m *Model) applyLocale(code string) tea.Cmd {
	code = m.locales.Normalize(code)
	m.input.Placeholder = m.catalog.T(code, i18n.MsgSearchPlaceholder, nil)
	return m.scope.SetLocale(code)
}

// refetch re-runs whichever query is on screen.
func (m *Model) refetch() tea.Cmd {
	if m.searching() {
		return m.search.Refetch(m.scope.Context())
	}
	if _, synced := m.list.Descriptor(); !synced {
		return m.syncList()
	}
	return m.list.Refetch(m.scope.Context())
}

func (m *Model) quit() tea.Cmd {
	m.close()
	return tea.Quit
}

// close tears the view down: in-flight fetches are canceled and data is
// discarded.
func (m *Model) close() {
	if m.closed {
		return
	}
	m.closed = true
	m.watcher.Close()
	m.scope.Teardown()
}

// searching reports whether search results replace the list.
func (m *Model) searching() bool {
	return m.search != nil && strings.TrimSpace(m.search.Query()) != ""
}

// active returns the snapshot on screen.
func (m *Model) active() query.Snapshot[any] {
	if m.searching() {
		return m.search.Results()
	}
	return m.list.Get()
}

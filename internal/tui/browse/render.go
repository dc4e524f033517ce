package browse

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/campusweb/sitedata/internal/i18n"
)

// titleFields are tried in order to label a list item.
var titleFields = []string{"title", "name", "label", "slug", "id"}

// View implements tea.Model.
func (m *Model) View() string {
	if m.closed {
		return ""
	}

	current := m.scope.Locale()
	theme := m.styles.Theme()
	width := m.width
	if width <= 0 {
		width = 80
	}

	var sections []string
	sections = append(sections, m.renderHeader(current))

	if m.search != nil && (m.typing || m.searching()) {
		sections = append(sections, "  "+m.input.View())
	}
	sections = append(sections, lipgloss.NewStyle().
		Foreground(theme.Border).
		Render(strings.Repeat("─", width)))

	snap := m.active()
	if snap.Degraded && snap.Notice != "" {
		sections = append(sections, m.styles.Warning.Render("  "+snap.Notice))
	}
	sections = append(sections, m.renderBody(current))
	sections = append(sections, m.renderHelp())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader(current string) string {
	badge := m.styles.Badge.Render(strings.ToUpper(current))
	language := m.styles.Muted.Render(m.catalog.LanguageName(current, current))
	return m.styles.Title.Render(m.title) + "  " + badge + " " + language
}

func (m *Model) renderBody(current string) string {
	snap := m.active()
	pad := lipgloss.NewStyle().Padding(0, 2)

	switch {
	case snap.Failed():
		lines := []string{m.styles.Error.Render(snap.Message)}
		if snap.Usable() {
			lines = append(lines, m.renderData(current, snap.Data))
		}
		lines = append(lines, m.styles.Muted.Render(m.catalog.T(current, i18n.MsgRetry, nil)))
		return pad.Render(strings.Join(lines, "\n"))
	case snap.Loading() && !snap.Usable():
		return pad.Render(m.spinner.View() + " " + m.catalog.T(current, i18n.MsgLoading, nil))
	case snap.Loading():
		return pad.Render(m.spinner.View() + "\n" + m.renderData(current, snap.Data))
	default:
		return pad.Render(m.renderData(current, snap.Data))
	}
}

// renderData lays out a payload: arrays as a numbered list, objects as
// sorted key/value lines, anything else as text.
func (m *Model) renderData(current string, data any) string {
	switch v := data.(type) {
	case nil:
		return m.styles.Muted.Render(m.catalog.T(current, i18n.MsgNoResults, nil))
	case []any:
		if len(v) == 0 {
			return m.styles.Muted.Render(m.catalog.T(current, i18n.MsgNoResults, nil))
		}
		limit := len(v)
		if room := m.height - 6; room > 0 && room < limit {
			limit = room
		}
		lines := make([]string, 0, limit+1)
		lines = append(lines, m.styles.Subtitle.Render(m.catalog.Count(current, i18n.MsgResultCount, len(v))))
		for i, item := range v[:limit] {
			lines = append(lines, fmt.Sprintf("%s %s",
				m.styles.Muted.Render(fmt.Sprintf("%3d.", i+1)),
				m.styles.Body.Render(itemLabel(item))))
		}
		return strings.Join(lines, "\n")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, m.styles.RenderKeyValue(k, scalar(v[k])))
		}
		return strings.Join(lines, "\n")
	default:
		return m.styles.Body.Render(scalar(v))
	}
}

func (m *Model) renderHelp() string {
	bindings := m.keys.shortHelp(m.search != nil, m.typing)
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, m.styles.Selected.Render(h.Key)+" "+m.styles.Muted.Render(h.Desc))
	}
	return "\n" + strings.Join(parts, m.styles.Muted.Render(" · "))
}

// itemLabel picks the most descriptive field of a list item.
func itemLabel(item any) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return scalar(item)
	}
	for _, f := range titleFields {
		if v, ok := obj[f]; ok && v != nil {
			if s := scalar(v); s != "" {
				return s
			}
		}
	}
	return scalar(item)
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"

	"github.com/campusweb/sitedata/internal/tui"
)

// Renderer handles styled terminal output.
type Renderer struct {
	width  int
	styled bool

	Summary   lipgloss.Style
	Notice    lipgloss.Style
	Muted     lipgloss.Style
	Data      lipgloss.Style
	Error     lipgloss.Style
	Hint      lipgloss.Style
	Header    lipgloss.Style
	Cell      lipgloss.Style
	CellMuted lipgloss.Style
}

// NewRenderer creates a renderer with styles from the resolved theme.
// Styling is enabled when writing to a TTY, or when forceStyled is true.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	return NewRendererWithTheme(w, forceStyled, tui.ResolveTheme())
}

// NewRendererWithTheme creates a renderer with a specific theme (for testing).
func NewRendererWithTheme(w io.Writer, forceStyled bool, theme tui.Theme) *Renderer {
	width, isTTY := terminalInfo(w)
	r := &Renderer{width: width, styled: isTTY || forceStyled}

	plain := lipgloss.NewStyle()
	if !r.styled {
		r.Summary, r.Notice, r.Muted, r.Data = plain, plain, plain, plain
		r.Error, r.Hint, r.Header, r.Cell, r.CellMuted = plain, plain, plain, plain, plain
		return r
	}

	// Dark variants: background can't be detected reliably when piped.
	r.Summary = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Primary.Dark)).Bold(true)
	r.Notice = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Warning.Dark))
	r.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Muted.Dark))
	r.Data = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Foreground.Dark))
	r.Error = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Error.Dark)).Bold(true)
	r.Hint = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Muted.Dark)).Italic(true)
	r.Header = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Foreground.Dark)).Bold(true)
	r.Cell = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Foreground.Dark))
	r.CellMuted = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Muted.Dark))
	return r
}

// terminalInfo returns the terminal width and whether the writer is a TTY.
func terminalInfo(w io.Writer) (width int, isTTY bool) {
	width = 80

	if f, ok := w.(*os.File); ok {
		if w, _, err := term.GetSize(f.Fd()); err == nil && w >= 40 {
			width = w
		}
		fi, err := f.Stat()
		if err == nil && (fi.Mode()&os.ModeCharDevice) != 0 {
			isTTY = true
		}
	}

	return width, isTTY
}

// RenderResponse renders a success response to the writer.
func (r *Renderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString(r.Summary.Render(resp.Summary))
		b.WriteString("\n")
	}
	if resp.Notice != "" {
		b.WriteString(r.Notice.Render("! " + resp.Notice))
		b.WriteString("\n")
	}
	if resp.Summary != "" || resp.Notice != "" {
		b.WriteString("\n")
	}

	r.renderData(&b, normalizeData(resp.Data))

	if stats, ok := resp.Meta["stats"]; ok {
		line := fmt.Sprintf("%v", stats)
		if p, ok := stats.(interface{ FormatParts() []string }); ok {
			line = strings.Join(p.FormatParts(), " | ")
		}
		b.WriteString("\n")
		b.WriteString(r.Muted.Render("Stats: " + line))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response to the writer.
func (r *Renderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder

	b.WriteString(r.Error.Render("Error: " + resp.Error))
	b.WriteString("\n")

	if resp.Hint != "" {
		b.WriteString(r.Hint.Render("Hint: " + resp.Hint))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) renderData(b *strings.Builder, data any) {
	switch d := data.(type) {
	case []map[string]any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(no results)"))
			b.WriteString("\n")
			return
		}
		r.renderTable(b, d)

	case map[string]any:
		r.renderObject(b, d)

	case []any:
		if len(d) == 0 {
			b.WriteString(r.Muted.Render("(no results)"))
			b.WriteString("\n")
			return
		}
		for _, item := range d {
			b.WriteString(r.Data.Render("• " + formatCell(item)))
			b.WriteString("\n")
		}

	case nil:
		b.WriteString(r.Muted.Render("(no data)"))
		b.WriteString("\n")

	default:
		b.WriteString(r.Data.Render(formatCell(d)))
		b.WriteString("\n")
	}
}

// Column priority for table rendering (lower = higher priority)
var columnPriority = map[string]int{
	"id":          1,
	"name":        2,
	"title":       2,
	"full_name":   2,
	"position":    3,
	"faculty":     4,
	"degree":      4,
	"date":        5,
	"description": 7,
	"created_at":  8,
	"updated_at":  9,
}

var mutedColumns = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

type column struct {
	key      string
	header   string
	priority int
	muted    bool
	width    int
}

func (r *Renderer) renderTable(b *strings.Builder, data []map[string]any) {
	columns := r.selectColumns(detectColumns(data), data)
	if len(columns) == 0 {
		return
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Header
			}
			if col < len(columns) && columns[col].muted {
				return r.CellMuted
			}
			return r.Cell
		})

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.header
	}
	t.Headers(headers...)

	for _, item := range data {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = formatCell(item[col.key])
		}
		t.Row(row...)
	}

	b.WriteString(t.String())
	b.WriteString("\n")
}

func detectColumns(data []map[string]any) []column {
	if len(data) == 0 {
		return nil
	}

	var cols []column
	for key, val := range data[0] {
		switch val.(type) {
		case map[string]any, []map[string]any, []any:
			continue
		}
		priority := columnPriority[key]
		if priority == 0 {
			priority = 50
		}
		cols = append(cols, column{
			key:      key,
			header:   formatHeader(key),
			priority: priority,
			muted:    mutedColumns[key],
		})
	}

	sort.Slice(cols, func(i, j int) bool {
		if cols[i].priority != cols[j].priority {
			return cols[i].priority < cols[j].priority
		}
		return cols[i].key < cols[j].key
	})
	return cols
}

func (r *Renderer) selectColumns(cols []column, data []map[string]any) []column {
	for i := range cols {
		cols[i].width = lipgloss.Width(cols[i].header)
		for _, row := range data {
			if w := lipgloss.Width(formatCell(row[cols[i].key])); w > cols[i].width {
				cols[i].width = w
			}
		}
		cols[i].width = min(cols[i].width, 40)
	}

	const padding = 2
	selected := cols
	for len(selected) > 1 {
		total := 0
		for _, col := range selected {
			total += col.width + padding
		}
		if total <= r.width {
			break
		}
		selected = selected[:len(selected)-1]
	}
	return selected
}

func (r *Renderer) renderObject(b *strings.Builder, data map[string]any) {
	keys := make([]string, 0, len(data))
	for k, v := range data {
		switch v.(type) {
		case map[string]any, []map[string]any:
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		b.WriteString(r.Muted.Render("(no data)"))
		b.WriteString("\n")
		return
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := columnPriority[keys[i]], columnPriority[keys[j]]
		if pi == 0 {
			pi = 50
		}
		if pj == 0 {
			pj = 50
		}
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})

	maxLen := 0
	for _, k := range keys {
		maxLen = max(maxLen, len(formatHeader(k)))
	}
	for _, k := range keys {
		label := r.Muted.Render(fmt.Sprintf("%-*s: ", maxLen, formatHeader(k)))
		style := r.Data
		if mutedColumns[k] {
			style = r.CellMuted
		}
		b.WriteString(label + style.Render(formatCell(data[k])) + "\n")
	}
}

func formatHeader(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatCell(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return truncate(v, 80)
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%.2f", v)
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, formatCell(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

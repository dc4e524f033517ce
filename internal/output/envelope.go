package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Response is the success envelope for JSON output.
type Response struct {
	OK      bool           `json:"ok" yaml:"ok"`
	Data    any            `json:"data,omitempty" yaml:"data,omitempty"`
	Summary string         `json:"summary,omitempty" yaml:"summary,omitempty"`
	Notice  string         `json:"notice,omitempty" yaml:"notice,omitempty"`
	Meta    map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// ErrorResponse is the error envelope for JSON output.
type ErrorResponse struct {
	OK     bool   `json:"ok" yaml:"ok"`
	Error  string `json:"error" yaml:"error"`
	Code   string `json:"code" yaml:"code"`
	Hint   string `json:"hint,omitempty" yaml:"hint,omitempty"`
	Status int    `json:"status,omitempty" yaml:"status,omitempty"`
}

// Format specifies the output format.
type Format int

const (
	FormatAuto Format = iota // Auto-detect: TTY → Styled, non-TTY → JSON
	FormatJSON
	FormatYAML
	FormatStyled // ANSI styled output (forced, even when piped)
	FormatQuiet  // Data only, no envelope
	FormatCount
)

// ParseFormat maps a config/flag value to a Format.
func ParseFormat(s string) Format {
	switch s {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	case "styled":
		return FormatStyled
	case "quiet":
		return FormatQuiet
	case "count":
		return FormatCount
	default:
		return FormatAuto
	}
}

// Options controls output behavior.
type Options struct {
	Format Format
	Writer io.Writer
}

// Writer handles all output formatting.
type Writer struct {
	opts Options
}

// New creates a new output writer.
func New(opts Options) *Writer {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	return &Writer{opts: opts}
}

// OK outputs a success response.
func (w *Writer) OK(data any, opts ...ResponseOption) error {
	resp := &Response{OK: true, Data: data}
	for _, opt := range opts {
		opt(resp)
	}
	return w.write(resp)
}

// Err outputs an error response.
func (w *Writer) Err(err error) error {
	e := AsError(err)
	resp := &ErrorResponse{
		OK:     false,
		Error:  e.Message,
		Code:   e.Code,
		Hint:   e.Hint,
		Status: e.HTTPStatus,
	}
	return w.write(resp)
}

func (w *Writer) write(v any) error {
	format := w.opts.Format

	if format == FormatAuto {
		if isTTY(w.opts.Writer) {
			format = FormatStyled
		} else {
			format = FormatJSON
		}
	}

	switch format {
	case FormatQuiet:
		if resp, ok := v.(*Response); ok {
			return w.writeJSON(normalizeData(resp.Data))
		}
		return w.writeJSON(v)
	case FormatCount:
		return w.writeCount(v)
	case FormatYAML:
		return w.writeYAML(v)
	case FormatStyled:
		return w.writeStyled(v)
	default:
		return w.writeJSON(v)
	}
}

// isTTY checks if the writer is a terminal.
func isTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return false
		}
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

func (w *Writer) writeJSON(v any) error {
	enc := json.NewEncoder(w.opts.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (w *Writer) writeYAML(v any) error {
	if resp, ok := v.(*Response); ok {
		normalized := *resp
		normalized.Data = normalizeData(resp.Data)
		v = &normalized
	}
	enc := yaml.NewEncoder(w.opts.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (w *Writer) writeCount(v any) error {
	resp, ok := v.(*Response)
	if !ok {
		return w.writeJSON(v)
	}

	switch d := normalizeData(resp.Data).(type) {
	case []any:
		fmt.Fprintln(w.opts.Writer, len(d))
	case []map[string]any:
		fmt.Fprintln(w.opts.Writer, len(d))
	case nil:
		fmt.Fprintln(w.opts.Writer, 0)
	default:
		fmt.Fprintln(w.opts.Writer, 1)
	}
	return nil
}

// normalizeData converts json.RawMessage and typed values to standard Go types.
func normalizeData(data any) any {
	if raw, ok := data.(json.RawMessage); ok {
		if len(raw) == 0 {
			return nil
		}
		var unmarshaled any
		if err := json.Unmarshal(raw, &unmarshaled); err == nil {
			return normalizeUnmarshaled(unmarshaled)
		}
		return string(raw)
	}

	switch data.(type) {
	case []map[string]any, map[string]any, []any, string, nil:
		return data
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return data
		}
		var unmarshaled any
		if err := json.Unmarshal(b, &unmarshaled); err != nil {
			return data
		}
		return normalizeUnmarshaled(unmarshaled)
	}
}

// normalizeUnmarshaled converts []any to []map[string]any if all elements are maps.
func normalizeUnmarshaled(v any) any {
	d, ok := v.([]any)
	if !ok {
		return v
	}
	if len(d) == 0 {
		return []map[string]any{}
	}
	maps := make([]map[string]any, 0, len(d))
	for _, item := range d {
		m, ok := item.(map[string]any)
		if !ok {
			return v
		}
		maps = append(maps, m)
	}
	return maps
}

// writeStyled outputs ANSI styled terminal output.
func (w *Writer) writeStyled(v any) error {
	r := NewRenderer(w.opts.Writer, true)
	switch resp := v.(type) {
	case *Response:
		return r.RenderResponse(w.opts.Writer, resp)
	case *ErrorResponse:
		return r.RenderError(w.opts.Writer, resp)
	default:
		return w.writeJSON(v)
	}
}

// ResponseOption modifies a Response.
type ResponseOption func(*Response)

// WithSummary adds a summary to the response.
func WithSummary(s string) ResponseOption {
	return func(r *Response) { r.Summary = s }
}

// WithNotice adds a user-visible notice (e.g. degraded-language disclosure).
func WithNotice(s string) ResponseOption {
	return func(r *Response) { r.Notice = s }
}

// WithMeta adds metadata to the response.
func WithMeta(key string, value any) ResponseOption {
	return func(r *Response) {
		if r.Meta == nil {
			r.Meta = make(map[string]any)
		}
		r.Meta[key] = value
	}
}

// WithStats attaches session stats under meta.stats.
func WithStats(stats any) ResponseOption {
	return WithMeta("stats", stats)
}

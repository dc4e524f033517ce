package commands

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/campusweb/sitedata/internal/appctx"
	"github.com/campusweb/sitedata/internal/fetch"
	"github.com/campusweb/sitedata/internal/i18n"
	"github.com/campusweb/sitedata/internal/output"
	"github.com/campusweb/sitedata/internal/query"
	"github.com/campusweb/sitedata/internal/tui"
)

// resourceFlags are the flags shared by commands that read one resource.
type resourceFlags struct {
	filters  []string
	results  bool
	jq       string
	fallback bool
}

// options turns the flags into resource options.
func (f resourceFlags) options() []fetch.ResourceOption {
	var opts []fetch.ResourceOption
	if f.results {
		opts = append(opts, fetch.WithResults())
	}
	if f.jq != "" {
		opts = append(opts, fetch.WithSelect(f.jq))
	}
	return opts
}

// newResource builds an untyped resource for path using the app's client.
func newResource(app *appctx.App, path string, opts ...fetch.ResourceOption) (*fetch.Resource[any], error) {
	if strings.TrimSpace(path) == "" {
		return nil, output.ErrUsage("Resource path required")
	}
	client, err := app.Client()
	if err != nil {
		return nil, err
	}
	return fetch.NewResource[any](client, resourceName(path), path, opts...)
}

// resourceName derives a stable query name from a path.
func resourceName(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	name := strings.Trim(path, "/")
	if name == "" {
		return "root"
	}
	return name
}

// queryOptions wires the app's locale normalizer, describer, hooks and,
// when enabled, the language fallback into a query.
func queryOptions(app *appctx.App, fallback bool) []query.Option[any] {
	opts := []query.Option[any]{
		query.WithLocaleNormalizer[any](app.Locales.Normalize),
		query.WithDescriber[any](app.Describe),
		query.WithHooks[any](app.Hooks),
	}
	if fallback {
		opts = append(opts, query.WithMiddleware(app.Fallback()))
	}
	return opts
}

// drain runs cmd and every command produced while handling its messages,
// without a terminal. Batches are flattened. It stops when no work remains
// or ctx is done.
func drain(ctx context.Context, cmd tea.Cmd, handle func(tea.Msg) tea.Cmd) error {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			if handle != nil {
				queue = append(queue, handle(msg))
			}
		}
	}
	return nil
}

// await runs work, drawing a loading spinner on stderr while it runs when
// the terminal is interactive.
func await(ctx context.Context, app *appctx.App, locale string, work func(context.Context) error) error {
	if !app.IsInteractive() {
		return work(ctx)
	}
	return tui.NewSpinner(app.Catalog.T(locale, i18n.MsgLoading, nil),
		tui.WithSpinnerOutput(app.Stderr),
		tui.WithSpinnerStyles(tui.NewStylesWithTheme(tui.ResolveTheme())),
	).Run(ctx, work)
}

// snapshotError turns a failed snapshot into the error returned to the CLI,
// carrying the localized message and the underlying detail as the hint.
func snapshotError(snap query.Snapshot[any]) error {
	e := *output.AsError(snap.Err)
	detail := e.Message
	if snap.Message != "" {
		e.Message = snap.Message
	}
	if e.Hint == "" && detail != e.Message {
		e.Hint = detail
	}
	return &e
}

// snapshotMeta reports how a snapshot was served.
func snapshotMeta(snap query.Snapshot[any]) []output.ResponseOption {
	opts := []output.ResponseOption{output.WithMeta("locale", snap.Locale)}
	if snap.Degraded {
		opts = append(opts,
			output.WithMeta("degraded", true),
			output.WithNotice(snap.Notice),
		)
	}
	return opts
}

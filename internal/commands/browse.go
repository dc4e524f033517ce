package commands

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/campusweb/sitedata/internal/appctx"
	"github.com/campusweb/sitedata/internal/fetch"
	"github.com/campusweb/sitedata/internal/locale"
	"github.com/campusweb/sitedata/internal/output"
	"github.com/campusweb/sitedata/internal/query"
	"github.com/campusweb/sitedata/internal/tui"
	"github.com/campusweb/sitedata/internal/tui/browse"
)

// NewBrowseCmd creates the browse command, a full-screen view over one
// resource that follows the active locale.
func NewBrowseCmd() *cobra.Command {
	var flags resourceFlags
	var searchPath string
	var localeFile string

	cmd := &cobra.Command{
		Use:   "browse <path>",
		Short: "Browse a resource interactively",
		Long: `Browse a resource in a full-screen terminal view.

Keys: l switches language, r refreshes, / searches (with --search-path),
q quits. With --locale-file, the language also follows the first line of
that file whenever it changes.`,
		Example: `  sitedata browse /news --search-path /news/search
  sitedata browse /faculties --locale-file ~/.config/site-locale`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			if !app.IsInteractive() {
				return output.ErrUsageHint("browse needs an interactive terminal", "Use 'sitedata get' for scripted access")
			}
			return runBrowse(cmd.Context(), app, args[0], searchPath, localeFile, flags)
		},
	}

	cmd.Flags().StringArrayVarP(&flags.filters, "filter", "f", nil, "Filter as key=value (repeatable)")
	cmd.Flags().BoolVar(&flags.results, "results", false, "Unwrap the results field of paginated payloads")
	cmd.Flags().BoolVar(&flags.fallback, "fallback", true, "Retry in the default locale when the server fails")
	cmd.Flags().StringVar(&searchPath, "search-path", "", "Resource queried by the search box")
	cmd.Flags().StringVar(&localeFile, "locale-file", "", "File whose first line selects the language")

	return cmd
}

func runBrowse(ctx context.Context, app *appctx.App, path, searchPath, localeFile string, flags resourceFlags) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model, err := newBrowseModel(ctx, app, path, searchPath, localeFile, flags)
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// newBrowseModel wires the view's queries and locale source.
func newBrowseModel(ctx context.Context, app *appctx.App, path, searchPath, localeFile string, flags resourceFlags) (*browse.Model, error) {
	filters, err := fetch.ParseFilters(flags.filters)
	if err != nil {
		return nil, err
	}
	res, err := newResource(app, path, flags.options()...)
	if err != nil {
		return nil, err
	}

	opts := browse.Options{
		Context: ctx,
		Title:   res.Name(),
		List:    query.New(res.Name(), query.FromResource(res), queryOptions(app, flags.fallback)...),
		Filters: filters,
		Locales: app.Locales,
		Catalog: app.Catalog,
		Styles:  tui.NewStylesWithTheme(tui.ResolveTheme()),
	}

	if searchPath != "" {
		sres, err := newResource(app, searchPath, flags.options()...)
		if err != nil {
			return nil, err
		}
		opts.Search = query.NewSearch("search:"+sres.Name(), query.FromResource(sres),
			query.WithDelay[any](app.Config.SearchDelay),
			query.WithQueryOptions(queryOptions(app, flags.fallback)...),
		)
	}

	if localeFile != "" {
		src, err := locale.NewFileSource(app.Locales, localeFile)
		if err != nil {
			return nil, output.ErrUsageHint("Cannot watch locale file", err.Error())
		}
		logger := app.Tracer.Logger()
		go src.Run(ctx, func(err error) {
			logger.Warn("locale file", "path", src.Path(), "err", err)
		})
		opts.Source = src
	} else {
		opts.Source = locale.NewStore(app.Locales, app.Locale())
	}

	return browse.New(opts), nil
}

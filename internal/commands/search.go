package commands

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusweb/sitedata/internal/appctx"
	"github.com/campusweb/sitedata/internal/fetch"
	"github.com/campusweb/sitedata/internal/i18n"
	"github.com/campusweb/sitedata/internal/output"
	"github.com/campusweb/sitedata/internal/query"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var flags resourceFlags
	var param string
	var minLength int
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "search <path> <query...>",
		Short: "Search a resource",
		Long: `Search a resource the way the site's search box does.

The text is sent as the --param filter (q by default) after the debounce
delay. Blank text returns no results without contacting the server.`,
		Example: `  sitedata search /search admission rules
  sitedata search /staff --param name --filter faculty=3 ivanov`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			text := strings.Join(args[1:], " ")
			if !cmd.Flags().Changed("delay") {
				delay = app.Config.SearchDelay
			}
			return runSearch(cmd, app, args[0], text, searchSettings{
				flags:     flags,
				param:     param,
				minLength: minLength,
				delay:     delay,
			})
		},
	}

	cmd.Flags().StringArrayVarP(&flags.filters, "filter", "f", nil, "Extra filter as key=value (repeatable)")
	cmd.Flags().BoolVar(&flags.results, "results", false, "Unwrap the results field of paginated payloads")
	cmd.Flags().StringVar(&flags.jq, "jq", "", "Project the payload through a jq expression")
	cmd.Flags().BoolVar(&flags.fallback, "fallback", true, "Retry in the default locale when the server fails")
	cmd.Flags().StringVar(&param, "param", "q", "Filter key carrying the search text")
	cmd.Flags().IntVar(&minLength, "min-length", 1, "Shortest text that triggers a search")
	cmd.Flags().DurationVar(&delay, "delay", query.DefaultSearchDelay, "Debounce delay")

	return cmd
}

type searchSettings struct {
	flags     resourceFlags
	param     string
	minLength int
	delay     time.Duration
}

func runSearch(cmd *cobra.Command, app *appctx.App, path, text string, s searchSettings) error {
	filters, err := fetch.ParseFilters(s.flags.filters)
	if err != nil {
		return err
	}
	res, err := newResource(app, path, s.flags.options()...)
	if err != nil {
		return err
	}

	search := query.NewSearch(res.Name(), query.FromResource(res),
		query.WithDelay[any](s.delay),
		query.WithQueryParam[any](s.param),
		query.WithMinLength[any](s.minLength),
		query.WithBaseFilters[any](filters),
		query.WithQueryOptions(queryOptions(app, s.flags.fallback)...),
	)

	locale := app.Locale()
	err = await(cmd.Context(), app, locale, func(ctx context.Context) error {
		return drain(ctx, search.SetQuery(ctx, locale, text), search.Update)
	})
	if err != nil {
		return err
	}

	snap := search.Results()
	if snap.Failed() {
		return snapshotError(snap)
	}
	if !snap.HasData {
		return app.OK([]any{},
			output.WithSummary(app.Catalog.T(locale, i18n.MsgNoResults, nil)),
			output.WithMeta("query", search.Query()),
		)
	}

	opts := append(snapshotMeta(snap),
		output.WithSummary(summarize(app, locale, snap)),
		output.WithMeta("query", search.Query()),
	)
	return app.OK(snap.Data, opts...)
}

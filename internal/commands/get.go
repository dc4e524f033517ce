package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campusweb/sitedata/internal/appctx"
	"github.com/campusweb/sitedata/internal/fetch"
	"github.com/campusweb/sitedata/internal/i18n"
	"github.com/campusweb/sitedata/internal/output"
	"github.com/campusweb/sitedata/internal/query"
)

// NewGetCmd creates the get command, which reads one resource in the active
// locale the same way a view would.
func NewGetCmd() *cobra.Command {
	var flags resourceFlags

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Fetch a resource in the active locale",
		Long: `Fetch a resource in the active locale.

The request carries the locale as the lang parameter. When the server fails
with HTTP 500 for a non-default locale, the request is retried once in the
default locale and the result is marked degraded. Use --fallback=false to
disable the retry.

Filters are passed as repeated --filter key=value pairs. Repeating a key
sends it multiple times.`,
		Example: `  sitedata get /news --filter page=2
  sitedata get /faculties --lang en --results
  sitedata get /news --jq '.results[] | {id, title}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			return runGet(cmd, app, args[0], flags)
		},
	}

	cmd.Flags().StringArrayVarP(&flags.filters, "filter", "f", nil, "Filter as key=value (repeatable)")
	cmd.Flags().BoolVar(&flags.results, "results", false, "Unwrap the results field of paginated payloads")
	cmd.Flags().StringVar(&flags.jq, "jq", "", "Project the payload through a jq expression")
	cmd.Flags().BoolVar(&flags.fallback, "fallback", true, "Retry in the default locale when the server fails")

	return cmd
}

func runGet(cmd *cobra.Command, app *appctx.App, path string, flags resourceFlags) error {
	filters, err := fetch.ParseFilters(flags.filters)
	if err != nil {
		return err
	}
	res, err := newResource(app, path, flags.options()...)
	if err != nil {
		return err
	}

	q := query.New(res.Name(), query.FromResource(res), queryOptions(app, flags.fallback)...)
	locale := app.Locale()
	err = await(cmd.Context(), app, locale, func(ctx context.Context) error {
		return drain(ctx, q.Sync(ctx, locale, filters), nil)
	})
	if err != nil {
		return err
	}

	snap := q.Get()
	if snap.Failed() {
		return snapshotError(snap)
	}

	opts := append(snapshotMeta(snap), output.WithSummary(summarize(app, locale, snap)))
	return app.OK(snap.Data, opts...)
}

// summarize describes a snapshot for the envelope in the requested locale.
// A degraded result leads with its notice so it is never missed.
func summarize(app *appctx.App, locale string, snap query.Snapshot[any]) string {
	var summary string
	switch data := snap.Data.(type) {
	case []any:
		summary = app.Catalog.Count(locale, i18n.MsgResultCount, len(data))
	case nil:
		summary = app.Catalog.T(locale, i18n.MsgNoResults, nil)
	default:
		summary = fmt.Sprintf("%s (%s)", app.Catalog.LanguageName(locale, snap.Locale), snap.Locale)
	}
	if snap.Degraded && snap.Notice != "" {
		return snap.Notice + " " + summary
	}
	return summary
}

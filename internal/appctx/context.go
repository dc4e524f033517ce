// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/x/term"

	"github.com/campusweb/sitedata/internal/config"
	"github.com/campusweb/sitedata/internal/fetch"
	"github.com/campusweb/sitedata/internal/i18n"
	"github.com/campusweb/sitedata/internal/locale"
	"github.com/campusweb/sitedata/internal/observability"
	"github.com/campusweb/sitedata/internal/output"
	"github.com/campusweb/sitedata/internal/query"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config  *config.Config
	Locales *locale.Set
	Catalog *i18n.Catalog
	Output  *output.Writer

	// Observability
	Collector *observability.SessionCollector
	Hooks     *observability.CLIHooks
	Tracer    *observability.TraceWriter

	// Flags holds the global flag values
	Flags GlobalFlags

	// Stdout receives command output and Stderr stats lines.
	Stdout io.Writer
	Stderr io.Writer

	clientOnce sync.Once
	client     *fetch.Client
	clientErr  error
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON   bool
	YAML   bool
	Quiet  bool
	Styled bool // Force ANSI styled output (even when piped)
	Count  bool

	// Context flags
	BaseURL string
	Lang    string

	// Behavior flags
	Verbose int // 0=off, 1=operations, 2=operations+requests (stacks with -v -v or -vv)
	Stats   bool
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) (*App, error) {
	locales, err := locale.NewSet(cfg.DefaultLocale, cfg.Locales...)
	if err != nil {
		return nil, output.ErrUsageHint("Invalid locale configuration", err.Error())
	}
	catalog, err := i18n.NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("loading message catalog: %w", err)
	}

	// Collector always runs to gather stats; hooks control output verbosity.
	// Level 0 initially; ApplyFlags sets the actual level from -v flags.
	collector := observability.NewSessionCollector()
	tracer := observability.NewTraceWriter()
	hooks := observability.NewCLIHooks(0, collector, tracer)

	if cfg.Verbose != nil {
		hooks.SetLevel(*cfg.Verbose)
	}

	app := &App{
		Config:    cfg,
		Locales:   locales,
		Catalog:   catalog,
		Collector: collector,
		Hooks:     hooks,
		Tracer:    tracer,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Output: output.New(output.Options{
			Format: output.ParseFormat(cfg.Format),
			Writer: os.Stdout,
		}),
	}
	if cfg.Stats != nil {
		app.Flags.Stats = *cfg.Stats
	}
	return app, nil
}

// ApplyFlags applies global flag values to the app configuration.
func (a *App) ApplyFlags() {
	// Order matters: specific modes first
	format := output.ParseFormat(a.Config.Format)
	switch {
	case a.Flags.Count:
		format = output.FormatCount
	case a.Flags.Quiet:
		format = output.FormatQuiet
	case a.Flags.JSON:
		format = output.FormatJSON
	case a.Flags.YAML:
		format = output.FormatYAML
	case a.Flags.Styled:
		format = output.FormatStyled
	}
	a.Output = output.New(output.Options{Format: format, Writer: a.Stdout})

	// Determine verbosity level from flags and SITEDATA_DEBUG env var
	level := a.Flags.Verbose
	if a.Config.Verbose != nil && *a.Config.Verbose > level {
		level = *a.Config.Verbose
	}
	if debugEnv := os.Getenv("SITEDATA_DEBUG"); debugEnv != "" {
		// SITEDATA_DEBUG can be "1", "2", or "true" (treated as 2 for full debug)
		if n, err := strconv.Atoi(debugEnv); err == nil {
			if n > level {
				level = n
			}
		} else if debugEnv == "true" {
			level = 2
		}
	}
	a.Hooks.SetLevel(level)
}

// Locale returns the configured locale, normalized into the supported set.
func (a *App) Locale() string {
	return a.Locales.Normalize(a.Config.Locale)
}

// Client returns the resource client, created on first use.
func (a *App) Client() (*fetch.Client, error) {
	a.clientOnce.Do(func() {
		a.client, a.clientErr = fetch.NewClient(fetch.Options{
			BaseURL:                 a.Config.BaseURL,
			Locales:                 a.Locales,
			Timeout:                 a.Config.Timeout,
			Lenient:                 a.Config.LenientFormat,
			IgnoreApplicationErrors: !a.Config.ApplicationErrors,
			Hooks:                   a.Hooks,
			Instrument:              os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "",
		})
	})
	return a.client, a.clientErr
}

// Describe turns a fetch error into a message in the given locale.
func (a *App) Describe(locale string, err error) string {
	return a.Catalog.Describe(locale, err)
}

// Fallback returns the language fallback policy for this app's locale set.
func (a *App) Fallback() query.Middleware[any] {
	return query.LocaleFallback[any](a.Locales.Default(), a.Catalog.DegradedNotice, query.FallbackHooks(a.Hooks))
}

// OK outputs a success response, automatically including stats if --stats flag is set.
func (a *App) OK(data any, opts ...output.ResponseOption) error {
	if a.Flags.Stats && a.Collector != nil {
		stats := a.Collector.Summary()
		opts = append(opts, output.WithStats(&stats))
	}
	return a.Output.OK(data, opts...)
}

// Err outputs an error response, printing stats to stderr if --stats flag is set.
func (a *App) Err(err error) error {
	if outputErr := a.Output.Err(err); outputErr != nil {
		return outputErr
	}

	// Machine-consumable modes keep stderr clean.
	if a.Flags.Stats && a.Collector != nil && !a.isMachineOutput() {
		stats := a.Collector.Summary()
		a.printStats(&stats)
	}
	return nil
}

// isMachineOutput returns true if the output mode is intended for programmatic consumption.
// Checks both flags and config-driven format settings.
func (a *App) isMachineOutput() bool {
	if a.Flags.Quiet || a.Flags.Count {
		return true
	}
	return a.Config != nil && a.Config.Format == "quiet"
}

// printStats outputs a compact stats line to stderr.
func (a *App) printStats(stats *observability.SessionMetrics) {
	if stats == nil {
		return
	}
	if parts := stats.FormatParts(); len(parts) > 0 {
		fmt.Fprintf(a.Stderr, "\nStats: %s\n", strings.Join(parts, " | "))
	}
}

// IsInteractive returns true if the terminal supports interactive TUI.
func (a *App) IsInteractive() bool {
	if a.Flags.JSON || a.Flags.YAML || a.Flags.Quiet || a.Flags.Count {
		return false
	}

	return term.IsTerminal(os.Stdout.Fd())
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}

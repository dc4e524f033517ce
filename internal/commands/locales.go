package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campusweb/sitedata/internal/appctx"
	"github.com/campusweb/sitedata/internal/output"
	"github.com/campusweb/sitedata/internal/tui"
)

// LocaleInfo describes one supported locale.
type LocaleInfo struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Native  string `json:"native"`
	Default bool   `json:"default,omitempty"`
	Active  bool   `json:"active,omitempty"`
}

// NewLocalesCmd creates the locales command.
func NewLocalesCmd() *cobra.Command {
	var pick, global bool

	cmd := &cobra.Command{
		Use:   "locales",
		Short: "List supported locales",
		Long: `List the locales the site serves.

The default locale is the one requests fall back to when the server fails
for another locale. The active locale comes from --lang, SITEDATA_LOCALE,
or the locale config key.

With --select, pick the active locale interactively and save it as the
locale config key.`,
		Example: `  sitedata locales
  sitedata locales --select --global`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			active := app.Locale()
			infos := localeInfos(app, active)

			if pick {
				return runLocaleSelect(app, infos, active, global)
			}

			return app.OK(infos,
				output.WithSummary(fmt.Sprintf("%d locales, default %s, active %s", len(infos), app.Locales.Default(), active)),
				output.WithMeta("default", app.Locales.Default()),
				output.WithMeta("active", active),
			)
		},
	}

	cmd.Flags().BoolVar(&pick, "select", false, "Choose the active locale interactively")
	cmd.Flags().BoolVar(&global, "global", false, "Save the chosen locale in global config")

	return cmd
}

// localeInfos describes every supported locale with names in active.
func localeInfos(app *appctx.App, active string) []LocaleInfo {
	codes := app.Locales.Codes()
	infos := make([]LocaleInfo, 0, len(codes))
	for _, code := range codes {
		infos = append(infos, LocaleInfo{
			Code:    code,
			Name:    app.Catalog.LanguageName(active, code),
			Native:  app.Catalog.LanguageName(code, code),
			Default: app.Locales.IsDefault(code),
			Active:  code == active,
		})
	}
	return infos
}

// localePickerItems turns locale infos into picker rows titled in each
// locale's own language.
func localePickerItems(infos []LocaleInfo) []tui.PickerItem {
	items := make([]tui.PickerItem, 0, len(infos))
	for _, info := range infos {
		desc := info.Name
		if info.Default {
			desc += ", default"
		}
		items = append(items, tui.PickerItem{
			ID:          info.Code,
			Title:       fmt.Sprintf("%s (%s)", info.Native, info.Code),
			Description: desc,
		})
	}
	return items
}

func runLocaleSelect(app *appctx.App, infos []LocaleInfo, active string, global bool) error {
	if !app.IsInteractive() {
		return output.ErrUsageHint("locales --select needs an interactive terminal", "Use 'sitedata config set locale <code>'")
	}

	item, err := tui.NewPicker(localePickerItems(infos),
		tui.WithPickerTitle("Select a locale"),
		tui.WithInitialID(active),
		tui.WithPickerStyles(tui.NewStylesWithTheme(tui.ResolveTheme())),
	).WithOutput(app.Stderr).Run()
	if err != nil {
		return err
	}
	if item == nil {
		return app.OK(map[string]any{"locale": active, "status": "cancelled"},
			output.WithSummary("Locale unchanged"))
	}

	scope, path, err := storeConfigValue(global, "locale", item.ID)
	if err != nil {
		return err
	}
	return app.OK(map[string]any{
		"locale": item.ID,
		"scope":  scope,
		"path":   path,
		"status": "set",
	}, output.WithSummary(fmt.Sprintf("Locale set to %s (%s)", item.ID, scope)))
}

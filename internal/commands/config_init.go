package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/campusweb/sitedata/internal/appctx"
	"github.com/campusweb/sitedata/internal/output"
)

func newConfigInitCmd() *cobra.Command {
	var noPrompt bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize local config file",
		Long: `Create a local .sitedata/config.json file in the current directory.

On an interactive terminal, init asks for the site API base URL and the
default and active locales. The base URL is saved in global config because
local config cannot set it. Use --no-prompt to create an empty file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			configFile := filepath.Join(localConfigDir, "config.json")

			if _, err := os.Stat(configFile); err == nil {
				return app.OK(map[string]any{
					"exists": true,
					"path":   configFile,
				}, output.WithSummary(fmt.Sprintf("Config file already exists: %s", configFile)))
			}

			answers := initAnswers{
				BaseURL:       app.Config.BaseURL,
				DefaultLocale: app.Locales.Default(),
				Locale:        app.Locale(),
			}
			if app.IsInteractive() && !noPrompt {
				form := newInitForm(&answers, localeOptions(localeInfos(app, app.Locale()))).WithOutput(app.Stderr)
				if err := form.Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return app.OK(map[string]any{"status": "cancelled"}, output.WithSummary("Nothing written"))
					}
					return err
				}
			} else {
				answers = initAnswers{}
			}

			local, err := answers.localValues()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(localConfigDir, 0700); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := writeConfigFile(configFile, local); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}

			result := map[string]any{
				"created": true,
				"path":    configFile,
			}
			if answers.BaseURL != "" && answers.BaseURL != app.Config.BaseURL {
				baseURL, err := parseConfigValue("base_url", answers.BaseURL)
				if err != nil {
					return err
				}
				_, globalPath, err := storeConfigValue(true, "base_url", baseURL)
				if err != nil {
					return err
				}
				result["base_url"] = baseURL
				result["global_path"] = globalPath
			}

			return app.OK(result, output.WithSummary(fmt.Sprintf("Created: %s", configFile)))
		},
	}

	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Create an empty config file without asking")

	return cmd
}

// initAnswers holds what config init asks for.
type initAnswers struct {
	BaseURL       string
	DefaultLocale string
	Locale        string
}

// localValues validates the locale answers and returns the keys written to
// the local config file. Empty answers are left out.
func (a initAnswers) localValues() (map[string]any, error) {
	values := make(map[string]any)
	for _, kv := range [][2]string{
		{"default_locale", a.DefaultLocale},
		{"locale", a.Locale},
	} {
		if kv[1] == "" {
			continue
		}
		parsed, err := parseConfigValue(kv[0], kv[1])
		if err != nil {
			return nil, err
		}
		values[kv[0]] = parsed
	}
	return values, nil
}

// configValidator checks form input with the same rules as config set.
// Empty input is allowed and leaves the key unset.
func configValidator(key string) func(string) error {
	return func(s string) error {
		if s == "" {
			return nil
		}
		_, err := parseConfigValue(key, s)
		return err
	}
}

// localeOptions lists locales as select options labelled in their own
// language.
func localeOptions(infos []LocaleInfo) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(infos))
	for _, info := range infos {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", info.Native, info.Code), info.Code))
	}
	return opts
}

func newInitForm(a *initAnswers, locales []huh.Option[string]) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Site API base URL").
				Description("Saved in global config").
				Placeholder("https://example.edu/api").
				Value(&a.BaseURL).
				Validate(configValidator("base_url")),
			huh.NewSelect[string]().
				Title("Default locale").
				Description("Requests fall back to it when the server fails").
				Options(locales...).
				Value(&a.DefaultLocale),
			huh.NewSelect[string]().
				Title("Active locale").
				Options(locales...).
				Value(&a.Locale),
		),
	)
}

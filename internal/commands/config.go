package commands

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusweb/sitedata/internal/appctx"
	"github.com/campusweb/sitedata/internal/config"
	"github.com/campusweb/sitedata/internal/output"
)

// localConfigDir holds the per-directory config file.
const localConfigDir = ".sitedata"

// configKeys lists the keys config set accepts, in display order.
var configKeys = []string{
	"base_url",
	"locale",
	"default_locale",
	"locales",
	"timeout",
	"search_delay",
	"lenient_format",
	"application_errors",
	"format",
	"stats",
	"verbose",
}

var validFormats = []string{"auto", "json", "yaml", "styled", "quiet", "count"}

// NewConfigCmd creates the config command for managing configuration.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage sitedata configuration.

Configuration is loaded from multiple sources with the following precedence:
  flags > env > local > global > defaults

Config locations:
  - Global: ~/.config/sitedata/config.json
  - Local:  .sitedata/config.json (base_url is ignored here)

Environment variables use the SITEDATA_ prefix, e.g. SITEDATA_LOCALE=en.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
		newConfigSetCmd(),
		newConfigUnsetCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  "Display the current effective configuration with source information.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	app := appctx.FromContext(cmd.Context())
	cfg := app.Config

	values := map[string]string{
		"base_url":           cfg.BaseURL,
		"locale":             cfg.Locale,
		"default_locale":     cfg.DefaultLocale,
		"locales":            strings.Join(cfg.Locales, ","),
		"timeout":            cfg.Timeout.String(),
		"search_delay":       cfg.SearchDelay.String(),
		"lenient_format":     strconv.FormatBool(cfg.LenientFormat),
		"application_errors": strconv.FormatBool(cfg.ApplicationErrors),
		"format":             cfg.Format,
	}
	if cfg.Stats != nil {
		values["stats"] = strconv.FormatBool(*cfg.Stats)
	}
	if cfg.Verbose != nil {
		values["verbose"] = strconv.Itoa(*cfg.Verbose)
	}

	configData := make(map[string]any, len(values))
	for _, key := range configKeys {
		value, ok := values[key]
		if !ok {
			continue
		}
		configData[key] = map[string]string{
			"value":  value,
			"source": cfg.SourceOf(key),
		}
	}

	return app.OK(configData, output.WithSummary("Effective configuration"))
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the local or global config file.

Valid keys: ` + strings.Join(configKeys, ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			key, value := args[0], args[1]

			parsed, err := parseConfigValue(key, value)
			if err != nil {
				return err
			}
			if key == "base_url" && !global {
				return output.ErrUsageHint("base_url cannot be set in local config", "Use --global, SITEDATA_BASE_URL, or --base-url")
			}

			scope, configPath, err := storeConfigValue(global, key, parsed)
			if err != nil {
				return err
			}

			return app.OK(map[string]any{
				"key":    key,
				"value":  parsed,
				"scope":  scope,
				"path":   configPath,
				"status": "set",
			}, output.WithSummary(fmt.Sprintf("Set %s = %s (%s)", key, value, scope)))
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Set in global config (~/.config/sitedata/)")

	return cmd
}

func newConfigUnsetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value from the local or global config file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())
			key := args[0]

			scope, configPath := configTarget(global)
			if _, err := os.Stat(configPath); err != nil {
				return app.OK(map[string]any{
					"key":    key,
					"status": "not_found",
				}, output.WithSummary(fmt.Sprintf("Config file not found: %s", configPath)))
			}

			configData := readConfigFile(configPath)
			if _, exists := configData[key]; !exists {
				return app.OK(map[string]any{
					"key":    key,
					"status": "not_set",
				}, output.WithSummary(fmt.Sprintf("Key not set: %s", key)))
			}

			delete(configData, key)
			if err := writeConfigFile(configPath, configData); err != nil {
				return err
			}

			return app.OK(map[string]any{
				"key":    key,
				"scope":  scope,
				"status": "unset",
			}, output.WithSummary(fmt.Sprintf("Unset %s (%s)", key, scope)))
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Unset from global config")

	return cmd
}

// parseConfigValue validates value for key and converts it to the type
// stored in the config file.
func parseConfigValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "base_url":
		if value == "" {
			return nil, output.ErrUsage("base_url must not be empty")
		}
		if u, err := url.Parse(value); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, output.ErrUsage("base_url must be an http(s) URL such as https://example.edu/api")
		}
		return config.NormalizeBaseURL(value), nil
	case "locale", "default_locale":
		if value == "" {
			return nil, output.ErrUsage(key + " must not be empty")
		}
		return strings.ToLower(value), nil
	case "locales":
		var codes []string
		for _, c := range strings.Split(value, ",") {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				codes = append(codes, c)
			}
		}
		if len(codes) == 0 {
			return nil, output.ErrUsage("locales must be a comma-separated list of codes")
		}
		return codes, nil
	case "timeout", "search_delay":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return nil, output.ErrUsage(fmt.Sprintf("%s must be a duration such as 300ms or 30s", key))
		}
		return d.String(), nil
	case "lenient_format", "application_errors", "stats":
		b, ok := parseBoolFlag(value)
		if !ok {
			return nil, output.ErrUsage(fmt.Sprintf("%s must be true/false (or 1/0)", key))
		}
		return b, nil
	case "verbose":
		level, err := strconv.Atoi(value)
		if err != nil || level < 0 || level > 2 {
			return nil, output.ErrUsage("verbose must be 0, 1, or 2")
		}
		return level, nil
	case "format":
		if !slices.Contains(validFormats, value) {
			return nil, output.ErrUsage(fmt.Sprintf("format must be one of: %s", strings.Join(validFormats, ", ")))
		}
		return value, nil
	default:
		return nil, output.ErrUsage(fmt.Sprintf("Invalid config key %q. Valid keys: %s", key, strings.Join(configKeys, ", ")))
	}
}

// configTarget returns the scope name and file path for local or global config.
func configTarget(global bool) (string, string) {
	if global {
		return "global", filepath.Join(config.GlobalConfigDir(), "config.json")
	}
	return "local", filepath.Join(localConfigDir, "config.json")
}

// storeConfigValue writes one key to the local or global config file,
// creating the file when needed.
func storeConfigValue(global bool, key string, value any) (string, string, error) {
	scope, configPath := configTarget(global)
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return "", "", fmt.Errorf("failed to create config directory: %w", err)
	}

	configData := readConfigFile(configPath)
	configData[key] = value
	if err := writeConfigFile(configPath, configData); err != nil {
		return "", "", err
	}
	return scope, configPath, nil
}

// readConfigFile loads a config file as a map. Missing or invalid files
// yield an empty map.
func readConfigFile(path string) map[string]any {
	configData := make(map[string]any)
	if data, err := os.ReadFile(path); err == nil { //nolint:gosec // G304: Path is from trusted config location
		_ = json.Unmarshal(data, &configData)
	}
	return configData
}

func writeConfigFile(path string, configData map[string]any) error {
	data, err := json.MarshalIndent(configData, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := atomicWriteFile(path, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func parseBoolFlag(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// atomicWriteFile writes data to a file atomically using temp+rename.
// Files are always created with 0600 permissions (owner read/write only).
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	// Rename fails on Windows when the destination exists.
	err = os.Rename(tmpPath, path)
	if err != nil && runtime.GOOS == "windows" {
		_ = os.Remove(path)
		return os.Rename(tmpPath, path)
	}
	return err
}

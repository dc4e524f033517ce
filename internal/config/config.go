// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "SITEDATA_"

// Config holds the resolved configuration.
type Config struct {
	// Resource API settings
	BaseURL       string        `json:"base_url"`
	Timeout       time.Duration `json:"timeout"`
	LenientFormat bool          `json:"lenient_format"`

	// ApplicationErrors treats {"success": false} and {"status": "error"}
	// in a 2xx body as failures.
	ApplicationErrors bool `json:"application_errors"`

	// Locale settings
	Locale        string   `json:"locale"`
	DefaultLocale string   `json:"default_locale"`
	Locales       []string `json:"locales"`

	// Search settings
	SearchDelay time.Duration `json:"search_delay"`

	// Output settings
	Format string `json:"format"`

	// Behavior preferences (overridable by flags)
	Stats   *bool `json:"stats,omitempty"`
	Verbose *int  `json:"verbose,omitempty"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceLocal   Source = "local"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	BaseURL string
	Locale  string
	Format  string
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		ApplicationErrors: true,
		Locale:            "ru",
		DefaultLocale:     "ru",
		Locales:           []string{"ru", "en", "kg"},
		SearchDelay:       300 * time.Millisecond,
		Format:            "auto",
		Sources:           make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > local > global > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, globalConfigPath(), SourceGlobal)
	if path := localConfigPath(); path != "" {
		loadFromFile(cfg, path, SourceLocal)
	}

	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	ApplyOverrides(cfg, overrides)

	return cfg, nil
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return // File doesn't exist, skip
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	// base_url decides where requests go. A config file dropped into the
	// working directory must not redirect them.
	if v, ok := fileCfg["base_url"].(string); ok && v != "" {
		if source == SourceLocal {
			fmt.Fprintf(os.Stderr, "warning: ignoring base_url %q from local config at %s\n", v, path)
		} else {
			cfg.BaseURL = NormalizeBaseURL(v)
			cfg.Sources["base_url"] = string(source)
		}
	}
	if v, ok := fileCfg["locale"].(string); ok && v != "" {
		cfg.Locale = v
		cfg.Sources["locale"] = string(source)
	}
	if v, ok := fileCfg["default_locale"].(string); ok && v != "" {
		cfg.DefaultLocale = v
		cfg.Sources["default_locale"] = string(source)
	}
	if v, ok := fileCfg["locales"].([]any); ok && len(v) > 0 {
		var codes []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				codes = append(codes, s)
			}
		}
		if len(codes) > 0 {
			cfg.Locales = codes
			cfg.Sources["locales"] = string(source)
		}
	}
	if d, ok := getDuration(fileCfg, "timeout"); ok {
		cfg.Timeout = d
		cfg.Sources["timeout"] = string(source)
	}
	if d, ok := getDuration(fileCfg, "search_delay"); ok {
		cfg.SearchDelay = d
		cfg.Sources["search_delay"] = string(source)
	}
	if v, ok := fileCfg["lenient_format"].(bool); ok {
		cfg.LenientFormat = v
		cfg.Sources["lenient_format"] = string(source)
	}
	if v, ok := fileCfg["application_errors"].(bool); ok {
		cfg.ApplicationErrors = v
		cfg.Sources["application_errors"] = string(source)
	}
	if v, ok := fileCfg["format"].(string); ok && v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(source)
	}
	if v, ok := fileCfg["stats"].(bool); ok {
		cfg.Stats = &v
		cfg.Sources["stats"] = string(source)
	}
	if v, ok := fileCfg["verbose"]; ok {
		if fv, ok := v.(float64); ok {
			iv := int(fv)
			if iv >= 0 && iv <= 2 && fv == float64(iv) {
				cfg.Verbose = &iv
				cfg.Sources["verbose"] = string(source)
			}
		}
	}
}

// getDuration reads a duration given either as a Go duration string
// ("1.5s", "300ms") or as a number of milliseconds.
func getDuration(m map[string]any, key string) (time.Duration, bool) {
	switch v := m[key].(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return 0, false
		}
		return d, true
	case float64:
		if v < 0 {
			return 0, false
		}
		return time.Duration(v * float64(time.Millisecond)), true
	default:
		return 0, false
	}
}

// envConfig mirrors the keys settable from the environment. Pointer fields
// stay nil when the variable is unset.
type envConfig struct {
	BaseURL       *string        `env:"BASE_URL"`
	Locale        *string        `env:"LOCALE"`
	DefaultLocale *string        `env:"DEFAULT_LOCALE"`
	Locales       []string       `env:"LOCALES" envSeparator:","`
	Timeout       *time.Duration `env:"TIMEOUT"`
	SearchDelay   *time.Duration `env:"SEARCH_DELAY"`
	LenientFormat *bool          `env:"LENIENT_FORMAT"`
	AppErrors     *bool          `env:"APPLICATION_ERRORS"`
	Format        *string        `env:"FORMAT"`
	Stats         *bool          `env:"STATS"`
	Verbose       *int           `env:"VERBOSE"`
}

// LoadFromEnv loads configuration from SITEDATA_* environment variables.
func LoadFromEnv(cfg *Config) error {
	var e envConfig
	if err := env.ParseWithOptions(&e, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("invalid environment configuration: %w", err)
	}

	set := func(key string) { cfg.Sources[key] = string(SourceEnv) }
	if e.BaseURL != nil && *e.BaseURL != "" {
		cfg.BaseURL = NormalizeBaseURL(*e.BaseURL)
		set("base_url")
	}
	if e.Locale != nil && *e.Locale != "" {
		cfg.Locale = *e.Locale
		set("locale")
	}
	if e.DefaultLocale != nil && *e.DefaultLocale != "" {
		cfg.DefaultLocale = *e.DefaultLocale
		set("default_locale")
	}
	if len(e.Locales) > 0 {
		cfg.Locales = trimAll(e.Locales)
		set("locales")
	}
	if e.Timeout != nil {
		cfg.Timeout = *e.Timeout
		set("timeout")
	}
	if e.SearchDelay != nil {
		cfg.SearchDelay = *e.SearchDelay
		set("search_delay")
	}
	if e.LenientFormat != nil {
		cfg.LenientFormat = *e.LenientFormat
		set("lenient_format")
	}
	if e.AppErrors != nil {
		cfg.ApplicationErrors = *e.AppErrors
		set("application_errors")
	}
	if e.Format != nil && *e.Format != "" {
		cfg.Format = *e.Format
		set("format")
	}
	if e.Stats != nil {
		cfg.Stats = e.Stats
		set("stats")
	}
	if e.Verbose != nil && *e.Verbose >= 0 && *e.Verbose <= 2 {
		cfg.Verbose = e.Verbose
		set("verbose")
	}
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.BaseURL != "" {
		cfg.BaseURL = NormalizeBaseURL(o.BaseURL)
		cfg.Sources["base_url"] = string(SourceFlag)
	}
	if o.Locale != "" {
		cfg.Locale = o.Locale
		cfg.Sources["locale"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
}

// SourceOf returns where key was set, defaulting to SourceDefault.
func (cfg *Config) SourceOf(key string) string {
	if s, ok := cfg.Sources[key]; ok {
		return s
	}
	return string(SourceDefault)
}

// Path helpers

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

// localConfigPath returns .sitedata/config.json in the working directory,
// or "" when absent.
func localConfigPath() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, ".sitedata", "config.json")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "sitedata")
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}

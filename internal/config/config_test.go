package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path string, values map[string]any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(values)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// isolate points every config location at empty temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	for _, key := range []string{"BASE_URL", "LOCALE", "DEFAULT_LOCALE", "LOCALES", "TIMEOUT", "SEARCH_DELAY", "LENIENT_FORMAT", "APPLICATION_ERRORS", "FORMAT", "STATS", "VERBOSE"} {
		t.Setenv(EnvPrefix+key, "")
		os.Unsetenv(EnvPrefix + key)
	}
	work := filepath.Join(home, "work")
	require.NoError(t, os.MkdirAll(work, 0o755))
	t.Chdir(work)
	return home
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "", cfg.BaseURL)
	assert.Equal(t, "ru", cfg.Locale)
	assert.Equal(t, "ru", cfg.DefaultLocale)
	assert.Equal(t, []string{"ru", "en", "kg"}, cfg.Locales)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDelay)
	assert.False(t, cfg.LenientFormat)
	assert.True(t, cfg.ApplicationErrors)
	assert.Equal(t, "auto", cfg.Format)
	assert.NotNil(t, cfg.Sources)
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, configPath, map[string]any{
		"base_url":       "https://example.edu/api/",
		"locale":         "en",
		"default_locale": "kg",
		"locales":        []string{"kg", "en"},
		"timeout":        "5s",
		"search_delay":   150,
		"lenient_format": true,
		"format":         "json",
		"stats":          true,
		"verbose":        2,
	})

	cfg := Default()
	loadFromFile(cfg, configPath, SourceGlobal)

	assert.Equal(t, "https://example.edu/api", cfg.BaseURL)
	assert.Equal(t, "en", cfg.Locale)
	assert.Equal(t, "kg", cfg.DefaultLocale)
	assert.Equal(t, []string{"kg", "en"}, cfg.Locales)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 150*time.Millisecond, cfg.SearchDelay)
	assert.True(t, cfg.LenientFormat)
	assert.Equal(t, "json", cfg.Format)
	require.NotNil(t, cfg.Stats)
	assert.True(t, *cfg.Stats)
	require.NotNil(t, cfg.Verbose)
	assert.Equal(t, 2, *cfg.Verbose)

	assert.Equal(t, "global", cfg.Sources["base_url"])
	assert.Equal(t, "global", cfg.SourceOf("timeout"))
}

func TestLoadFromFileSkipsInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte("not valid json"), 0o644))

	cfg := Default()
	loadFromFile(cfg, configPath, SourceGlobal)

	assert.Equal(t, "auto", cfg.Format)
	assert.Empty(t, cfg.Sources)
}

func TestLoadFromFileSkipsMissingFile(t *testing.T) {
	cfg := Default()
	loadFromFile(cfg, "/nonexistent/path/config.json", SourceGlobal)
	assert.Empty(t, cfg.Sources)
}

func TestLoadFromFileIgnoresInvalidValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, configPath, map[string]any{
		"timeout":      "soon",
		"search_delay": -5,
		"verbose":      7,
		"locales":      []any{},
	})

	cfg := Default()
	loadFromFile(cfg, configPath, SourceGlobal)

	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDelay)
	assert.Nil(t, cfg.Verbose)
	assert.Equal(t, []string{"ru", "en", "kg"}, cfg.Locales)
}

func TestLocalConfigCannotSetBaseURL(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, configPath, map[string]any{
		"base_url": "https://evil.example.com",
		"locale":   "en",
	})

	cfg := Default()
	cfg.BaseURL = "https://example.edu/api"
	loadFromFile(cfg, configPath, SourceLocal)

	assert.Equal(t, "https://example.edu/api", cfg.BaseURL)
	assert.Equal(t, "en", cfg.Locale)
	assert.Equal(t, "local", cfg.Sources["locale"])
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("SITEDATA_BASE_URL", "https://env.example.edu/")
	t.Setenv("SITEDATA_LOCALE", "kg")
	t.Setenv("SITEDATA_LOCALES", "ru, kg")
	t.Setenv("SITEDATA_TIMEOUT", "2s")
	t.Setenv("SITEDATA_SEARCH_DELAY", "100ms")
	t.Setenv("SITEDATA_LENIENT_FORMAT", "true")
	t.Setenv("SITEDATA_APPLICATION_ERRORS", "false")
	t.Setenv("SITEDATA_VERBOSE", "1")

	cfg := Default()
	require.NoError(t, LoadFromEnv(cfg))

	assert.Equal(t, "https://env.example.edu", cfg.BaseURL)
	assert.Equal(t, "kg", cfg.Locale)
	assert.Equal(t, []string{"ru", "kg"}, cfg.Locales)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.SearchDelay)
	assert.True(t, cfg.LenientFormat)
	assert.False(t, cfg.ApplicationErrors)
	assert.Equal(t, "env", cfg.SourceOf("application_errors"))
	require.NotNil(t, cfg.Verbose)
	assert.Equal(t, 1, *cfg.Verbose)
	assert.Equal(t, "env", cfg.Sources["base_url"])
	assert.Equal(t, "default", cfg.SourceOf("format"))
}

func TestLoadFromEnvInvalidValue(t *testing.T) {
	isolate(t)
	t.Setenv("SITEDATA_TIMEOUT", "forever")

	err := LoadFromEnv(Default())
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	ApplyOverrides(cfg, FlagOverrides{BaseURL: "https://flag.example.edu/", Locale: "en", Format: "yaml"})

	assert.Equal(t, "https://flag.example.edu", cfg.BaseURL)
	assert.Equal(t, "en", cfg.Locale)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, "flag", cfg.Sources["locale"])
}

func TestLoadPrecedence(t *testing.T) {
	home := isolate(t)

	writeConfig(t, filepath.Join(home, "config", "sitedata", "config.json"), map[string]any{
		"base_url": "https://global.example.edu",
		"locale":   "en",
		"format":   "json",
		"timeout":  "10s",
	})
	writeConfig(t, filepath.Join(home, "work", ".sitedata", "config.json"), map[string]any{
		"locale": "kg",
		"format": "yaml",
	})
	t.Setenv("SITEDATA_FORMAT", "styled")

	cfg, err := Load(FlagOverrides{Locale: "ru"})
	require.NoError(t, err)

	assert.Equal(t, "https://global.example.edu", cfg.BaseURL)
	assert.Equal(t, "global", cfg.Sources["base_url"])
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "styled", cfg.Format)
	assert.Equal(t, "env", cfg.Sources["format"])
	assert.Equal(t, "ru", cfg.Locale)
	assert.Equal(t, "flag", cfg.Sources["locale"])
}

func TestGlobalConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, filepath.Join("/custom/config", "sitedata"), GlobalConfigDir())
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "https://example.edu/api", NormalizeBaseURL(" https://example.edu/api/ "))
	assert.Equal(t, "https://example.edu", NormalizeBaseURL("https://example.edu"))
}

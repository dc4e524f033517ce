package appctx

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusweb/sitedata/internal/config"
	"github.com/campusweb/sitedata/internal/output"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(config.Default())
	require.NoError(t, err)
	return app
}

func TestNewApp(t *testing.T) {
	cfg := config.Default()
	app, err := NewApp(cfg)
	require.NoError(t, err)

	assert.Same(t, cfg, app.Config)
	assert.NotNil(t, app.Locales)
	assert.NotNil(t, app.Catalog)
	assert.NotNil(t, app.Output)
	assert.NotNil(t, app.Collector)
	assert.NotNil(t, app.Hooks)
	assert.Equal(t, "ru", app.Locales.Default())
}

func TestNewAppInvalidLocales(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultLocale = ""

	_, err := NewApp(cfg)
	require.Error(t, err)
	assert.True(t, output.IsCode(err, output.CodeUsage))
}

func TestNewAppConfigPreferences(t *testing.T) {
	cfg := config.Default()
	verbose, stats := 1, true
	cfg.Verbose = &verbose
	cfg.Stats = &stats

	app, err := NewApp(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, app.Hooks.Level())
	assert.True(t, app.Flags.Stats)
}

func TestWithAppAndFromContext(t *testing.T) {
	app := newTestApp(t)

	ctx := WithApp(context.Background(), app)
	assert.Same(t, app, FromContext(ctx))
}

func TestFromContextEmpty(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
}

func TestApplyFlagsVerbose(t *testing.T) {
	t.Setenv("SITEDATA_DEBUG", "")
	app := newTestApp(t)
	app.Flags.Verbose = 2

	app.ApplyFlags()
	assert.Equal(t, 2, app.Hooks.Level())
}

func TestApplyFlagsDebugEnv(t *testing.T) {
	t.Setenv("SITEDATA_DEBUG", "true")
	app := newTestApp(t)

	app.ApplyFlags()
	assert.Equal(t, 2, app.Hooks.Level())
}

func TestLocaleNormalizesConfig(t *testing.T) {
	app := newTestApp(t)
	app.Config.Locale = "ky-KG"
	assert.Equal(t, "kg", app.Locale())

	app.Config.Locale = "de"
	assert.Equal(t, "ru", app.Locale())
}

func TestClientRequiresBaseURL(t *testing.T) {
	app := newTestApp(t)

	_, err := app.Client()
	require.Error(t, err)
	assert.True(t, output.IsCode(err, output.CodeUsage))
}

func TestClientCreatedOnce(t *testing.T) {
	app := newTestApp(t)
	app.Config.BaseURL = "https://example.edu/api"

	a, err := app.Client()
	require.NoError(t, err)
	b, err := app.Client()
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, "https://example.edu/api", a.BaseURL())
}

func TestErrPrintsStats(t *testing.T) {
	app := newTestApp(t)
	var stdout, stderr bytes.Buffer
	app.Output = output.New(output.Options{Format: output.FormatJSON, Writer: &stdout})
	app.Stderr = &stderr
	app.Flags.Stats = true

	require.NoError(t, app.Err(errors.New("boom")))
	assert.Contains(t, stdout.String(), `"ok": false`)
	assert.Contains(t, stderr.String(), "Stats:")
}

func TestErrQuietSkipsStats(t *testing.T) {
	app := newTestApp(t)
	var stdout, stderr bytes.Buffer
	app.Output = output.New(output.Options{Format: output.FormatQuiet, Writer: &stdout})
	app.Stderr = &stderr
	app.Flags.Stats = true
	app.Flags.Quiet = true

	require.NoError(t, app.Err(errors.New("boom")))
	assert.Empty(t, stderr.String())
}

package tui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTheme(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "colors.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadThemeFromFile(t *testing.T) {
	path := writeTheme(t, `# catppuccin-ish
accent = "#89b4fa"
foreground = "#cdd6f4"
color1 = "#f38ba8"
bad_color = "not-a-color"
invalid_hex = "#gggggg"
count = 3
`)

	theme, err := LoadThemeFromFile(path)
	require.NoError(t, err)

	defaults := DefaultTheme()
	assert.Equal(t, "#89b4fa", theme.Primary.Dark)
	assert.Equal(t, defaults.Primary.Light, theme.Primary.Light)
	assert.Equal(t, "#cdd6f4", theme.Foreground.Dark)
	assert.Equal(t, "#f38ba8", theme.Error.Dark)
	assert.Equal(t, defaults.Success, theme.Success)
	assert.Equal(t, defaults.Border, theme.Border)
}

func TestLoadThemeFromFileMissing(t *testing.T) {
	_, err := LoadThemeFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadThemeFromFileMalformed(t *testing.T) {
	path := writeTheme(t, "accent = \n[[[")
	_, err := LoadThemeFromFile(path)
	assert.Error(t, err)
}

func TestIsValidHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"#fff", true},
		{"#FFFFFF", true},
		{"#89b4fa", true},
		{"89b4fa", false},
		{"#ffff", false},
		{"#gggggg", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, isValidHexColor(tt.in))
		})
	}
}

func TestResolveThemeNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, NoColorTheme(), ResolveTheme())
}

func TestResolveThemeFromEnv(t *testing.T) {
	path := writeTheme(t, `accent = "#123456"`)
	t.Setenv("SITEDATA_THEME", path)
	t.Setenv("NO_COLOR", "")
	require.NoError(t, os.Unsetenv("NO_COLOR"))

	theme := ResolveTheme()
	assert.Equal(t, "#123456", theme.Primary.Dark)
}

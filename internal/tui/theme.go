package tui

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
)

// ResolveTheme loads a theme with the following precedence:
//  1. NO_COLOR env var set → returns NoColorTheme
//  2. SITEDATA_THEME env var → parse custom colors.toml file
//  3. User theme from ~/.config/sitedata/theme/colors.toml
//  4. Default theme
func ResolveTheme() Theme {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return NoColorTheme()
	}

	if path := os.Getenv("SITEDATA_THEME"); path != "" {
		if theme, err := LoadThemeFromFile(path); err == nil {
			return theme
		}
	}

	if theme, err := LoadUserTheme(); err == nil {
		return theme
	}

	return DefaultTheme()
}

// NoColorTheme returns a theme with empty colors (honors NO_COLOR standard).
// Lipgloss treats empty strings as "no color", resulting in plain text output.
func NoColorTheme() Theme {
	empty := lipgloss.AdaptiveColor{Light: "", Dark: ""}
	return Theme{
		Primary:    empty,
		Secondary:  empty,
		Success:    empty,
		Warning:    empty,
		Error:      empty,
		Muted:      empty,
		Background: empty,
		Foreground: empty,
		Border:     empty,
	}
}

// LoadUserTheme attempts to load a theme from the user's config directory.
func LoadUserTheme() (Theme, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Theme{}, err
	}

	path := filepath.Join(home, ".config", "sitedata", "theme", "colors.toml")
	return LoadThemeFromFile(path)
}

// LoadThemeFromFile parses a colors.toml file and returns a Theme.
// Keys that are not strings or not hex colors are ignored.
func LoadThemeFromFile(path string) (Theme, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return Theme{}, err
	}

	colors := make(map[string]string, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok || !isValidHexColor(s) {
			continue
		}
		colors[k] = s
	}
	return mapColorsToTheme(colors), nil
}

// isValidHexColor checks if a string is a valid hex color (#RGB or #RRGGBB).
func isValidHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	hex := s[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return false
	}
	for _, c := range hex {
		isDigit := c >= '0' && c <= '9'
		isLower := c >= 'a' && c <= 'f'
		isUpper := c >= 'A' && c <= 'F'
		if !isDigit && !isLower && !isUpper {
			return false
		}
	}
	return true
}

// mapColorsToTheme maps terminal-style color names to Theme semantics.
//
//	accent / color4 → Primary
//	color7          → Secondary
//	color2          → Success
//	color3          → Warning
//	color1          → Error
//	color8 / color0 → Muted, Border
//	foreground, background
func mapColorsToTheme(colors map[string]string) Theme {
	defaults := DefaultTheme()

	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := colors[k]; ok {
				return v
			}
		}
		return ""
	}
	dark := func(def lipgloss.AdaptiveColor, keys ...string) lipgloss.AdaptiveColor {
		v := get(keys...)
		if v == "" {
			return def
		}
		return lipgloss.AdaptiveColor{Light: def.Light, Dark: v}
	}

	return Theme{
		Primary:    dark(defaults.Primary, "accent", "color4"),
		Secondary:  dark(defaults.Secondary, "color7"),
		Success:    dark(defaults.Success, "color2"),
		Warning:    dark(defaults.Warning, "color3"),
		Error:      dark(defaults.Error, "color1"),
		Muted:      dark(defaults.Muted, "color8", "color0"),
		Background: dark(defaults.Background, "background"),
		Foreground: dark(defaults.Foreground, "foreground"),
		Border:     dark(defaults.Border, "color8", "color0"),
	}
}

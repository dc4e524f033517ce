// Package locale models the closed set of site languages and the reactive
// source of the active one.
package locale

import (
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// Default codes served by the site API.
const (
	Russian = "ru"
	English = "en"
	Kyrgyz  = "kg"
)

// aliases maps codes clients commonly send to the codes the API expects.
// The API uses "kg" for Kyrgyz where BCP 47 uses "ky".
var aliases = map[string]string{
	"ky": Kyrgyz,
}

// Set is a closed set of supported locale codes with a default.
// The zero value is not usable; construct with NewSet or DefaultSet.
type Set struct {
	codes   []string
	def     string
	matcher language.Matcher
	tags    []language.Tag
}

// DefaultSet returns the ru/en/kg set with ru as default.
func DefaultSet() *Set {
	s, _ := NewSet(Russian, Russian, English, Kyrgyz)
	return s
}

// NewSet builds a Set. def is added to codes if missing. Codes are lower-cased.
func NewSet(def string, codes ...string) (*Set, error) {
	def = strings.ToLower(strings.TrimSpace(def))
	if def == "" {
		return nil, errEmptyDefault
	}

	s := &Set{def: def}
	for _, c := range append([]string{def}, codes...) {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || slices.Contains(s.codes, c) {
			continue
		}
		s.codes = append(s.codes, c)
		s.tags = append(s.tags, tagFor(c))
	}
	s.matcher = language.NewMatcher(s.tags)
	return s, nil
}

// tagFor returns the BCP 47 tag used for matching a site code.
func tagFor(code string) language.Tag {
	if code == Kyrgyz {
		return language.Kirghiz
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und
	}
	return tag
}

// Default returns the default locale code.
func (s *Set) Default() string { return s.def }

// Codes returns the supported codes, default first.
func (s *Set) Codes() []string { return slices.Clone(s.codes) }

// Supports reports whether code is a member of the set as given.
func (s *Set) Supports(code string) bool {
	return slices.Contains(s.codes, code)
}

// IsDefault reports whether code normalizes to the default locale.
func (s *Set) IsDefault(code string) bool {
	return s.Normalize(code) == s.def
}

// Normalize maps any client-supplied language string onto a supported code.
// Accepts site codes ("kg"), BCP 47 tags ("en-US", "ky"), and POSIX locales
// ("ru_RU.UTF-8"). Unrecognized input yields the default.
func (s *Set) Normalize(code string) string {
	raw := strings.ToLower(strings.TrimSpace(code))
	if raw == "" {
		return s.def
	}
	if idx := strings.IndexByte(raw, '.'); idx != -1 {
		raw = raw[:idx]
	}
	raw = strings.ReplaceAll(raw, "_", "-")

	if s.Supports(raw) {
		return raw
	}
	if alias, ok := aliases[raw]; ok && s.Supports(alias) {
		return alias
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return s.def
	}
	_, idx, conf := s.matcher.Match(tag)
	if conf == language.No {
		return s.def
	}
	return s.codes[idx]
}

// Next returns the code after current in set order, wrapping around.
func (s *Set) Next(current string) string {
	i := slices.Index(s.codes, s.Normalize(current))
	return s.codes[(i+1)%len(s.codes)]
}

// Package i18n renders the user-visible strings of the data layer (error
// messages, degraded-language notices, view chrome) in the active locale.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/BurntSushi/toml"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/campusweb/sitedata/internal/output"
)

//go:embed messages/*.toml
var messageFS embed.FS

// Message IDs.
const (
	MsgErrorNetwork      = "ErrorNetwork"
	MsgErrorHTTP         = "ErrorHTTP"
	MsgErrorNotFound     = "ErrorNotFound"
	MsgErrorFormat       = "ErrorFormat"
	MsgErrorApplication  = "ErrorApplication"
	MsgErrorUnknown      = "ErrorUnknown"
	MsgDegradedNotice    = "DegradedNotice"
	MsgLoading           = "Loading"
	MsgRetry             = "Retry"
	MsgNoResults         = "NoResults"
	MsgSearchPlaceholder = "SearchPlaceholder"
	MsgResultCount       = "ResultCount"
)

// Catalog translates message IDs for site locale codes.
type Catalog struct {
	bundle *goi18n.Bundle
}

// NewCatalog loads the embedded message files.
func NewCatalog() (*Catalog, error) {
	return NewCatalogFS(messageFS, "messages")
}

// NewCatalogFS loads every *.toml under dir in fsys. File names follow the
// go-i18n convention: <anything>.<lang>.toml.
func NewCatalogFS(fsys fs.FS, dir string) (*Catalog, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(fsys, dir+"/*.toml")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("i18n: no message files in %s", dir)
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(fsys, f); err != nil {
			return nil, fmt.Errorf("i18n: loading %s: %w", f, err)
		}
	}
	return &Catalog{bundle: bundle}, nil
}

// MustCatalog is NewCatalog for the embedded files, which are known good.
func MustCatalog() *Catalog {
	c, err := NewCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// languageTag maps a site code to a BCP 47 tag. The site calls Kyrgyz "kg".
func languageTag(code string) string {
	if code == "kg" {
		return "ky"
	}
	return code
}

// T translates id for locale with optional template data.
// Unknown IDs render as the ID itself.
func (c *Catalog) T(locale, id string, data map[string]any) string {
	return c.localize(locale, id, data, nil)
}

// Count translates a pluralized message.
func (c *Catalog) Count(locale, id string, n int) string {
	return c.localize(locale, id, map[string]any{"Count": n}, n)
}

func (c *Catalog) localize(locale, id string, data map[string]any, count any) string {
	localizer := goi18n.NewLocalizer(c.bundle, languageTag(locale))
	msg, err := localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
		PluralCount:  count,
	})
	if err != nil && msg == "" {
		return id
	}
	return msg
}

// LanguageName returns the display name of code as written in locale.
func (c *Catalog) LanguageName(locale, code string) string {
	return c.T(locale, "LanguageName_"+code, nil)
}

// Describe turns a fetch failure into a human-readable message in locale.
func (c *Catalog) Describe(locale string, err error) string {
	if err == nil {
		return ""
	}
	var e *output.Error
	if !errors.As(err, &e) {
		return c.T(locale, MsgErrorUnknown, map[string]any{"Message": err.Error()})
	}
	switch e.Code {
	case output.CodeNetwork:
		return c.T(locale, MsgErrorNetwork, nil)
	case output.CodeFormat:
		return c.T(locale, MsgErrorFormat, nil)
	case output.CodeApplication:
		return c.T(locale, MsgErrorApplication, map[string]any{"Message": e.Message})
	case output.CodeNotFound:
		return c.T(locale, MsgErrorNotFound, nil)
	case output.CodeHTTP:
		if e.HTTPStatus == http.StatusNotFound {
			return c.T(locale, MsgErrorNotFound, nil)
		}
		return c.T(locale, MsgErrorHTTP, map[string]any{"Status": e.HTTPStatus})
	default:
		return c.T(locale, MsgErrorUnknown, map[string]any{"Message": e.Message})
	}
}

// DegradedNotice discloses that content requested in one locale is shown in
// another. It is written in the requested locale, since that is what the
// reader chose.
func (c *Catalog) DegradedNotice(requested, served string) string {
	return c.T(requested, MsgDegradedNotice, map[string]any{
		"Requested": c.LanguageName(requested, requested),
		"Served":    c.LanguageName(requested, served),
	})
}

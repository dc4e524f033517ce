package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/campusweb/sitedata/internal/fetch"
)

// Descriptor identifies one remote resource request: which resource, in
// which locale, with which filters and extra dependencies.
type Descriptor struct {
	Resource string
	Locale   string
	Filters  fetch.Filters
	Deps     []any
}

// Key serializes d. Two descriptors are equivalent iff their keys match.
// Filter insertion order does not matter.
func (d Descriptor) Key() string {
	var b strings.Builder
	b.WriteString(d.Resource)
	b.WriteByte(0)
	b.WriteString(d.Locale)
	b.WriteByte(0)
	b.WriteString(d.Filters.Encode())
	for _, dep := range d.Deps {
		b.WriteByte(0)
		if data, err := json.Marshal(dep); err == nil {
			b.Write(data)
		} else {
			fmt.Fprintf(&b, "%#v", dep)
		}
	}
	return b.String()
}

// WithLocale returns a copy of d for another locale.
func (d Descriptor) WithLocale(locale string) Descriptor {
	d.Locale = locale
	return d
}

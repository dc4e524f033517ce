package fetch

import (
	"fmt"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/campusweb/sitedata/internal/output"
)

// LangParam is the query parameter carrying the locale. A filter with this
// key is ignored so it cannot override the requested locale.
const LangParam = "lang"

// Filters are query parameters sent alongside the locale. Values are
// primitives or slices of primitives; nil values are omitted.
type Filters map[string]any

// Clone returns a shallow copy of f.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	return maps.Clone(f)
}

// With returns a copy of f with key set to value.
func (f Filters) With(key string, value any) Filters {
	out := make(Filters, len(f)+1)
	maps.Copy(out, f)
	out[key] = value
	return out
}

// Values converts f to url.Values, skipping the lang key and nil values.
func (f Filters) Values() url.Values {
	v := url.Values{}
	for _, key := range slices.Sorted(maps.Keys(f)) {
		if key == LangParam || key == "" {
			continue
		}
		for _, s := range formatValue(f[key]) {
			v.Add(key, s)
		}
	}
	return v
}

// Encode renders f as a canonical query string: keys sorted, slice values
// repeated in order. Insertion order never affects the result.
func (f Filters) Encode() string {
	return f.Values().Encode()
}

func formatValue(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case bool:
		return []string{strconv.FormatBool(v)}
	case int:
		return []string{strconv.Itoa(v)}
	case int64:
		return []string{strconv.FormatInt(v, 10)}
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}
	case fmt.Stringer:
		return []string{v.String()}
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]string, 0, rv.Len())
		for i := range rv.Len() {
			out = append(out, formatValue(rv.Index(i).Interface())...)
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return formatValue(rv.Elem().Interface())
	default:
		return []string{fmt.Sprint(value)}
	}
}

// ParseFilters parses key=value pairs as given on the command line.
// Repeated keys accumulate into a slice.
func ParseFilters(pairs []string) (Filters, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	f := make(Filters, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, output.ErrUsage(fmt.Sprintf("invalid filter %q: expected key=value", pair))
		}
		switch existing := f[key].(type) {
		case nil:
			f[key] = value
		case string:
			f[key] = []string{existing, value}
		case []string:
			f[key] = append(existing, value)
		}
	}
	return f, nil
}

package query

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusweb/sitedata/internal/fetch"
	"github.com/campusweb/sitedata/internal/observability"
	"github.com/campusweb/sitedata/internal/output"
)

func notice(requested, served string) string {
	return "shown in " + served + " instead of " + requested
}

func statusByLocale(statuses map[string]int) *recorder[string] {
	return &recorder[string]{fn: func(_ context.Context, d Descriptor) (string, error) {
		if status, ok := statuses[d.Locale]; ok {
			return "", output.ErrHTTP(status, "")
		}
		return "content/" + d.Locale, nil
	}}
}

// HTTP 500 in a non-default locale falls back once and marks the result degraded.
func TestLocaleFallbackDegradedSuccess(t *testing.T) {
	rec := statusByLocale(map[string]int{"en": http.StatusInternalServerError})
	q := New("news", rec.fetch, WithMiddleware(LocaleFallback[string]("ru", notice)))

	run(t, q.Sync(context.Background(), "en", nil))

	snap := q.Get()
	assert.Equal(t, StateSuccess, snap.State)
	assert.True(t, snap.Degraded)
	assert.Equal(t, "ru", snap.Locale)
	assert.Equal(t, "content/ru", snap.Data)
	assert.Equal(t, "shown in ru instead of en", snap.Notice)
	assert.Equal(t, []string{"en", "ru"}, rec.locales())
}

// HTTP 500 in the default locale is terminal.
func TestLocaleFallbackDefaultLocaleDoesNotLoop(t *testing.T) {
	rec := statusByLocale(map[string]int{"ru": http.StatusInternalServerError})
	q := New("news", rec.fetch, WithMiddleware(LocaleFallback[string]("ru", notice)))

	run(t, q.Sync(context.Background(), "ru", nil))

	snap := q.Get()
	assert.Equal(t, StateFailure, snap.State)
	assert.Equal(t, http.StatusInternalServerError, output.StatusOf(snap.Err))
	assert.False(t, snap.Degraded)
	assert.Equal(t, 1, rec.count())
}

func TestLocaleFallbackRetryFailureSurfaces(t *testing.T) {
	rec := statusByLocale(map[string]int{
		"en": http.StatusInternalServerError,
		"ru": http.StatusServiceUnavailable,
	})
	q := New("news", rec.fetch, WithMiddleware(LocaleFallback[string]("ru", notice)))

	run(t, q.Sync(context.Background(), "en", nil))

	snap := q.Get()
	assert.Equal(t, StateFailure, snap.State)
	assert.Equal(t, http.StatusServiceUnavailable, output.StatusOf(snap.Err))
	assert.Equal(t, 2, rec.count())
}

func TestLocaleFallbackOtherErrorsAreTerminal(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", output.ErrHTTP(http.StatusNotFound, "")},
		{"bad gateway", output.ErrHTTP(http.StatusBadGateway, "")},
		{"network", output.ErrNetwork(context.DeadlineExceeded)},
		{"format", output.ErrFormat("text/html", nil)},
		{"application", output.ErrApplication("nope")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder[string]{fn: func(context.Context, Descriptor) (string, error) { return "", tt.err }}
			q := New("news", rec.fetch, WithMiddleware(LocaleFallback[string]("ru", notice)))

			run(t, q.Sync(context.Background(), "en", nil))
			assert.Equal(t, StateFailure, q.Get().State)
			assert.Equal(t, 1, rec.count())
		})
	}
}

func TestLocaleFallbackReportsHooks(t *testing.T) {
	var buf bytes.Buffer
	collector := observability.NewSessionCollector()
	hooks := observability.NewCLIHooks(1, collector, observability.NewTraceWriterTo(&buf))

	rec := statusByLocale(map[string]int{"kg": http.StatusInternalServerError})
	q := New("news", rec.fetch, WithMiddleware(LocaleFallback[string]("ru", nil, FallbackHooks(hooks))))

	run(t, q.Sync(context.Background(), "kg", nil))

	assert.True(t, q.Get().Degraded)
	assert.Empty(t, q.Get().Notice)
	assert.Equal(t, 1, collector.Summary().Fallbacks)
	assert.Contains(t, buf.String(), "requested=kg")
}

// Fallback composes with a real resource fetcher end to end.
func TestLocaleFallbackWithResource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") == "en" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"title":"Новости"}]}`))
	}))
	defer srv.Close()

	client, err := fetch.NewClient(fetch.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	res, err := fetch.NewResource[[]map[string]string](client, "news", "news", fetch.WithResults())
	require.NoError(t, err)

	q := New("news", FromResource(res), WithMiddleware(LocaleFallback[[]map[string]string]("ru", notice)))
	run(t, q.Sync(context.Background(), "en-US", nil))

	snap := q.Get()
	require.Equal(t, StateSuccess, snap.State)
	assert.True(t, snap.Degraded)
	assert.Equal(t, "ru", snap.Locale)
	assert.Equal(t, "Новости", snap.Data[0]["title"])
}

// An unknown locale is normalized to the default before the fallback check.
func TestLocaleFallbackUnknownLocaleIsDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := fetch.NewClient(fetch.Options{BaseURL: srv.URL})
	require.NoError(t, err)
	res, err := fetch.NewResource[any](client, "news", "news")
	require.NoError(t, err)

	q := New("news", FromResource(res), WithMiddleware(LocaleFallback[any]("ru", notice)))
	run(t, q.Sync(context.Background(), "fr", nil))

	assert.Equal(t, StateFailure, q.Get().State)
	assert.Equal(t, int32(1), calls.Load())
}

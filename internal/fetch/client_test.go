package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusweb/sitedata/internal/observability"
	"github.com/campusweb/sitedata/internal/output"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...func(*Options)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o := Options{BaseURL: srv.URL + "/api"}
	for _, fn := range opts {
		fn(&o)
	}
	c, err := NewClient(o)
	require.NoError(t, err)
	return c
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Options{})
	require.Error(t, err)
	assert.True(t, output.IsCode(err, output.CodeUsage))

	_, err = NewClient(Options{BaseURL: "not a url"})
	require.Error(t, err)
}

func TestURL(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "https://example.edu/api/"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		lang    string
		filters Filters
		want    string
	}{
		{"base only", "", "en", nil, "https://example.edu/api?lang=en"},
		{"path", "/news", "ru", nil, "https://example.edu/api/news?lang=ru"},
		{"unknown locale falls back to default", "news", "fr", nil, "https://example.edu/api/news?lang=ru"},
		{"alias normalized", "news", "ky", nil, "https://example.edu/api/news?lang=kg"},
		{"filters sorted", "news", "en", Filters{"page": 2, "category": "events"}, "https://example.edu/api/news?category=events&lang=en&page=2"},
		{"lang filter ignored", "news", "en", Filters{"lang": "kg"}, "https://example.edu/api/news?lang=en"},
		{"path with query", "news?x=1", "en", nil, "https://example.edu/api/news?lang=en&x=1"},
		{"path lang is replaced", "/news?lang=en", "ru", nil, "https://example.edu/api/news?lang=ru"},
		{"path lang alias is replaced", "/news?lang=kg&page=1", "en", nil, "https://example.edu/api/news?lang=en&page=1"},
		{"filters replace path keys", "/news?page=2", "ru", Filters{"page": 3}, "https://example.edu/api/news?lang=ru&page=3"},
		{"repeated filter replaces path key", "/news?tag=a", "ru", Filters{"tag": []string{"b", "c"}}, "https://example.edu/api/news?lang=ru&tag=b&tag=c"},
		{"absolute path", "https://cdn.example.edu/feed", "en", nil, "https://cdn.example.edu/feed?lang=en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.URL(tt.path, tt.lang, tt.filters))
		})
	}
}

func TestGetSuccess(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		jsonHandler(http.StatusOK, `{"results":[{"id":1}]}`)(w, r)
	})

	resp, err := c.Get(context.Background(), "news", "en", Filters{"category": "events"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "en", resp.Locale)
	assert.False(t, resp.Empty)
	assert.JSONEq(t, `{"results":[{"id":1}]}`, string(resp.Data))

	require.NotNil(t, got)
	assert.Equal(t, "/api/news", got.URL.Path)
	assert.Equal(t, "en", got.URL.Query().Get("lang"))
	assert.Equal(t, "events", got.URL.Query().Get("category"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.NotEmpty(t, got.Header.Get("X-Request-ID"))
	assert.Equal(t, resp.RequestID, got.Header.Get("X-Request-ID"))
	assert.Contains(t, got.Header.Get("User-Agent"), "sitedata/")
}

func TestGetPathLangCannotOverrideLocale(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		jsonHandler(http.StatusOK, `{}`)(w, r)
	})

	resp, err := c.Get(context.Background(), "/news?lang=en&page=2", "ru", Filters{"page": 3})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, []string{"ru"}, got.URL.Query()["lang"])
	assert.Equal(t, []string{"3"}, got.URL.Query()["page"])
	assert.Equal(t, "ru", resp.Locale)
}

func TestGetHTTPError(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusInternalServerError, `{"error":"translation missing"}`))

	_, err := c.Get(context.Background(), "news", "en", nil)
	require.Error(t, err)

	e := output.AsError(err)
	assert.Equal(t, output.CodeHTTP, e.Code)
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus)
	assert.Equal(t, "translation missing", e.Message)
	assert.True(t, e.Retryable)
}

func TestGetHTTPErrorWithoutBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Get(context.Background(), "missing", "ru", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, output.StatusOf(err))
	assert.Equal(t, "Request failed (HTTP 404)", output.AsError(err).Message)
}

func TestGetNonJSONIsFormatError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})

	_, err := c.Get(context.Background(), "news", "ru", nil)
	require.Error(t, err)
	assert.True(t, output.IsCode(err, output.CodeFormat))
}

func TestGetNonJSONLenientIsEmpty(t *testing.T) {
	var buf bytes.Buffer
	collector := observability.NewSessionCollector()
	hooks := observability.NewCLIHooks(0, collector, observability.NewTraceWriterTo(&buf))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}, func(o *Options) {
		o.Lenient = true
		o.Hooks = hooks
	})

	resp, err := c.Get(context.Background(), "news", "ru", nil)
	require.NoError(t, err)
	assert.True(t, resp.Empty)
	assert.Equal(t, "null", string(resp.Data))
	assert.Contains(t, buf.String(), "non-JSON response treated as empty")
	assert.Equal(t, 1, collector.Summary().EmptyResults)
}

func TestGetMalformedJSON(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusOK, `{"results": [`))

	_, err := c.Get(context.Background(), "news", "ru", nil)
	require.Error(t, err)
	assert.True(t, output.IsCode(err, output.CodeFormat))
}

func TestGetApplicationError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"success false", `{"success":false,"error":"Invalid category"}`, "Invalid category"},
		{"status error", `{"status":"error","message":"Quota exceeded"}`, "Quota exceeded"},
		{"nested error", `{"success":false,"error":{"message":"Nope"}}`, "Nope"},
		{"no message", `{"success":false}`, "Request was not successful"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, jsonHandler(http.StatusOK, tt.body))
			_, err := c.Get(context.Background(), "news", "ru", nil)
			require.Error(t, err)
			assert.True(t, output.IsCode(err, output.CodeApplication))
			assert.Equal(t, tt.want, output.AsError(err).Message)
		})
	}
}

func TestGetSuccessTrueIsNotApplicationError(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusOK, `{"success":true,"data":[]}`))

	_, err := c.Get(context.Background(), "news", "ru", nil)
	assert.NoError(t, err)
}

func TestGetIgnoreApplicationErrors(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusOK, `{"status":"error","message":"closed"}`), func(o *Options) {
		o.IgnoreApplicationErrors = true
	})

	resp, err := c.Get(context.Background(), "admissions", "ru", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","message":"closed"}`, string(resp.Data))
}

func TestGetNoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := c.Get(context.Background(), "news", "ru", nil)
	require.NoError(t, err)
	assert.True(t, resp.Empty)
}

func TestGetNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(Options{BaseURL: base})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "news", "ru", nil)
	require.Error(t, err)
	assert.True(t, output.IsCode(err, output.CodeNetwork))

	var urlErr *url.Error
	assert.True(t, errors.As(err, &urlErr))
}

func TestGetCancelledKeepsContextError(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Get(ctx, "slow", "ru", nil)
	require.Error(t, err)
	assert.True(t, output.IsCode(err, output.CodeNetwork))
	assert.True(t, IsCanceled(err))
}

func TestGetTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, func(o *Options) { o.Timeout = 20 * time.Millisecond })
	defer close(release)

	_, err := c.Get(context.Background(), "slow", "ru", nil)
	require.Error(t, err)
	assert.True(t, output.IsCode(err, output.CodeNetwork))
	assert.False(t, IsCanceled(err))
}

func TestGetReportsHooks(t *testing.T) {
	var calls atomic.Int32
	collector := observability.NewSessionCollector()
	hooks := observability.NewCLIHooks(0, collector, nil)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			jsonHandler(http.StatusOK, `[]`)(w, r)
			return
		}
		jsonHandler(http.StatusBadGateway, `{}`)(w, r)
	}, func(o *Options) { o.Hooks = hooks })

	_, err := c.Get(context.Background(), "a", "ru", nil)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "b", "ru", nil)
	require.Error(t, err)

	s := collector.Summary()
	assert.Equal(t, 2, s.TotalRequests)
	assert.Equal(t, 1, s.FailedRequests)
}

func TestGetInstrumentedTransport(t *testing.T) {
	c := newTestClient(t, jsonHandler(http.StatusOK, `{"ok":true}`), func(o *Options) { o.Instrument = true })

	resp, err := c.Get(context.Background(), "news", "en", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIsJSON(t *testing.T) {
	assert.True(t, isJSON("application/json"))
	assert.True(t, isJSON("application/json; charset=utf-8"))
	assert.True(t, isJSON("application/problem+json"))
	assert.False(t, isJSON("text/html"))
	assert.False(t, isJSON(""))
	assert.False(t, isJSON(";;;"))
}

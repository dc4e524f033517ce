// Package fetch performs locale-parameterized GET requests against the
// site's JSON API and classifies every failure into the output error
// taxonomy.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/xid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/campusweb/sitedata/internal/locale"
	"github.com/campusweb/sitedata/internal/observability"
	"github.com/campusweb/sitedata/internal/output"
	"github.com/campusweb/sitedata/internal/version"
)

// DefaultTimeout bounds a single request when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 16 << 20

// Options configures a Client.
type Options struct {
	// BaseURL is prefixed to every request path.
	BaseURL string

	// Locales is the closed set of locale codes. Defaults to locale.DefaultSet.
	Locales *locale.Set

	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Lenient turns a 2xx response with a non-JSON content type into an
	// empty result instead of a format error.
	Lenient bool

	// IgnoreApplicationErrors accepts 2xx bodies carrying {"success": false}
	// or {"status": "error"} as data instead of application errors.
	IgnoreApplicationErrors bool

	// Hooks observes every request. Defaults to observability.NopHooks.
	Hooks observability.Hooks

	// UserAgent overrides version.UserAgent.
	UserAgent string

	// Transport overrides the HTTP transport.
	Transport http.RoundTripper

	// Instrument wraps the transport with OpenTelemetry instrumentation.
	Instrument bool
}

// Client fetches JSON resources.
type Client struct {
	httpClient *http.Client
	baseURL    string
	locales    *locale.Set
	lenient    bool
	appErrors  bool
	hooks      observability.Hooks
	userAgent  string
}

// Response wraps a successful resource response.
type Response struct {
	Data        json.RawMessage
	StatusCode  int
	Headers     http.Header
	ContentType string
	Locale      string
	RequestID   string

	// Empty is set when the body was not a JSON document and was accepted
	// as an empty result. Data is then the JSON null literal.
	Empty bool
}

// UnmarshalData unmarshals the response data into the given value.
func (r *Response) UnmarshalData(v any) error {
	return json.Unmarshal(r.Data, v)
}

// NewClient creates a new Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, output.ErrUsageHint("No base URL configured", "Set base_url in config, SITEDATA_BASE_URL, or --base-url")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, output.ErrUsage(fmt.Sprintf("Invalid base URL: %s", opts.BaseURL))
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	if opts.Instrument {
		transport = otelhttp.NewTransport(transport)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		baseURL:    base,
		locales:    opts.Locales,
		lenient:    opts.Lenient,
		appErrors:  !opts.IgnoreApplicationErrors,
		hooks:      opts.Hooks,
		userAgent:  opts.UserAgent,
	}
	if c.locales == nil {
		c.locales = locale.DefaultSet()
	}
	if c.hooks == nil {
		c.hooks = observability.NopHooks{}
	}
	if c.userAgent == "" {
		c.userAgent = version.UserAgent()
	}
	return c, nil
}

// Locales returns the client's locale set.
func (c *Client) Locales() *locale.Set {
	return c.locales
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL builds the request URL for path in the given locale. The locale is
// normalized first; unrecognized codes become the default locale. A query
// string in path is kept, filters replace its keys, and lang is always the
// normalized locale.
func (c *Client) URL(path, lang string, filters Filters) string {
	target := c.baseURL
	switch {
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		target = path
	case path != "":
		target += "/" + strings.TrimLeft(path, "/")
	}

	u, err := url.Parse(target)
	if err != nil {
		q := filters.Values()
		q.Set(LangParam, c.locales.Normalize(lang))
		return target + "?" + q.Encode()
	}

	q := u.Query()
	for key, values := range filters.Values() {
		q[key] = values
	}
	q.Set(LangParam, c.locales.Normalize(lang))
	u.RawQuery = q.Encode()
	return u.String()
}

// Get performs one GET request for path in the given locale.
func (c *Client) Get(ctx context.Context, path, lang string, filters Filters) (*Response, error) {
	served := c.locales.Normalize(lang)
	info := observability.RequestInfo{
		Method:    http.MethodGet,
		URL:       c.URL(path, served, filters),
		RequestID: xid.New().String(),
	}

	ctx = c.hooks.OnRequestStart(ctx, info)
	start := time.Now()
	resp, err := c.do(ctx, info)
	result := observability.RequestResult{Duration: time.Since(start), Error: err}
	if resp != nil {
		result.StatusCode = resp.StatusCode
		result.ContentType = resp.ContentType
		result.Empty = resp.Empty
		resp.Locale = served
	} else if status := output.StatusOf(err); status != 0 {
		result.StatusCode = status
	}
	c.hooks.OnRequestEnd(ctx, info, result)

	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, info observability.RequestInfo) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, info.Method, info.URL, nil)
	if err != nil {
		return nil, output.ErrUsage(fmt.Sprintf("Invalid request URL: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", info.RequestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		// Headers arrived but the body did not.
		return nil, output.ErrNetwork(err)
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, output.ErrHTTP(resp.StatusCode, errorMessage(body))
	}

	out := &Response{
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		ContentType: contentType,
		RequestID:   info.RequestID,
	}

	if resp.StatusCode == http.StatusNoContent {
		out.Data = json.RawMessage("null")
		out.Empty = true
		return out, nil
	}

	if !isJSON(contentType) {
		if c.lenient {
			out.Data = json.RawMessage("null")
			out.Empty = true
			return out, nil
		}
		return nil, output.ErrFormat(contentType, nil)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, output.ErrFormat(contentType, fmt.Errorf("decode JSON: %w", err))
	}
	if msg, failed := applicationFailure(doc); failed && c.appErrors {
		return nil, output.ErrApplication(msg)
	}

	out.Data = body
	return out, nil
}

// isJSON reports whether a content type denotes a JSON document.
func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// applicationFailure detects a failure signalled inside a 2xx JSON body:
// {"success": false, ...} or {"status": "error", ...}.
func applicationFailure(doc any) (string, bool) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return "", false
	}
	if success, ok := obj["success"].(bool); ok && !success {
		return messageOf(obj), true
	}
	if status, ok := obj["status"].(string); ok && strings.EqualFold(status, "error") {
		return messageOf(obj), true
	}
	return "", false
}

// errorMessage extracts a human-readable message from an error body.
func errorMessage(body []byte) string {
	var obj map[string]any
	if json.Unmarshal(body, &obj) != nil {
		return ""
	}
	return messageOf(obj)
}

func messageOf(obj map[string]any) string {
	for _, key := range []string{"error", "message", "detail"} {
		switch v := obj[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg := messageOf(v); msg != "" {
				return msg
			}
		}
	}
	return ""
}

// IsCanceled reports whether err stems from a cancelled context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

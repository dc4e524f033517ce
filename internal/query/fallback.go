package query

import (
	"context"
	"net/http"

	"github.com/campusweb/sitedata/internal/observability"
	"github.com/campusweb/sitedata/internal/output"
)

// NoticeFunc describes a degraded result: content requested in one locale
// but served in another.
type NoticeFunc func(requested, served string) string

// FallbackOption configures LocaleFallback.
type FallbackOption func(*fallbackConfig)

type fallbackConfig struct {
	hooks observability.Hooks
}

// FallbackHooks reports every fallback through h.
func FallbackHooks(h observability.Hooks) FallbackOption {
	return func(c *fallbackConfig) { c.hooks = h }
}

// LocaleFallback retries a request once in defaultLocale when it fails with
// HTTP 500 in any other locale. Backends answer 500 for content missing in
// a translation. A successful retry is marked degraded; a failed retry
// surfaces the retry's error. Requests in the default locale never fall
// back, so the policy cannot loop.
func LocaleFallback[T any](defaultLocale string, notice NoticeFunc, opts ...FallbackOption) Middleware[T] {
	cfg := fallbackConfig{hooks: observability.NopHooks{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next FetchFunc[T]) FetchFunc[T] {
		return func(ctx context.Context, d Descriptor) (Result[T], error) {
			res, err := next(ctx, d)
			if err == nil || output.StatusOf(err) != http.StatusInternalServerError {
				return res, err
			}

			requested := res.Locale
			if requested == "" {
				requested = d.Locale
			}
			if requested == defaultLocale || ctx.Err() != nil {
				return res, err
			}

			cfg.hooks.OnFallback(ctx, observability.FallbackInfo{
				Resource:  d.Resource,
				Requested: requested,
				Served:    defaultLocale,
				Cause:     err,
			})

			res, err = next(ctx, d.WithLocale(defaultLocale))
			if err != nil {
				return res, err
			}
			res.Degraded = true
			if res.Locale == "" {
				res.Locale = defaultLocale
			}
			if notice != nil {
				res.Notice = notice(requested, res.Locale)
			}
			return res, nil
		}
	}
}

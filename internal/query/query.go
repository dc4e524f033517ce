// Package query keeps remote, locale-parameterized resources synchronized
// with the active locale. A Query owns one resource's snapshot and issues
// fetches as Bubble Tea commands; every attempt bumps a generation counter
// so that only the newest attempt can commit.
package query

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/campusweb/sitedata/internal/fetch"
	"github.com/campusweb/sitedata/internal/observability"
)

// UpdatedMsg is sent when a query's snapshot changes.
// Views match on Key to identify which query updated, then read
// typed data via the query's Get() method.
type UpdatedMsg struct {
	Key        string
	Generation uint64
}

// Result is what a fetch function returns.
type Result[T any] struct {
	Data     T
	Locale   string // locale actually served
	Degraded bool
	Notice   string
}

// FetchFunc retrieves data for one descriptor.
type FetchFunc[T any] func(ctx context.Context, d Descriptor) (Result[T], error)

// Middleware wraps a FetchFunc with additional policy.
type Middleware[T any] func(next FetchFunc[T]) FetchFunc[T]

// Describer turns an error into a message for the given locale.
type Describer func(locale string, err error) string

// FromResource adapts a typed resource fetcher. The served locale is the
// normalized form of the requested one, reported even when the fetch fails.
func FromResource[T any](r *fetch.Resource[T]) FetchFunc[T] {
	return func(ctx context.Context, d Descriptor) (Result[T], error) {
		served := r.Client().Locales().Normalize(d.Locale)
		data, err := r.Fetch(ctx, served, d.Filters)
		return Result[T]{Data: data, Locale: served}, err
	}
}

// Option configures a Query.
type Option[T any] func(*Query[T])

// WithInitial sets the data reported before the first success and after Reset.
func WithInitial[T any](data T) Option[T] {
	return func(q *Query[T]) { q.initial = data }
}

// WithMiddleware wraps the fetch function. WithMiddleware(a, b) applies a(b(fn)).
func WithMiddleware[T any](mw ...Middleware[T]) Option[T] {
	return func(q *Query[T]) {
		q.middleware = append(q.middleware, mw...)
	}
}

// WithDescriber sets how failures are turned into messages.
func WithDescriber[T any](d Describer) Option[T] {
	return func(q *Query[T]) { q.describe = d }
}

// WithHooks sets the observability hooks notified for every attempt.
func WithHooks[T any](h observability.Hooks) Option[T] {
	return func(q *Query[T]) { q.hooks = h }
}

// WithLocaleNormalizer maps locale codes to their canonical form before the
// descriptor is built, so aliases of one locale share a fetch.
func WithLocaleNormalizer[T any](normalize func(string) string) Option[T] {
	return func(q *Query[T]) { q.normalize = normalize }
}

// Query is a typed, locale-synchronized data source. One Query per logical
// resource shown by a view; separate queries share nothing.
//
// Sync is the effect: it returns a fetch command only when the descriptor
// changes. Results from superseded attempts are discarded.
type Query[T any] struct {
	mu         sync.RWMutex
	name       string
	fetchFn    FetchFunc[T]
	middleware []Middleware[T]
	initial    T
	describe   Describer
	hooks      observability.Hooks
	normalize  func(string) string

	snapshot   Snapshot[T]
	desc       Descriptor
	key        string
	synced     bool
	version    uint64 // incremented on every data change
	generation uint64 // incremented on every attempt, reset, and cancel
	cancel     context.CancelFunc
}

// New creates a Query named name. The name identifies the query in
// UpdatedMsg and in descriptors, so it must be unique per view.
func New[T any](name string, fn FetchFunc[T], opts ...Option[T]) *Query[T] {
	q := &Query[T]{name: name}
	for _, opt := range opts {
		opt(q)
	}
	for i := len(q.middleware) - 1; i >= 0; i-- {
		fn = q.middleware[i](fn)
	}
	q.fetchFn = fn
	if q.describe == nil {
		q.describe = func(_ string, err error) string { return err.Error() }
	}
	if q.hooks == nil {
		q.hooks = observability.NopHooks{}
	}
	q.snapshot = Snapshot[T]{Data: q.initial}
	return q
}

// Name returns the query's identifier.
func (q *Query[T]) Name() string { return q.name }

// Get returns the current snapshot. Never blocks on a fetch.
func (q *Query[T]) Get() Snapshot[T] {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.snapshot
}

// Version returns the current data version.
func (q *Query[T]) Version() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.version
}

// Generation returns the number of attempts started, reset, or cancelled.
func (q *Query[T]) Generation() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.generation
}

// Descriptor returns the last synced descriptor, if any.
func (q *Query[T]) Descriptor() (Descriptor, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.desc, q.synced
}

// Sync returns a Cmd fetching the resource for locale, filters and deps,
// or nil when the descriptor equals the last synced one.
func (q *Query[T]) Sync(ctx context.Context, locale string, filters fetch.Filters, deps ...any) tea.Cmd {
	if q.normalize != nil {
		locale = q.normalize(locale)
	}
	d := Descriptor{
		Resource: q.name,
		Locale:   locale,
		Filters:  filters.Clone(),
		Deps:     deps,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.synced && q.key == d.Key() {
		return nil
	}
	return q.startLocked(ctx, d)
}

// SetLocale re-syncs the last descriptor in another locale. Returns nil if
// the query was never synced or the locale is unchanged.
func (q *Query[T]) SetLocale(ctx context.Context, locale string) tea.Cmd {
	q.mu.RLock()
	d, synced := q.desc, q.synced
	q.mu.RUnlock()
	if !synced {
		return nil
	}
	return q.Sync(ctx, locale, d.Filters, d.Deps...)
}

// Refetch re-runs the last descriptor immediately, superseding any
// in-flight attempt. Returns nil if the query was never synced.
func (q *Query[T]) Refetch(ctx context.Context) tea.Cmd {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.synced {
		return nil
	}
	return q.startLocked(ctx, q.desc)
}

// Reset cancels any in-flight attempt and restores the initial snapshot.
// The next Sync fetches regardless of its descriptor.
func (q *Query[T]) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.abortLocked()
	q.snapshot = Snapshot[T]{Data: q.initial}
	q.desc = Descriptor{}
	q.key = ""
	q.synced = false
	q.version++
}

// Cancel aborts any in-flight attempt while keeping current data.
// A loading snapshot settles back to idle, or to success when it holds data.
func (q *Query[T]) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.abortLocked()
	if q.snapshot.State == StateLoading {
		q.snapshot.State = StateIdle
		if q.snapshot.HasData {
			q.snapshot.State = StateSuccess
		}
	}
	q.synced = false
	q.key = ""
}

func (q *Query[T]) abortLocked() {
	q.generation++
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}

// startLocked begins a new attempt: previous attempts are superseded,
// the error is cleared, and current data is kept.
func (q *Query[T]) startLocked(parent context.Context, d Descriptor) tea.Cmd {
	q.abortLocked()
	ctx, cancel := context.WithCancel(parent)
	q.cancel = cancel
	gen := q.generation

	q.desc = d
	q.key = d.Key()
	q.synced = true
	q.snapshot.State = StateLoading
	q.snapshot.Err = nil
	q.snapshot.Message = ""

	return func() tea.Msg {
		op := observability.OperationInfo{Resource: q.name, Locale: d.Locale, Generation: gen}
		opCtx := q.hooks.OnOperationStart(ctx, op)
		start := time.Now()
		res, err := q.fetchFn(opCtx, d)
		elapsed := time.Since(start)

		committed := q.commit(ctx, gen, d, res, err)
		op.Stale = !committed
		q.hooks.OnOperationEnd(opCtx, op, err, elapsed)

		if !committed {
			return nil
		}
		return UpdatedMsg{Key: q.name, Generation: gen}
	}
}

// commit applies an attempt's outcome unless it was superseded or cancelled.
func (q *Query[T]) commit(ctx context.Context, gen uint64, d Descriptor, res Result[T], err error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.generation != gen || ctx.Err() != nil {
		return false
	}
	q.cancel()
	q.cancel = nil

	if err != nil {
		q.snapshot.State = StateFailure
		q.snapshot.Err = err
		q.snapshot.Message = q.describe(d.Locale, err)
		return true
	}

	served := res.Locale
	if served == "" {
		served = d.Locale
	}
	q.snapshot = Snapshot[T]{
		Data:      res.Data,
		State:     StateSuccess,
		Degraded:  res.Degraded,
		Locale:    served,
		Notice:    res.Notice,
		HasData:   true,
		FetchedAt: time.Now(),
	}
	q.version++
	return true
}

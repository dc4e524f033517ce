package query

import (
	"context"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/campusweb/sitedata/internal/fetch"
)

// DefaultSearchDelay is the quiet period before a search is issued.
const DefaultSearchDelay = 300 * time.Millisecond

// DebounceMsg is sent when a search's debounce timer expires.
// Messages carrying an outdated Seq are ignored.
type DebounceMsg struct {
	Key string
	Seq uint64
}

// SearchOption configures a Search.
type SearchOption[T any] func(*Search[T])

// WithDelay sets the debounce delay.
func WithDelay[T any](d time.Duration) SearchOption[T] {
	return func(s *Search[T]) { s.delay = d }
}

// WithQueryParam sets the filter key carrying the search text.
func WithQueryParam[T any](key string) SearchOption[T] {
	return func(s *Search[T]) { s.param = key }
}

// WithMinLength sets the shortest trimmed query that triggers a fetch.
func WithMinLength[T any](n int) SearchOption[T] {
	return func(s *Search[T]) { s.minLength = n }
}

// WithBaseFilters sets filters sent with every search.
func WithBaseFilters[T any](f fetch.Filters) SearchOption[T] {
	return func(s *Search[T]) { s.filters = f.Clone() }
}

// WithQueryOptions configures the underlying Query.
func WithQueryOptions[T any](opts ...Option[T]) SearchOption[T] {
	return func(s *Search[T]) { s.queryOpts = append(s.queryOpts, opts...) }
}

// Search is a debounced query: the search text is recorded immediately,
// but a fetch is issued only after the text has been stable for the delay.
// Blank text clears results synchronously without a fetch.
//
// Out-of-order responses are handled by the inner Query: a response for
// an older text never overwrites a newer one.
type Search[T any] struct {
	mu        sync.Mutex
	name      string
	delay     time.Duration
	param     string
	minLength int
	filters   fetch.Filters
	queryOpts []Option[T]

	inner   *Query[T]
	ctx     context.Context
	locale  string
	raw     string
	seq     uint64 // monotonic counter to discard stale debounce msgs
	pending bool
}

// NewSearch creates a debounced search named name.
func NewSearch[T any](name string, fn FetchFunc[T], opts ...SearchOption[T]) *Search[T] {
	s := &Search[T]{
		name:      name,
		delay:     DefaultSearchDelay,
		param:     "q",
		minLength: 1,
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.inner = New(name, fn, s.queryOpts...)
	return s
}

// Name returns the search's identifier, shared with its inner Query.
func (s *Search[T]) Name() string { return s.name }

// Inner returns the underlying Query.
func (s *Search[T]) Inner() *Query[T] { return s.inner }

// Query returns the raw search text as last set.
func (s *Search[T]) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// Results returns the snapshot of the most recent settled search.
func (s *Search[T]) Results() Snapshot[T] {
	return s.inner.Get()
}

// Pending reports whether a debounce timer is running.
func (s *Search[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// SetQuery records q and schedules a debounced fetch. Any earlier pending
// timer is superseded. Text that is blank after trimming (or shorter than
// the minimum length) resets results immediately and returns nil.
func (s *Search[T]) SetQuery(ctx context.Context, locale, q string) tea.Cmd {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = ctx
	s.locale = locale
	s.raw = q
	s.seq++

	if !s.searchableLocked() {
		s.pending = false
		s.inner.Reset()
		return nil
	}

	s.pending = true
	msg := DebounceMsg{Key: s.name, Seq: s.seq}
	return tea.Tick(s.delay, func(time.Time) tea.Msg {
		return msg
	})
}

// Update handles this search's DebounceMsg and returns the fetch command
// when the timer is current. Other messages yield nil.
func (s *Search[T]) Update(msg tea.Msg) tea.Cmd {
	m, ok := msg.(DebounceMsg)
	if !ok || m.Key != s.name {
		return nil
	}

	s.mu.Lock()
	if m.Seq != s.seq || !s.pending {
		s.mu.Unlock()
		return nil
	}
	s.pending = false
	ctx, locale, filters := s.ctx, s.locale, s.filtersLocked()
	s.mu.Unlock()

	return s.inner.Sync(ctx, locale, filters)
}

// SetLocale re-runs the current search in another locale. While a timer
// is pending, the new locale is picked up when it fires.
func (s *Search[T]) SetLocale(ctx context.Context, locale string) tea.Cmd {
	s.mu.Lock()
	s.ctx = ctx
	s.locale = locale
	if s.pending || !s.searchableLocked() {
		s.mu.Unlock()
		return nil
	}
	filters := s.filtersLocked()
	s.mu.Unlock()

	return s.inner.Sync(ctx, locale, filters)
}

// Refetch re-runs the last issued search immediately.
func (s *Search[T]) Refetch(ctx context.Context) tea.Cmd {
	return s.inner.Refetch(ctx)
}

// Reset clears the text, drops any pending timer, and resets results.
func (s *Search[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = ""
	s.seq++
	s.pending = false
	s.inner.Reset()
}

func (s *Search[T]) searchableLocked() bool {
	trimmed := strings.TrimSpace(s.raw)
	return trimmed != "" && len([]rune(trimmed)) >= s.minLength
}

func (s *Search[T]) filtersLocked() fetch.Filters {
	return s.filters.With(s.param, strings.TrimSpace(s.raw))
}

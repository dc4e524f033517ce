package query

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Syncer is the non-generic interface for query lifecycle management.
// Scope uses this to manage queries and searches of different types uniformly.
type Syncer interface {
	Name() string
	SetLocale(ctx context.Context, locale string) tea.Cmd
	Reset()
}

var (
	_ Syncer = (*Query[any])(nil)
	_ Syncer = (*Search[any])(nil)
)

// Scope groups the queries of one view with a shared lifetime.
// A locale change re-syncs every member; teardown cancels every member's
// in-flight fetch and discards its data.
type Scope struct {
	mu      sync.RWMutex
	name    string
	ctx     context.Context
	cancel  context.CancelFunc
	locale  string
	members map[string]Syncer
	order   []string
}

// NewScope creates a scope with a cancellable context derived from parent.
func NewScope(parent context.Context, name, locale string) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{
		name:    name,
		ctx:     ctx,
		cancel:  cancel,
		locale:  locale,
		members: make(map[string]Syncer),
	}
}

// Name returns the scope's identifier.
func (s *Scope) Name() string { return s.name }

// Context returns the scope's context. Canceled on teardown.
// Pass this to Sync so fetches abort when the view goes away.
func (s *Scope) Context() context.Context { return s.ctx }

// Locale returns the scope's current locale.
func (s *Scope) Locale() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locale
}

// Register adds a member. A member with the same name is replaced.
func (s *Scope) Register(m Syncer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.Name()]; !ok {
		s.order = append(s.order, m.Name())
	}
	s.members[m.Name()] = m
}

// Member returns a registered member by name, or nil if not found.
func (s *Scope) Member(name string) Syncer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members[name]
}

// SetLocale records the new locale and re-syncs every member with it.
// Returns nil when the locale is unchanged.
func (s *Scope) SetLocale(locale string) tea.Cmd {
	s.mu.Lock()
	if locale == s.locale {
		s.mu.Unlock()
		return nil
	}
	s.locale = locale
	members := make([]Syncer, 0, len(s.order))
	for _, name := range s.order {
		members = append(members, s.members[name])
	}
	s.mu.Unlock()

	cmds := make([]tea.Cmd, 0, len(members))
	for _, m := range members {
		cmds = append(cmds, m.SetLocale(s.ctx, locale))
	}
	return tea.Batch(cmds...)
}

// Teardown cancels the scope's context and resets all members.
// After teardown, the scope should not be reused.
func (s *Scope) Teardown() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		m.Reset()
	}
	s.members = make(map[string]Syncer)
	s.order = nil
}

// Use retrieves or creates a typed member within a scope.
//
// Each name maps to exactly one concrete type; callers must be consistent.
func Use[S Syncer](s *Scope, name string, create func() S) S {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.members[name]; ok {
		typed, ok := m.(S)
		if !ok {
			panic(fmt.Sprintf("scope %q: member %q has type %T, want %T", s.name, name, m, *new(S)))
		}
		return typed
	}
	m := create()
	s.members[name] = m
	s.order = append(s.order, name)
	return m
}

package locale

import (
	"sync"
)

// Source exposes the active locale as a reactive value.
// The data layer only reads from a Source; selection happens elsewhere.
type Source interface {
	Current() string
	// Subscribe returns a channel receiving every subsequent change and a
	// function that cancels the subscription and closes the channel.
	Subscribe() (<-chan string, func())
}

// Store is an in-memory Source. Set is the only mutator.
type Store struct {
	mu      sync.RWMutex
	set     *Set
	current string
	subs    map[int]chan string
	nextID  int
}

var _ Source = (*Store)(nil)

// NewStore creates a Store holding the normalized initial locale.
func NewStore(set *Set, initial string) *Store {
	return &Store{
		set:     set,
		current: set.Normalize(initial),
		subs:    make(map[int]chan string),
	}
}

// Current returns the active locale.
func (s *Store) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set normalizes code and publishes it if it differs from the current one.
// Returns the stored code. Slow subscribers only ever see the latest value.
func (s *Store) Set(code string) string {
	code = s.set.Normalize(code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if code == s.current {
		return code
	}
	s.current = code
	for _, ch := range s.subs {
		publish(ch, code)
	}
	return code
}

// Subscribe implements Source.
func (s *Store) Subscribe() (<-chan string, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan string, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// publish replaces any undelivered value in a 1-buffered channel.
func publish(ch chan string, v string) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

package config

import (
	"sync"
	"sync/atomic"
)

// Store is the single owned, versioned configuration holder. Readers get an
// immutable snapshot; every accepted update bumps the version and notifies
// subscribers.
type Store struct {
	mu      sync.Mutex
	cur     atomic.Pointer[Config]
	version atomic.Uint64
	subs    map[int]func(*Config)
	next    int
}

// NewStore creates a Store seeded with cfg (defaults when nil).
func NewStore(cfg *Config) *Store {
	if cfg == nil {
		cfg = Default()
	}
	s := &Store{subs: make(map[int]func(*Config))}
	s.cur.Store(cfg.Clone())
	return s
}

// Current returns the active configuration snapshot. Callers must not
// mutate it.
func (s *Store) Current() *Config {
	return s.cur.Load()
}

// Version returns the current configuration version, starting at 0.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Update validates and installs a new configuration, notifying subscribers.
func (s *Store) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	snapshot := cfg.Clone()
	s.cur.Store(snapshot)
	s.version.Add(1)
	fns := make([]func(*Config), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
	return nil
}

// Subscribe registers a change callback. The returned cancel func removes it.
func (s *Store) Subscribe(fn func(*Config)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

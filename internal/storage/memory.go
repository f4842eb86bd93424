package storage

import "sync"

// Memory is an in-process Store. It backs tests and the degraded mode the
// engine falls into when the persistent backend is unavailable.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	subs map[string]map[int]func([]byte)
	next int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string][]byte),
		subs: make(map[string]map[int]func([]byte)),
	}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) Set(key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.data[key] = stored
	fns := make([]func([]byte), 0, len(m.subs[key]))
	for _, fn := range m.subs[key] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	// Notify outside the lock so callbacks may re-enter the store.
	for _, fn := range fns {
		fn(stored)
	}
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Subscribe(key string, fn func([]byte)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs[key] == nil {
		m.subs[key] = make(map[int]func([]byte))
	}
	id := m.next
	m.next++
	m.subs[key][id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs[key], id)
	}
}

func (m *Memory) Close() error { return nil }

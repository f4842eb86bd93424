// Package auditlog keeps a bounded, queryable record of policy decisions.
// Logically append-only; physically a fixed-capacity ring that evicts the
// oldest entry on overflow. Entries never contain raw sensitive values —
// only category tags and masked previews.
package auditlog

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/storage"
)

// DefaultCapacity bounds the ring when the configuration does not.
const DefaultCapacity = 900

const storageKey = "audit_log"

// persistDelay is how long appends coalesce before the ring is written out.
const persistDelay = 500 * time.Millisecond

// Entry is one recorded decision. All fields are structs or scalars so
// json.Marshal field order is deterministic.
type Entry struct {
	Timestamp time.Time      `json:"ts"`
	Subject   string         `json:"subject"`
	Signals   []string       `json:"signals,omitempty"`
	Score     int            `json:"score"`
	Level     model.Level    `json:"level"`
	Decision  model.Decision `json:"decision"`
	Sample    string         `json:"sample,omitempty"`
}

// Log is the bounded decision log. Append is O(1); the ring never exceeds
// its capacity.
type Log struct {
	mu      sync.RWMutex
	entries []Entry // circular
	head    int     // index of oldest entry
	count   int
	backend storage.Store

	// Persistence is debounced: appends mark the log dirty and schedule a
	// single delayed write, so a burst of decisions costs one backend write,
	// not one per entry.
	pmu   sync.Mutex
	timer *time.Timer
}

// New creates a Log with the given capacity, restoring persisted entries
// from the backend when present. capacity ≤ 0 falls back to the default.
func New(capacity int, backend storage.Store) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Log{entries: make([]Entry, capacity), backend: backend}
	if backend != nil {
		if data, found, err := backend.Get(storageKey); err == nil && found {
			var restored []Entry
			if json.Unmarshal(data, &restored) == nil {
				// Keep only the newest entries if capacity shrank.
				if len(restored) > capacity {
					restored = restored[len(restored)-capacity:]
				}
				for i, e := range restored {
					l.entries[i] = e
				}
				l.count = len(restored)
			}
		}
	}
	return l
}

// Append records an entry, evicting the oldest when full. A missing
// timestamp is filled in; nothing else is touched.
func (l *Log) Append(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	if l.count == len(l.entries) {
		l.entries[l.head] = e
		l.head = (l.head + 1) % len(l.entries)
	} else {
		l.entries[(l.head+l.count)%len(l.entries)] = e
		l.count++
	}
	l.mu.Unlock()

	l.persistSoon()
}

// Entries returns all stored entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.orderedLocked()
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Capacity returns the fixed ring capacity.
func (l *Log) Capacity() int {
	return len(l.entries)
}

// Replace swaps the log contents for the given entries (newest-capacity
// trimmed), used by import. Order is preserved.
func (l *Log) Replace(entries []Entry) {
	l.mu.Lock()
	capacity := len(l.entries)
	if len(entries) > capacity {
		entries = entries[len(entries)-capacity:]
	}
	for i := range l.entries {
		l.entries[i] = Entry{}
	}
	copy(l.entries, entries)
	l.head = 0
	l.count = len(entries)
	snapshot := l.orderedLocked()
	l.mu.Unlock()

	l.persist(snapshot)
}

// Flush writes the current ring to the backend immediately, cancelling any
// pending delayed write. Callers shutting down should flush before closing
// the backend.
func (l *Log) Flush() {
	l.pmu.Lock()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.pmu.Unlock()

	l.persist(l.Entries())
}

// persistSoon schedules a single delayed write. A burst of appends lands in
// one backend write once the timer fires.
func (l *Log) persistSoon() {
	if l.backend == nil {
		return
	}
	l.pmu.Lock()
	defer l.pmu.Unlock()
	if l.timer != nil {
		return
	}
	l.timer = time.AfterFunc(persistDelay, func() {
		l.pmu.Lock()
		l.timer = nil
		l.pmu.Unlock()
		l.persist(l.Entries())
	})
}

func (l *Log) orderedLocked() []Entry {
	out := make([]Entry, 0, l.count)
	for i := 0; i < l.count; i++ {
		out = append(out, l.entries[(l.head+i)%len(l.entries)])
	}
	return out
}

func (l *Log) persist(entries []Entry) {
	if l.backend == nil {
		return
	}
	if data, err := json.Marshal(entries); err == nil {
		// Persistence failure must not block the decision path.
		_ = l.backend.Set(storageKey, data)
	}
}

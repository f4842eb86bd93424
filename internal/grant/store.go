// Package grant owns temporary, trusted, and category-scoped permission
// records with expiry. At most one active grant governs a (site, capability)
// pair; newer grants supersede older ones, expired grants are inert and
// eventually swept, never resurrected.
package grant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ppiankov/pageguard/internal/storage"
)

// Mode classifies a grant.
type Mode string

const (
	// Temporary grants self-expire after their TTL.
	Temporary Mode = "temporary"
	// Trusted grants persist until revoked.
	Trusted Mode = "trusted"
	// CategoryBlocked records a user block for a content category.
	CategoryBlocked Mode = "category_blocked"
)

// Grant is one permission record. The (Site, Capability) pair is the store's
// key.
type Grant struct {
	Site       string     `json:"site"`
	Capability string     `json:"capability"`
	Mode       Mode       `json:"mode"`
	GrantedAt  time.Time  `json:"granted_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Active reports whether the grant is effective at the given instant.
// A grant expiring exactly now is no longer active.
func (g Grant) Active(now time.Time) bool {
	return g.ExpiresAt == nil || now.Before(*g.ExpiresAt)
}

const storageKey = "grants"

// Store holds the grant set. Readers work on an immutable snapshot swapped
// atomically by writers, so a concurrent sweep never exposes a grant as both
// present and absent.
type Store struct {
	mu      sync.Mutex // serializes writers
	snap    atomic.Value
	backend storage.Store
	now     func() time.Time
}

// NewStore creates a Store, loading any persisted grants from the backend.
// A backend read failure degrades to an empty set rather than failing.
func NewStore(backend storage.Store) *Store {
	s := &Store{backend: backend, now: time.Now}
	grants := make(map[string]Grant)
	if backend != nil {
		if data, found, err := backend.Get(storageKey); err == nil && found {
			var list []Grant
			if json.Unmarshal(data, &list) == nil {
				for _, g := range list {
					grants[key(g.Site, g.Capability)] = g
				}
			}
		}
	}
	s.snap.Store(grants)
	return s
}

func key(site, capability string) string {
	return site + "\x00" + capability
}

func (s *Store) snapshot() map[string]Grant {
	return s.snap.Load().(map[string]Grant)
}

// Grant records a permission, replacing any existing grant for the same
// (site, capability) — last write wins, no duplicate accumulation. ttl ≤ 0
// with a Temporary mode means no expiry was requested and is rejected.
func (s *Store) Grant(site, capability string, mode Mode, ttl time.Duration) (Grant, error) {
	if site == "" || capability == "" {
		return Grant{}, fmt.Errorf("grant: site and capability are required")
	}
	switch mode {
	case Temporary, Trusted, CategoryBlocked:
	default:
		return Grant{}, fmt.Errorf("grant: unknown mode %q", mode)
	}
	if mode == Temporary && ttl <= 0 {
		return Grant{}, fmt.Errorf("grant: temporary grants require a positive ttl")
	}

	now := s.now().UTC()
	g := Grant{Site: site, Capability: capability, Mode: mode, GrantedAt: now}
	if ttl > 0 {
		exp := now.Add(ttl)
		g.ExpiresAt = &exp
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.copyLocked()
	next[key(site, capability)] = g
	s.swapAndPersistLocked(next)
	return g, nil
}

// Revoke removes a grant. Returns true if one existed.
func (s *Store) Revoke(site, capability string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(site, capability)
	if _, ok := s.snapshot()[k]; !ok {
		return false
	}
	next := s.copyLocked()
	delete(next, k)
	s.swapAndPersistLocked(next)
	return true
}

// IsActive reports whether an active grant covers (site, capability). Expired
// entries encountered on the read path trigger an opportunistic sweep but are
// never reported active.
func (s *Store) IsActive(site, capability string) bool {
	g, ok := s.snapshot()[key(site, capability)]
	if !ok {
		return false
	}
	if !g.Active(s.now().UTC()) {
		go s.SweepExpired()
		return false
	}
	return true
}

// Lookup returns the grant for (site, capability) if one is active.
func (s *Store) Lookup(site, capability string) (Grant, bool) {
	g, ok := s.snapshot()[key(site, capability)]
	if !ok || !g.Active(s.now().UTC()) {
		return Grant{}, false
	}
	return g, true
}

// SweepExpired removes expired grants and persists the pruned set, returning
// the number removed. Safe to call concurrently with reads.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	cur := s.snapshot()
	removed := 0
	for _, g := range cur {
		if !g.Active(now) {
			removed++
		}
	}
	if removed == 0 {
		return 0
	}

	next := make(map[string]Grant, len(cur)-removed)
	for k, g := range cur {
		if g.Active(now) {
			next[k] = g
		}
	}
	s.swapAndPersistLocked(next)
	return removed
}

// List returns all stored grants, active or not, ordered by site then
// capability.
func (s *Store) List() []Grant {
	cur := s.snapshot()
	out := make([]Grant, 0, len(cur))
	for _, g := range cur {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Site != out[j].Site {
			return out[i].Site < out[j].Site
		}
		return out[i].Capability < out[j].Capability
	})
	return out
}

// RunSweeper sweeps on the given interval until ctx is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpired()
		}
	}
}

// copyLocked clones the current snapshot for modification. Caller holds mu.
func (s *Store) copyLocked() map[string]Grant {
	cur := s.snapshot()
	next := make(map[string]Grant, len(cur)+1)
	for k, g := range cur {
		next[k] = g
	}
	return next
}

// swapAndPersistLocked publishes a new snapshot, then persists it. A backend
// write failure leaves the in-memory state authoritative; it must not block
// the user's current action. Caller holds mu.
func (s *Store) swapAndPersistLocked(next map[string]Grant) {
	s.snap.Store(next)
	if s.backend == nil {
		return
	}
	list := make([]Grant, 0, len(next))
	for _, g := range next {
		list = append(list, g)
	}
	sort.Slice(list, func(i, j int) bool {
		return key(list[i].Site, list[i].Capability) < key(list[j].Site, list[j].Capability)
	})
	if data, err := json.Marshal(list); err == nil {
		// A write failure must not block the current action; the in-memory
		// snapshot stays authoritative.
		_ = s.backend.Set(storageKey, data)
	}
}

package grant

import (
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/pageguard/internal/storage"
)

// fakeClock lets tests advance time explicitly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(storage.NewMemory())
	s.now = clock.Now
	return s, clock
}

func TestTemporaryGrantLifecycle(t *testing.T) {
	s, clock := newTestStore()

	if _, err := s.Grant("site-x", "webcam", Temporary, 5*time.Minute); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !s.IsActive("site-x", "webcam") {
		t.Fatal("expected grant active immediately after creation")
	}

	clock.Advance(6 * time.Minute)
	if removed := s.SweepExpired(); removed != 1 {
		t.Errorf("expected sweep to remove 1, got %d", removed)
	}
	if s.IsActive("site-x", "webcam") {
		t.Error("expected grant inactive after expiry and sweep")
	}
}

func TestExpiredExactlyNowIsInactive(t *testing.T) {
	s, clock := newTestStore()
	s.Grant("site-x", "mic", Temporary, time.Millisecond)
	clock.Advance(time.Millisecond)
	if s.IsActive("site-x", "mic") {
		t.Error("a grant with expiry = now must not be active")
	}
}

func TestSupersession(t *testing.T) {
	s, _ := newTestStore()
	s.Grant("site-x", "webcam", Temporary, time.Minute)
	s.Grant("site-x", "webcam", Trusted, 0)

	grants := s.List()
	if len(grants) != 1 {
		t.Fatalf("expected exactly one grant after supersession, got %d", len(grants))
	}
	if grants[0].Mode != Trusted {
		t.Errorf("expected latest mode to win, got %s", grants[0].Mode)
	}
	if grants[0].ExpiresAt != nil {
		t.Error("trusted grant must carry the latest (absent) expiry")
	}
}

func TestTemporaryRequiresTTL(t *testing.T) {
	s, _ := newTestStore()
	if _, err := s.Grant("site-x", "webcam", Temporary, 0); err == nil {
		t.Error("expected error for temporary grant without ttl")
	}
}

func TestRevoke(t *testing.T) {
	s, _ := newTestStore()
	s.Grant("site-x", "webcam", Trusted, 0)
	if !s.Revoke("site-x", "webcam") {
		t.Fatal("expected revoke to find the grant")
	}
	if s.IsActive("site-x", "webcam") {
		t.Error("expected grant inactive after revoke")
	}
	if s.Revoke("site-x", "webcam") {
		t.Error("expected second revoke to find nothing")
	}
}

func TestSweeperKeepsActiveGrants(t *testing.T) {
	s, clock := newTestStore()
	s.Grant("a", "webcam", Temporary, time.Minute)
	s.Grant("b", "webcam", Temporary, time.Hour)
	s.Grant("c", "webcam", Trusted, 0)

	clock.Advance(2 * time.Minute)
	if removed := s.SweepExpired(); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if !s.IsActive("b", "webcam") || !s.IsActive("c", "webcam") {
		t.Error("active grants must survive the sweep")
	}
	// Nothing left to remove.
	if removed := s.SweepExpired(); removed != 0 {
		t.Errorf("expected idempotent sweep, got %d", removed)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	backend := storage.NewMemory()
	s := NewStore(backend)
	s.Grant("site-x", "webcam", Trusted, 0)
	s.Grant("site-y", "location", Temporary, time.Hour)

	reloaded := NewStore(backend)
	if !reloaded.IsActive("site-x", "webcam") {
		t.Error("expected trusted grant to survive reload")
	}
	if !reloaded.IsActive("site-y", "location") {
		t.Error("expected unexpired temporary grant to survive reload")
	}
	if len(reloaded.List()) != 2 {
		t.Errorf("expected 2 grants after reload, got %d", len(reloaded.List()))
	}
}

func TestNilBackendDegradesGracefully(t *testing.T) {
	s := NewStore(nil)
	if _, err := s.Grant("site-x", "webcam", Trusted, 0); err != nil {
		t.Fatalf("grant without backend: %v", err)
	}
	if !s.IsActive("site-x", "webcam") {
		t.Error("in-memory grant must still work without a backend")
	}
}

func TestConcurrentReadsDuringSweep(t *testing.T) {
	s, clock := newTestStore()
	for _, site := range []string{"a", "b", "c", "d"} {
		s.Grant(site, "webcam", Temporary, time.Minute)
	}
	s.Grant("keep", "webcam", Trusted, 0)
	clock.Advance(2 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				// The trusted grant must be observable at every instant.
				if !s.IsActive("keep", "webcam") {
					t.Error("reader observed trusted grant missing mid-sweep")
					return
				}
			}
		}()
	}
	s.SweepExpired()
	wg.Wait()
}

package cache

import (
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	st := c.Stats()
	if st.Evictions != 1 || st.Hits != 2 || st.Misses != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("user-1", "overview")
	c.Set("user-2", "overview")
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("user-1"); ok {
		t.Fatal("expired entry returned")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("size = %d", c.Size())
	}
	if st := c.Stats(); st.Expired != 2 {
		t.Fatalf("expired = %d, want 2", st.Expired)
	}
}

func TestLRUCacheUpdateMovesToFront(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted after a was refreshed")
	}
	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("a = %d, want 10", v)
	}
	c.Delete("a")
	if c.Size() != 1 {
		t.Fatalf("size = %d after delete", c.Size())
	}
}

func TestManagerCleanAllAndStop(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Hour)

	m := NewManager()
	m.Register("overview", c)
	if n := m.CleanAll(); n != 1 {
		t.Fatalf("CleanAll() = %d, want 1", n)
	}

	m.StartCleanup(10 * time.Millisecond)
	m.StartCleanup(10 * time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager()
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without StartCleanup")
	}
}

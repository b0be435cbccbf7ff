package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is the subset of LRUCache used by services.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
	Stats() Stats
}

// Stats are cumulative counters since the cache was created.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Expired   int64
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic cleanup for a set of named caches.
type Manager struct {
	mu          sync.Mutex
	caches      map[string]Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
	stopOnce    sync.Once
}

func NewManager() *Manager {
	return &Manager{
		caches:      make(map[string]Cleaner),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache under name; a later call with the same name replaces it.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// StartCleanup begins periodic cleanup of all registered caches. Only the
// first call has an effect.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

// CleanAll runs one cleanup pass and returns the number of removed entries.
func (m *Manager) CleanAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for name, c := range m.caches {
		if n := c.CleanExpired(); n > 0 {
			slog.Debug("Cache entries expired", "component", "cache", "cache", name, "removed", n)
			total += n
		}
	}
	return total
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanAll()
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup routine. It is safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.cleanupDone
		}
	})
}

package application

import (
	"sync"
	"time"
)

// diagnosticCache stores the most recent solve diagnostic for a task to
// avoid a repository round trip on repeated identical reads while a task's
// sessions remain unchanged. The engine itself stays stateless (callers
// must still re-solve after any input changes); this cache only shortcuts
// reads of a diagnostic that solveAndPersist already computed.
type diagnosticCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]diagnosticCacheEntry
}

type diagnosticCacheEntry struct {
	diagnostic *TaskDiagnostic
	expiresAt  time.Time
}

func newDiagnosticCache(ttl time.Duration, maxEntries int, now func() time.Time) *diagnosticCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &diagnosticCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]diagnosticCacheEntry),
	}
}

func (c *diagnosticCache) Get(taskID string) (*TaskDiagnostic, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[taskID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, taskID)
		c.mu.Unlock()
		return nil, false
	}
	return cloneDiagnostic(entry.diagnostic), true
}

func (c *diagnosticCache) Store(taskID string, diagnostic *TaskDiagnostic) {
	if c == nil {
		return
	}
	cloned := cloneDiagnostic(diagnostic)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[taskID] = diagnosticCacheEntry{diagnostic: cloned, expiresAt: expiry}
}

func (c *diagnosticCache) Invalidate(taskID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, taskID)
	c.mu.Unlock()
}

func (c *diagnosticCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *diagnosticCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneDiagnostic(diagnostic *TaskDiagnostic) *TaskDiagnostic {
	if diagnostic == nil {
		return nil
	}
	clone := *diagnostic
	return &clone
}

// Package cache provides a content-addressed, in-memory TTL cache for fully
// composed prediction responses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
)

// entry is one cached response. Entries are owned exclusively by the cache;
// the payload pointer is stored and returned whole under the lock, so readers
// never observe a partially written entry.
type entry struct {
	payload      *domain.PredictionResult
	createdAt    time.Time
	expiresAt    time.Time
	lastAccessed time.Time
	hits         int64
}

// Stats is a point-in-time view of cache contents and accounting.
type Stats struct {
	TotalEntries   int     `json:"total_entries"`
	ActiveEntries  int     `json:"active_entries"`
	ExpiredEntries int     `json:"expired_entries"`
	TotalHits      int64   `json:"total_hits"`
	Misses         int64   `json:"misses"`
	Expired        int64   `json:"expired"`
	TTLSeconds     int64   `json:"cache_ttl"`
	MemoryUsageMB  float64 `json:"memory_usage_mb"`
}

// Cache is a TTL-bounded response cache keyed by a digest of the input text
// and, when routing was forced, the override token. All methods are safe for
// concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration

	hits    int64
	misses  int64
	expired int64

	now func() time.Time // test hook
}

// New creates a Cache with the given TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key derives the cache key for a text and optional override token. The
// override is folded into the digest behind a separator that cannot appear in
// text, so overridden and organic calls for identical text never collide.
func Key(text, override string) string {
	h := sha256.New()
	h.Write([]byte(text))
	if override != "" {
		h.Write([]byte{0})
		h.Write([]byte(override))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached payload for text, or (nil, false) on miss. An entry
// past its expiry is treated as a miss and removed. A hit increments the
// entry's hit counter and refreshes its last-access time; the payload is
// returned unchanged.
func (c *Cache) Get(text, override string) (*domain.PredictionResult, bool) {
	key := Key(text, override)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	now := c.now()
	if !now.Before(e.expiresAt) {
		delete(c.entries, key)
		c.expired++
		c.misses++
		return nil, false
	}

	e.hits++
	e.lastAccessed = now
	c.hits++
	return e.payload, true
}

// Set stores payload for text, replacing any previous entry. Expiry is always
// now + TTL and the hit counter restarts at zero.
func (c *Cache) Set(text string, payload *domain.PredictionResult, override string) {
	key := Key(text, override)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = &entry{
		payload:      payload,
		createdAt:    now,
		expiresAt:    now.Add(c.ttl),
		lastAccessed: now,
	}
}

// Clear removes every entry regardless of expiry and returns the count.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := len(c.entries)
	c.entries = make(map[string]*entry)
	return count
}

// CleanupExpired removes every entry whose expiry has passed and returns the
// count removed.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.expired += int64(removed)
	return removed
}

// Stats reports entry counts, hit/miss accounting and an approximate memory
// footprint (sum of JSON-encoded payload sizes).
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	stats := Stats{
		TotalEntries: len(c.entries),
		TotalHits:    c.hits,
		Misses:       c.misses,
		Expired:      c.expired,
		TTLSeconds:   int64(c.ttl.Seconds()),
	}

	var bytes int
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			stats.ActiveEntries++
		} else {
			stats.ExpiredEntries++
		}
		if data, err := json.Marshal(e.payload); err == nil {
			bytes += len(data)
		}
	}
	stats.MemoryUsageMB = float64(bytes) / (1024 * 1024)
	stats.MemoryUsageMB = float64(int(stats.MemoryUsageMB*100)) / 100

	return stats
}

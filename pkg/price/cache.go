package price

import (
	"strings"
	"sync"
	"time"

	"github.com/cpunion/reply-bot/pkg/types"
)

type cachedFacts struct {
	facts     *types.PriceFacts
	timestamp time.Time
}

// Cache keeps lookups for a fixed TTL. A cached nil records a known miss.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cachedFacts
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{entries: make(map[string]cachedFacts), ttl: ttl, now: time.Now}
}

// Get returns the cached facts for entity if still fresh.
func (c *Cache) Get(entity string) (*types.PriceFacts, bool) {
	key := strings.ToLower(entity)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.timestamp) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.facts, true
}

// Set stores facts for entity.
func (c *Cache) Set(entity string, facts *types.PriceFacts) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[strings.ToLower(entity)] = cachedFacts{facts: facts, timestamp: c.now()}
}

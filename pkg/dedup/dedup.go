// Package dedup discards QoS1 redeliveries: a payload whose hash was
// already seen inside the TTL window is processed only once.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type Cache struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
}

func New(ttl time.Duration, max int) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Cache{ttl: ttl, max: max, seen: make(map[string]time.Time, max)}
}

// FirstSeen records id and reports whether it was new (or expired). A
// second call inside the TTL returns false.
func (c *Cache) FirstSeen(id string) bool {
	if id == "" {
		return true
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if exp, ok := c.seen[id]; ok && now.Before(exp) {
		return false
	}
	c.seen[id] = now.Add(c.ttl)
	if len(c.seen) > c.max {
		for k, exp := range c.seen {
			if now.After(exp) {
				delete(c.seen, k)
			}
			if len(c.seen) <= c.max {
				break
			}
		}
	}
	return true
}

// Hash returns the hex digest used as the dedup id for a payload.
func Hash(payload []byte) string {
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:])
}

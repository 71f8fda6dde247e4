package cache

import (
	"sync"
	"time"

	"BluffScan/internal/domain/models"
)

type entry struct {
	matches []models.TickerMatch
	exp     time.Time
}

// TTLCache is an in-process MatchCache. Entries are copied on read and write
// so callers can't mutate cached results.
type TTLCache struct {
	mu sync.RWMutex
	m  map[string]entry
}

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]entry)}
}

var _ MatchCache = (*TTLCache)(nil)

func (c *TTLCache) GetMatches(query string) ([]models.TickerMatch, bool) {
	c.mu.RLock()
	e, ok := c.m[query]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, query)
		c.mu.Unlock()
		return nil, false
	}
	return append([]models.TickerMatch(nil), e.matches...), true
}

func (c *TTLCache) SetMatches(query string, matches []models.TickerMatch, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.m[query] = entry{matches: append([]models.TickerMatch(nil), matches...), exp: exp}
	c.mu.Unlock()
}

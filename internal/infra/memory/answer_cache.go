package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-engine/internal/dynamic"
)

// AnswerCache is an in-process TTL cache over a dynamic answer source,
// for deployments without Redis. Empty answers are never cached.
type AnswerCache struct {
	source dynamic.AnswerSource
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
	sf      singleflight.Group
	rnd     *rand.Rand
}

type cacheEntry struct {
	answer    string
	expiresAt time.Time
}

func NewAnswerCache(source dynamic.AnswerSource, ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithClock overrides the cache clock, for tests.
func (c *AnswerCache) WithClock(now func() time.Time) *AnswerCache {
	c.now = now
	return c
}

func (c *AnswerCache) Compute(ctx context.Context, kind, param string) (string, error) {
	key := kind + "|" + param

	if answer, ok := c.lookup(key); ok {
		return answer, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if answer, ok := c.lookup(key); ok {
			return answer, nil
		}
		answer, err := c.source.Compute(ctx, kind, param)
		if err != nil {
			return "", err
		}
		if answer != "" {
			c.store(key, answer)
		}
		return answer, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *AnswerCache) lookup(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return "", false
	}
	return e.answer, true
}

func (c *AnswerCache) store(key, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{answer: answer, expiresAt: c.now().Add(c.ttlWithJitter())}
}

func (c *AnswerCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-engine/internal/dynamic"
)

// AnswerCache caches computed dynamic-question answers in Redis and
// falls back to the wrapped source on cache miss. Empty answers are not
// cached: a question that cannot run now should be retried next time.
// Keys are stored as: SET dynamic:answer:{kind}:{param} {answer}
type AnswerCache struct {
	client *redis.Client
	source dynamic.AnswerSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAnswerCache(client *redis.Client, source dynamic.AnswerSource, ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AnswerCache) Compute(ctx context.Context, kind, param string) (string, error) {
	key := c.key(kind, param)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil && cached != "" {
		return cached, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := c.client.Get(ctx, key).Result()
		if err == nil && cached != "" {
			return cached, nil
		}

		answer, err := c.source.Compute(ctx, kind, param)
		if err != nil {
			return "", err
		}
		if answer != "" {
			_ = c.client.Set(ctx, key, answer, c.ttlWithJitter()).Err()
		}
		return answer, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *AnswerCache) key(kind, param string) string {
	if param == "" {
		return "dynamic:answer:" + kind
	}
	return "dynamic:answer:" + kind + ":" + param
}

func (c *AnswerCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

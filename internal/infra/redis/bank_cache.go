package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"arcquiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionSource fetches the question bank from a backing store.
type QuestionSource interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// BankCache shares the validated bank between instances through Redis and
// falls back to the source on a cache miss. Redis failures degrade to the
// source rather than failing the request.
type BankCache struct {
	client *redis.Client
	source QuestionSource
	key    string
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankCache(client *redis.Client, source QuestionSource, name string, ttl time.Duration) *BankCache {
	return &BankCache{
		client: client,
		source: source,
		key:    "quiz:bank:" + name,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *BankCache) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	if bank, ok := c.cached(ctx); ok {
		return bank, nil
	}

	result, err, _ := c.sf.Do(c.key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := c.cached(ctx); ok {
			return bank, nil
		}

		bank, err := c.source.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		// A non-positive ttl disables caching; SET with zero expiry would never expire.
		if c.ttl > 0 {
			if raw, err := json.Marshal(bank); err == nil {
				_ = c.client.Set(ctx, c.key, raw, c.ttlWithJitter()).Err()
			}
		}
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	bank := result.([]domain.Question)
	out := make([]domain.Question, len(bank))
	copy(out, bank)
	return out, nil
}

// Invalidate removes the shared copy, forcing the next load to hit the source.
func (c *BankCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

func (c *BankCache) cached(ctx context.Context) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		return nil, false
	}
	var bank []domain.Question
	if err := json.Unmarshal(raw, &bank); err != nil || len(bank) == 0 {
		return nil, false
	}
	return bank, true
}

func (c *BankCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

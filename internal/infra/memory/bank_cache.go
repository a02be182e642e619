package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"arcquiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionSource fetches the question bank from a backing store.
type QuestionSource interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// BankCache caches a validated bank with TTL to avoid re-reading the source
// on every request. Load errors are never cached.
type BankCache struct {
	source QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	bank      []domain.Question
	expiresAt time.Time
}

func NewBankCache(source QuestionSource, ttl time.Duration) *BankCache {
	return &BankCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *BankCache) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	if bank, ok := c.cached(c.clock()); ok {
		return bank, nil
	}

	result, err, _ := c.sf.Do("bank", func() (interface{}, error) {
		now := c.clock()
		if bank, ok := c.cached(now); ok {
			return bank, nil
		}

		bank, err := c.source.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		ttl := c.ttlWithJitter()
		c.mu.Lock()
		c.bank = bank
		c.expiresAt = now.Add(ttl)
		c.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return copyBank(result.([]domain.Question)), nil
}

// Invalidate drops the cached bank.
func (c *BankCache) Invalidate() {
	c.mu.Lock()
	c.bank = nil
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *BankCache) cached(now time.Time) ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.bank == nil || !c.expiresAt.After(now) {
		return nil, false
	}
	return copyBank(c.bank), true
}

func (c *BankCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations; rnd is only used under sf
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func copyBank(bank []domain.Question) []domain.Question {
	out := make([]domain.Question, len(bank))
	copy(out, bank)
	return out
}

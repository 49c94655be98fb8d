package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"expo-quiz-service/internal/domain"
)

// QuestionCache fronts a QuestionStore with a TTL cache. Questions are
// immutable once a quiz starts, so observers hammering the store on every
// change event can share one cached read. Replace writes through and drops
// the cache.
type QuestionCache struct {
	store QuestionStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu        sync.RWMutex
	questions []domain.Question
	byID      map[string]domain.Question
	expiresAt time.Time
}

func NewQuestionCache(store QuestionStore, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		store: store,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithClock overrides the cache's time source for deterministic tests.
func (c *QuestionCache) WithClock(now func() time.Time) *QuestionCache {
	c.clock = now
	return c
}

func (c *QuestionCache) All(ctx context.Context) ([]domain.Question, error) {
	if questions, ok := c.cached(); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do("questions", func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if questions, ok := c.cached(); ok {
			return questions, nil
		}
		questions, err := c.store.All(ctx)
		if err != nil {
			return nil, err
		}
		c.fill(questions)
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) ByID(ctx context.Context, id string) (domain.Question, error) {
	if _, err := c.All(ctx); err != nil {
		return domain.Question{}, err
	}
	c.mu.RLock()
	question, ok := c.byID[id]
	c.mu.RUnlock()
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, nil
}

func (c *QuestionCache) Replace(ctx context.Context, questions []domain.Question) error {
	if err := c.store.Replace(ctx, questions); err != nil {
		return err
	}
	c.mu.Lock()
	c.questions = nil
	c.byID = nil
	c.expiresAt = time.Time{}
	c.mu.Unlock()
	return nil
}

func (c *QuestionCache) cached() ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.questions == nil || !c.expiresAt.After(c.clock()) {
		return nil, false
	}
	return c.questions, true
}

func (c *QuestionCache) fill(questions []domain.Question) {
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	c.mu.Lock()
	c.questions = questions
	c.byID = byID
	c.expiresAt = c.clock().Add(c.ttlWithJitter())
	c.mu.Unlock()
}

// ttlWithJitter spreads expirations by up to 10% to avoid stampedes.
func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
